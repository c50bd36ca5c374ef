package dto

import (
	"time"

	"tudu/internal/models"
)

// TodoParsed is the validated result of turning free text into todo fields.
// It is shown to the user for review and never persisted directly.
type TodoParsed struct {
	Title             string                `json:"title"`
	Description       *string               `json:"description"`
	DueDate           *time.Time            `json:"dueDate"`
	Priority          models.TodoPriority   `json:"priority"`
	Category          *models.TodoCategory  `json:"category"`
	Tags              []string              `json:"tags"`
	IsRecurring       bool                  `json:"isRecurring"`
	RecurrencePattern *string               `json:"recurrencePattern"`
	ChecklistItems    []ParsedChecklistItem `json:"checklistItems"`
	Confidence        *float64              `json:"confidence,omitempty"`
}

type ParsedChecklistItem struct {
	Title string `json:"title"`
	Order int    `json:"order"`
}
