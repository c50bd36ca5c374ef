package models

import (
	"time"

	"github.com/google/uuid"
)

type TodoPriority string

const (
	PriorityHigh   TodoPriority = "high"
	PriorityMedium TodoPriority = "medium"
	PriorityLow    TodoPriority = "low"
	PriorityNone   TodoPriority = "none"
)

var TodoPriorities = []TodoPriority{PriorityHigh, PriorityMedium, PriorityLow, PriorityNone}

func (p TodoPriority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow, PriorityNone:
		return true
	}
	return false
}

// Rank orders priorities for listing: high first, none last.
func (p TodoPriority) Rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

type TodoCategory string

const (
	TodoCategoryWork      TodoCategory = "work"
	TodoCategoryPersonal  TodoCategory = "personal"
	TodoCategoryShopping  TodoCategory = "shopping"
	TodoCategoryHealth    TodoCategory = "health"
	TodoCategoryFinance   TodoCategory = "finance"
	TodoCategoryHome      TodoCategory = "home"
	TodoCategoryEducation TodoCategory = "education"
	TodoCategorySocial    TodoCategory = "social"
	TodoCategoryOther     TodoCategory = "other"
)

var TodoCategories = []TodoCategory{
	TodoCategoryWork, TodoCategoryPersonal, TodoCategoryShopping, TodoCategoryHealth,
	TodoCategoryFinance, TodoCategoryHome, TodoCategoryEducation, TodoCategorySocial,
	TodoCategoryOther,
}

func (c TodoCategory) IsValid() bool {
	for _, known := range TodoCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Todo is a task with its checklist and attachments. CompletedAt is set
// exactly when IsCompleted is true.
type Todo struct {
	ID                uuid.UUID     `db:"id"`
	Title             string        `db:"title"`
	Description       *string       `db:"description"`
	DueDate           *time.Time    `db:"due_date"`
	Priority          TodoPriority  `db:"priority"`
	Category          *TodoCategory `db:"category"`
	Tags              []string      `db:"tags"`
	IsRecurring       bool          `db:"is_recurring"`
	RecurrencePattern *string       `db:"recurrence_pattern"`
	IsCompleted       bool          `db:"is_completed"`
	CompletedAt       *time.Time    `db:"completed_at"`
	CreatedAt         time.Time     `db:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at"`

	ChecklistItems []*ChecklistItem `db:"-"`
	Attachments    []*Attachment    `db:"-"`
}

type ChecklistItem struct {
	ID          uuid.UUID `db:"id"`
	TodoID      uuid.UUID `db:"todo_id"`
	Title       string    `db:"title"`
	IsCompleted bool      `db:"is_completed"`
	Order       int       `db:"sort_order"`
	CreatedAt   time.Time `db:"created_at"`
}

type AttachmentType string

const (
	AttachmentTypeNote AttachmentType = "note"
	AttachmentTypeFile AttachmentType = "file"
)

func (t AttachmentType) IsValid() bool {
	return t == AttachmentTypeNote || t == AttachmentTypeFile
}

type Attachment struct {
	ID        uuid.UUID      `db:"id"`
	TodoID    uuid.UUID      `db:"todo_id"`
	Type      AttachmentType `db:"type"`
	Content   string         `db:"content"`
	FileName  *string        `db:"file_name"`
	CreatedAt time.Time      `db:"created_at"`
}

// TodoPatch lists the fields an update may touch. Unset fields are left
// alone; a set field with a nil Value clears the column.
type TodoPatch struct {
	Title             Optional[string]
	Description       Optional[string]
	DueDate           Optional[time.Time]
	Priority          Optional[TodoPriority]
	Category          Optional[TodoCategory]
	Tags              Optional[[]string]
	IsRecurring       Optional[bool]
	RecurrencePattern Optional[string]
	IsCompleted       Optional[bool]
}

func (p TodoPatch) IsEmpty() bool {
	return !p.Title.Set && !p.Description.Set && !p.DueDate.Set && !p.Priority.Set &&
		!p.Category.Set && !p.Tags.Set && !p.IsRecurring.Set && !p.RecurrencePattern.Set &&
		!p.IsCompleted.Set
}

type ChecklistPatch struct {
	Title       Optional[string]
	IsCompleted Optional[bool]
	Order       Optional[int]
}

func (p ChecklistPatch) IsEmpty() bool {
	return !p.Title.Set && !p.IsCompleted.Set && !p.Order.Set
}

// TodoFilter narrows a todo listing. The zero value hides todos completed
// more than a day ago.
type TodoFilter struct {
	IncludeOldCompleted bool
	Category            *TodoCategory
	Priority            *TodoPriority
	DateRange           *DateRange
}

// DateRange is an inclusive [From, To] window.
type DateRange struct {
	From time.Time
	To   time.Time
}
