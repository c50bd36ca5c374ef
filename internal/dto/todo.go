package dto

import (
	"strings"
	"time"

	"tudu/internal/models"
	"tudu/pkg/apperrors"
)

type CreateTodoRequest struct {
	Title             string                       `json:"title" validate:"required,max=500"`
	Description       *string                      `json:"description" validate:"omitempty,max=5000"`
	DueDate           *time.Time                   `json:"dueDate"`
	Priority          *models.TodoPriority         `json:"priority" validate:"omitempty,todo_priority"`
	Category          *models.TodoCategory         `json:"category" validate:"omitempty,todo_category"`
	Tags              []string                     `json:"tags" validate:"omitempty,max=50,dive,required,max=100"`
	IsRecurring       bool                         `json:"isRecurring"`
	RecurrencePattern *string                      `json:"recurrencePattern" validate:"omitempty,max=200"`
	ChecklistItems    []CreateChecklistItemRequest `json:"checklistItems" validate:"omitempty,max=100,dive"`
}

// Normalize trims text fields and folds empty optionals to nil so that
// validation sees what would be stored.
func (r *CreateTodoRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = trimToNil(r.Description)
	if r.Category != nil && *r.Category == "" {
		r.Category = nil
	}
	r.Tags = cleanTags(r.Tags)
	r.RecurrencePattern = trimToNil(r.RecurrencePattern)
	if !r.IsRecurring {
		r.RecurrencePattern = nil
	}
	for i := range r.ChecklistItems {
		r.ChecklistItems[i].Normalize()
	}
}

type CreateChecklistItemRequest struct {
	Title string `json:"title" validate:"required,max=500"`
	Order *int   `json:"order" validate:"omitempty,gte=0"`
}

func (r *CreateChecklistItemRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
}

// UpdateTodoRequest is decoded strictly: unknown keys are rejected and
// every key present is applied, null included.
type UpdateTodoRequest struct {
	Title             models.Optional[string]              `json:"title"`
	Description       models.Optional[string]              `json:"description"`
	DueDate           models.Optional[time.Time]           `json:"dueDate"`
	Priority          models.Optional[models.TodoPriority] `json:"priority"`
	Category          models.Optional[models.TodoCategory] `json:"category"`
	Tags              models.Optional[[]string]            `json:"tags"`
	IsRecurring       models.Optional[bool]                `json:"isRecurring"`
	RecurrencePattern models.Optional[string]              `json:"recurrencePattern"`
	IsCompleted       models.Optional[bool]                `json:"isCompleted"`
}

// ToPatch validates the request and converts it into a storage patch.
func (r *UpdateTodoRequest) ToPatch() (models.TodoPatch, error) {
	patch := models.TodoPatch{
		DueDate:     r.DueDate,
		IsCompleted: r.IsCompleted,
		IsRecurring: r.IsRecurring,
	}

	if r.Title.Set {
		if r.Title.Value == nil || strings.TrimSpace(*r.Title.Value) == "" {
			return patch, apperrors.ValidationFailed("title cannot be empty", "")
		}
		title := strings.TrimSpace(*r.Title.Value)
		if len([]rune(title)) > 500 {
			return patch, apperrors.ValidationFailed("title is too long (max 500 characters)", "")
		}
		patch.Title = models.Some(title)
	}

	if r.Description.Set {
		patch.Description = models.Optional[string]{Set: true, Value: trimToNil(r.Description.Value)}
	}

	if r.Priority.Set {
		if r.Priority.Value == nil || !r.Priority.Value.IsValid() {
			return patch, apperrors.ValidationFailed(
				"priority must be one of "+joinValues(models.TodoPriorities), "")
		}
		patch.Priority = r.Priority
	}

	if r.Category.Set {
		switch {
		case r.Category.Value == nil || *r.Category.Value == "":
			patch.Category = models.Null[models.TodoCategory]()
		case !r.Category.Value.IsValid():
			return patch, apperrors.ValidationFailed(
				"category must be one of "+joinValues(models.TodoCategories), string(*r.Category.Value))
		default:
			patch.Category = r.Category
		}
	}

	if r.Tags.Set {
		var tags []string
		if r.Tags.Value != nil {
			tags = *r.Tags.Value
		}
		patch.Tags = models.Some(cleanTags(tags))
	}

	if r.IsRecurring.Set && r.IsRecurring.Value == nil {
		return patch, apperrors.ValidationFailed("isRecurring cannot be null", "")
	}
	if r.IsCompleted.Set && r.IsCompleted.Value == nil {
		return patch, apperrors.ValidationFailed("isCompleted cannot be null", "")
	}

	if r.RecurrencePattern.Set {
		patch.RecurrencePattern = models.Optional[string]{Set: true, Value: trimToNil(r.RecurrencePattern.Value)}
	}
	if r.IsRecurring.Set && !*r.IsRecurring.Value {
		patch.RecurrencePattern = models.Null[string]()
	}

	if patch.IsEmpty() {
		return patch, apperrors.ValidationFailed("No fields to update", "")
	}
	return patch, nil
}

type UpdateChecklistItemRequest struct {
	Title       models.Optional[string] `json:"title"`
	IsCompleted models.Optional[bool]   `json:"isCompleted"`
	Order       models.Optional[int]    `json:"order"`
}

func (r *UpdateChecklistItemRequest) ToPatch() (models.ChecklistPatch, error) {
	var patch models.ChecklistPatch

	if r.Title.Set {
		if r.Title.Value == nil || strings.TrimSpace(*r.Title.Value) == "" {
			return patch, apperrors.ValidationFailed("title cannot be empty", "")
		}
		patch.Title = models.Some(strings.TrimSpace(*r.Title.Value))
	}
	if r.IsCompleted.Set {
		if r.IsCompleted.Value == nil {
			return patch, apperrors.ValidationFailed("isCompleted cannot be null", "")
		}
		patch.IsCompleted = r.IsCompleted
	}
	if r.Order.Set {
		if r.Order.Value == nil || *r.Order.Value < 0 {
			return patch, apperrors.ValidationFailed("order must be a non-negative integer", "")
		}
		patch.Order = r.Order
	}

	if patch.IsEmpty() {
		return patch, apperrors.ValidationFailed("No fields to update", "")
	}
	return patch, nil
}

type CreateAttachmentRequest struct {
	Type     models.AttachmentType `json:"type" validate:"required,attachment_type"`
	Content  string                `json:"content" validate:"required,max=100000"`
	FileName *string               `json:"fileName" validate:"omitempty,max=255"`
}

func (r *CreateAttachmentRequest) Normalize() {
	r.Content = strings.TrimSpace(r.Content)
	r.FileName = trimToNil(r.FileName)
	if r.Type == models.AttachmentTypeNote {
		r.FileName = nil
	}
}

type ParseTodoRequest struct {
	Text *string `json:"text"`
}

type TodoResponse struct {
	ID                string                   `json:"id"`
	Title             string                   `json:"title"`
	Description       *string                  `json:"description"`
	DueDate           *time.Time               `json:"dueDate"`
	Priority          string                   `json:"priority"`
	Category          *string                  `json:"category"`
	Tags              []string                 `json:"tags"`
	IsRecurring       bool                     `json:"isRecurring"`
	RecurrencePattern *string                  `json:"recurrencePattern"`
	IsCompleted       bool                     `json:"isCompleted"`
	CompletedAt       *time.Time               `json:"completedAt"`
	CreatedAt         time.Time                `json:"createdAt"`
	UpdatedAt         time.Time                `json:"updatedAt"`
	ChecklistItems    []*ChecklistItemResponse `json:"checklistItems"`
	Attachments       []*AttachmentResponse    `json:"attachments"`
}

type ChecklistItemResponse struct {
	ID          string    `json:"id"`
	TodoID      string    `json:"todoId"`
	Title       string    `json:"title"`
	IsCompleted bool      `json:"isCompleted"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"createdAt"`
}

type AttachmentResponse struct {
	ID        string    `json:"id"`
	TodoID    string    `json:"todoId"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	FileName  *string   `json:"fileName"`
	CreatedAt time.Time `json:"createdAt"`
}

type DeletedResponse struct {
	ID string `json:"id"`
}

func NewTodoResponse(todo *models.Todo) *TodoResponse {
	resp := &TodoResponse{
		ID:                todo.ID.String(),
		Title:             todo.Title,
		Description:       todo.Description,
		DueDate:           todo.DueDate,
		Priority:          string(todo.Priority),
		Tags:              todo.Tags,
		IsRecurring:       todo.IsRecurring,
		RecurrencePattern: todo.RecurrencePattern,
		IsCompleted:       todo.IsCompleted,
		CompletedAt:       todo.CompletedAt,
		CreatedAt:         todo.CreatedAt,
		UpdatedAt:         todo.UpdatedAt,
		ChecklistItems:    make([]*ChecklistItemResponse, 0, len(todo.ChecklistItems)),
		Attachments:       make([]*AttachmentResponse, 0, len(todo.Attachments)),
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if todo.Category != nil {
		category := string(*todo.Category)
		resp.Category = &category
	}
	for _, item := range todo.ChecklistItems {
		resp.ChecklistItems = append(resp.ChecklistItems, NewChecklistItemResponse(item))
	}
	for _, att := range todo.Attachments {
		resp.Attachments = append(resp.Attachments, NewAttachmentResponse(att))
	}
	return resp
}

func NewTodoListResponse(todos []*models.Todo) []*TodoResponse {
	out := make([]*TodoResponse, 0, len(todos))
	for _, todo := range todos {
		out = append(out, NewTodoResponse(todo))
	}
	return out
}

func NewChecklistItemResponse(item *models.ChecklistItem) *ChecklistItemResponse {
	return &ChecklistItemResponse{
		ID:          item.ID.String(),
		TodoID:      item.TodoID.String(),
		Title:       item.Title,
		IsCompleted: item.IsCompleted,
		Order:       item.Order,
		CreatedAt:   item.CreatedAt,
	}
}

func NewAttachmentResponse(att *models.Attachment) *AttachmentResponse {
	return &AttachmentResponse{
		ID:        att.ID.String(),
		TodoID:    att.TodoID.String(),
		Type:      string(att.Type),
		Content:   att.Content,
		FileName:  att.FileName,
		CreatedAt: att.CreatedAt,
	}
}

type BreakdownResponse struct {
	Key       string `json:"key"`
	Total     int64  `json:"total"`
	Completed int64  `json:"completed"`
}

type TodoStatsResponse struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
	Pending   int64 `json:"pending"`
	Overdue   int64 `json:"overdue"`
}

type DailyCountResponse struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type TodoAnalyticsResponse struct {
	CategoryBreakdown  []BreakdownResponse  `json:"categoryBreakdown"`
	PriorityBreakdown  []BreakdownResponse  `json:"priorityBreakdown"`
	Stats              TodoStatsResponse    `json:"stats"`
	CompletionOverTime []DailyCountResponse `json:"completionOverTime"`
}

func NewTodoAnalyticsResponse(a *models.TodoAnalytics) *TodoAnalyticsResponse {
	resp := &TodoAnalyticsResponse{
		CategoryBreakdown:  make([]BreakdownResponse, 0, len(a.ByCategory)),
		PriorityBreakdown:  make([]BreakdownResponse, 0, len(a.ByPriority)),
		CompletionOverTime: make([]DailyCountResponse, 0, len(a.CompletionOverTime)),
		Stats: TodoStatsResponse{
			Total:     a.Stats.Total,
			Completed: a.Stats.Completed,
			Pending:   a.Stats.Pending,
			Overdue:   a.Stats.Overdue,
		},
	}
	for _, b := range a.ByCategory {
		resp.CategoryBreakdown = append(resp.CategoryBreakdown, BreakdownResponse(b))
	}
	for _, b := range a.ByPriority {
		resp.PriorityBreakdown = append(resp.PriorityBreakdown, BreakdownResponse(b))
	}
	for _, d := range a.CompletionOverTime {
		resp.CompletionOverTime = append(resp.CompletionOverTime, DailyCountResponse(d))
	}
	return resp
}

func trimToNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
