package dto

import (
	"encoding/json"
	"strings"
	"testing"

	"tudu/internal/models"
	"tudu/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTodoRequestValidation(t *testing.T) {
	priority := func(p string) *models.TodoPriority { v := models.TodoPriority(p); return &v }
	category := func(c string) *models.TodoCategory { v := models.TodoCategory(c); return &v }

	tests := []struct {
		name    string
		req     CreateTodoRequest
		wantErr string
	}{
		{name: "minimal", req: CreateTodoRequest{Title: "Buy milk"}},
		{name: "blank title", req: CreateTodoRequest{Title: "   "}, wantErr: "title is required"},
		{name: "bad priority", req: CreateTodoRequest{Title: "x", Priority: priority("urgent")}, wantErr: "priority must be one of"},
		{name: "bad category", req: CreateTodoRequest{Title: "x", Category: category("groceries")}, wantErr: "category must be one of"},
		{name: "empty category folds to null", req: CreateTodoRequest{Title: "x", Category: category("")}},
		{
			name:    "blank checklist title",
			req:     CreateTodoRequest{Title: "x", ChecklistItems: []CreateChecklistItemRequest{{Title: " "}}},
			wantErr: "title is required",
		},
		{name: "title too long", req: CreateTodoRequest{Title: strings.Repeat("a", 501)}, wantErr: "too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Normalize()
			err := Validate(&tt.req)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.ValidationError))
			appErr, _ := apperrors.As(err)
			assert.Contains(t, appErr.Message, tt.wantErr)
		})
	}
}

func TestCreateTodoRequestNormalizeDropsPatternWhenNotRecurring(t *testing.T) {
	pattern := "weekly"
	req := CreateTodoRequest{Title: " Water plants ", RecurrencePattern: &pattern, Tags: []string{" home ", ""}}
	req.Normalize()

	assert.Equal(t, "Water plants", req.Title)
	assert.Nil(t, req.RecurrencePattern)
	assert.Equal(t, []string{"home"}, req.Tags)
}

func TestUpdateTodoRequestToPatch(t *testing.T) {
	decode := func(t *testing.T, body string) UpdateTodoRequest {
		t.Helper()
		var req UpdateTodoRequest
		require.NoError(t, json.Unmarshal([]byte(body), &req))
		return req
	}

	t.Run("null description clears it", func(t *testing.T) {
		req := decode(t, `{"description": null}`)
		patch, err := req.ToPatch()
		require.NoError(t, err)
		assert.True(t, patch.Description.Set)
		assert.Nil(t, patch.Description.Value)
		assert.False(t, patch.Title.Set)
	})

	t.Run("completion flag", func(t *testing.T) {
		req := decode(t, `{"isCompleted": true}`)
		patch, err := req.ToPatch()
		require.NoError(t, err)
		require.True(t, patch.IsCompleted.Set)
		assert.True(t, *patch.IsCompleted.Value)
	})

	t.Run("turning recurrence off clears pattern", func(t *testing.T) {
		req := decode(t, `{"isRecurring": false}`)
		patch, err := req.ToPatch()
		require.NoError(t, err)
		assert.True(t, patch.RecurrencePattern.Set)
		assert.Nil(t, patch.RecurrencePattern.Value)
	})

	t.Run("empty category means null", func(t *testing.T) {
		req := decode(t, `{"category": ""}`)
		patch, err := req.ToPatch()
		require.NoError(t, err)
		assert.True(t, patch.Category.Set)
		assert.Nil(t, patch.Category.Value)
	})

	rejected := map[string]string{
		"empty body":       `{}`,
		"blank title":      `{"title": "  "}`,
		"null title":       `{"title": null}`,
		"unknown priority": `{"priority": "urgent"}`,
		"null priority":    `{"priority": null}`,
		"unknown category": `{"category": "groceries"}`,
		"null isCompleted": `{"isCompleted": null}`,
		"null isRecurring": `{"isRecurring": null}`,
	}
	for name, body := range rejected {
		t.Run(name, func(t *testing.T) {
			req := decode(t, body)
			_, err := req.ToPatch()
			assert.True(t, apperrors.Is(err, apperrors.ValidationError), "got %v", err)
		})
	}
}

func TestUpdateChecklistItemRequestToPatch(t *testing.T) {
	var req UpdateChecklistItemRequest
	require.NoError(t, json.Unmarshal([]byte(`{"order": 3}`), &req))
	patch, err := req.ToPatch()
	require.NoError(t, err)
	assert.Equal(t, 3, *patch.Order.Value)

	req = UpdateChecklistItemRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"order": -1}`), &req))
	_, err = req.ToPatch()
	assert.Error(t, err)
}

func TestCreateExpenseRequestValidation(t *testing.T) {
	confidence := 120.0
	req := CreateExpenseRequest{Amount: 10, Category: models.ExpenseCategoryFood, Confidence: &confidence}
	req.Normalize()
	assert.Error(t, Validate(&req))

	req = CreateExpenseRequest{Amount: 0, Category: models.ExpenseCategoryFood}
	assert.Error(t, Validate(&req))

	req = CreateExpenseRequest{Amount: 5, Category: "travel"}
	assert.Error(t, Validate(&req))

	currency := " usd "
	req = CreateExpenseRequest{Amount: 5.5, Category: models.ExpenseCategoryOther, Currency: &currency}
	req.Normalize()
	require.NoError(t, Validate(&req))
	assert.Equal(t, "USD", *req.Currency)
}

func TestCreateAttachmentRequestNoteDropsFileName(t *testing.T) {
	name := "scan.pdf"
	req := CreateAttachmentRequest{Type: models.AttachmentTypeNote, Content: "remember", FileName: &name}
	req.Normalize()
	require.NoError(t, Validate(&req))
	assert.Nil(t, req.FileName)

	bad := CreateAttachmentRequest{Type: "link", Content: "x"}
	assert.Error(t, Validate(&bad))
}

func TestNewTodoResponseNeverNullCollections(t *testing.T) {
	resp := NewTodoResponse(&models.Todo{Title: "x", Priority: models.PriorityNone})
	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"tags":[]`)
	assert.Contains(t, string(body), `"checklistItems":[]`)
	assert.Contains(t, string(body), `"attachments":[]`)
}
