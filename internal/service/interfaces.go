package service

import (
	"context"
	"time"

	"tudu/internal/dto"
	"tudu/internal/models"

	"github.com/google/uuid"
)

type TodoStore interface {
	Create(ctx context.Context, todo *models.Todo, items []*models.ChecklistItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Todo, error)
	List(ctx context.Context, filter models.TodoFilter, now time.Time) ([]*models.Todo, error)
	Update(ctx context.Context, id uuid.UUID, patch models.TodoPatch, now time.Time) (*models.Todo, error)
	ToggleComplete(ctx context.Context, id uuid.UUID, now time.Time) (*models.Todo, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ChecklistStore interface {
	Create(ctx context.Context, item *models.ChecklistItem) error
	Update(ctx context.Context, id uuid.UUID, patch models.ChecklistPatch) (*models.ChecklistItem, error)
	ToggleComplete(ctx context.Context, id uuid.UUID) (*models.ChecklistItem, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type AttachmentStore interface {
	Create(ctx context.Context, att *models.Attachment) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ReceiptStore interface {
	Create(ctx context.Context, receipt *models.Receipt) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Receipt, error)
	List(ctx context.Context, dateRange *models.DateRange) ([]*models.Receipt, error)
	SaveAnalysis(ctx context.Context, id uuid.UUID, expenses []*models.Expense, processedAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) (*string, error)
}

type ExpenseStore interface {
	Create(ctx context.Context, expense *models.Expense) error
}

type AnalyticsStore interface {
	SpendingByCategory(ctx context.Context, dateRange *models.DateRange) ([]models.CategorySpending, error)
	SpendingOverTime(ctx context.Context, dateRange *models.DateRange) ([]models.DailySpending, error)
	TopMerchants(ctx context.Context, limit int, dateRange *models.DateRange) ([]models.MerchantSpending, error)
	TotalSpending(ctx context.Context, dateRange *models.DateRange) (*models.SpendingSummary, error)
	TodoAnalytics(ctx context.Context, dateRange *models.DateRange, now time.Time) (*models.TodoAnalytics, error)
}

// ImageStore keeps uploaded receipt images. Save returns the public URL.
type ImageStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// TodoParser turns free text into validated todo fields.
type TodoParser interface {
	ParseTodo(ctx context.Context, text string) (*dto.TodoParsed, error)
}

// ReceiptAnalyzer reads expense line items off a receipt image.
type ReceiptAnalyzer interface {
	AnalyzeReceipt(ctx context.Context, image []byte, mimeType string) (*dto.ReceiptAnalysis, error)
}

// Completer sends a single-turn prompt to a text model.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// ImageDescriber asks a vision model about an image.
type ImageDescriber interface {
	DescribeImage(ctx context.Context, image []byte, fileName, mimeType, prompt string) (string, error)
}
