package handlers

import (
	"context"

	"tudu/internal/dto"
	"tudu/internal/models"

	"github.com/google/uuid"
)

type TodoService interface {
	ListTodos(ctx context.Context, filter models.TodoFilter) ([]*models.Todo, error)
	GetTodo(ctx context.Context, id uuid.UUID) (*models.Todo, error)
	CreateTodo(ctx context.Context, req *dto.CreateTodoRequest) (*models.Todo, error)
	UpdateTodo(ctx context.Context, id uuid.UUID, req *dto.UpdateTodoRequest) (*models.Todo, error)
	ToggleTodo(ctx context.Context, id uuid.UUID) (*models.Todo, error)
	DeleteTodo(ctx context.Context, id uuid.UUID) error
	ParseTodo(ctx context.Context, req *dto.ParseTodoRequest) (*dto.TodoParsed, error)
}

type ChecklistService interface {
	AddItem(ctx context.Context, todoID uuid.UUID, req *dto.CreateChecklistItemRequest) (*models.ChecklistItem, error)
	UpdateItem(ctx context.Context, id uuid.UUID, req *dto.UpdateChecklistItemRequest) (*models.ChecklistItem, error)
	ToggleItem(ctx context.Context, id uuid.UUID) (*models.ChecklistItem, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error
	AddAttachment(ctx context.Context, todoID uuid.UUID, req *dto.CreateAttachmentRequest) (*models.Attachment, error)
	DeleteAttachment(ctx context.Context, id uuid.UUID) error
}

type ReceiptService interface {
	AnalyzeReceipt(ctx context.Context, image []byte, mimeType string) (*dto.AnalyzeReceiptResponse, error)
	ListReceipts(ctx context.Context, dateRange *models.DateRange) ([]*models.Receipt, error)
	GetReceipt(ctx context.Context, id uuid.UUID) (*models.Receipt, error)
	DeleteReceipt(ctx context.Context, id uuid.UUID) error
	AddExpense(ctx context.Context, receiptID uuid.UUID, req *dto.CreateExpenseRequest) (*models.Expense, error)
}

type AnalyticsService interface {
	SpendingByCategory(ctx context.Context, dateRange *models.DateRange) ([]models.CategorySpending, error)
	SpendingOverTime(ctx context.Context, dateRange *models.DateRange) ([]models.DailySpending, error)
	TopMerchants(ctx context.Context, limit int, dateRange *models.DateRange) ([]models.MerchantSpending, error)
	TotalSpending(ctx context.Context, dateRange *models.DateRange) (*models.SpendingSummary, error)
	TodoAnalytics(ctx context.Context, dateRange *models.DateRange) (*models.TodoAnalytics, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
