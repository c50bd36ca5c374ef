package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"tudu/internal/models"
	"tudu/internal/repository"
	"tudu/pkg/config"
	"tudu/pkg/logger"
	"tudu/pkg/postgres"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:embed seed.json
var seedData []byte

type seedTodo struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	DueInDays         *int     `json:"dueInDays"`
	Priority          string   `json:"priority"`
	Category          string   `json:"category"`
	Tags              []string `json:"tags"`
	RecurrencePattern string   `json:"recurrencePattern"`
	Completed         bool     `json:"completed"`
	Checklist         []string `json:"checklist"`
}

type seedExpense struct {
	Merchant    string  `json:"merchant"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
}

type seedReceipt struct {
	DaysAgo  int           `json:"daysAgo"`
	Expenses []seedExpense `json:"expenses"`
	Manual   []seedExpense `json:"manual"`
}

type seedFile struct {
	Todos    []seedTodo    `json:"todos"`
	Receipts []seedReceipt `json:"receipts"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Logger.Level, cfg.Logger.Format); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	loc, err := cfg.App.Location()
	if err != nil {
		appLogger.Fatal("Invalid APP_UTC_OFFSET", zap.Error(err))
	}

	if err := postgres.RunMigrations(cfg.Database.URL(), appLogger); err != nil {
		appLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	var data seedFile
	if err := json.Unmarshal(seedData, &data); err != nil {
		appLogger.Fatal("Failed to parse seed data", zap.Error(err))
	}

	appLogger.Info("Starting database seeding...")

	now := time.Now().In(loc)
	todoRepo := repository.NewTodoRepository(db, appLogger)
	if err := seedTodos(ctx, todoRepo, data.Todos, now); err != nil {
		appLogger.Fatal("Failed to seed todos", zap.Error(err))
	}

	receiptRepo := repository.NewReceiptRepository(db, appLogger)
	expenseRepo := repository.NewExpenseRepository(db, appLogger)
	if err := seedReceipts(ctx, receiptRepo, expenseRepo, data.Receipts, cfg.App.DefaultCurrency, now); err != nil {
		appLogger.Fatal("Failed to seed receipts", zap.Error(err))
	}

	appLogger.Info("Database seeding completed",
		zap.Int("todos", len(data.Todos)),
		zap.Int("receipts", len(data.Receipts)),
	)
}

func seedTodos(ctx context.Context, repo *repository.TodoRepository, todos []seedTodo, now time.Time) error {
	for _, st := range todos {
		todo, items, err := buildTodo(st, now)
		if err != nil {
			return err
		}
		if err := repo.Create(ctx, todo, items); err != nil {
			return fmt.Errorf("create todo %q: %w", st.Title, err)
		}
	}
	return nil
}

func buildTodo(st seedTodo, now time.Time) (*models.Todo, []*models.ChecklistItem, error) {
	priority := models.TodoPriority(st.Priority)
	if !priority.IsValid() {
		return nil, nil, fmt.Errorf("todo %q: unknown priority %q", st.Title, st.Priority)
	}

	todo := &models.Todo{
		ID:          uuid.New(),
		Title:       st.Title,
		Priority:    priority,
		Tags:        st.Tags,
		IsRecurring: st.RecurrencePattern != "",
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
	if todo.Tags == nil {
		todo.Tags = []string{}
	}
	if st.Description != "" {
		todo.Description = &st.Description
	}
	if st.RecurrencePattern != "" {
		todo.RecurrencePattern = &st.RecurrencePattern
	}
	if st.Category != "" {
		category := models.TodoCategory(strings.ToLower(st.Category))
		if !category.IsValid() {
			return nil, nil, fmt.Errorf("todo %q: unknown category %q", st.Title, st.Category)
		}
		todo.Category = &category
	}
	if st.DueInDays != nil {
		day := now.AddDate(0, 0, *st.DueInDays)
		due := time.Date(day.Year(), day.Month(), day.Day(), 18, 0, 0, 0, now.Location()).UTC()
		todo.DueDate = &due
	}
	if st.Completed {
		completedAt := now.UTC()
		todo.IsCompleted = true
		todo.CompletedAt = &completedAt
	}

	items := make([]*models.ChecklistItem, 0, len(st.Checklist))
	for i, title := range st.Checklist {
		items = append(items, &models.ChecklistItem{
			ID:        uuid.New(),
			TodoID:    todo.ID,
			Title:     title,
			Order:     i,
			CreatedAt: now.UTC(),
		})
	}
	return todo, items, nil
}

// seedReceipts stores each receipt as pending and then records its expenses
// the same way a successful analysis does. Manual lines are added afterwards
// in one batch, as if entered by hand on the processed receipt.
func seedReceipts(ctx context.Context, repo *repository.ReceiptRepository, expenseRepo *repository.ExpenseRepository, receipts []seedReceipt, currency string, now time.Time) error {
	for _, sr := range receipts {
		uploadedAt := now.AddDate(0, 0, -sr.DaysAgo).UTC()
		receipt := &models.Receipt{
			ID:         uuid.New(),
			UploadedAt: uploadedAt,
			Status:     models.ReceiptStatusPending,
		}
		if err := repo.Create(ctx, receipt); err != nil {
			return fmt.Errorf("create receipt: %w", err)
		}

		expenses, err := buildExpenses(receipt.ID, sr.Expenses, currency, uploadedAt)
		if err != nil {
			return err
		}
		if err := repo.SaveAnalysis(ctx, receipt.ID, expenses, uploadedAt); err != nil {
			return fmt.Errorf("save receipt expenses: %w", err)
		}

		manual, err := buildExpenses(receipt.ID, sr.Manual, currency, uploadedAt.Add(time.Hour))
		if err != nil {
			return err
		}
		if err := expenseRepo.CreateBatch(ctx, manual); err != nil {
			return fmt.Errorf("add manual expenses: %w", err)
		}
	}
	return nil
}

func buildExpenses(receiptID uuid.UUID, lines []seedExpense, currency string, at time.Time) ([]*models.Expense, error) {
	expenses := make([]*models.Expense, 0, len(lines))
	for _, se := range lines {
		category := models.ExpenseCategory(se.Category)
		if !category.IsValid() {
			return nil, fmt.Errorf("expense %q: unknown category %q", se.Description, se.Category)
		}
		merchant := se.Merchant
		description := se.Description
		date := at
		expenses = append(expenses, &models.Expense{
			ID:           uuid.New(),
			ReceiptID:    receiptID,
			MerchantName: &merchant,
			Amount:       decimal.NewFromFloat(se.Amount).Round(2),
			Currency:     currency,
			Category:     category,
			Date:         &date,
			Description:  &description,
			CreatedAt:    at,
		})
	}
	return expenses, nil
}
