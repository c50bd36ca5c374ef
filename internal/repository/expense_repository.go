package repository

import (
	"context"
	"fmt"

	"tudu/internal/models"
	"tudu/pkg/postgres"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var expenseColumns = []string{
	"id", "receipt_id", "merchant_name", "amount", "currency", "category",
	"date", "description", "confidence", "created_at",
}

type ExpenseRepository struct {
	db     postgres.DB
	logger *zap.Logger
}

func NewExpenseRepository(db postgres.DB, logger *zap.Logger) *ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

// Create adds a single expense to an existing receipt.
func (r *ExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	err := insertExpenses(ctx, r.db, []*models.Expense{expense})
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

func (r *ExpenseRepository) CreateBatch(ctx context.Context, expenses []*models.Expense) error {
	return insertExpenses(ctx, r.db, expenses)
}

func (r *ExpenseRepository) ListByReceiptIDs(ctx context.Context, receiptIDs []uuid.UUID) ([]*models.Expense, error) {
	return listExpenses(ctx, r.db, receiptIDs)
}

func insertExpenses(ctx context.Context, db postgres.DB, expenses []*models.Expense) error {
	if len(expenses) == 0 {
		return nil
	}

	builder := squirrel.Insert("expenses").
		Columns(expenseColumns...).
		PlaceholderFormat(squirrel.Dollar)

	for _, e := range expenses {
		builder = builder.Values(
			e.ID, e.ReceiptID, e.MerchantName, e.Amount, e.Currency, string(e.Category),
			e.Date, e.Description, e.Confidence, e.CreatedAt,
		)
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return err
	}

	if _, err := db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert expenses: %w", err)
	}
	return nil
}

func listExpenses(ctx context.Context, db postgres.DB, receiptIDs []uuid.UUID) ([]*models.Expense, error) {
	if len(receiptIDs) == 0 {
		return []*models.Expense{}, nil
	}

	sql, args, err := squirrel.Select(expenseColumns...).
		From("expenses").
		Where(squirrel.Eq{"receipt_id": receiptIDs}).
		OrderBy("created_at ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]*models.Expense, 0)
	for rows.Next() {
		var (
			e        models.Expense
			category string
		)
		err := rows.Scan(
			&e.ID, &e.ReceiptID, &e.MerchantName, &e.Amount, &e.Currency, &category,
			&e.Date, &e.Description, &e.Confidence, &e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		e.Category = models.ExpenseCategory(category)
		expenses = append(expenses, &e)
	}
	return expenses, rows.Err()
}
