package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"tudu/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func receiptRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "image_url", "uploaded_at", "processed_at", "status"})
}

func expenseRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "receipt_id", "merchant_name", "amount", "currency", "category",
		"date", "description", "confidence", "created_at",
	})
}

func newExpense(receiptID uuid.UUID, amount string) *models.Expense {
	merchant := "Corner Cafe"
	return &models.Expense{
		ID:           uuid.New(),
		ReceiptID:    receiptID,
		MerchantName: &merchant,
		Amount:       decimal.RequireFromString(amount),
		Currency:     models.DefaultCurrency,
		Category:     models.ExpenseCategoryFood,
		CreatedAt:    time.Now(),
	}
}

func TestReceiptRepository_Create(t *testing.T) {
	mock := newMockPool(t)
	repo := NewReceiptRepository(mock, zap.NewNop())

	receipt := &models.Receipt{ID: uuid.New(), UploadedAt: time.Now(), Status: models.ReceiptStatusPending}
	mock.ExpectExec("INSERT INTO receipts").
		WithArgs(receipt.ID, (*string)(nil), pgxmock.AnyArg(), (*time.Time)(nil), "pending").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), receipt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReceiptRepository_GetByID(t *testing.T) {
	t.Run("with expenses", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewReceiptRepository(mock, zap.NewNop())

		id := uuid.New()
		uploaded := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
		processed := uploaded.Add(time.Minute)
		merchant := "Corner Cafe"
		confidence := decimal.NewFromInt(92)

		mock.ExpectQuery("SELECT .+ FROM receipts WHERE id = \\$1").
			WithArgs(id.String()).
			WillReturnRows(receiptRows().AddRow(id, (*string)(nil), uploaded, &processed, "processed"))
		mock.ExpectQuery("FROM expenses WHERE receipt_id IN \\(\\$1\\) ORDER BY created_at ASC").
			WithArgs(id).
			WillReturnRows(expenseRows().AddRow(
				uuid.New(), id, &merchant, decimal.RequireFromString("120.50"), "INR", "food",
				(*time.Time)(nil), (*string)(nil), &confidence, uploaded,
			))

		receipt, err := repo.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.ReceiptStatusProcessed, receipt.Status)
		require.Len(t, receipt.Expenses, 1)
		assert.True(t, receipt.Expenses[0].Amount.Equal(decimal.RequireFromString("120.5")))
		assert.Equal(t, models.ExpenseCategoryFood, receipt.Expenses[0].Category)
		require.NotNil(t, receipt.Expenses[0].Confidence)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewReceiptRepository(mock, zap.NewNop())

		id := uuid.New()
		mock.ExpectQuery("FROM receipts").WithArgs(id.String()).WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByID(context.Background(), id)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestReceiptRepository_ListNewestFirst(t *testing.T) {
	mock := newMockPool(t)
	repo := NewReceiptRepository(mock, zap.NewNop())

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	a, b := uuid.New(), uuid.New()

	mock.ExpectQuery("FROM receipts WHERE uploaded_at >= \\$1 AND uploaded_at <= \\$2 ORDER BY uploaded_at DESC").
		WithArgs(from, to).
		WillReturnRows(receiptRows().
			AddRow(a, (*string)(nil), to, (*time.Time)(nil), "pending").
			AddRow(b, (*string)(nil), from, (*time.Time)(nil), "failed"))
	mock.ExpectQuery("FROM expenses WHERE receipt_id IN \\(\\$1,\\$2\\)").
		WithArgs(a, b).
		WillReturnRows(expenseRows())

	receipts, err := repo.List(context.Background(), &models.DateRange{From: from, To: to})
	require.NoError(t, err)
	require.Len(t, receipts, 2)
	assert.Equal(t, a, receipts[0].ID)
	assert.NotNil(t, receipts[1].Expenses)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReceiptRepository_SaveAnalysis(t *testing.T) {
	t.Run("expenses and status commit together", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewReceiptRepository(mock, zap.NewNop())

		id := uuid.New()
		processedAt := time.Now()
		expenses := []*models.Expense{newExpense(id, "10.00"), newExpense(id, "5.25")}

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO expenses").
			WithArgs(anyArgs(20)...).
			WillReturnResult(pgxmock.NewResult("INSERT", 2))
		mock.ExpectExec("UPDATE receipts SET status = \\$1, processed_at = \\$2 WHERE id = \\$3 AND status = \\$4").
			WithArgs("processed", processedAt, id.String(), "pending").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		require.NoError(t, repo.SaveAnalysis(context.Background(), id, expenses, processedAt))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("terminal receipt rolls back", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewReceiptRepository(mock, zap.NewNop())

		id := uuid.New()
		processedAt := time.Now()

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO expenses").
			WithArgs(anyArgs(10)...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec("UPDATE receipts").
			WithArgs("processed", processedAt, id.String(), "pending").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectRollback()

		err := repo.SaveAnalysis(context.Background(), id, []*models.Expense{newExpense(id, "1.00")}, processedAt)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReceiptRepository_MarkFailed(t *testing.T) {
	mock := newMockPool(t)
	repo := NewReceiptRepository(mock, zap.NewNop())

	id := uuid.New()
	mock.ExpectExec("UPDATE receipts SET status = \\$1 WHERE id = \\$2 AND status = \\$3").
		WithArgs("failed", id.String(), "pending").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.MarkFailed(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReceiptRepository_Delete(t *testing.T) {
	mock := newMockPool(t)
	repo := NewReceiptRepository(mock, zap.NewNop())

	id := uuid.New()
	url := "https://cdn.example.com/receipts/a.jpg"
	mock.ExpectQuery("DELETE FROM receipts WHERE id = \\$1 RETURNING image_url").
		WithArgs(id.String()).
		WillReturnRows(pgxmock.NewRows([]string{"image_url"}).AddRow(&url))
	mock.ExpectQuery("DELETE FROM receipts").
		WithArgs(id.String()).
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.Delete(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, url, *got)

	_, err = repo.Delete(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseRepository_Create(t *testing.T) {
	mock := newMockPool(t)
	repo := NewExpenseRepository(mock, zap.NewNop())

	e := newExpense(uuid.New(), "42.00")
	mock.ExpectExec("INSERT INTO expenses").
		WithArgs(anyArgs(10)...).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	assert.ErrorIs(t, repo.Create(context.Background(), e), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseRepository_CreateBatch(t *testing.T) {
	mock := newMockPool(t)
	repo := NewExpenseRepository(mock, zap.NewNop())

	receiptID := uuid.New()
	batch := []*models.Expense{newExpense(receiptID, "45.00"), newExpense(receiptID, "20.00")}

	require.NoError(t, repo.CreateBatch(context.Background(), nil))

	mock.ExpectExec("INSERT INTO expenses").
		WithArgs(anyArgs(20)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	require.NoError(t, repo.CreateBatch(context.Background(), batch))

	mock.ExpectExec("INSERT INTO expenses").
		WithArgs(anyArgs(20)...).
		WillReturnError(errors.New("connection reset"))
	assert.Error(t, repo.CreateBatch(context.Background(), batch))
	assert.NoError(t, mock.ExpectationsWereMet())
}
