package repository

import (
	"context"
	"fmt"
	"time"

	"tudu/internal/models"
	"tudu/pkg/postgres"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var receiptColumns = []string{"id", "image_url", "uploaded_at", "processed_at", "status"}

type ReceiptRepository struct {
	db     postgres.DB
	logger *zap.Logger
}

func NewReceiptRepository(db postgres.DB, logger *zap.Logger) *ReceiptRepository {
	return &ReceiptRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ReceiptRepository) Create(ctx context.Context, receipt *models.Receipt) error {
	sql, args, err := squirrel.Insert("receipts").
		Columns(receiptColumns...).
		Values(receipt.ID, receipt.ImageURL, receipt.UploadedAt, receipt.ProcessedAt, string(receipt.Status)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

func (r *ReceiptRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Receipt, error) {
	sql, args, err := squirrel.Select(receiptColumns...).
		From("receipts").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	receipt, err := scanReceipt(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, notFoundIfNoRows(err)
	}

	if err := r.loadExpenses(ctx, []*models.Receipt{receipt}); err != nil {
		return nil, err
	}
	return receipt, nil
}

// List returns receipts newest first, each with its expenses.
func (r *ReceiptRepository) List(ctx context.Context, dateRange *models.DateRange) ([]*models.Receipt, error) {
	query := squirrel.Select(receiptColumns...).
		From("receipts").
		OrderBy("uploaded_at DESC").
		PlaceholderFormat(squirrel.Dollar)

	if dateRange != nil {
		query = query.Where(squirrel.GtOrEq{"uploaded_at": dateRange.From}).
			Where(squirrel.LtOrEq{"uploaded_at": dateRange.To})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	defer rows.Close()

	receipts := make([]*models.Receipt, 0)
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, receipt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadExpenses(ctx, receipts); err != nil {
		return nil, err
	}
	return receipts, nil
}

// SaveAnalysis stores the extracted expenses and marks the receipt
// processed atomically. Nothing is written unless the receipt is pending.
func (r *ReceiptRepository) SaveAnalysis(ctx context.Context, id uuid.UUID, expenses []*models.Expense, processedAt time.Time) error {
	return postgres.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := insertExpenses(ctx, tx, expenses); err != nil {
			return err
		}
		return setReceiptStatus(ctx, tx, id, models.ReceiptStatusProcessed, &processedAt)
	})
}

// MarkFailed moves a pending receipt to failed.
func (r *ReceiptRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	return setReceiptStatus(ctx, r.db, id, models.ReceiptStatusFailed, nil)
}

// Delete removes the receipt; its expenses go with it through the foreign
// key. The stored image URL, if any, is returned for cleanup.
func (r *ReceiptRepository) Delete(ctx context.Context, id uuid.UUID) (*string, error) {
	sql, args, err := squirrel.Delete("receipts").
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING image_url").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var imageURL *string
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&imageURL); err != nil {
		return nil, notFoundIfNoRows(err)
	}
	return imageURL, nil
}

func (r *ReceiptRepository) loadExpenses(ctx context.Context, receipts []*models.Receipt) error {
	if len(receipts) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(receipts))
	byID := make(map[uuid.UUID]*models.Receipt, len(receipts))
	for i, receipt := range receipts {
		ids[i] = receipt.ID
		byID[receipt.ID] = receipt
		receipt.Expenses = []*models.Expense{}
	}

	expenses, err := listExpenses(ctx, r.db, ids)
	if err != nil {
		return err
	}
	for _, e := range expenses {
		if receipt, ok := byID[e.ReceiptID]; ok {
			receipt.Expenses = append(receipt.Expenses, e)
		}
	}
	return nil
}

func setReceiptStatus(ctx context.Context, db postgres.DB, id uuid.UUID, status models.ReceiptStatus, processedAt *time.Time) error {
	query := squirrel.Update("receipts").
		Set("status", string(status)).
		Where(squirrel.Eq{"id": id, "status": string(models.ReceiptStatusPending)}).
		PlaceholderFormat(squirrel.Dollar)
	if processedAt != nil {
		query = query.Set("processed_at", *processedAt)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	tag, err := db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update receipt status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func scanReceipt(row pgx.Row) (*models.Receipt, error) {
	var (
		receipt models.Receipt
		status  string
	)
	if err := row.Scan(&receipt.ID, &receipt.ImageURL, &receipt.UploadedAt, &receipt.ProcessedAt, &status); err != nil {
		return nil, err
	}
	receipt.Status = models.ReceiptStatus(status)
	return &receipt, nil
}
