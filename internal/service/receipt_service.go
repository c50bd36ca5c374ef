package service

import (
	"context"
	"fmt"
	"time"

	"tudu/internal/dto"
	"tudu/internal/models"
	"tudu/pkg/apperrors"
	"tudu/pkg/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// markFailedTimeout bounds the cleanup write after a failed analysis; it
// runs even when the request context is already done.
const markFailedTimeout = 5 * time.Second

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type ReceiptService struct {
	receipts        ReceiptStore
	expenses        ExpenseStore
	analyzer        ReceiptAnalyzer
	images          ImageStore
	metrics         *metrics.Metrics
	defaultCurrency string
	logger          *zap.Logger
	now             func() time.Time
}

// NewReceiptService wires the receipt workflow. images may be nil, in which
// case uploads are analyzed but not kept.
func NewReceiptService(
	receipts ReceiptStore,
	expenses ExpenseStore,
	analyzer ReceiptAnalyzer,
	images ImageStore,
	m *metrics.Metrics,
	defaultCurrency string,
	logger *zap.Logger,
) *ReceiptService {
	if defaultCurrency == "" {
		defaultCurrency = models.DefaultCurrency
	}
	return &ReceiptService{
		receipts:        receipts,
		expenses:        expenses,
		analyzer:        analyzer,
		images:          images,
		metrics:         m,
		defaultCurrency: defaultCurrency,
		logger:          logger,
		now:             time.Now,
	}
}

// AnalyzeReceipt stores a pending receipt, runs the analyzer and saves the
// resulting expenses. Any failure after the receipt exists leaves it in
// the failed state with no expenses.
func (s *ReceiptService) AnalyzeReceipt(ctx context.Context, image []byte, mimeType string) (*dto.AnalyzeReceiptResponse, error) {
	receipt := &models.Receipt{
		ID:         uuid.New(),
		UploadedAt: s.now(),
		Status:     models.ReceiptStatusPending,
	}
	receipt.ImageURL = s.storeImage(ctx, receipt, image, mimeType)

	if err := s.receipts.Create(ctx, receipt); err != nil {
		s.logger.Error("Failed to create receipt", zap.Error(err))
		s.removeImage(ctx, receipt.ID, receipt.ImageURL)
		return nil, apperrors.Internal(err)
	}

	log := s.logger.With(zap.String("receipt_id", receipt.ID.String()))

	started := time.Now()
	analysis, err := s.analyzer.AnalyzeReceipt(ctx, image, mimeType)
	s.metrics.ObserveExtraction(metrics.KindReceipt, started, err)
	if err != nil {
		return nil, s.fail(ctx, receipt.ID, log, "analysis", err)
	}

	expenses, err := s.buildExpenses(receipt.ID, analysis)
	if err != nil {
		return nil, s.fail(ctx, receipt.ID, log, "conversion", err)
	}

	if err := s.receipts.SaveAnalysis(ctx, receipt.ID, expenses, s.now()); err != nil {
		return nil, s.fail(ctx, receipt.ID, log, "save", err)
	}

	s.metrics.ReceiptFinished(string(models.ReceiptStatusProcessed))
	log.Info("Receipt analyzed", zap.Int("expenses", len(expenses)))

	return &dto.AnalyzeReceiptResponse{
		ReceiptID: receipt.ID.String(),
		Analysis:  analysis,
	}, nil
}

func (s *ReceiptService) fail(ctx context.Context, id uuid.UUID, log *zap.Logger, stage string, cause error) error {
	log.Warn("Receipt analysis failed", zap.String("stage", stage), zap.Error(cause))

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markFailedTimeout)
	defer cancel()
	if err := s.receipts.MarkFailed(cleanupCtx, id); err != nil {
		log.Error("Failed to mark receipt as failed", zap.Error(err))
	}
	s.metrics.ReceiptFinished(string(models.ReceiptStatusFailed))

	return apperrors.ExtractionFailed("Failed to analyze receipt", cause)
}

func (s *ReceiptService) storeImage(ctx context.Context, receipt *models.Receipt, image []byte, mimeType string) *string {
	if s.images == nil {
		return nil
	}

	key := fmt.Sprintf("receipts/%s/%s%s",
		receipt.UploadedAt.UTC().Format("2006/01"), receipt.ID, imageExtensions[mimeType])
	url, err := s.images.Save(ctx, key, image, mimeType)
	if err != nil {
		s.logger.Warn("Failed to store receipt image, continuing without it",
			zap.String("receipt_id", receipt.ID.String()),
			zap.Error(err),
		)
		return nil
	}
	return &url
}

// buildExpenses turns validated line items into rows. Merchant and date
// fall back to the receipt-level values.
func (s *ReceiptService) buildExpenses(receiptID uuid.UUID, analysis *dto.ReceiptAnalysis) ([]*models.Expense, error) {
	if analysis == nil || len(analysis.Expenses) == 0 {
		return nil, fmt.Errorf("analysis has no expenses")
	}

	now := s.now()
	expenses := make([]*models.Expense, 0, len(analysis.Expenses))
	for i, line := range analysis.Expenses {
		if !isFinite(line.Amount) {
			return nil, fmt.Errorf("expense %d: amount is not a finite number", i)
		}
		amount := decimal.NewFromFloat(line.Amount).Round(2)
		if !amount.IsPositive() {
			return nil, fmt.Errorf("expense %d: amount must be positive", i)
		}

		e := &models.Expense{
			ID:           uuid.New(),
			ReceiptID:    receiptID,
			MerchantName: line.MerchantName,
			Amount:       amount,
			Currency:     line.Currency,
			Category:     line.Category,
			Date:         line.Date,
			Description:  line.Description,
			CreatedAt:    now,
		}
		if e.MerchantName == nil {
			e.MerchantName = analysis.MerchantName
		}
		if e.Date == nil {
			e.Date = analysis.ReceiptDate
		}
		if e.Currency == "" {
			e.Currency = s.defaultCurrency
		}
		if line.Confidence != nil {
			if err := validConfidence(line.Confidence); err != nil {
				return nil, fmt.Errorf("expense %d: %w", i, err)
			}
			c := decimal.NewFromFloat(*line.Confidence).Round(2)
			e.Confidence = &c
		}
		expenses = append(expenses, e)
	}
	return expenses, nil
}

func (s *ReceiptService) ListReceipts(ctx context.Context, dateRange *models.DateRange) ([]*models.Receipt, error) {
	receipts, err := s.receipts.List(ctx, dateRange)
	if err != nil {
		s.logger.Error("Failed to list receipts", zap.Error(err))
		return nil, apperrors.Internal(err)
	}
	return receipts, nil
}

func (s *ReceiptService) GetReceipt(ctx context.Context, id uuid.UUID) (*models.Receipt, error) {
	receipt, err := s.receipts.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "Receipt", id)
	}
	return receipt, nil
}

// DeleteReceipt removes the receipt and its expenses. The stored image is
// removed afterwards on a best-effort basis.
func (s *ReceiptService) DeleteReceipt(ctx context.Context, id uuid.UUID) error {
	imageURL, err := s.receipts.Delete(ctx, id)
	if err != nil {
		return storeError(err, "Receipt", id)
	}

	s.removeImage(ctx, id, imageURL)

	s.logger.Info("Receipt deleted", zap.String("receipt_id", id.String()))
	return nil
}

// removeImage deletes a stored receipt image. Failures are only logged.
func (s *ReceiptService) removeImage(ctx context.Context, id uuid.UUID, imageURL *string) {
	if imageURL == nil || s.images == nil {
		return
	}
	if err := s.images.Delete(ctx, *imageURL); err != nil {
		s.logger.Warn("Failed to delete receipt image",
			zap.String("receipt_id", id.String()),
			zap.Error(err),
		)
	}
}

// AddExpense records a manually entered expense on a processed receipt.
// Pending and failed receipts take no expenses.
func (s *ReceiptService) AddExpense(ctx context.Context, receiptID uuid.UUID, req *dto.CreateExpenseRequest) (*models.Expense, error) {
	req.Normalize()
	if err := dto.Validate(req); err != nil {
		return nil, err
	}

	receipt, err := s.receipts.GetByID(ctx, receiptID)
	if err != nil {
		return nil, storeError(err, "Receipt", receiptID)
	}
	if receipt.Status != models.ReceiptStatusProcessed {
		return nil, apperrors.Conflict(
			"Expenses can only be added to processed receipts",
			fmt.Sprintf("receipt %s is %s", receiptID, receipt.Status),
		)
	}

	amount := decimal.NewFromFloat(req.Amount).Round(2)
	if !amount.IsPositive() {
		return nil, apperrors.ValidationFailed("amount must be greater than 0", "")
	}

	e := &models.Expense{
		ID:           uuid.New(),
		ReceiptID:    receiptID,
		MerchantName: req.MerchantName,
		Amount:       amount,
		Currency:     s.defaultCurrency,
		Category:     req.Category,
		Date:         req.Date,
		Description:  req.Description,
		CreatedAt:    s.now(),
	}
	if req.Currency != nil {
		e.Currency = *req.Currency
	}
	if req.Confidence != nil {
		c := decimal.NewFromFloat(*req.Confidence).Round(2)
		e.Confidence = &c
	}

	if err := s.expenses.Create(ctx, e); err != nil {
		return nil, storeError(err, "Receipt", receiptID)
	}
	return e, nil
}
