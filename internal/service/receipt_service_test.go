package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"tudu/internal/dto"
	"tudu/internal/models"
	"tudu/pkg/apperrors"
	"tudu/pkg/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleAnalysis() *dto.ReceiptAnalysis {
	merchant := "Fresh Mart"
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	confidence := 92.5
	return &dto.ReceiptAnalysis{
		Currency:     "INR",
		MerchantName: &merchant,
		ReceiptDate:  &day,
		Expenses: []dto.AnalyzedExpense{
			{Amount: 120.456, Currency: "INR", Category: models.ExpenseCategoryFood, Confidence: &confidence},
			{Amount: 45, Currency: "", Category: models.ExpenseCategoryOther, MerchantName: strPtr("Kiosk")},
		},
	}
}

type receiptFixture struct {
	receipts *fakeReceiptStore
	expenses *fakeExpenseStore
	analyzer *fakeAnalyzer
	images   *fakeImageStore
	metrics  *metrics.Metrics
	service  *ReceiptService
}

func newReceiptFixture(withImages bool) *receiptFixture {
	f := &receiptFixture{
		receipts: newFakeReceiptStore(),
		expenses: &fakeExpenseStore{receipts: map[uuid.UUID]bool{}},
		analyzer: &fakeAnalyzer{},
		metrics:  metrics.New(),
	}
	var images ImageStore
	if withImages {
		f.images = &fakeImageStore{}
		images = f.images
	}
	f.service = NewReceiptService(f.receipts, f.expenses, f.analyzer, images, f.metrics, "", zap.NewNop())
	f.service.now = clock
	return f
}

func TestAnalyzeReceiptSuccess(t *testing.T) {
	f := newReceiptFixture(true)
	f.analyzer.analysis = sampleAnalysis()

	resp, err := f.service.AnalyzeReceipt(context.Background(), []byte("jpeg-bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Same(t, f.analyzer.analysis, resp.Analysis)

	receipt := f.receipts.only()
	require.NotNil(t, receipt)
	assert.Equal(t, resp.ReceiptID, receipt.ID.String())
	assert.Equal(t, models.ReceiptStatusProcessed, receipt.Status)
	require.NotNil(t, receipt.ProcessedAt)
	assert.Equal(t, fixedNow, *receipt.ProcessedAt)

	require.NotNil(t, receipt.ImageURL)
	assert.Equal(t, "https://cdn.test/receipts/2026/03/"+resp.ReceiptID+".jpg", *receipt.ImageURL)

	saved := f.receipts.saved[receipt.ID]
	require.Len(t, saved, 2)
	assert.Equal(t, "120.46", saved[0].Amount.String())
	assert.Equal(t, "Fresh Mart", *saved[0].MerchantName)
	assert.Equal(t, "92.5", saved[0].Confidence.String())
	assert.Equal(t, "Kiosk", *saved[1].MerchantName)
	assert.Equal(t, "INR", saved[1].Currency)
	assert.Nil(t, saved[1].Confidence)
	for _, e := range saved {
		assert.Equal(t, receipt.ID, e.ReceiptID)
		require.NotNil(t, e.Date)
		assert.Equal(t, 9, e.Date.Day())
	}

	expected := `
		# HELP tudu_receipts_total Receipts by final status
		# TYPE tudu_receipts_total counter
		tudu_receipts_total{status="processed"} 1
	`
	assert.NoError(t, testutil.GatherAndCompare(f.metrics.Registry, strings.NewReader(expected), "tudu_receipts_total"))
}

func TestAnalyzeReceiptAnalyzerFailureMarksFailed(t *testing.T) {
	f := newReceiptFixture(false)
	f.analyzer.err = errors.New("vision model timeout")

	_, err := f.service.AnalyzeReceipt(context.Background(), []byte("png"), "image/png")
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ExtractionError, appErr.Type)
	assert.Equal(t, "Failed to analyze receipt", appErr.Message)

	receipt := f.receipts.only()
	require.NotNil(t, receipt)
	assert.Equal(t, models.ReceiptStatusFailed, receipt.Status)
	assert.Nil(t, receipt.ImageURL)
	assert.Empty(t, f.receipts.saved)
}

func TestAnalyzeReceiptSaveFailureMarksFailed(t *testing.T) {
	f := newReceiptFixture(false)
	f.analyzer.analysis = sampleAnalysis()
	f.receipts.saveErr = errors.New("insert failed")

	_, err := f.service.AnalyzeReceipt(context.Background(), []byte("webp"), "image/webp")
	assert.True(t, apperrors.Is(err, apperrors.ExtractionError))
	assert.Equal(t, models.ReceiptStatusFailed, f.receipts.only().Status)
}

func TestAnalyzeReceiptEmptyAnalysisMarksFailed(t *testing.T) {
	f := newReceiptFixture(false)
	f.analyzer.analysis = &dto.ReceiptAnalysis{Currency: "INR"}

	_, err := f.service.AnalyzeReceipt(context.Background(), []byte("x"), "image/jpeg")
	assert.True(t, apperrors.Is(err, apperrors.ExtractionError))
	assert.Equal(t, models.ReceiptStatusFailed, f.receipts.only().Status)
}

func TestAnalyzeReceiptCancelledContextStillMarksFailed(t *testing.T) {
	f := newReceiptFixture(false)
	f.analyzer.err = context.Canceled

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.AnalyzeReceipt(ctx, []byte("x"), "image/jpeg")
	require.Error(t, err)
	assert.Equal(t, models.ReceiptStatusFailed, f.receipts.only().Status)
}

func TestAnalyzeReceiptImageStoreFailureIsNotFatal(t *testing.T) {
	f := newReceiptFixture(true)
	f.images.saveErr = errors.New("bucket missing")
	f.analyzer.analysis = sampleAnalysis()

	_, err := f.service.AnalyzeReceipt(context.Background(), []byte("x"), "image/jpeg")
	require.NoError(t, err)
	assert.Nil(t, f.receipts.only().ImageURL)
}

func TestAnalyzeReceiptNonFiniteValuesMarkFailed(t *testing.T) {
	cases := map[string]func(*dto.ReceiptAnalysis){
		"nan amount":      func(a *dto.ReceiptAnalysis) { a.Expenses[0].Amount = math.NaN() },
		"infinite amount": func(a *dto.ReceiptAnalysis) { a.Expenses[1].Amount = math.Inf(1) },
		"nan confidence": func(a *dto.ReceiptAnalysis) {
			c := math.NaN()
			a.Expenses[0].Confidence = &c
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newReceiptFixture(false)
			f.analyzer.analysis = sampleAnalysis()
			mutate(f.analyzer.analysis)

			var err error
			require.NotPanics(t, func() {
				_, err = f.service.AnalyzeReceipt(context.Background(), []byte("x"), "image/jpeg")
			})
			assert.True(t, apperrors.Is(err, apperrors.ExtractionError))
			assert.Equal(t, models.ReceiptStatusFailed, f.receipts.only().Status)
			assert.Empty(t, f.receipts.saved)
		})
	}
}

func TestAnalyzeReceiptCreateFailureRemovesImage(t *testing.T) {
	f := newReceiptFixture(true)
	f.analyzer.analysis = sampleAnalysis()
	f.receipts.createErr = errors.New("connection refused")

	_, err := f.service.AnalyzeReceipt(context.Background(), []byte("x"), "image/png")
	assert.True(t, apperrors.Is(err, apperrors.ServerError))
	require.Len(t, f.images.saved, 1)
	require.Len(t, f.images.deleted, 1)
	for key := range f.images.saved {
		assert.Equal(t, "https://cdn.test/"+key, f.images.deleted[0])
	}
	assert.Nil(t, f.receipts.only())
}

func TestDeleteReceiptRemovesImage(t *testing.T) {
	f := newReceiptFixture(true)
	f.analyzer.analysis = sampleAnalysis()

	resp, err := f.service.AnalyzeReceipt(context.Background(), []byte("x"), "image/png")
	require.NoError(t, err)
	id := uuid.MustParse(resp.ReceiptID)

	require.NoError(t, f.service.DeleteReceipt(context.Background(), id))
	require.Len(t, f.images.deleted, 1)
	assert.True(t, strings.HasSuffix(f.images.deleted[0], ".png"))

	err = f.service.DeleteReceipt(context.Background(), id)
	assert.True(t, apperrors.Is(err, apperrors.NotFoundError))
}

func TestGetReceipt(t *testing.T) {
	f := newReceiptFixture(false)
	f.analyzer.analysis = sampleAnalysis()
	resp, err := f.service.AnalyzeReceipt(context.Background(), []byte("x"), "image/png")
	require.NoError(t, err)

	receipt, err := f.service.GetReceipt(context.Background(), uuid.MustParse(resp.ReceiptID))
	require.NoError(t, err)
	assert.Len(t, receipt.Expenses, 2)

	_, err = f.service.GetReceipt(context.Background(), uuid.New())
	assert.True(t, apperrors.Is(err, apperrors.NotFoundError))

	list, err := f.service.ListReceipts(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func addReceipt(f *receiptFixture, status models.ReceiptStatus) uuid.UUID {
	id := uuid.New()
	f.receipts.receipts[id] = &models.Receipt{ID: id, UploadedAt: fixedNow, Status: status}
	f.expenses.receipts[id] = true
	return id
}

func TestAddExpense(t *testing.T) {
	f := newReceiptFixture(false)
	receiptID := addReceipt(f, models.ReceiptStatusProcessed)

	e, err := f.service.AddExpense(context.Background(), receiptID, &dto.CreateExpenseRequest{
		Amount:   19.999,
		Currency: strPtr("usd"),
		Category: models.ExpenseCategoryShopping,
	})
	require.NoError(t, err)
	assert.Equal(t, "20", e.Amount.String())
	assert.Equal(t, "USD", e.Currency)

	e, err = f.service.AddExpense(context.Background(), receiptID, &dto.CreateExpenseRequest{
		Amount:   5,
		Category: models.ExpenseCategoryFood,
	})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCurrency, e.Currency)

	_, err = f.service.AddExpense(context.Background(), receiptID, &dto.CreateExpenseRequest{
		Amount:   0,
		Category: models.ExpenseCategoryFood,
	})
	assert.True(t, apperrors.Is(err, apperrors.ValidationError))

	_, err = f.service.AddExpense(context.Background(), receiptID, &dto.CreateExpenseRequest{
		Amount:   1,
		Category: "groceries",
	})
	assert.True(t, apperrors.Is(err, apperrors.ValidationError))

	_, err = f.service.AddExpense(context.Background(), uuid.New(), &dto.CreateExpenseRequest{
		Amount:   1,
		Category: models.ExpenseCategoryFood,
	})
	assert.True(t, apperrors.Is(err, apperrors.NotFoundError))
}

func TestAddExpenseRequiresProcessedReceipt(t *testing.T) {
	f := newReceiptFixture(false)

	for _, status := range []models.ReceiptStatus{models.ReceiptStatusPending, models.ReceiptStatusFailed} {
		id := addReceipt(f, status)
		_, err := f.service.AddExpense(context.Background(), id, &dto.CreateExpenseRequest{
			Amount:   10,
			Category: models.ExpenseCategoryFood,
		})
		appErr, ok := apperrors.As(err)
		require.True(t, ok, string(status))
		assert.Equal(t, apperrors.ConflictError, appErr.Type)
		assert.Equal(t, 409, appErr.HTTPStatus)
	}
	assert.Empty(t, f.expenses.created)
}

func TestTopMerchantsLimit(t *testing.T) {
	store := &fakeAnalyticsStore{}
	s := NewAnalyticsService(store, zap.NewNop())

	_, err := s.TopMerchants(context.Background(), 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, store.lastLimit)

	_, err = s.TopMerchants(context.Background(), 500, nil)
	require.NoError(t, err)
	assert.Equal(t, 100, store.lastLimit)

	_, err = s.TopMerchants(context.Background(), 3, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, store.lastLimit)

	_, err = s.TopMerchants(context.Background(), -1, nil)
	assert.True(t, apperrors.Is(err, apperrors.ValidationError))
}

func TestAnalyticsStoreErrorsAreInternal(t *testing.T) {
	s := NewAnalyticsService(&fakeAnalyticsStore{err: errors.New("timeout")}, zap.NewNop())

	_, err := s.TotalSpending(context.Background(), nil)
	assert.True(t, apperrors.Is(err, apperrors.ServerError))
	_, err = s.TodoAnalytics(context.Background(), nil)
	assert.True(t, apperrors.Is(err, apperrors.ServerError))
}
