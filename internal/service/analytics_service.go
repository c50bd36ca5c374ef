package service

import (
	"context"
	"time"

	"tudu/internal/models"
	"tudu/internal/repository"
	"tudu/pkg/apperrors"

	"go.uber.org/zap"
)

type AnalyticsService struct {
	store  AnalyticsStore
	logger *zap.Logger
	now    func() time.Time
}

func NewAnalyticsService(store AnalyticsStore, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func (s *AnalyticsService) SpendingByCategory(ctx context.Context, dateRange *models.DateRange) ([]models.CategorySpending, error) {
	rows, err := s.store.SpendingByCategory(ctx, dateRange)
	return rows, s.wrap(err, "spending by category")
}

func (s *AnalyticsService) SpendingOverTime(ctx context.Context, dateRange *models.DateRange) ([]models.DailySpending, error) {
	rows, err := s.store.SpendingOverTime(ctx, dateRange)
	return rows, s.wrap(err, "spending over time")
}

// TopMerchants returns at most limit merchants; zero means the default
// and anything above the maximum is capped.
func (s *AnalyticsService) TopMerchants(ctx context.Context, limit int, dateRange *models.DateRange) ([]models.MerchantSpending, error) {
	if limit < 0 {
		return nil, apperrors.ValidationFailed("limit must be a positive integer", "")
	}
	if limit == 0 {
		limit = repository.DefaultTopMerchants
	}
	if limit > repository.MaxTopMerchants {
		limit = repository.MaxTopMerchants
	}

	rows, err := s.store.TopMerchants(ctx, limit, dateRange)
	return rows, s.wrap(err, "top merchants")
}

func (s *AnalyticsService) TotalSpending(ctx context.Context, dateRange *models.DateRange) (*models.SpendingSummary, error) {
	summary, err := s.store.TotalSpending(ctx, dateRange)
	return summary, s.wrap(err, "total spending")
}

func (s *AnalyticsService) TodoAnalytics(ctx context.Context, dateRange *models.DateRange) (*models.TodoAnalytics, error) {
	analytics, err := s.store.TodoAnalytics(ctx, dateRange, s.now())
	return analytics, s.wrap(err, "todo analytics")
}

func (s *AnalyticsService) wrap(err error, query string) error {
	if err == nil {
		return nil
	}
	s.logger.Error("Analytics query failed", zap.String("query", query), zap.Error(err))
	return apperrors.Internal(err)
}
