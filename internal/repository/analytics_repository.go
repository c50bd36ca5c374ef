package repository

import (
	"context"
	"fmt"
	"time"

	"tudu/internal/models"
	"tudu/pkg/postgres"

	"github.com/Masterminds/squirrel"
	"go.uber.org/zap"
)

const (
	DefaultTopMerchants = 10
	MaxTopMerchants     = 100

	completionHistoryWindow = 30 * 24 * time.Hour
)

// AnalyticsRepository runs the aggregate queries behind the dashboards.
// Calendar days are cut in the configured reference timezone.
type AnalyticsRepository struct {
	db            postgres.DB
	offsetSeconds int
	logger        *zap.Logger
}

func NewAnalyticsRepository(db postgres.DB, loc *time.Location, logger *zap.Logger) *AnalyticsRepository {
	_, offset := time.Now().In(loc).Zone()
	return &AnalyticsRepository{
		db:            db,
		offsetSeconds: offset,
		logger:        logger,
	}
}

// localDay renders a timestamptz column as YYYY-MM-DD in the reference zone.
// The session runs in UTC, so shifting by the fixed offset is enough.
func localDay(column string) string {
	return fmt.Sprintf("TO_CHAR(%s + make_interval(secs => ?), 'YYYY-MM-DD')", column)
}

func (r *AnalyticsRepository) SpendingByCategory(ctx context.Context, dateRange *models.DateRange) ([]models.CategorySpending, error) {
	query := squirrel.Select("category", "COALESCE(SUM(amount), 0)", "COUNT(*)").
		From("expenses").
		GroupBy("category").
		OrderBy("2 DESC").
		PlaceholderFormat(squirrel.Dollar)
	query = whereRange(query, "created_at", dateRange)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("spending by category: %w", err)
	}
	defer rows.Close()

	result := make([]models.CategorySpending, 0)
	for rows.Next() {
		var (
			row      models.CategorySpending
			category string
		)
		if err := rows.Scan(&category, &row.Total, &row.Count); err != nil {
			return nil, err
		}
		row.Category = models.ExpenseCategory(category)
		result = append(result, row)
	}
	return result, rows.Err()
}

// SpendingOverTime buckets dated expenses per calendar day, oldest first.
// Expenses without a date are left out.
func (r *AnalyticsRepository) SpendingOverTime(ctx context.Context, dateRange *models.DateRange) ([]models.DailySpending, error) {
	query := squirrel.Select().
		Column(localDay("date"), r.offsetSeconds).
		Columns("SUM(amount)", "COUNT(*)").
		From("expenses").
		Where(squirrel.NotEq{"date": nil}).
		GroupBy("1").
		OrderBy("1 ASC").
		PlaceholderFormat(squirrel.Dollar)
	query = whereRange(query, "date", dateRange)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("spending over time: %w", err)
	}
	defer rows.Close()

	result := make([]models.DailySpending, 0)
	for rows.Next() {
		var row models.DailySpending
		if err := rows.Scan(&row.Date, &row.Total, &row.Count); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// TopMerchants ranks merchants by total spend. Count is the number of
// distinct receipts, not line items.
func (r *AnalyticsRepository) TopMerchants(ctx context.Context, limit int, dateRange *models.DateRange) ([]models.MerchantSpending, error) {
	if limit <= 0 {
		limit = DefaultTopMerchants
	}
	if limit > MaxTopMerchants {
		limit = MaxTopMerchants
	}

	query := squirrel.Select("merchant_name", "SUM(amount)", "COUNT(DISTINCT receipt_id)").
		From("expenses").
		Where(squirrel.NotEq{"merchant_name": nil}).
		GroupBy("merchant_name").
		OrderBy("2 DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar)
	query = whereRange(query, "created_at", dateRange)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("top merchants: %w", err)
	}
	defer rows.Close()

	result := make([]models.MerchantSpending, 0)
	for rows.Next() {
		var row models.MerchantSpending
		if err := rows.Scan(&row.MerchantName, &row.Total, &row.Count); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// TotalSpending summarizes the matching expenses. Every figure is zero when
// nothing matches.
func (r *AnalyticsRepository) TotalSpending(ctx context.Context, dateRange *models.DateRange) (*models.SpendingSummary, error) {
	query := squirrel.Select(
		"COALESCE(SUM(amount), 0)",
		"COUNT(DISTINCT receipt_id)",
		"COUNT(*)",
		"COALESCE(ROUND(AVG(amount), 2), 0)",
	).
		From("expenses").
		PlaceholderFormat(squirrel.Dollar)
	query = whereRange(query, "created_at", dateRange)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var summary models.SpendingSummary
	err = r.db.QueryRow(ctx, sql, args...).Scan(&summary.Total, &summary.Count, &summary.ExpenseCount, &summary.Average)
	if err != nil {
		return nil, fmt.Errorf("total spending: %w", err)
	}
	return &summary, nil
}

// TodoAnalytics returns the todo dashboard figures. dateRange filters on
// created_at; the completion history always covers the last 30 days.
func (r *AnalyticsRepository) TodoAnalytics(ctx context.Context, dateRange *models.DateRange, now time.Time) (*models.TodoAnalytics, error) {
	analytics := &models.TodoAnalytics{}

	var err error
	if analytics.ByCategory, err = r.todoBreakdown(ctx, "COALESCE(category, 'uncategorized')", dateRange); err != nil {
		return nil, err
	}
	if analytics.ByPriority, err = r.todoBreakdown(ctx, "priority", dateRange); err != nil {
		return nil, err
	}

	statsQuery := squirrel.Select(
		"COUNT(*)",
		"COUNT(*) FILTER (WHERE is_completed)",
		"COUNT(*) FILTER (WHERE NOT is_completed)",
	).
		Column("COUNT(*) FILTER (WHERE due_date < ? AND NOT is_completed)", now).
		From("todos").
		PlaceholderFormat(squirrel.Dollar)
	statsQuery = whereRange(statsQuery, "created_at", dateRange)

	sql, args, err := statsQuery.ToSql()
	if err != nil {
		return nil, err
	}
	stats := &analytics.Stats
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&stats.Total, &stats.Completed, &stats.Pending, &stats.Overdue); err != nil {
		return nil, fmt.Errorf("todo stats: %w", err)
	}

	historyQuery := squirrel.Select().
		Column(localDay("completed_at"), r.offsetSeconds).
		Column("COUNT(*)").
		From("todos").
		Where(squirrel.NotEq{"completed_at": nil}).
		Where(squirrel.GtOrEq{"completed_at": now.Add(-completionHistoryWindow)}).
		GroupBy("1").
		OrderBy("1 ASC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err = historyQuery.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("completion history: %w", err)
	}
	defer rows.Close()

	analytics.CompletionOverTime = make([]models.DailyCount, 0)
	for rows.Next() {
		var day models.DailyCount
		if err := rows.Scan(&day.Date, &day.Count); err != nil {
			return nil, err
		}
		analytics.CompletionOverTime = append(analytics.CompletionOverTime, day)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return analytics, nil
}

func (r *AnalyticsRepository) todoBreakdown(ctx context.Context, keyExpr string, dateRange *models.DateRange) ([]models.BreakdownCount, error) {
	query := squirrel.Select(keyExpr, "COUNT(*)", "COUNT(*) FILTER (WHERE is_completed)").
		From("todos").
		GroupBy("1").
		OrderBy("2 DESC", "1 ASC").
		PlaceholderFormat(squirrel.Dollar)
	query = whereRange(query, "created_at", dateRange)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("todo breakdown: %w", err)
	}
	defer rows.Close()

	result := make([]models.BreakdownCount, 0)
	for rows.Next() {
		var row models.BreakdownCount
		if err := rows.Scan(&row.Key, &row.Total, &row.Completed); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func whereRange(query squirrel.SelectBuilder, column string, dateRange *models.DateRange) squirrel.SelectBuilder {
	if dateRange == nil {
		return query
	}
	return query.
		Where(squirrel.GtOrEq{column: dateRange.From}).
		Where(squirrel.LtOrEq{column: dateRange.To})
}
