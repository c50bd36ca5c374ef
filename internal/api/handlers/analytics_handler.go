package handlers

import (
	"strconv"
	"time"

	"tudu/internal/dto"
	"tudu/pkg/apperrors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AnalyticsHandler serves spending and todo aggregates. Every endpoint
// accepts an optional from/to range.
type AnalyticsHandler struct {
	analytics AnalyticsService
	loc       *time.Location
	logger    *zap.Logger
}

func NewAnalyticsHandler(analytics AnalyticsService, loc *time.Location, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics: analytics,
		loc:       loc,
		logger:    logger,
	}
}

// SpendingByCategory godoc
// @Summary Spending per expense category
// @Tags analytics
// @Produce json
// @Param from query string false "Range start"
// @Param to query string false "Range end"
// @Security Bearer
// @Success 200 {object} dto.Response{data=[]dto.CategorySpendingResponse}
// @Router /analytics/categories [get]
func (h *AnalyticsHandler) SpendingByCategory(c *fiber.Ctx) error {
	dateRange, err := parseDateRange(c, h.loc)
	if err != nil {
		return err
	}

	rows, err := h.analytics.SpendingByCategory(c.UserContext(), dateRange)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewCategorySpendingResponse(rows))
}

// SpendingOverTime godoc
// @Summary Spending per day
// @Tags analytics
// @Produce json
// @Param from query string false "Range start"
// @Param to query string false "Range end"
// @Security Bearer
// @Success 200 {object} dto.Response{data=[]dto.DailySpendingResponse}
// @Router /analytics/timeline [get]
func (h *AnalyticsHandler) SpendingOverTime(c *fiber.Ctx) error {
	dateRange, err := parseDateRange(c, h.loc)
	if err != nil {
		return err
	}

	rows, err := h.analytics.SpendingOverTime(c.UserContext(), dateRange)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewDailySpendingResponse(rows))
}

// TopMerchants godoc
// @Summary Merchants ranked by total spent
// @Tags analytics
// @Produce json
// @Param limit query int false "Maximum merchants (default 10, max 100)"
// @Param from query string false "Range start"
// @Param to query string false "Range end"
// @Security Bearer
// @Success 200 {object} dto.Response{data=[]dto.MerchantSpendingResponse}
// @Router /analytics/merchants [get]
func (h *AnalyticsHandler) TopMerchants(c *fiber.Ctx) error {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return apperrors.ValidationFailed("limit must be a positive integer", raw)
		}
		limit = v
	}

	dateRange, err := parseDateRange(c, h.loc)
	if err != nil {
		return err
	}

	rows, err := h.analytics.TopMerchants(c.UserContext(), limit, dateRange)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewMerchantSpendingResponse(rows))
}

// TotalSpending godoc
// @Summary Spending totals
// @Tags analytics
// @Produce json
// @Param from query string false "Range start"
// @Param to query string false "Range end"
// @Security Bearer
// @Success 200 {object} dto.Response{data=dto.SpendingSummaryResponse}
// @Router /analytics/summary [get]
func (h *AnalyticsHandler) TotalSpending(c *fiber.Ctx) error {
	dateRange, err := parseDateRange(c, h.loc)
	if err != nil {
		return err
	}

	summary, err := h.analytics.TotalSpending(c.UserContext(), dateRange)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewSpendingSummaryResponse(summary))
}

// TodoAnalytics godoc
// @Summary Todo breakdowns, stats and daily completions
// @Tags todos
// @Produce json
// @Param from query string false "Created at or after"
// @Param to query string false "Created at or before"
// @Security Bearer
// @Success 200 {object} dto.Response{data=dto.TodoAnalyticsResponse}
// @Router /todos/analytics [get]
func (h *AnalyticsHandler) TodoAnalytics(c *fiber.Ctx) error {
	dateRange, err := parseDateRange(c, h.loc)
	if err != nil {
		return err
	}

	analytics, err := h.analytics.TodoAnalytics(c.UserContext(), dateRange)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewTodoAnalyticsResponse(analytics))
}
