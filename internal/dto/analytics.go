package dto

import (
	"tudu/internal/models"

	"github.com/shopspring/decimal"
)

type CategorySpendingResponse struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int64   `json:"count"`
}

type DailySpendingResponse struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
	Count int64   `json:"count"`
}

type MerchantSpendingResponse struct {
	MerchantName string  `json:"merchantName"`
	Total        float64 `json:"total"`
	Count        int64   `json:"count"`
}

type SpendingSummaryResponse struct {
	Total        float64 `json:"total"`
	Count        int64   `json:"count"`
	ExpenseCount int64   `json:"expenseCount"`
	Average      float64 `json:"average"`
}

func NewCategorySpendingResponse(rows []models.CategorySpending) []CategorySpendingResponse {
	out := make([]CategorySpendingResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, CategorySpendingResponse{Category: string(r.Category), Total: toFloat(r.Total), Count: r.Count})
	}
	return out
}

func NewDailySpendingResponse(rows []models.DailySpending) []DailySpendingResponse {
	out := make([]DailySpendingResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, DailySpendingResponse{Date: r.Date, Total: toFloat(r.Total), Count: r.Count})
	}
	return out
}

func NewMerchantSpendingResponse(rows []models.MerchantSpending) []MerchantSpendingResponse {
	out := make([]MerchantSpendingResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, MerchantSpendingResponse{MerchantName: r.MerchantName, Total: toFloat(r.Total), Count: r.Count})
	}
	return out
}

func NewSpendingSummaryResponse(s *models.SpendingSummary) *SpendingSummaryResponse {
	return &SpendingSummaryResponse{
		Total:        toFloat(s.Total),
		Count:        s.Count,
		ExpenseCount: s.ExpenseCount,
		Average:      toFloat(s.Average),
	}
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
