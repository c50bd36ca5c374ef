package models

import "github.com/shopspring/decimal"

type CategorySpending struct {
	Category ExpenseCategory
	Total    decimal.Decimal
	Count    int64
}

type DailySpending struct {
	Date  string // YYYY-MM-DD in the reference timezone
	Total decimal.Decimal
	Count int64
}

type MerchantSpending struct {
	MerchantName string
	Total        decimal.Decimal
	Count        int64 // distinct receipts
}

type SpendingSummary struct {
	Total        decimal.Decimal
	Count        int64 // distinct receipts among the matching expenses
	ExpenseCount int64
	Average      decimal.Decimal
}

type BreakdownCount struct {
	Key       string
	Total     int64
	Completed int64
}

type TodoStats struct {
	Total     int64
	Completed int64
	Pending   int64
	Overdue   int64
}

type DailyCount struct {
	Date  string
	Count int64
}

type TodoAnalytics struct {
	ByCategory         []BreakdownCount
	ByPriority         []BreakdownCount
	Stats              TodoStats
	CompletionOverTime []DailyCount
}
