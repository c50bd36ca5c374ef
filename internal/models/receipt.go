package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReceiptStatus string

const (
	ReceiptStatusPending   ReceiptStatus = "pending"
	ReceiptStatusProcessed ReceiptStatus = "processed"
	ReceiptStatusFailed    ReceiptStatus = "failed"
)

// IsTerminal reports whether the status can no longer change.
func (s ReceiptStatus) IsTerminal() bool {
	return s == ReceiptStatusProcessed || s == ReceiptStatusFailed
}

type Receipt struct {
	ID          uuid.UUID     `db:"id"`
	ImageURL    *string       `db:"image_url"`
	UploadedAt  time.Time     `db:"uploaded_at"`
	ProcessedAt *time.Time    `db:"processed_at"`
	Status      ReceiptStatus `db:"status"`

	Expenses []*Expense `db:"-"`
}

type ExpenseCategory string

const (
	ExpenseCategoryFood           ExpenseCategory = "food"
	ExpenseCategoryLifestyle      ExpenseCategory = "lifestyle"
	ExpenseCategorySubscriptions  ExpenseCategory = "subscriptions"
	ExpenseCategoryTransportation ExpenseCategory = "transportation"
	ExpenseCategoryShopping       ExpenseCategory = "shopping"
	ExpenseCategoryEntertainment  ExpenseCategory = "entertainment"
	ExpenseCategoryUtilities      ExpenseCategory = "utilities"
	ExpenseCategoryHealthcare     ExpenseCategory = "healthcare"
	ExpenseCategoryOther          ExpenseCategory = "other"
)

var ExpenseCategories = []ExpenseCategory{
	ExpenseCategoryFood, ExpenseCategoryLifestyle, ExpenseCategorySubscriptions,
	ExpenseCategoryTransportation, ExpenseCategoryShopping, ExpenseCategoryEntertainment,
	ExpenseCategoryUtilities, ExpenseCategoryHealthcare, ExpenseCategoryOther,
}

func (c ExpenseCategory) IsValid() bool {
	for _, known := range ExpenseCategories {
		if c == known {
			return true
		}
	}
	return false
}

const DefaultCurrency = "INR"

// Expense is one line item of a receipt. Amount is always positive and
// Confidence, when known, lies in [0, 100].
type Expense struct {
	ID           uuid.UUID        `db:"id"`
	ReceiptID    uuid.UUID        `db:"receipt_id"`
	MerchantName *string          `db:"merchant_name"`
	Amount       decimal.Decimal  `db:"amount"`
	Currency     string           `db:"currency"`
	Category     ExpenseCategory  `db:"category"`
	Date         *time.Time       `db:"date"`
	Description  *string          `db:"description"`
	Confidence   *decimal.Decimal `db:"confidence"`
	CreatedAt    time.Time        `db:"created_at"`
}
