package dto

import (
	"strings"
	"time"

	"tudu/internal/models"
)

// ReceiptAnalysis is the validated result of reading a receipt image.
type ReceiptAnalysis struct {
	Expenses     []AnalyzedExpense `json:"expenses"`
	TotalAmount  *float64          `json:"totalAmount,omitempty"`
	Currency     string            `json:"currency"`
	ReceiptDate  *time.Time        `json:"receiptDate,omitempty"`
	MerchantName *string           `json:"merchantName,omitempty"`
}

type AnalyzedExpense struct {
	MerchantName *string                `json:"merchantName,omitempty"`
	Amount       float64                `json:"amount"`
	Currency     string                 `json:"currency"`
	Category     models.ExpenseCategory `json:"category"`
	Date         *time.Time             `json:"date,omitempty"`
	Description  *string                `json:"description,omitempty"`
	Confidence   *float64               `json:"confidence,omitempty"`
}

type AnalyzeReceiptResponse struct {
	ReceiptID string           `json:"receiptId"`
	Analysis  *ReceiptAnalysis `json:"analysis"`
}

type CreateExpenseRequest struct {
	MerchantName *string                `json:"merchantName" validate:"omitempty,max=200"`
	Amount       float64                `json:"amount" validate:"gt=0"`
	Currency     *string                `json:"currency" validate:"omitempty,len=3,alpha"`
	Category     models.ExpenseCategory `json:"category" validate:"required,expense_category"`
	Date         *time.Time             `json:"date"`
	Description  *string                `json:"description" validate:"omitempty,max=1000"`
	Confidence   *float64               `json:"confidence" validate:"omitempty,gte=0,lte=100"`
}

func (r *CreateExpenseRequest) Normalize() {
	r.MerchantName = trimToNil(r.MerchantName)
	r.Description = trimToNil(r.Description)
	r.Currency = trimToNil(r.Currency)
	if r.Currency != nil {
		upper := strings.ToUpper(*r.Currency)
		r.Currency = &upper
	}
}

type ReceiptResponse struct {
	ID          string             `json:"id"`
	ImageURL    *string            `json:"imageUrl"`
	UploadedAt  time.Time          `json:"uploadedAt"`
	ProcessedAt *time.Time         `json:"processedAt"`
	Status      string             `json:"status"`
	Expenses    []*ExpenseResponse `json:"expenses"`
}

type ExpenseResponse struct {
	ID           string     `json:"id"`
	ReceiptID    string     `json:"receiptId"`
	MerchantName *string    `json:"merchantName"`
	Amount       float64    `json:"amount"`
	Currency     string     `json:"currency"`
	Category     string     `json:"category"`
	Date         *time.Time `json:"date"`
	Description  *string    `json:"description"`
	Confidence   *float64   `json:"confidence"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func NewReceiptResponse(receipt *models.Receipt) *ReceiptResponse {
	resp := &ReceiptResponse{
		ID:          receipt.ID.String(),
		ImageURL:    receipt.ImageURL,
		UploadedAt:  receipt.UploadedAt,
		ProcessedAt: receipt.ProcessedAt,
		Status:      string(receipt.Status),
		Expenses:    make([]*ExpenseResponse, 0, len(receipt.Expenses)),
	}
	for _, e := range receipt.Expenses {
		resp.Expenses = append(resp.Expenses, NewExpenseResponse(e))
	}
	return resp
}

func NewReceiptListResponse(receipts []*models.Receipt) []*ReceiptResponse {
	out := make([]*ReceiptResponse, 0, len(receipts))
	for _, r := range receipts {
		out = append(out, NewReceiptResponse(r))
	}
	return out
}

func NewExpenseResponse(e *models.Expense) *ExpenseResponse {
	amount, _ := e.Amount.Float64()
	resp := &ExpenseResponse{
		ID:           e.ID.String(),
		ReceiptID:    e.ReceiptID.String(),
		MerchantName: e.MerchantName,
		Amount:       amount,
		Currency:     e.Currency,
		Category:     string(e.Category),
		Date:         e.Date,
		Description:  e.Description,
		CreatedAt:    e.CreatedAt,
	}
	if e.Confidence != nil {
		confidence, _ := e.Confidence.Float64()
		resp.Confidence = &confidence
	}
	return resp
}
