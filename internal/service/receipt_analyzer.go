package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"tudu/internal/dto"
	"tudu/internal/models"
	"tudu/pkg/apperrors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// GigaChatReceiptAnalyzer implements ReceiptAnalyzer with a vision model.
type GigaChatReceiptAnalyzer struct {
	llm             ImageDescriber
	loc             *time.Location
	defaultCurrency string
	logger          *zap.Logger
}

func NewReceiptAnalyzer(llm ImageDescriber, loc *time.Location, defaultCurrency string, logger *zap.Logger) *GigaChatReceiptAnalyzer {
	if defaultCurrency == "" {
		defaultCurrency = models.DefaultCurrency
	}
	return &GigaChatReceiptAnalyzer{
		llm:             llm,
		loc:             loc,
		defaultCurrency: defaultCurrency,
		logger:          logger,
	}
}

type rawExpense struct {
	MerchantName *string     `json:"merchantName"`
	Amount       looseNumber `json:"amount"`
	Currency     *string     `json:"currency"`
	Category     *string     `json:"category"`
	Date         *string     `json:"date"`
	Description  *string     `json:"description"`
	Confidence   looseNumber `json:"confidence"`
}

type rawReceiptAnalysis struct {
	Expenses     []rawExpense `json:"expenses"`
	TotalAmount  looseNumber  `json:"totalAmount"`
	Currency     *string      `json:"currency"`
	ReceiptDate  *string      `json:"receiptDate"`
	MerchantName *string      `json:"merchantName"`
}

func (a *GigaChatReceiptAnalyzer) AnalyzeReceipt(ctx context.Context, image []byte, mimeType string) (*dto.ReceiptAnalysis, error) {
	fileName := "receipt" + imageExtensions[mimeType]

	reply, err := a.llm.DescribeImage(ctx, image, fileName, mimeType, a.buildPrompt())
	if err != nil {
		return nil, apperrors.ExtractionFailed("Failed to analyze receipt", err)
	}

	var raw rawReceiptAnalysis
	if err := decodeModelJSON(reply, &raw); err != nil {
		a.logger.Warn("Unusable receipt reply", zap.Error(err), zap.String("reply", reply))
		return nil, apperrors.ExtractionFailed("Failed to analyze receipt", err)
	}

	analysis, err := a.normalize(&raw)
	if err != nil {
		a.logger.Warn("Receipt reply failed validation", zap.Error(err))
		return nil, apperrors.ExtractionFailed("Failed to analyze receipt", err)
	}
	return analysis, nil
}

// normalize validates the reply. Amounts are rounded to cents, currencies
// upper-cased and defaulted, and categories must come from the fixed set.
func (a *GigaChatReceiptAnalyzer) normalize(raw *rawReceiptAnalysis) (*dto.ReceiptAnalysis, error) {
	if len(raw.Expenses) == 0 {
		return nil, fmt.Errorf("no expenses in reply")
	}

	currency, err := a.currency(raw.Currency, a.defaultCurrency)
	if err != nil {
		return nil, err
	}

	out := &dto.ReceiptAnalysis{
		Expenses:     make([]dto.AnalyzedExpense, 0, len(raw.Expenses)),
		Currency:     currency,
		MerchantName: trimmed(raw.MerchantName),
	}

	if raw.TotalAmount.Value != nil {
		total := roundCents(*raw.TotalAmount.Value)
		out.TotalAmount = &total
	}
	if d := trimmed(raw.ReceiptDate); d != nil {
		date, err := parseModelTime(*d, a.loc, 0)
		if err != nil {
			return nil, fmt.Errorf("receiptDate: %w", err)
		}
		out.ReceiptDate = &date
	}

	for i, e := range raw.Expenses {
		line, err := a.normalizeExpense(e, currency)
		if err != nil {
			return nil, fmt.Errorf("expense %d: %w", i, err)
		}
		out.Expenses = append(out.Expenses, *line)
	}
	return out, nil
}

func (a *GigaChatReceiptAnalyzer) normalizeExpense(e rawExpense, receiptCurrency string) (*dto.AnalyzedExpense, error) {
	if e.Amount.Value == nil {
		return nil, fmt.Errorf("amount is missing")
	}
	amount := roundCents(*e.Amount.Value)
	if amount <= 0 {
		return nil, fmt.Errorf("amount %.2f is not positive", *e.Amount.Value)
	}

	currency, err := a.currency(e.Currency, receiptCurrency)
	if err != nil {
		return nil, err
	}

	c := trimmed(e.Category)
	if c == nil {
		return nil, fmt.Errorf("category is missing")
	}
	category := models.ExpenseCategory(strings.ToLower(*c))
	if !category.IsValid() {
		return nil, fmt.Errorf("category %q is not allowed", *c)
	}

	if err := validConfidence(e.Confidence.Value); err != nil {
		return nil, err
	}

	line := &dto.AnalyzedExpense{
		MerchantName: trimmed(e.MerchantName),
		Amount:       amount,
		Currency:     currency,
		Category:     category,
		Description:  trimmed(e.Description),
		Confidence:   e.Confidence.Value,
	}
	if d := trimmed(e.Date); d != nil {
		date, err := parseModelTime(*d, a.loc, 0)
		if err != nil {
			return nil, fmt.Errorf("date: %w", err)
		}
		line.Date = &date
	}
	return line, nil
}

func (a *GigaChatReceiptAnalyzer) currency(value *string, fallback string) (string, error) {
	v := trimmed(value)
	if v == nil {
		return fallback, nil
	}
	upper := strings.ToUpper(*v)
	if !currencyPattern.MatchString(upper) {
		return "", fmt.Errorf("currency %q is not a 3-letter code", *v)
	}
	return upper, nil
}

func roundCents(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

func (a *GigaChatReceiptAnalyzer) buildPrompt() string {
	return fmt.Sprintf(`You are an expert at analyzing receipts and categorizing expenses.

Read the receipt image and extract every expense line with:
- merchantName: the store or merchant
- amount: the item amount, or the total when items are not readable; a positive number
- currency: ISO 4217 code; use %[1]s when the receipt does not show one
- date: purchase date as YYYY-MM-DD, or null
- description: a short description of the item
- category: one of
  food (groceries, restaurants, cafes, food delivery),
  lifestyle (clothing, personal care, beauty, fitness, hobbies),
  subscriptions (recurring services, streaming, memberships),
  transportation (fuel, transit, ride-sharing, parking, vehicle maintenance),
  shopping (general retail, electronics, home goods, gifts),
  entertainment (movies, concerts, events, games, books),
  utilities (electricity, water, internet, phone),
  healthcare (medical, dental, pharmacy, insurance),
  other (anything else)
- confidence: your confidence in the category from 0 to 100

Reply with a single JSON object and nothing else:
{"merchantName": "", "receiptDate": "YYYY-MM-DD", "currency": "%[1]s", "totalAmount": 0,
 "expenses": [{"merchantName": "", "amount": 0, "currency": "%[1]s", "date": "YYYY-MM-DD",
 "description": "", "category": "other", "confidence": 0}]}`, a.defaultCurrency)
}
