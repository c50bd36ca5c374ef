package handlers

import (
	"io"
	"time"

	"tudu/internal/dto"
	"tudu/pkg/apperrors"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// MaxImageSize caps receipt uploads at 10 MiB.
const MaxImageSize = 10 << 20

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/webp"}

type ReceiptHandler struct {
	receipts ReceiptService
	loc      *time.Location
	logger   *zap.Logger
}

func NewReceiptHandler(receipts ReceiptService, loc *time.Location, logger *zap.Logger) *ReceiptHandler {
	return &ReceiptHandler{
		receipts: receipts,
		loc:      loc,
		logger:   logger,
	}
}

// AnalyzeReceipt godoc
// @Summary Analyze a receipt image
// @Description Stores the receipt, extracts categorized expenses and returns them
// @Tags receipts
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "Receipt image (JPEG, PNG or WebP, max 10MB)"
// @Security Bearer
// @Success 200 {object} dto.Response{data=dto.AnalyzeReceiptResponse}
// @Failure 400 {object} dto.Response
// @Failure 502 {object} dto.Response
// @Router /receipts/analyze [post]
func (h *ReceiptHandler) AnalyzeReceipt(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return apperrors.ValidationFailed("Image file is required", "")
	}
	if file.Size > MaxImageSize {
		return apperrors.ValidationFailed("Image is too large (max 10MB)", "")
	}

	src, err := file.Open()
	if err != nil {
		return apperrors.ValidationFailed("Failed to read image", err.Error())
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, MaxImageSize+1))
	if err != nil {
		return apperrors.ValidationFailed("Failed to read image", err.Error())
	}
	if len(data) == 0 {
		return apperrors.ValidationFailed("Image file is empty", "")
	}
	if len(data) > MaxImageSize {
		return apperrors.ValidationFailed("Image is too large (max 10MB)", "")
	}

	mime := mimetype.Detect(data)
	if !mimetype.EqualsAny(mime.String(), allowedImageTypes...) {
		return apperrors.ValidationFailed("Unsupported image type, use JPEG, PNG or WebP", mime.String())
	}

	h.logger.Info("Receipt upload",
		zap.String("file_name", file.Filename),
		zap.String("mime_type", mime.String()),
		zap.Int("size", len(data)),
	)

	resp, err := h.receipts.AnalyzeReceipt(c.UserContext(), data, mime.String())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, resp)
}

// ListReceipts godoc
// @Summary List receipts with their expenses, newest first
// @Tags receipts
// @Produce json
// @Param from query string false "Uploaded at or after"
// @Param to query string false "Uploaded at or before"
// @Security Bearer
// @Success 200 {object} dto.Response{data=[]dto.ReceiptResponse}
// @Router /receipts [get]
func (h *ReceiptHandler) ListReceipts(c *fiber.Ctx) error {
	dateRange, err := parseDateRange(c, h.loc)
	if err != nil {
		return err
	}

	receipts, err := h.receipts.ListReceipts(c.UserContext(), dateRange)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewReceiptListResponse(receipts))
}

// GetReceipt godoc
// @Summary Get a receipt with its expenses
// @Tags receipts
// @Produce json
// @Param id path string true "Receipt ID"
// @Security Bearer
// @Success 200 {object} dto.Response{data=dto.ReceiptResponse}
// @Failure 404 {object} dto.Response
// @Router /receipts/{id} [get]
func (h *ReceiptHandler) GetReceipt(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	receipt, err := h.receipts.GetReceipt(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewReceiptResponse(receipt))
}

// DeleteReceipt godoc
// @Summary Delete a receipt and its expenses
// @Tags receipts
// @Produce json
// @Param id path string true "Receipt ID"
// @Security Bearer
// @Success 200 {object} dto.Response{data=dto.DeletedResponse}
// @Failure 404 {object} dto.Response
// @Router /receipts/{id} [delete]
func (h *ReceiptHandler) DeleteReceipt(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.receipts.DeleteReceipt(c.UserContext(), id); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.DeletedResponse{ID: id.String()})
}

// AddExpense godoc
// @Summary Add an expense to a receipt by hand
// @Tags receipts
// @Accept json
// @Produce json
// @Param id path string true "Receipt ID"
// @Param expense body dto.CreateExpenseRequest true "Expense"
// @Security Bearer
// @Success 201 {object} dto.Response{data=dto.ExpenseResponse}
// @Failure 400 {object} dto.Response
// @Failure 404 {object} dto.Response
// @Failure 409 {object} dto.Response
// @Router /receipts/{id}/expenses [post]
func (h *ReceiptHandler) AddExpense(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req dto.CreateExpenseRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}

	expense, err := h.receipts.AddExpense(c.UserContext(), id, &req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, dto.NewExpenseResponse(expense))
}
