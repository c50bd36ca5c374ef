package handlers

import (
	"tudu/internal/dto"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ChecklistHandler serves checklist items and attachments.
type ChecklistHandler struct {
	checklist ChecklistService
	logger    *zap.Logger
}

func NewChecklistHandler(checklist ChecklistService, logger *zap.Logger) *ChecklistHandler {
	return &ChecklistHandler{
		checklist: checklist,
		logger:    logger,
	}
}

// AddItem godoc
// @Summary Add a checklist item to a todo
// @Tags checklist
// @Accept json
// @Produce json
// @Param id path string true "Todo ID"
// @Param item body dto.CreateChecklistItemRequest true "Item"
// @Security Bearer
// @Success 201 {object} dto.Response{data=dto.ChecklistItemResponse}
// @Failure 400 {object} dto.Response
// @Failure 404 {object} dto.Response
// @Router /todos/{id}/checklist [post]
func (h *ChecklistHandler) AddItem(c *fiber.Ctx) error {
	todoID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req dto.CreateChecklistItemRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}

	item, err := h.checklist.AddItem(c.UserContext(), todoID, &req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, dto.NewChecklistItemResponse(item))
}

// UpdateItem godoc
// @Summary Update a checklist item
// @Tags checklist
// @Accept json
// @Produce json
// @Param id path string true "Checklist item ID"
// @Param item body dto.UpdateChecklistItemRequest true "Fields to change"
// @Security Bearer
// @Success 200 {object} dto.Response{data=dto.ChecklistItemResponse}
// @Router /checklist/{id} [patch]
func (h *ChecklistHandler) UpdateItem(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req dto.UpdateChecklistItemRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}

	item, err := h.checklist.UpdateItem(c.UserContext(), id, &req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewChecklistItemResponse(item))
}

// ToggleItem godoc
// @Summary Flip a checklist item's completion state
// @Tags checklist
// @Produce json
// @Param id path string true "Checklist item ID"
// @Security Bearer
// @Success 200 {object} dto.Response{data=dto.ChecklistItemResponse}
// @Router /checklist/{id}/toggle [post]
func (h *ChecklistHandler) ToggleItem(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	item, err := h.checklist.ToggleItem(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewChecklistItemResponse(item))
}

// DeleteItem godoc
// @Summary Delete a checklist item
// @Tags checklist
// @Produce json
// @Param id path string true "Checklist item ID"
// @Security Bearer
// @Success 200 {object} dto.Response{data=dto.DeletedResponse}
// @Router /checklist/{id} [delete]
func (h *ChecklistHandler) DeleteItem(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.checklist.DeleteItem(c.UserContext(), id); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.DeletedResponse{ID: id.String()})
}

// AddAttachment godoc
// @Summary Attach a note or file reference to a todo
// @Tags attachments
// @Accept json
// @Produce json
// @Param id path string true "Todo ID"
// @Param attachment body dto.CreateAttachmentRequest true "Attachment"
// @Security Bearer
// @Success 201 {object} dto.Response{data=dto.AttachmentResponse}
// @Router /todos/{id}/attachments [post]
func (h *ChecklistHandler) AddAttachment(c *fiber.Ctx) error {
	todoID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req dto.CreateAttachmentRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}

	att, err := h.checklist.AddAttachment(c.UserContext(), todoID, &req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, dto.NewAttachmentResponse(att))
}

// DeleteAttachment godoc
// @Summary Delete an attachment
// @Tags attachments
// @Produce json
// @Param id path string true "Attachment ID"
// @Security Bearer
// @Success 200 {object} dto.Response{data=dto.DeletedResponse}
// @Router /attachments/{id} [delete]
func (h *ChecklistHandler) DeleteAttachment(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.checklist.DeleteAttachment(c.UserContext(), id); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.DeletedResponse{ID: id.String()})
}
