package handlers

import (
	"context"
	"time"

	"tudu/internal/dto"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

type HealthHandler struct {
	db     Pinger
	logger *zap.Logger
}

func NewHealthHandler(db Pinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

// Health godoc
// @Summary Liveness and database check
// @Tags health
// @Produce json
// @Success 200 {object} dto.Response
// @Failure 503 {object} dto.Response
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("Health check failed", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.Response{
			Success: false,
			Data:    fiber.Map{"status": "degraded", "database": "unreachable"},
			Error:   "Database unreachable",
		})
	}
	return respond(c, fiber.StatusOK, fiber.Map{"status": "ok", "database": "ok"})
}
