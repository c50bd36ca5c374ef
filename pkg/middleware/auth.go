package middleware

import (
	"strings"

	"tudu/pkg/auth"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const TokenSubjectKey = "tokenSubject"

// AuthMiddleware requires a valid personal access token in the
// Authorization header.
func AuthMiddleware(jwtManager *auth.JWTManager, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get(fiber.HeaderAuthorization)
		if token == "" {
			logger.Warn("Missing authorization token", zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Authorization token required",
			})
		}

		token = strings.TrimPrefix(token, "Bearer ")

		claims, err := jwtManager.ValidateToken(token)
		if err != nil {
			logger.Warn("Invalid token", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid or expired token",
			})
		}

		c.Locals(TokenSubjectKey, claims.Subject)

		return c.Next()
	}
}
