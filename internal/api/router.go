package api

import (
	"errors"

	"tudu/docs"
	"tudu/internal/api/handlers"
	"tudu/internal/dto"
	"tudu/pkg/apperrors"
	"tudu/pkg/auth"
	"tudu/pkg/config"
	"tudu/pkg/metrics"
	"tudu/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handlers struct {
	Todo      *handlers.TodoHandler
	Checklist *handlers.ChecklistHandler
	Receipt   *handlers.ReceiptHandler
	Analytics *handlers.AnalyticsHandler
	Health    *handlers.HealthHandler
}

// SetupRouter builds the Fiber app. jwtManager may be nil, which leaves
// the API open; m may be nil, which disables /metrics.
func SetupRouter(
	h Handlers,
	serverCfg config.ServerConfig,
	jwtManager *auth.JWTManager,
	m *metrics.Metrics,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "tudu",
		BodyLimit:    serverCfg.BodyLimit,
		ReadTimeout:  serverCfg.ReadTimeout,
		WriteTimeout: serverCfg.WriteTimeout,
		ErrorHandler: ErrorHandler(appLogger),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: serverCfg.AllowOrigins,
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	if m != nil {
		app.Use(metricsMiddleware(m))
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", h.Health.Health)

	var v1 fiber.Router = app.Group("/api/v1")
	if jwtManager != nil {
		v1 = app.Group("/api/v1", middleware.AuthMiddleware(jwtManager, appLogger))
	} else {
		appLogger.Warn("JWT_SECRET_KEY is not set, API is unauthenticated")
	}

	todos := v1.Group("/todos")
	todos.Get("", h.Todo.ListTodos)
	todos.Post("", h.Todo.CreateTodo)
	todos.Post("/parse", h.Todo.ParseTodo)
	todos.Get("/analytics", h.Analytics.TodoAnalytics)
	todos.Get("/:id", h.Todo.GetTodo)
	todos.Patch("/:id", h.Todo.UpdateTodo)
	todos.Delete("/:id", h.Todo.DeleteTodo)
	todos.Post("/:id/toggle", h.Todo.ToggleTodo)
	todos.Post("/:id/checklist", h.Checklist.AddItem)
	todos.Post("/:id/attachments", h.Checklist.AddAttachment)

	checklist := v1.Group("/checklist")
	checklist.Patch("/:id", h.Checklist.UpdateItem)
	checklist.Delete("/:id", h.Checklist.DeleteItem)
	checklist.Post("/:id/toggle", h.Checklist.ToggleItem)

	v1.Delete("/attachments/:id", h.Checklist.DeleteAttachment)

	receipts := v1.Group("/receipts")
	receipts.Post("/analyze", h.Receipt.AnalyzeReceipt)
	receipts.Get("", h.Receipt.ListReceipts)
	receipts.Get("/:id", h.Receipt.GetReceipt)
	receipts.Delete("/:id", h.Receipt.DeleteReceipt)
	receipts.Post("/:id/expenses", h.Receipt.AddExpense)

	analytics := v1.Group("/analytics")
	analytics.Get("/categories", h.Analytics.SpendingByCategory)
	analytics.Get("/timeline", h.Analytics.SpendingOverTime)
	analytics.Get("/merchants", h.Analytics.TopMerchants)
	analytics.Get("/summary", h.Analytics.TotalSpending)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Route not found")
	})

	return app
}

// ErrorHandler renders every error as the standard envelope. Server-side
// failures are logged and answered with a generic message.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		message := "Internal server error"

		var fiberErr *fiber.Error
		if appErr, ok := apperrors.As(err); ok {
			status = appErr.HTTPStatus
			message = appErr.Message
		} else if errors.As(err, &fiberErr) {
			status = fiberErr.Code
			message = fiberErr.Message
		}

		if status >= fiber.StatusInternalServerError {
			log.Error("Request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Any("request_id", c.Locals("requestid")),
				zap.Int("status", status),
				zap.Error(err),
			)
			if status == fiber.StatusInternalServerError {
				message = "Internal server error"
			}
		}

		return c.Status(status).JSON(dto.Fail(message))
	}
}

func metricsMiddleware(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		route := "unmatched"
		if r := c.Route(); r != nil && r.Path != "/" {
			route = r.Path
		}
		m.HTTPRequest(c.Method(), route, c.Response().StatusCode())
		return nil
	}
}
