package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tudu/internal/api"
	"tudu/internal/api/handlers"
	"tudu/internal/repository"
	"tudu/internal/service"
	"tudu/pkg/auth"
	"tudu/pkg/config"
	"tudu/pkg/logger"
	"tudu/pkg/metrics"
	"tudu/pkg/postgres"
	"tudu/pkg/storage"

	"go.uber.org/zap"
)

// @title tudu API
// @version 1.0
// @description Todo manager with natural-language entry and a receipt-based expense tracker

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logger.Level, cfg.Logger.Format); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()

	if err := cfg.Validate(); err != nil {
		appLogger.Fatal("Invalid configuration", zap.Error(err))
	}
	loc, err := cfg.App.Location()
	if err != nil {
		appLogger.Fatal("Invalid APP_UTC_OFFSET", zap.Error(err))
	}

	appLogger.Info("Starting tudu",
		zap.String("utc_offset", cfg.App.UTCOffset),
		zap.String("default_currency", cfg.App.DefaultCurrency),
	)

	ctx := context.Background()
	if cfg.Database.AutoMigrate {
		if err := postgres.RunMigrations(cfg.Database.URL(), appLogger); err != nil {
			appLogger.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	m := metrics.New()

	todoRepo := repository.NewTodoRepository(db, logger.Named("todo_repository"))
	checklistRepo := repository.NewChecklistRepository(db, logger.Named("checklist_repository"))
	attachmentRepo := repository.NewAttachmentRepository(db, logger.Named("attachment_repository"))
	receiptRepo := repository.NewReceiptRepository(db, logger.Named("receipt_repository"))
	expenseRepo := repository.NewExpenseRepository(db, logger.Named("expense_repository"))
	analyticsRepo := repository.NewAnalyticsRepository(db, loc, logger.Named("analytics_repository"))

	llmService, err := service.NewLLMService(&cfg.GigaChat, logger.Named("gigachat"))
	if err != nil {
		appLogger.Fatal("Failed to initialize LLM service", zap.Error(err))
	}
	defer llmService.Close()

	todoParser := service.NewTodoParser(llmService, loc, logger.Named("todo_parser"))
	receiptAnalyzer := service.NewReceiptAnalyzer(llmService, loc, cfg.App.DefaultCurrency, logger.Named("receipt_analyzer"))

	var images service.ImageStore
	if cfg.Storage.Enabled() {
		images = storage.NewS3Store(cfg.Storage, logger.Named("storage"))
	} else {
		appLogger.Info("STORAGE_BUCKET is not set, receipt images will not be kept")
	}

	todoService := service.NewTodoService(todoRepo, todoParser, m, logger.Named("todo_service"))
	checklistService := service.NewChecklistService(checklistRepo, attachmentRepo, logger.Named("checklist_service"))
	receiptService := service.NewReceiptService(
		receiptRepo,
		expenseRepo,
		receiptAnalyzer,
		images,
		m,
		cfg.App.DefaultCurrency,
		logger.Named("receipt_service"),
	)
	analyticsService := service.NewAnalyticsService(analyticsRepo, logger.Named("analytics_service"))

	var jwtManager *auth.JWTManager
	if cfg.JWT.Enabled() {
		jwtManager = auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration)
	}

	app := api.SetupRouter(api.Handlers{
		Todo:      handlers.NewTodoHandler(todoService, loc, appLogger),
		Checklist: handlers.NewChecklistHandler(checklistService, appLogger),
		Receipt:   handlers.NewReceiptHandler(receiptService, loc, appLogger),
		Analytics: handlers.NewAnalyticsHandler(analyticsService, loc, appLogger),
		Health:    handlers.NewHealthHandler(db, appLogger),
	}, cfg.Server, jwtManager, m, appLogger)

	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
