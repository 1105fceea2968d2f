package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SAP-F-2025/adaptive-testing-service/internal/cache"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/config"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/handlers"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/models"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/services"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/utils"
	"github.com/SAP-F-2025/adaptive-testing-service/pkg"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Exit(1)
	}

	var logger utils.Logger
	if cfg.Environment == "production" {
		logger = utils.NewDefaultLogger()
	} else {
		logger = utils.NewDevelopmentLogger()
	}

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := db.AutoMigrate(
		&models.Pool{},
		&models.Item{},
		&models.ItemExposure{},
		&models.Session{},
		&models.Response{},
		&models.Report{},
	); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	var cacheService cache.CacheService = cache.NoopCache{}
	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, caching disabled", "error", err)
	} else {
		cacheService = cache.NewRedisCache(redisClient, utils.ToSlogLogger(logger))
		defer redisClient.Close()
	}

	publisher, err := cfg.Events.CreateEventPublisher(utils.ToSlogLogger(logger))
	if err != nil {
		logger.Error("Failed to create event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	validator := utils.NewValidator()
	repo := postgres.NewRepository(db)

	poolService := services.NewPoolService(repo, logger, validator, cacheService)
	reportService := services.NewReportService(repo, logger, cacheService, publisher, models.DefaultReportConfig())
	sessionService := services.NewSessionService(repo, logger, validator, poolService, reportService, publisher)
	importService := services.NewImportService(poolService, logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))

	handlerManager := handlers.NewHandlerManager(poolService, sessionService, reportService, importService, logger)
	handlerManager.SetupRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", "error", err)
	}
}
