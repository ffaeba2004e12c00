package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"autofillTuner/app/echo-server/router"
	"autofillTuner/business/bandit"
	"autofillTuner/business/learning"
	"autofillTuner/internal/middleware"
	psqlRepo "autofillTuner/internal/repository/postgres"
	redisRepo "autofillTuner/internal/repository/redis"
	"autofillTuner/internal/rest"
	"autofillTuner/pkg/config"
	"autofillTuner/pkg/database"
	redisdb "autofillTuner/pkg/database/redis"
	"autofillTuner/pkg/logger"
	"autofillTuner/pkg/metrics"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	defer logger.Sync()
	logger.Info("Starting "+cfg.App.Name, "version", cfg.App.Version)

	db, err := database.InitPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("Failed to migrate database", "error", err)
	}

	logger.Info("Database connected successfully")

	redisClient, err := redisdb.NewRedisClient(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to redis", "error", err)
	}
	defer redisdb.CloseRedisClient(redisClient)

	metrics.Init()

	// Init validate
	validate := validator.New()

	// Init repo
	eventRepo := psqlRepo.NewAutofillEventRepository(db)
	profileRepo := psqlRepo.NewFormProfileRepository(db)
	settingsRepo := psqlRepo.NewLearningSettingsRepository(db)
	lockRepo := redisRepo.NewLockRepository(redisClient)

	// Init service
	settingsLoader := learning.NewSettingsLoader(settingsRepo, learning.SettingsFromConfig(cfg.Learning)).
		WithRetention(cfg.Aggregation.RetentionDays)
	eventService := learning.NewEventService(eventRepo, validate)
	profileService := learning.NewProfileService(profileRepo, settingsLoader)
	decisionService := bandit.NewDecisionService(profileService, settingsLoader, nil)
	aggregator := learning.NewAggregator(eventRepo, profileRepo, lockRepo, settingsLoader, learning.AggregatorOptions{
		LockTTL: cfg.Aggregation.LockTTL,
		Workers: cfg.Aggregation.Workers,
	})

	// Init handler
	learningHandler := rest.NewLearningHandler(eventService, profileService, decisionService)
	adminHandler := rest.NewLearningAdminHandler(settingsLoader, aggregator)

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// HTTP error handler
	e.HTTPErrorHandler = middleware.ErrorHandler

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.BodyLimit("2M"))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderXRequestID},
	}))
	e.Use(middleware.TraceMiddleware())
	e.Use(middleware.MetricsMiddleware())

	// Auth middleware
	authRequired := middleware.AuthMiddleware(cfg.JWT.SecretKey)
	adminOnly := middleware.AdminOnly()

	// Setup routes
	router.SetOpsRoutes(e)
	router.SetLearningRoutes(e, learningHandler)
	router.SetLearningAdminRoutes(e, adminHandler, authRequired, adminOnly)

	// Goroutine server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown server
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Server stopped")
}
