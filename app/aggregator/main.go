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
	psqlRepo "autofillTuner/internal/repository/postgres"
	redisRepo "autofillTuner/internal/repository/redis"
	"autofillTuner/pkg/config"
	"autofillTuner/pkg/database"
	redisdb "autofillTuner/pkg/database/redis"
	"autofillTuner/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/robfig/cron/v3"
)

// cronLogger routes cron's own messages through the service logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	logger.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logger.Error("cron: "+msg, append([]any{err}, keysAndValues...)...)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	defer logger.Sync()
	logger.Info("Starting aggregation worker", "version", cfg.App.Version, "schedule", cfg.Aggregation.Schedule)

	db, err := database.InitPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("Failed to migrate database", "error", err)
	}

	redisClient, err := redisdb.NewRedisClient(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to redis", "error", err)
	}
	defer redisdb.CloseRedisClient(redisClient)

	eventRepo := psqlRepo.NewAutofillEventRepository(db)
	profileRepo := psqlRepo.NewFormProfileRepository(db)
	settingsRepo := psqlRepo.NewLearningSettingsRepository(db)
	lockRepo := redisRepo.NewLockRepository(redisClient)

	settingsLoader := learning.NewSettingsLoader(settingsRepo, learning.SettingsFromConfig(cfg.Learning)).
		WithRetention(cfg.Aggregation.RetentionDays)
	aggregator := learning.NewAggregator(eventRepo, profileRepo, lockRepo, settingsLoader, learning.AggregatorOptions{
		LockTTL: cfg.Aggregation.LockTTL,
		Workers: cfg.Aggregation.Workers,
	})

	pruner := learning.NewPruner(eventRepo, settingsLoader, cfg.Aggregation.RetentionDays, 0)

	runPass := func() {
		ctx := bandit.WithTraceID(context.Background(), "cron-"+uuid.NewString())
		if _, err := aggregator.Run(ctx); err != nil {
			logger.Error("Scheduled aggregation failed", err)
		}
	}

	// SkipIfStillRunning covers overlap inside this process; the redis lock
	// covers every other worker.
	scheduler := cron.New(cron.WithChain(
		cron.Recover(cronLogger{}),
		cron.SkipIfStillRunning(cronLogger{}),
	), cron.WithLogger(cronLogger{}))

	if _, err := scheduler.AddFunc(cfg.Aggregation.Schedule, runPass); err != nil {
		logger.Fatal("Invalid aggregation schedule", "schedule", cfg.Aggregation.Schedule, "error", err)
	}

	if pruner.Enabled() {
		prune := func() {
			ctx := bandit.WithTraceID(context.Background(), "prune-"+uuid.NewString())
			if _, err := pruner.Prune(ctx); err != nil {
				logger.Error("Event retention pass failed", err)
			}
		}
		if _, err := scheduler.AddFunc(cfg.Aggregation.PruneSchedule, prune); err != nil {
			logger.Fatal("Invalid prune schedule", "schedule", cfg.Aggregation.PruneSchedule, "error", err)
		}
	}

	// metrics endpoint for the worker's own counters
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	router.SetOpsRoutes(e)

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Aggregation.MetricsPort)
		logger.Info("Metrics server starting", "address", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start metrics server", "error", err)
		}
	}()

	if cfg.Aggregation.RunOnStart {
		go runPass()
	}
	scheduler.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Stopping aggregation worker...")

	// wait for an in-flight pass to finish its writes
	stopped := scheduler.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(cfg.Aggregation.LockTTL):
		logger.Warn("Aggregation still running at shutdown deadline")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Metrics server shutdown error", "error", err)
	}

	logger.Info("Aggregation worker stopped")
}
