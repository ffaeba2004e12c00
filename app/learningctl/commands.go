package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"autofillTuner/business/bandit"
	"autofillTuner/business/learning"
	psqlRepo "autofillTuner/internal/repository/postgres"
	redisRepo "autofillTuner/internal/repository/redis"
	"autofillTuner/pkg/database"
	redisdb "autofillTuner/pkg/database/redis"
	"autofillTuner/pkg/utils"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the admin endpoints",
	RunE: func(cmd *cobra.Command, _ []string) error {
		user, _ := cmd.Flags().GetString("user")
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		token, err := utils.GenerateJWT(cfg.JWT.SecretKey, user, role, ttl)
		if err != nil {
			return eris.Wrap(err, "token")
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the learning tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := database.InitPostgres(cfg)
		if err != nil {
			return eris.Wrap(err, "migrate")
		}
		if err := database.Migrate(db); err != nil {
			return eris.Wrap(err, "migrate")
		}

		fmt.Fprintln(cmd.OutOrStdout(), "migrated")
		return nil
	},
}

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Run one aggregation pass and print its summary",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		db, err := database.InitPostgres(cfg)
		if err != nil {
			return eris.Wrap(err, "aggregate")
		}

		redisClient, err := redisdb.NewRedisClient(cfg)
		if err != nil {
			return eris.Wrap(err, "aggregate")
		}
		defer redisdb.CloseRedisClient(redisClient)

		eventRepo := psqlRepo.NewAutofillEventRepository(db)
		profileRepo := psqlRepo.NewFormProfileRepository(db)
		settings := learning.NewSettingsLoader(psqlRepo.NewLearningSettingsRepository(db), learning.SettingsFromConfig(cfg.Learning)).
			WithRetention(cfg.Aggregation.RetentionDays)

		agg := learning.NewAggregator(eventRepo, profileRepo, redisRepo.NewLockRepository(redisClient), settings, learning.AggregatorOptions{
			LockTTL: cfg.Aggregation.LockTTL,
			Workers: cfg.Aggregation.Workers,
		})

		summary, err := agg.Run(bandit.WithTraceID(ctx, "cli-"+uuid.NewString()))
		if err != nil {
			return eris.Wrap(err, "aggregate")
		}
		if summary.Skipped {
			return eris.New("aggregate: another pass holds the lock")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete events older than the retention window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		days, _ := cmd.Flags().GetInt("days")
		if days == 0 {
			days = cfg.Aggregation.RetentionDays
		}
		if days <= 0 {
			return eris.New("prune: retention days must be positive")
		}

		db, err := database.InitPostgres(cfg)
		if err != nil {
			return eris.Wrap(err, "prune")
		}

		ctx := bandit.WithTraceID(cmd.Context(), "cli-"+uuid.NewString())
		settings := learning.NewSettingsLoader(psqlRepo.NewLearningSettingsRepository(db), learning.SettingsFromConfig(cfg.Learning))
		if lookback := settings.Load(ctx).LookbackDays; days < lookback {
			return eris.Errorf("prune: %d days would cut into the %d day lookback window", days, lookback)
		}

		pruner := learning.NewPruner(psqlRepo.NewAutofillEventRepository(db), settings, days, 0)
		deleted, err := pruner.Prune(ctx)
		if err != nil {
			return eris.Wrap(err, "prune")
		}

		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d events\n", deleted)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("user", "operator", "subject recorded in the token")
	tokenCmd.Flags().String("role", "ADMIN", "role claim; admin routes require ADMIN")
	tokenCmd.Flags().Duration("ttl", time.Hour, "token lifetime")

	pruneCmd.Flags().Int("days", 0, "retention in days; defaults to EVENT_RETENTION_DAYS")

	rootCmd.AddCommand(tokenCmd, migrateCmd, aggregateCmd, pruneCmd)
}
