package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App         AppConfig
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Redis       RedisConfig
	Learning    LearningConfig
	Aggregation AggregationConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey string
}

type RedisConfig struct {
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
}

// LearningConfig holds the thresholds and bandit knobs. Values here are the
// defaults; the learning_settings table may override them at runtime.
type LearningConfig struct {
	MinFormRuns     int
	MinSegmentRuns  int
	MinFamilyRuns   int
	MinSuccessRate  float64
	MaxAvgEditChars float64
	BanditEpsilon   float64
	BanditEnabled   bool
	LookbackDays    int
}

type AggregationConfig struct {
	Schedule    string
	LockTTL     time.Duration
	Workers     int
	RunOnStart  bool
	MetricsPort string

	// RetentionDays of zero keeps events forever.
	RetentionDays int
	PruneSchedule string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, errors.New("invalid redis database")
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Autofill Tuner"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "autofill_tuner"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnv("REDIS_PORT", "6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
		},
		Learning: LearningConfig{
			MinFormRuns:     getEnvInt("MIN_FORM_RUNS", 5),
			MinSegmentRuns:  getEnvInt("MIN_SEGMENT_RUNS", 5),
			MinFamilyRuns:   getEnvInt("MIN_FAMILY_RUNS", 10),
			MinSuccessRate:  getEnvFloat("MIN_SUCCESS_RATE", 0.6),
			MaxAvgEditChars: getEnvFloat("MAX_AVG_EDIT_CHARS", 500),
			BanditEpsilon:   getEnvFloat("BANDIT_EPSILON", 0.15),
			BanditEnabled:   getEnvBool("BANDIT_ENABLED", true),
			LookbackDays:    getEnvInt("LOOKBACK_DAYS", 30),
		},
		Aggregation: AggregationConfig{
			Schedule: getEnv("AGGREGATION_SCHEDULE", "@every 15m"),
			LockTTL:  getEnvDuration("AGGREGATION_LOCK_TTL", 10*time.Minute),
			Workers:  getEnvInt("AGGREGATION_WORKERS", 4),

			RunOnStart:  getEnvBool("AGGREGATION_RUN_ON_START", true),
			MetricsPort: getEnv("AGGREGATION_METRICS_PORT", "9091"),

			RetentionDays: getEnvInt("EVENT_RETENTION_DAYS", 90),
			PruneSchedule: getEnv("EVENT_PRUNE_SCHEDULE", "@daily"),
		},
	}

	if cfg.JWT.SecretKey == "" {
		return nil, errors.New("missing jwt secret")
	}

	if cfg.Database.Password == "" {
		return nil, errors.New("missing database password")
	}

	if cfg.Learning.BanditEpsilon < 0 || cfg.Learning.BanditEpsilon > 1 {
		return nil, errors.New("bandit epsilon must be within [0, 1]")
	}

	if cfg.Learning.LookbackDays <= 0 {
		return nil, errors.New("lookback days must be positive")
	}

	if cfg.Aggregation.RetentionDays > 0 && cfg.Aggregation.RetentionDays < cfg.Learning.LookbackDays {
		return nil, errors.New("event retention must cover the lookback window")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultVal
}
