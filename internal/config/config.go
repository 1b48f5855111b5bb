package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"wellnessAPI/internal/accounting"
	"wellnessAPI/internal/lifecycle"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Port           string `env:"PORT,default=3333"`
	StorageDriver  string `env:"STORAGE_DRIVER,default=postgres"`
	DatabaseURL    string `env:"DATABASE_URL"`
	ClerkSecretKey string `env:"CLERK_SECRET_KEY"`
	WebhookSecret  string `env:"CLERK_WEBHOOK_SECRET"`

	InactivityThresholdDays int    `env:"INACTIVITY_THRESHOLD_DAYS,default=14"`
	MonthLengthDays         int    `env:"MONTH_LENGTH_DAYS,default=30"`
	PercentageStrategy      string `env:"PERCENTAGE_STRATEGY,default=entries"`
	BatchConcurrency        int    `env:"BATCH_CONCURRENCY,default=4"`
	RefreshSchedule         string `env:"REFRESH_SCHEDULE,default=@every 1h"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS,default=5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST,default=30"`
	MetricsUser    string  `env:"METRICS_USER"`
	MetricsPass    string  `env:"METRICS_PASS"`
	PprofSecret    string  `env:"PPROF_SECRET"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=text"`
}

// Load reads .env when present, then decodes and validates the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is not set")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.InactivityThresholdDays <= 0 {
		return fmt.Errorf("INACTIVITY_THRESHOLD_DAYS must be positive, got %d", c.InactivityThresholdDays)
	}
	if c.MonthLengthDays <= 0 {
		return fmt.Errorf("MONTH_LENGTH_DAYS must be positive, got %d", c.MonthLengthDays)
	}
	if !accounting.Strategy(c.PercentageStrategy).Valid() {
		return fmt.Errorf("unknown PERCENTAGE_STRATEGY %q", c.PercentageStrategy)
	}
	if c.BatchConcurrency <= 0 {
		return fmt.Errorf("BATCH_CONCURRENCY must be positive, got %d", c.BatchConcurrency)
	}
	return nil
}

func (c *Config) Accounting() accounting.Config {
	return accounting.Config{
		MonthLengthDays: c.MonthLengthDays,
		Strategy:        accounting.Strategy(c.PercentageStrategy),
	}
}

func (c *Config) Lifecycle() lifecycle.Config {
	return lifecycle.Config{InactivityThresholdDays: c.InactivityThresholdDays}
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	if strings.EqualFold(c.LogFormat, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logger.WithField("log_level", c.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
