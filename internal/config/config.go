// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Scheduler settings
	ScoringInterval   time.Duration // how often the batch scoring run fires
	ScoringWorkers    int           // bounded parallelism for the scoring batch
	MissionInterval   time.Duration // how often mission expiry + assignment runs
	ActivityLookback  time.Duration // "recently active" window for batch scoring
	SchedulerDisabled bool          // disable background jobs (useful for tests/CLI)

	// Security
	RateLimitRPM int

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint; empty disables tracing
}

// Defaults.
const (
	DefaultPort            = "8080"
	DefaultEnv             = "development"
	DefaultLogLevel        = "info"
	DefaultRateLimitRPM    = 120
	DefaultScoringWorkers  = 8
	DefaultScoringInterval = 24 * time.Hour
	DefaultMissionInterval = time.Hour
	DefaultLookback        = 90 * 24 * time.Hour
)

// Load reads configuration from environment variables.
// It loads a .env file if present (for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", DefaultPort),
		Env:               getEnv("ENV", DefaultEnv),
		LogLevel:          getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:       os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		ScoringInterval:   getEnvDuration("SCORING_INTERVAL", DefaultScoringInterval),
		ScoringWorkers:    int(getEnvInt64("SCORING_WORKERS", DefaultScoringWorkers)),
		MissionInterval:   getEnvDuration("MISSION_INTERVAL", DefaultMissionInterval),
		ActivityLookback:  getEnvDuration("ACTIVITY_LOOKBACK", DefaultLookback),
		SchedulerDisabled: getEnvBool("SCHEDULER_DISABLED", false),
		RateLimitRPM:      int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimitRPM)),
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is coherent.
func (c *Config) Validate() error {
	if c.ScoringWorkers < 1 {
		return fmt.Errorf("SCORING_WORKERS must be at least 1")
	}
	if c.ScoringInterval < time.Minute {
		return fmt.Errorf("SCORING_INTERVAL must be at least 1m")
	}
	if c.MissionInterval < time.Minute {
		return fmt.Errorf("MISSION_INTERVAL must be at least 1m")
	}
	if c.RateLimitRPM < 1 {
		return fmt.Errorf("RATE_LIMIT_RPM must be at least 1")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
