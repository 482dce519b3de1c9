package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper to set env vars and clean up after
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old := os.Getenv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if old == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, "PORT", "")
	setEnv(t, "SCORING_WORKERS", "")
	setEnv(t, "SCORING_INTERVAL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultScoringWorkers, cfg.ScoringWorkers)
	assert.Equal(t, DefaultScoringInterval, cfg.ScoringInterval)
	assert.Equal(t, DefaultRateLimitRPM, cfg.RateLimitRPM)
}

func TestLoad_Overrides(t *testing.T) {
	setEnv(t, "PORT", "9090")
	setEnv(t, "SCORING_WORKERS", "4")
	setEnv(t, "SCORING_INTERVAL", "2h")
	setEnv(t, "SCHEDULER_DISABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 4, cfg.ScoringWorkers)
	assert.Equal(t, 2*time.Hour, cfg.ScoringInterval)
	assert.True(t, cfg.SchedulerDisabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"zero workers", func(c *Config) { c.ScoringWorkers = 0 }, "SCORING_WORKERS"},
		{"tiny scoring interval", func(c *Config) { c.ScoringInterval = time.Second }, "SCORING_INTERVAL"},
		{"tiny mission interval", func(c *Config) { c.MissionInterval = 0 }, "MISSION_INTERVAL"},
		{"zero rate limit", func(c *Config) { c.RateLimitRPM = 0 }, "RATE_LIMIT_RPM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				ScoringWorkers:  DefaultScoringWorkers,
				ScoringInterval: DefaultScoringInterval,
				MissionInterval: DefaultMissionInterval,
				RateLimitRPM:    DefaultRateLimitRPM,
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestEnvHelpers(t *testing.T) {
	setEnv(t, "ENV", "production")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.IsDevelopment())
}
