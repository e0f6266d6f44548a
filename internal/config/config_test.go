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

func clearScoringEnv(t *testing.T) {
	for _, k := range []string{"PORT", "LOG_FORMAT", "REVIEW_THRESHOLD", "DEFAULT_TRUST_SCORE", "ATTEMPT_IDLE_TIMEOUT", "RATE_LIMIT_RPM"} {
		setEnv(t, k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearScoringEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultLogFormat, cfg.LogFormat)
	assert.Equal(t, DefaultReviewThreshold, cfg.ReviewThreshold)
	assert.Equal(t, DefaultTrustScore, cfg.DefaultTrustScore)
	assert.Equal(t, DefaultAttemptIdleTimeout, cfg.AttemptIdleTimeout)
	assert.Equal(t, DefaultRateLimitRPM, cfg.RateLimitRPM)
}

func TestLoad_Overrides(t *testing.T) {
	clearScoringEnv(t)
	setEnv(t, "PORT", "9090")
	setEnv(t, "REVIEW_THRESHOLD", "65.5")
	setEnv(t, "DEFAULT_TRUST_SCORE", "80")
	setEnv(t, "ATTEMPT_IDLE_TIMEOUT", "30m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 65.5, cfg.ReviewThreshold)
	assert.Equal(t, 80.0, cfg.DefaultTrustScore)
	assert.Equal(t, 30*time.Minute, cfg.AttemptIdleTimeout)
}

func TestLoad_BadNumber(t *testing.T) {
	clearScoringEnv(t)
	setEnv(t, "REVIEW_THRESHOLD", "high")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "REVIEW_THRESHOLD must be a number")
}

func TestLoad_BadDuration(t *testing.T) {
	clearScoringEnv(t)
	setEnv(t, "ATTEMPT_IDLE_TIMEOUT", "forever")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ATTEMPT_IDLE_TIMEOUT must be a duration")
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		Port:               "8080",
		LogFormat:          "json",
		ReviewThreshold:    50,
		DefaultTrustScore:  100,
		AttemptIdleTimeout: time.Hour,
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"threshold below zero", func(c *Config) { c.ReviewThreshold = -1 }, "REVIEW_THRESHOLD"},
		{"threshold above 100", func(c *Config) { c.ReviewThreshold = 100.5 }, "REVIEW_THRESHOLD"},
		{"threshold at bounds", func(c *Config) { c.ReviewThreshold = 100 }, ""},
		{"trust above 100", func(c *Config) { c.DefaultTrustScore = 101 }, "DEFAULT_TRUST_SCORE"},
		{"zero idle timeout", func(c *Config) { c.AttemptIdleTimeout = 0 }, "ATTEMPT_IDLE_TIMEOUT", "RATE_LIMIT_RPM"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
		{"negative rate limit", func(c *Config) { c.RateLimitRPM = -1 }, "RATE_LIMIT_RPM"},
		{"no port", func(c *Config) { c.Port = "" }, "PORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
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

func TestConfig_Env(t *testing.T) {
	assert.True(t, (&Config{Env: "development"}).IsDevelopment())
	assert.True(t, (&Config{Env: "production"}).IsProduction())
	assert.False(t, (&Config{Env: "staging"}).IsProduction())
}
