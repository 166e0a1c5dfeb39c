package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("SweepInterval converts seconds to duration", func(t *testing.T) {
		cfg := &Config{SweepIntervalSeconds: 300}
		assert.Equal(t, 5*time.Minute, cfg.SweepInterval())
	})

	t.Run("SweepGrace converts seconds to duration", func(t *testing.T) {
		cfg := &Config{SweepGraceSeconds: 300}
		assert.Equal(t, 5*time.Minute, cfg.SweepGrace())
	})

	t.Run("SyncFullAfter converts days to duration", func(t *testing.T) {
		cfg := &Config{SyncFullAfterDays: 7}
		assert.Equal(t, 7*24*time.Hour, cfg.SyncFullAfter())
	})
}

func TestValidate(t *testing.T) {
	valid := Config{
		SweepIntervalSeconds: 300,
		SweepGraceSeconds:    300,
		SyncMaxRows:          500,
		MaxSessionMinutes:    480,
	}

	t.Run("accepts defaults", func(t *testing.T) {
		cfg := valid
		assert.NoError(t, cfg.Validate())
	})

	t.Run("rejects sweep interval under one minute", func(t *testing.T) {
		cfg := valid
		cfg.SweepIntervalSeconds = 30
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects negative grace period", func(t *testing.T) {
		cfg := valid
		cfg.SweepGraceSeconds = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects zero sync cap", func(t *testing.T) {
		cfg := valid
		cfg.SyncMaxRows = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestLoad(t *testing.T) {
	originalEnv := map[string]string{
		"PORT":                   os.Getenv("PORT"),
		"DATABASE_URL":           os.Getenv("DATABASE_URL"),
		"REDIS_URL":              os.Getenv("REDIS_URL"),
		"SWEEP_INTERVAL_SECONDS": os.Getenv("SWEEP_INTERVAL_SECONDS"),
		"SWEEP_GRACE_SECONDS":    os.Getenv("SWEEP_GRACE_SECONDS"),
		"SYNC_MAX_ROWS":          os.Getenv("SYNC_MAX_ROWS"),
		"LOG_LEVEL":              os.Getenv("LOG_LEVEL"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("loads config with defaults", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Unsetenv("PORT")
		os.Unsetenv("SWEEP_INTERVAL_SECONDS")
		os.Unsetenv("SWEEP_GRACE_SECONDS")
		os.Unsetenv("SYNC_MAX_ROWS")
		os.Unsetenv("LOG_LEVEL")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
		assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
		assert.Equal(t, 300, cfg.SweepIntervalSeconds)
		assert.Equal(t, 300, cfg.SweepGraceSeconds)
		assert.Equal(t, 500, cfg.SyncMaxRows)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("loads custom values", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("PORT", "3000")
		os.Setenv("SWEEP_INTERVAL_SECONDS", "600")
		os.Setenv("LOG_LEVEL", "debug")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Port)
		assert.Equal(t, 600, cfg.SweepIntervalSeconds)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("falls back to the default rate limit when unset", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Unsetenv("RATE_LIMIT_PER_MIN")
		os.Unsetenv("SWEEP_INTERVAL_SECONDS")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, DefaultRateLimitPerMin, cfg.RateLimitPerMin)
	})

	t.Run("falls back to the default rate limit when zero", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("RATE_LIMIT_PER_MIN", "0")
		defer os.Unsetenv("RATE_LIMIT_PER_MIN")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, DefaultRateLimitPerMin, cfg.RateLimitPerMin)
	})

	t.Run("fails without required DATABASE_URL", func(t *testing.T) {
		os.Unsetenv("DATABASE_URL")
		os.Setenv("REDIS_URL", "redis://localhost:6379")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("fails without required REDIS_URL", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Unsetenv("REDIS_URL")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("fails on invalid sweep interval", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("SWEEP_INTERVAL_SECONDS", "10")

		_, err := Load()
		assert.Error(t, err)
	})
}
