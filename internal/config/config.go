package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port                 int    `env:"PORT" envDefault:"8080"`
	DatabaseURL          string `env:"DATABASE_URL,required"`
	RedisURL             string `env:"REDIS_URL,required"`
	LogLevel             string `env:"LOG_LEVEL" envDefault:"info"`
	SweepIntervalSeconds int    `env:"SWEEP_INTERVAL_SECONDS" envDefault:"300"`
	SweepGraceSeconds    int    `env:"SWEEP_GRACE_SECONDS" envDefault:"300"`
	SyncMaxRows          int    `env:"SYNC_MAX_ROWS" envDefault:"500"`
	SyncFullAfterDays    int    `env:"SYNC_FULL_AFTER_DAYS" envDefault:"7"`
	RateLimitPerMin      int    `env:"RATE_LIMIT_PER_MIN"`
	MaxSessionMinutes    int    `env:"MAX_SESSION_MINUTES" envDefault:"480"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c *Config) SweepGrace() time.Duration {
	return time.Duration(c.SweepGraceSeconds) * time.Second
}

func (c *Config) SyncFullAfter() time.Duration {
	return time.Duration(c.SyncFullAfterDays) * 24 * time.Hour
}

func (c *Config) Validate() error {
	if c.SweepIntervalSeconds < 60 {
		return fmt.Errorf("SWEEP_INTERVAL_SECONDS must be at least 60, got %d", c.SweepIntervalSeconds)
	}
	if c.SweepGraceSeconds < 0 {
		return fmt.Errorf("SWEEP_GRACE_SECONDS must not be negative, got %d", c.SweepGraceSeconds)
	}
	if c.SyncMaxRows < 1 {
		return fmt.Errorf("SYNC_MAX_ROWS must be at least 1, got %d", c.SyncMaxRows)
	}
	if c.MaxSessionMinutes < 1 {
		return fmt.Errorf("MAX_SESSION_MINUTES must be at least 1, got %d", c.MaxSessionMinutes)
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.RateLimitPerMin <= 0 {
		cfg.RateLimitPerMin = DefaultRateLimitPerMin
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
