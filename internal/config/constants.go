package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Timer reconciliation tunables shared between client and server. The
// drift thresholds are the contract: anything the resync finds within
// DriftCorrectionThreshold is treated as clock/latency noise.
const (
	LocalTickInterval        = 1 * time.Second
	ResyncInterval           = 10 * time.Second
	DriftCorrectionThreshold = 3 * time.Second
	DriftWarningThreshold    = 10 * time.Second
	DriftWarningDuration     = 5 * time.Second
)

// Default rate limiting
const DefaultRateLimitPerMin = 120
