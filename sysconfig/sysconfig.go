package sysconfig

import (
	"github.com/caarlos0/env"
)

// SystemConfig holds cross-cutting settings for the data access layer.
// Values are read once at process start; live changes require an
// explicit Load.
type SystemConfig struct {
	Environment string `env:"APP_ENV" envDefault:"dev"`

	// Sliding-window rate limiting
	RateLimitWindowMs    int `env:"RATE_LIMIT_WINDOW_MS" envDefault:"60000"`
	RateLimitMaxRequests int `env:"RATE_LIMIT_MAX_REQUESTS" envDefault:"100"`

	// Audit retention for the in-memory ring
	AuditMaxEntries int `env:"AUDIT_MAX_ENTRIES" envDefault:"10000"`
}

// Load parses the system configuration from environment variables,
// falling back to defaults for unset or invalid values.
func Load() (SystemConfig, error) {
	cfg := SystemConfig{}
	if err := env.Parse(&cfg); err != nil {
		return Default(), err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Default returns the built-in defaults without touching the environment.
func Default() SystemConfig {
	return SystemConfig{
		Environment:          "dev",
		RateLimitWindowMs:    60000,
		RateLimitMaxRequests: 100,
		AuditMaxEntries:      10000,
	}
}

// applyDefaults clamps non-positive values back to the defaults, so a
// misconfigured environment cannot disable rate limiting entirely.
func (c *SystemConfig) applyDefaults() {
	d := Default()
	if c.RateLimitWindowMs <= 0 {
		c.RateLimitWindowMs = d.RateLimitWindowMs
	}
	if c.RateLimitMaxRequests <= 0 {
		c.RateLimitMaxRequests = d.RateLimitMaxRequests
	}
	if c.AuditMaxEntries <= 0 {
		c.AuditMaxEntries = d.AuditMaxEntries
	}
}
