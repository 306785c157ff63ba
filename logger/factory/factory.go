package factory

import (
	"github.com/bignyap/tenantstore/logger/adapters/zerolog"
	"github.com/bignyap/tenantstore/logger/api"
	"github.com/bignyap/tenantstore/logger/config"
)

// NewLogger creates a new logger instance based on configuration.
// Currently zerolog is the only adapter; extend here to add more.
func NewLogger(cfg config.LogConfig) (api.Logger, error) {
	return zerolog.NewZerologger(cfg)
}

// NewDefault returns a logger with default configuration, falling back
// to a no-op logger if construction fails. Callers that need to react
// to construction failure should use NewLogger directly.
func NewDefault() api.Logger {
	logger, err := NewLogger(config.DefaultConfig())
	if err != nil {
		return &api.NoopLogger{}
	}
	return logger
}
