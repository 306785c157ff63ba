package server

import (
	"context"
	"os"
	"time"

	"github.com/bignyap/tenantstore/logger/api"
	"github.com/gin-gonic/gin"
)

// Server defines the HTTP server contract
type Server interface {
	Start() error
	Router() *gin.Engine
	Shutdown(ctx context.Context) error
	GetResponseWriter() *ResponseWriter
	GetLogger() api.Logger
}

// Config defines runtime configuration
type Config struct {
	Port            string
	Environment     string
	Version         string
	MaxRequestSize  int64
	ShutdownTimeout time.Duration

	// JWTSecret verifies bearer tokens on the admin surface. Empty
	// disables authentication; requests then carry identity headers.
	JWTSecret string
}

func DefaultConfig() *Config {
	return &Config{
		Port:            "8080",
		Environment:     "dev",
		Version:         "dev",
		MaxRequestSize:  10 << 20, // 10 MB
		ShutdownTimeout: 15 * time.Second,
	}
}

// LoadConfig reads server configuration from environment variables,
// falling back to defaults.
func LoadConfig() *Config {
	cfg := DefaultConfig()
	cfg.Port = getEnvOrDefault("SERVER_PORT", cfg.Port)
	cfg.Environment = getEnvOrDefault("ENVIRONMENT", cfg.Environment)
	cfg.Version = getEnvOrDefault("VERSION", cfg.Version)
	cfg.JWTSecret = getEnvOrDefault("JWT_SECRET", "")
	return cfg
}

// Handler allows for modular startup and teardown
type Handler interface {
	Setup(server Server) error
	Shutdown() error
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
