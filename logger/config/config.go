package config

// LogConfig defines configuration options for loggers.
type LogConfig struct {
	// Level is the minimum log level (debug, info, warn, error, none)
	Level string

	// Format determines the output format (json, pretty)
	Format string

	// Environment affects logging behavior (dev, test, prod)
	Environment string

	// Fields contains default fields added to every log message
	Fields map[string]interface{}
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "json",
		Environment: "dev",
		Fields:      map[string]interface{}{},
	}
}

// DevelopmentConfig returns a configuration optimized for development.
func DevelopmentConfig() LogConfig {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	cfg.Format = "pretty"
	return cfg
}

// ProductionConfig returns a configuration optimized for production.
func ProductionConfig() LogConfig {
	cfg := DefaultConfig()
	cfg.Environment = "prod"
	return cfg
}
