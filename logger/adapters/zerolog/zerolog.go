package zerolog

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/bignyap/tenantstore/logger/api"
	"github.com/bignyap/tenantstore/logger/config"
	"github.com/rs/zerolog"
)

// Logger implements the api.Logger interface using zerolog.
type Logger struct {
	log       zerolog.Logger
	component string
}

// NewZerologger creates a new zerolog-based logger.
func NewZerologger(cfg config.LogConfig) (*Logger, error) {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	var writer io.Writer = os.Stdout
	if cfg.Format == "pretty" && cfg.Environment != "prod" {
		writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(writer).With().Timestamp().Logger()
	for k, v := range cfg.Fields {
		logger = logger.With().Interface(k, v).Logger()
	}

	return &Logger{log: logger}, nil
}

// NewWithWriter creates a logger writing to the given writer. Used in
// tests to capture output.
func NewWithWriter(w io.Writer) *Logger {
	return &Logger{log: zerolog.New(w).With().Timestamp().Logger()}
}

func (l *Logger) Debug(ctx context.Context, msg string, fields ...api.Field) {
	l.emit(ctx, l.log.Debug(), nil, fields, msg)
}

func (l *Logger) Info(ctx context.Context, msg string, fields ...api.Field) {
	l.emit(ctx, l.log.Info(), nil, fields, msg)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields ...api.Field) {
	l.emit(ctx, l.log.Warn(), nil, fields, msg)
}

func (l *Logger) Error(ctx context.Context, msg string, err error, fields ...api.Field) {
	l.emit(ctx, l.log.Error(), err, fields, msg)
}

func (l *Logger) WithTraceID(traceID string) api.Logger {
	if traceID == "" {
		return l
	}
	return &Logger{log: l.log.With().Str("trace_id", traceID).Logger(), component: l.component}
}

func (l *Logger) WithComponent(component string) api.Logger {
	if component == "" {
		return l
	}
	return &Logger{log: l.log.With().Str("component", component).Logger(), component: component}
}

func (l *Logger) WithFields(fields ...api.Field) api.Logger {
	if len(fields) == 0 {
		return l
	}
	lctx := l.log.With()
	for _, f := range fields {
		lctx = lctx.Interface(f.Key, f.Value)
	}
	return &Logger{log: lctx.Logger(), component: l.component}
}

func (l *Logger) ToContext(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, api.LoggerContextKey, l)
}

func (l *Logger) emit(ctx context.Context, event *zerolog.Event, err error, fields []api.Field, msg string) {
	if ctx != nil {
		if traceID := api.GetTraceIDFromContext(ctx); traceID != "" {
			event.Str("trace_id", traceID)
		}
	}
	if err != nil {
		event = event.Err(err)
	}
	for _, f := range fields {
		event.Interface(f.Key, f.Value)
	}
	event.Msg(msg)
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "none", "off", "silent":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
