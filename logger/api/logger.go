package api

import (
	"context"
	"fmt"
	"time"
)

// Logger is the context-first logging contract used across the data
// access layer. Context comes first on every method so request-scoped
// metadata (trace id, tenant) can be pulled in automatically.
// Implementations wrap concrete libraries such as zerolog.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, err error, fields ...Field)

	WithTraceID(traceID string) Logger
	WithComponent(component string) Logger
	WithFields(fields ...Field) Logger

	ToContext(ctx context.Context) context.Context
}

// Field is a key-value pair attached to a log event.
type Field struct {
	Key   string
	Value interface{}
}

func (f Field) String() string {
	return fmt.Sprintf("%s=%v", f.Key, f.Value)
}

func String(key, val string) Field      { return Field{Key: key, Value: val} }
func Int(key string, val int) Field     { return Field{Key: key, Value: val} }
func Int64(key string, val int64) Field { return Field{Key: key, Value: val} }
func Bool(key string, val bool) Field   { return Field{Key: key, Value: val} }
func Duration(key string, val time.Duration) Field {
	return Field{Key: key, Value: val}
}
func Any(key string, val interface{}) Field { return Field{Key: key, Value: val} }

// Domain shorthands. Every storage operation logs at least tenant and user.
func Tenant(id string) Field { return Field{Key: "tenant_id", Value: id} }
func User(id string) Field   { return Field{Key: "user_id", Value: id} }
func Resource(kind, id string) Field {
	return Field{Key: "resource", Value: kind + "/" + id}
}

// ErrorField returns a Field representing an error.
func ErrorField(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

type contextKey string

const (
	LoggerContextKey contextKey = "logger"
	TraceIDKey       contextKey = "trace-id"
)

func GetLoggerFromContext(ctx context.Context) Logger {
	if ctx == nil {
		return nil
	}
	if logger, ok := ctx.Value(LoggerContextKey).(Logger); ok {
		return logger
	}
	return nil
}

func GetTraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// NoopLogger satisfies Logger and discards everything.
type NoopLogger struct{}

func (n *NoopLogger) Debug(ctx context.Context, msg string, fields ...Field)            {}
func (n *NoopLogger) Info(ctx context.Context, msg string, fields ...Field)             {}
func (n *NoopLogger) Warn(ctx context.Context, msg string, fields ...Field)             {}
func (n *NoopLogger) Error(ctx context.Context, msg string, err error, fields ...Field) {}
func (n *NoopLogger) WithTraceID(traceID string) Logger                                 { return n }
func (n *NoopLogger) WithComponent(component string) Logger                             { return n }
func (n *NoopLogger) WithFields(fields ...Field) Logger                                 { return n }
func (n *NoopLogger) ToContext(ctx context.Context) context.Context                     { return ctx }
