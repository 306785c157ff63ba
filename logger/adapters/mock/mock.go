package mock

import (
	"context"
	"sync"

	"github.com/bignyap/tenantstore/logger/api"
)

// Mock implements the Logger interface for testing purposes. All
// derived loggers (WithTraceID etc.) share the same message sink so
// tests can assert on a single instance.
type Mock struct {
	mu      sync.Mutex
	sink    *sink
	traceID string
	fields  []api.Field
}

type sink struct {
	debug []LogEntry
	info  []LogEntry
	warn  []LogEntry
	errs  []LogEntry
}

// LogEntry represents a logged message.
type LogEntry struct {
	Message string
	Error   error
	Fields  []api.Field
}

// NewMockLogger creates a new mock logger.
func NewMockLogger() *Mock {
	return &Mock{sink: &sink{}}
}

func (m *Mock) Debug(ctx context.Context, msg string, fields ...api.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink.debug = append(m.sink.debug, LogEntry{Message: msg, Fields: fields})
}

func (m *Mock) Info(ctx context.Context, msg string, fields ...api.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink.info = append(m.sink.info, LogEntry{Message: msg, Fields: fields})
}

func (m *Mock) Warn(ctx context.Context, msg string, fields ...api.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink.warn = append(m.sink.warn, LogEntry{Message: msg, Fields: fields})
}

func (m *Mock) Error(ctx context.Context, msg string, err error, fields ...api.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink.errs = append(m.sink.errs, LogEntry{Message: msg, Error: err, Fields: fields})
}

func (m *Mock) WithTraceID(traceID string) api.Logger {
	return &Mock{sink: m.sink, traceID: traceID, fields: m.fields}
}

func (m *Mock) WithComponent(component string) api.Logger {
	return &Mock{sink: m.sink, traceID: m.traceID, fields: m.fields}
}

func (m *Mock) WithFields(fields ...api.Field) api.Logger {
	return &Mock{sink: m.sink, traceID: m.traceID, fields: append(m.fields, fields...)}
}

func (m *Mock) ToContext(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, api.LoggerContextKey, m)
	if m.traceID != "" {
		ctx = context.WithValue(ctx, api.TraceIDKey, m.traceID)
	}
	return ctx
}

// Testing helpers.

func (m *Mock) InfoMessages() []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LogEntry(nil), m.sink.info...)
}

func (m *Mock) WarnMessages() []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LogEntry(nil), m.sink.warn...)
}

func (m *Mock) ErrorMessages() []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LogEntry(nil), m.sink.errs...)
}

func (m *Mock) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	*m.sink = sink{}
}
