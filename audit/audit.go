package audit

import (
	"context"
	"sync"
	"time"

	"github.com/bignyap/tenantstore/apperror"
	"github.com/bignyap/tenantstore/tenant"
	"github.com/google/uuid"
)

// Operation classifies what an audited call attempted to do.
type Operation string

const (
	OpCreate Operation = "CREATE"
	OpRead   Operation = "READ"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

// Entry is one immutable record of an attempted data operation,
// successful or not. Entries are written once and never mutated.
type Entry struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Operation    Operation `json:"operation"`
	ResourceKind string    `json:"resource_kind"`
	ResourceID   string    `json:"resource_id"`
	Username     string    `json:"username"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	IPAddress    string    `json:"ip_address,omitempty"`
}

// Stats are derived views computed on demand from the entry
// collection, never maintained incrementally.
type Stats struct {
	Total       int `json:"total"`
	Successful  int `json:"successful"`
	Failed      int `json:"failed"`
	RateLimited int `json:"rate_limited"`
}

// Sink receives every recorded entry for durable or external storage.
// Sinks are best-effort: a failing sink must never fail the data
// operation being audited.
type Sink interface {
	Write(ctx context.Context, entry Entry) error
}

// Log is the append-only audit log. Entries live in a bounded
// in-memory ring; sinks fan each entry out to durable stores.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	max     int
	sinks   []Sink
}

// NewLog creates an audit log retaining at most max entries in memory.
func NewLog(max int, sinks ...Sink) *Log {
	if max <= 0 {
		max = 10000
	}
	return &Log{max: max, sinks: sinks}
}

// Record appends one entry unconditionally, assigning ID and timestamp
// when unset. Failed operations are recorded the same as successes.
func (l *Log) Record(ctx context.Context, entry Entry) Entry {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
	sinks := l.sinks
	l.mu.Unlock()

	for _, sink := range sinks {
		// Best-effort fan-out; sink errors never reach the caller.
		_ = sink.Write(ctx, entry)
	}
	return entry
}

// Failure builds and records an entry for a failed operation, deriving
// the error kind from the taxonomy.
func (l *Log) Failure(ctx context.Context, entry Entry, err error) Entry {
	entry.Success = false
	if err != nil {
		entry.ErrorMessage = err.Error()
		entry.ErrorKind = apperror.KindOf(err).String()
	}
	return l.Record(ctx, entry)
}

// Success builds and records an entry for a successful operation.
func (l *Log) Success(ctx context.Context, entry Entry) Entry {
	entry.Success = true
	return l.Record(ctx, entry)
}

// Query returns the most recent limit entries for the caller's tenant,
// newest first. The caller needs audit read permission.
func (l *Log) Query(ctx context.Context, tctx *tenant.TenantContext, limit int) ([]Entry, error) {
	if !tctx.CanRead(tenant.ResourceAudit) {
		return nil, apperror.Forbidden("audit read not permitted", nil)
	}
	if limit <= 0 {
		limit = 100
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, 0, limit)
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if l.entries[i].TenantID == tctx.TenantID {
			out = append(out, l.entries[i])
		}
	}
	return out, nil
}

// StatsFor computes derived statistics over the tenant's entries.
func (l *Log) StatsFor(ctx context.Context, tctx *tenant.TenantContext) (Stats, error) {
	if !tctx.CanRead(tenant.ResourceAudit) {
		return Stats{}, apperror.Forbidden("audit read not permitted", nil)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	stats := Stats{}
	for _, entry := range l.entries {
		if entry.TenantID != tctx.TenantID {
			continue
		}
		stats.Total++
		if entry.Success {
			stats.Successful++
			continue
		}
		stats.Failed++
		if entry.ErrorKind == apperror.KindRateLimited.String() {
			stats.RateLimited++
		}
	}
	return stats, nil
}
