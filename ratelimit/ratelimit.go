package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/bignyap/tenantstore/sysconfig"
)

// Store persists the ordered request timestamps per caller identity.
type Store interface {
	Get(ctx context.Context, userID string) ([]time.Time, error)
	Put(ctx context.Context, userID string, stamps []time.Time) error
	Delete(ctx context.Context, userID string) error
	DeleteAll(ctx context.Context) error
}

// Limiter is a sliding-window request counter. Window and limit are
// read once from system configuration at construction and cached;
// changing the configuration requires building a new Limiter.
type Limiter struct {
	store  Store
	window time.Duration
	max    int
	now    func() time.Time

	// Guards the read-filter-append cycle so two concurrent checks
	// cannot both admit the final slot.
	mu sync.Mutex
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock injects a clock, used in tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New builds a Limiter from system configuration.
func New(cfg sysconfig.SystemConfig, store Store, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		window: time.Duration(cfg.RateLimitWindowMs) * time.Millisecond,
		max:    cfg.RateLimitMaxRequests,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check admits or rejects one request for the given caller. Admitted
// requests are recorded; rejected ones are not. Entries older than the
// window are pruned as a side effect of the check.
func (l *Limiter) Check(ctx context.Context, userID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	stamps, err := l.store.Get(ctx, userID)
	if err != nil {
		return false, err
	}

	recent := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= l.max {
		// Persist the pruned list so stale entries do not accumulate.
		if err := l.store.Put(ctx, userID, recent); err != nil {
			return false, err
		}
		return false, nil
	}

	recent = append(recent, now)
	if err := l.store.Put(ctx, userID, recent); err != nil {
		return false, err
	}
	return true, nil
}

// Clear resets the window for one caller.
func (l *Limiter) Clear(ctx context.Context, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Delete(ctx, userID)
}

// ClearAll resets every caller's window. Intended for administrative
// reset and test isolation.
func (l *Limiter) ClearAll(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.DeleteAll(ctx)
}

// Window reports the configured window size.
func (l *Limiter) Window() time.Duration { return l.window }

// MaxRequests reports the configured per-window limit.
func (l *Limiter) MaxRequests() int { return l.max }
