package tenant

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// usageEvent is one counter delta waiting to be mirrored.
type usageEvent struct {
	TenantID string
	Metric   string
	Delta    int64
}

// UsageFlusher batches per-tenant usage deltas and mirrors them into
// redis for dashboards. Deltas are coalesced in memory and flushed on
// a ticker, or immediately once a tenant's pending delta crosses the
// threshold. Mirroring is best-effort: flush errors are dropped.
type UsageFlusher struct {
	pending    map[string]map[string]int64
	mu         sync.Mutex
	events     chan usageEvent
	threshold  int64
	flushEvery time.Duration
	redis      redis.UniversalClient
	stopCh     chan struct{}
	stopOnce   sync.Once
}

// NewUsageFlusher creates a flusher writing to the given redis client.
func NewUsageFlusher(client redis.UniversalClient, flushEvery time.Duration, threshold int64, bufferSize int) *UsageFlusher {
	return &UsageFlusher{
		pending:    make(map[string]map[string]int64),
		events:     make(chan usageEvent, bufferSize),
		threshold:  threshold,
		flushEvery: flushEvery,
		redis:      client,
		stopCh:     make(chan struct{}),
	}
}

// Start runs the flush loop until Stop is called. Run in a goroutine.
func (f *UsageFlusher) Start(ctx context.Context) {
	ticker := time.NewTicker(f.flushEvery)
	defer ticker.Stop()

	for {
		select {
		case ev := <-f.events:
			f.mu.Lock()
			if _, ok := f.pending[ev.TenantID]; !ok {
				f.pending[ev.TenantID] = make(map[string]int64)
			}
			f.pending[ev.TenantID][ev.Metric] += ev.Delta
			total := f.pending[ev.TenantID][ev.Metric]
			f.mu.Unlock()

			if total >= f.threshold || total <= -f.threshold {
				_ = f.flushTenant(ctx, ev.TenantID)
			}

		case <-ticker.C:
			for tenantID := range f.snapshotTenants() {
				_ = f.flushTenant(ctx, tenantID)
			}

		case <-f.stopCh:
			for tenantID := range f.snapshotTenants() {
				_ = f.flushTenant(ctx, tenantID)
			}
			return
		}
	}
}

// Stop flushes remaining deltas and terminates the loop. Safe to call
// more than once.
func (f *UsageFlusher) Stop() {
	f.stopOnce.Do(func() { close(f.stopCh) })
}

// Record enqueues one delta. Never blocks: when the buffer is full the
// delta is dropped, so a stalled mirror cannot gate quota operations.
func (f *UsageFlusher) Record(tenantID, metric string, delta int64) {
	select {
	case f.events <- usageEvent{TenantID: tenantID, Metric: metric, Delta: delta}:
	default:
	}
}

func (f *UsageFlusher) snapshotTenants() map[string]struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]struct{}, len(f.pending))
	for tenantID := range f.pending {
		out[tenantID] = struct{}{}
	}
	return out
}

func (f *UsageFlusher) flushTenant(ctx context.Context, tenantID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	deltas := f.pending[tenantID]
	if len(deltas) == 0 || f.redis == nil {
		return nil
	}

	pipe := f.redis.Pipeline()
	for metric, delta := range deltas {
		pipe.IncrBy(ctx, "usage:"+tenantID+":"+metric, delta)
	}
	_, err := pipe.Exec(ctx)

	if err == nil {
		delete(f.pending, tenantID)
	}
	return err
}
