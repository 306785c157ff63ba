package memory

import (
	"context"
	"sync"
	"time"

	"github.com/bignyap/tenantstore/kv/api"
	"github.com/patrickmn/go-cache"
)

const defaultCleanupInterval = 5 * time.Minute

// MemoryBackend is an in-process key-value backend on top of go-cache.
// Expiry is lazy: expired entries are treated as absent on read and
// swept in the background.
type MemoryBackend struct {
	c *cache.Cache

	// Guards read-modify-write cycles on list values.
	mu sync.Mutex
}

var _ api.Backend = (*MemoryBackend)(nil)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		c: cache.New(cache.NoExpiration, defaultCleanupInterval),
	}
}

func (b *MemoryBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, ok := b.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	data, ok := val.([]byte)
	if !ok {
		// The key holds a list, not a scalar value.
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (b *MemoryBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	b.c.Set(key, append([]byte(nil), value...), expiration(ttl))
	return nil
}

func (b *MemoryBackend) Delete(ctx context.Context, key string) (bool, error) {
	_, ok := b.c.Get(key)
	if !ok {
		return false, nil
	}
	b.c.Delete(key)
	return true, nil
}

func (b *MemoryBackend) ListAppend(ctx context.Context, key string, element []byte, ttl time.Duration) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	elem := append([]byte(nil), element...)

	val, expires, ok := b.c.GetWithExpiration(key)
	if !ok {
		b.c.Set(key, [][]byte{elem}, expiration(ttl))
		return 1, nil
	}

	list, _ := val.([][]byte)
	list = append(list, elem)

	remaining := time.Duration(cache.NoExpiration)
	if !expires.IsZero() {
		remaining = time.Until(expires)
	}
	b.c.Set(key, list, remaining)
	return int64(len(list)), nil
}

func (b *MemoryBackend) ListRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	val, ok := b.c.Get(key)
	if !ok {
		return nil, nil
	}
	list, ok := val.([][]byte)
	if !ok {
		return nil, nil
	}

	n := int64(len(list))
	start, stop = normalizeRange(start, stop, n)
	if start > stop || start >= n {
		return nil, nil
	}

	out := make([][]byte, 0, stop-start+1)
	for _, elem := range list[start : stop+1] {
		out = append(out, append([]byte(nil), elem...))
	}
	return out, nil
}

func (b *MemoryBackend) ListLen(ctx context.Context, key string) (int64, error) {
	val, ok := b.c.Get(key)
	if !ok {
		return 0, nil
	}
	list, ok := val.([][]byte)
	if !ok {
		return 0, nil
	}
	return int64(len(list)), nil
}

func (b *MemoryBackend) Flush(ctx context.Context) error {
	b.c.Flush()
	return nil
}

func (b *MemoryBackend) ItemCount(ctx context.Context) (int64, error) {
	return int64(b.c.ItemCount()), nil
}

func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return cache.NoExpiration
	}
	return ttl
}

// normalizeRange resolves negative indices against the list length and
// clamps the bounds, mirroring Redis LRANGE semantics.
func normalizeRange(start, stop, n int64) (int64, int64) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	return start, stop
}
