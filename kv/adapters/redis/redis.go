package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bignyap/tenantstore/kv/api"
	"github.com/redis/go-redis/v9"
)

// RedisBackend is a key-value backend on a shared Redis deployment.
// All keys carry a prefix so several services can share one database.
// Expiry is delegated to Redis TTLs.
type RedisBackend struct {
	client redis.UniversalClient
	prefix string
}

var _ api.Backend = (*RedisBackend)(nil)

// NewRedisBackend wraps an existing client. Keys are stored under
// prefix + key; "kv:" is used when prefix is empty.
func NewRedisBackend(client redis.UniversalClient, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "kv:"
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) key(key string) string {
	return b.prefix + key
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := b.client.Get(ctx, b.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get key: %w", err)
	}
	return data, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := b.client.Set(ctx, b.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, key string) (bool, error) {
	n, err := b.client.Del(ctx, b.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete key: %w", err)
	}
	return n > 0, nil
}

func (b *RedisBackend) ListAppend(ctx context.Context, key string, element []byte, ttl time.Duration) (int64, error) {
	length, err := b.client.RPush(ctx, b.key(key), element).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to append to list: %w", err)
	}
	// First element created the list; apply the TTL once.
	if length == 1 && ttl > 0 {
		if err := b.client.Expire(ctx, b.key(key), ttl).Err(); err != nil {
			return length, fmt.Errorf("failed to set list expiry: %w", err)
		}
	}
	return length, nil
}

func (b *RedisBackend) ListRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	vals, err := b.client.LRange(ctx, b.key(key), start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to range list: %w", err)
	}
	out := make([][]byte, 0, len(vals))
	for _, v := range vals {
		out = append(out, []byte(v))
	}
	return out, nil
}

func (b *RedisBackend) ListLen(ctx context.Context, key string) (int64, error) {
	n, err := b.client.LLen(ctx, b.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get list length: %w", err)
	}
	return n, nil
}

func (b *RedisBackend) Flush(ctx context.Context) error {
	iter := b.client.Scan(ctx, 0, b.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := b.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete key: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys: %w", err)
	}
	return nil
}

func (b *RedisBackend) ItemCount(ctx context.Context) (int64, error) {
	var count int64
	iter := b.client.Scan(ctx, 0, b.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan keys: %w", err)
	}
	return count, nil
}
