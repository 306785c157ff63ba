package api

import (
	"context"
	"time"
)

// Backend is the raw key-value contract consumed by the tenant-aware
// service. Keys arriving here are already scoped into a tenant
// namespace. Values are opaque bytes; the service layer owns encoding.
// A zero TTL means no expiry; expired entries behave as absent.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) (bool, error)

	// ListAppend appends one element to the list at key, creating the
	// list when absent, and returns the resulting length.
	ListAppend(ctx context.Context, key string, element []byte, ttl time.Duration) (int64, error)
	// ListRange returns elements between start and stop inclusive,
	// with negative indices counting from the end as in Redis.
	ListRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
	ListLen(ctx context.Context, key string) (int64, error)

	Flush(ctx context.Context) error
	ItemCount(ctx context.Context) (int64, error)
}

// BackendType represents the type of key-value backend.
type BackendType string

const (
	BackendMemory BackendType = "memory"
	BackendRedis  BackendType = "redis"
)
