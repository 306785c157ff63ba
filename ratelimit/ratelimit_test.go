package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/bignyap/tenantstore/ratelimit"
	"github.com/bignyap/tenantstore/sysconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newLimiter(t *testing.T, max int, windowMs int) (*ratelimit.Limiter, *fakeClock) {
	t.Helper()
	cfg := sysconfig.Default()
	cfg.RateLimitWindowMs = windowMs
	cfg.RateLimitMaxRequests = max
	clock := &fakeClock{now: time.Now()}
	return ratelimit.New(cfg, ratelimit.NewMemoryStore(), ratelimit.WithClock(clock.Now)), clock
}

func TestCheck_WindowLimit(t *testing.T) {
	limiter, _ := newLimiter(t, 100, 60000)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		ok, err := limiter.Check(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, ok, "request %d should be admitted", i+1)
	}

	ok, err := limiter.Check(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok, "101st request within the window should be rejected")
}

func TestCheck_WindowSlides(t *testing.T) {
	limiter, clock := newLimiter(t, 100, 60000)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		ok, err := limiter.Check(ctx, "user-1")
		require.NoError(t, err)
		require.True(t, ok)
	}

	clock.Advance(60001 * time.Millisecond)

	ok, err := limiter.Check(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok, "request after the window elapsed should be admitted")
}

func TestCheck_RejectionNotRecorded(t *testing.T) {
	limiter, clock := newLimiter(t, 2, 60000)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := limiter.Check(ctx, "user-1")
		require.NoError(t, err)
		require.True(t, ok)
	}

	// Rejected attempts must not extend the window.
	for i := 0; i < 10; i++ {
		ok, err := limiter.Check(ctx, "user-1")
		require.NoError(t, err)
		require.False(t, ok)
	}

	clock.Advance(60001 * time.Millisecond)
	ok, err := limiter.Check(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheck_PerUserIsolation(t *testing.T) {
	limiter, _ := newLimiter(t, 1, 60000)
	ctx := context.Background()

	ok, err := limiter.Check(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = limiter.Check(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = limiter.Check(ctx, "user-2")
	require.NoError(t, err)
	assert.True(t, ok, "another user's window is independent")
}

func TestClear(t *testing.T) {
	limiter, _ := newLimiter(t, 1, 60000)
	ctx := context.Background()

	ok, _ := limiter.Check(ctx, "user-1")
	require.True(t, ok)
	ok, _ = limiter.Check(ctx, "user-1")
	require.False(t, ok)

	require.NoError(t, limiter.Clear(ctx, "user-1"))

	ok, err := limiter.Check(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClearAll(t *testing.T) {
	limiter, _ := newLimiter(t, 1, 60000)
	ctx := context.Background()

	for _, user := range []string{"a", "b", "c"} {
		ok, _ := limiter.Check(ctx, user)
		require.True(t, ok)
	}

	require.NoError(t, limiter.ClearAll(ctx))

	for _, user := range []string{"a", "b", "c"} {
		ok, err := limiter.Check(ctx, user)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestConfigDefaults(t *testing.T) {
	limiter := ratelimit.New(sysconfig.Default(), ratelimit.NewMemoryStore())
	assert.Equal(t, time.Minute, limiter.Window())
	assert.Equal(t, 100, limiter.MaxRequests())
}
