package redisclient_test

import (
	"testing"
	"time"

	"github.com/bignyap/tenantstore/redisclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("REDIS_POOL_SIZE", "")
	t.Setenv("REDIS_PING_TIMEOUT", "")

	cfg, err := redisclient.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", cfg.Addr)
	assert.Equal(t, 10, cfg.PoolSize)
	assert.Equal(t, 5*time.Second, cfg.PingTimeout)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("REDIS_PASSWORD", "s3cret")
	t.Setenv("REDIS_POOL_SIZE", "25")

	cfg, err := redisclient.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "redis.internal:6380", cfg.Addr)
	assert.Equal(t, "s3cret", cfg.Password)
	assert.Equal(t, 25, cfg.PoolSize)
}
