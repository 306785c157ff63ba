package tenant_test

import (
	"context"
	"testing"
	"time"

	"github.com/bignyap/tenantstore/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageFlusher_RecordNeverBlocks(t *testing.T) {
	f := tenant.NewUsageFlusher(nil, time.Minute, 100, 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			f.Record("acme", "blob_bytes", 1)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full buffer")
	}
}

func TestUsageFlusher_StopTwice(t *testing.T) {
	f := tenant.NewUsageFlusher(nil, time.Minute, 100, 1)

	assert.NotPanics(t, func() {
		f.Stop()
		f.Stop()
	})
}

func TestReserveBlob_UnstartedFlusherDoesNotGate(t *testing.T) {
	f := tenant.NewUsageFlusher(nil, time.Minute, 100, 1)
	m := newManager(t, tenant.WithUsageFlusher(f))
	ctx := context.Background()

	_, err := m.CreateTenant(ctx, "acme", smallQuota())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- m.ReserveBlob(ctx, "acme", 100)
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("ReserveBlob blocked on usage mirroring")
	}

	usage, err := m.Usage(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, int64(100), usage.BlobStorageBytes)
	assert.Equal(t, int64(1), usage.BlobCount)
}
