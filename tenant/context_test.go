package tenant_test

import (
	"context"
	"testing"

	"github.com/bignyap/tenantstore/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issueContext(t *testing.T, quota tenant.QuotaConfig) *tenant.TenantContext {
	t.Helper()
	m := tenant.NewManager(tenant.NewMemoryRepository())
	ctx := context.Background()
	_, err := m.CreateTenant(ctx, "acme", quota)
	require.NoError(t, err)
	tc, err := m.GetTenantContext(ctx, "acme", "user-1")
	require.NoError(t, err)
	return tc
}

func TestCanUploadBlob(t *testing.T) {
	tc := issueContext(t, tenant.QuotaConfig{
		MaxBlobStorageBytes: 1000,
		MaxBlobCount:        10,
		MaxBlobSizeBytes:    500,
	})

	assert.True(t, tc.CanUploadBlob(500))
	assert.False(t, tc.CanUploadBlob(501), "per-object ceiling")
	assert.False(t, tc.CanUploadBlob(-1))
}

func TestCanUploadBlob_SnapshotSemantics(t *testing.T) {
	m := tenant.NewManager(tenant.NewMemoryRepository())
	ctx := context.Background()
	_, err := m.CreateTenant(ctx, "acme", tenant.QuotaConfig{
		MaxBlobStorageBytes: 1000,
		MaxBlobCount:        10,
		MaxBlobSizeBytes:    1000,
	})
	require.NoError(t, err)

	stale, err := m.GetTenantContext(ctx, "acme", "user-1")
	require.NoError(t, err)

	require.NoError(t, m.ReserveBlob(ctx, "acme", 900))

	// The stale snapshot still answers from its issue-time usage; the
	// authoritative reservation is what actually gates the upload.
	assert.True(t, stale.CanUploadBlob(900))

	fresh, err := m.GetTenantContext(ctx, "acme", "user-1")
	require.NoError(t, err)
	assert.False(t, fresh.CanUploadBlob(900))
}

func TestCanStoreRecord(t *testing.T) {
	tc := issueContext(t, tenant.QuotaConfig{
		MaxRecords:          1,
		MaxDataSizeBytes:    100,
		MaxBlobStorageBytes: 1,
		MaxBlobCount:        1,
		MaxBlobSizeBytes:    1,
	})

	assert.True(t, tc.CanStoreRecord(100))
	assert.False(t, tc.CanStoreRecord(101))
}

func TestDefaultRoleIsEditor(t *testing.T) {
	tc := issueContext(t, tenant.DefaultQuota())

	assert.Equal(t, tenant.RoleEditor, tc.Role)
	assert.True(t, tc.CanWrite(tenant.ResourceBlob))
	assert.True(t, tc.CanDelete(tenant.ResourceRecord))
	assert.False(t, tc.CanRead(tenant.ResourceAudit))
}
