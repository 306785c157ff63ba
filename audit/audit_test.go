package audit_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bignyap/tenantstore/apperror"
	"github.com/bignyap/tenantstore/audit"
	"github.com/bignyap/tenantstore/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu      sync.Mutex
	entries []audit.Entry
	fail    bool
}

func (s *captureSink) Write(ctx context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sink down")
	}
	s.entries = append(s.entries, entry)
	return nil
}

func adminContext(t *testing.T, tenantID string) *tenant.TenantContext {
	t.Helper()
	m := tenant.NewManager(tenant.NewMemoryRepository(),
		tenant.WithRoleResolver(func(string, string) tenant.Role { return tenant.RoleAdmin }))
	_, err := m.CreateTenant(context.Background(), tenantID, tenant.DefaultQuota())
	require.NoError(t, err)
	tctx, err := m.GetTenantContext(context.Background(), tenantID, "auditor")
	require.NoError(t, err)
	return tctx
}

func editorContext(t *testing.T, tenantID string) *tenant.TenantContext {
	t.Helper()
	m := tenant.NewManager(tenant.NewMemoryRepository())
	_, err := m.CreateTenant(context.Background(), tenantID, tenant.DefaultQuota())
	require.NoError(t, err)
	tctx, err := m.GetTenantContext(context.Background(), tenantID, "editor")
	require.NoError(t, err)
	return tctx
}

func TestRecord_AssignsIDAndTimestamp(t *testing.T) {
	log := audit.NewLog(10)

	entry := log.Success(context.Background(), audit.Entry{
		TenantID:     "acme",
		Operation:    audit.OpCreate,
		ResourceKind: "blob",
		ResourceID:   "reports/q1.pdf",
		Username:     "user-1",
	})

	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.Timestamp.IsZero())
	assert.True(t, entry.Success)
}

func TestFailure_DerivesErrorKind(t *testing.T) {
	log := audit.NewLog(10)

	entry := log.Failure(context.Background(), audit.Entry{
		TenantID:  "acme",
		Operation: audit.OpCreate,
	}, apperror.QuotaExceeded("blob storage quota exceeded", nil))

	assert.False(t, entry.Success)
	assert.Contains(t, entry.ErrorMessage, "quota")
	assert.Equal(t, "quota_exceeded", entry.ErrorKind)
}

func TestQuery_NewestFirstAndTenantScoped(t *testing.T) {
	log := audit.NewLog(100)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		log.Success(ctx, audit.Entry{TenantID: "acme", Operation: audit.OpRead, ResourceID: string(rune('a' + i))})
	}
	log.Success(ctx, audit.Entry{TenantID: "other", Operation: audit.OpRead})

	entries, err := log.Query(ctx, adminContext(t, "acme"), 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "c", entries[0].ResourceID)
	assert.Equal(t, "a", entries[2].ResourceID)
}

func TestQuery_Limit(t *testing.T) {
	log := audit.NewLog(100)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		log.Success(ctx, audit.Entry{TenantID: "acme"})
	}

	entries, err := log.Query(ctx, adminContext(t, "acme"), 4)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestQuery_Forbidden(t *testing.T) {
	log := audit.NewLog(10)

	_, err := log.Query(context.Background(), editorContext(t, "acme"), 10)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}

func TestStats(t *testing.T) {
	log := audit.NewLog(100)
	ctx := context.Background()

	log.Success(ctx, audit.Entry{TenantID: "acme"})
	log.Success(ctx, audit.Entry{TenantID: "acme"})
	log.Failure(ctx, audit.Entry{TenantID: "acme"}, apperror.Forbidden("write not permitted", nil))
	log.Failure(ctx, audit.Entry{TenantID: "acme"}, apperror.RateLimited("too many requests", nil))
	log.Failure(ctx, audit.Entry{TenantID: "other"}, apperror.RateLimited("too many requests", nil))

	stats, err := log.StatsFor(ctx, adminContext(t, "acme"))
	require.NoError(t, err)
	assert.Equal(t, audit.Stats{Total: 4, Successful: 2, Failed: 2, RateLimited: 1}, stats)
}

func TestRing_Bounded(t *testing.T) {
	log := audit.NewLog(5)
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		log.Success(ctx, audit.Entry{TenantID: "acme"})
	}

	stats, err := log.StatsFor(ctx, adminContext(t, "acme"))
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
}

func TestSinkFanOut(t *testing.T) {
	sink := &captureSink{}
	log := audit.NewLog(10, sink)

	log.Success(context.Background(), audit.Entry{TenantID: "acme"})

	require.Len(t, sink.entries, 1)
	assert.Equal(t, "acme", sink.entries[0].TenantID)
}

func TestSinkFailureDoesNotPropagate(t *testing.T) {
	log := audit.NewLog(10, &captureSink{fail: true})

	entry := log.Success(context.Background(), audit.Entry{TenantID: "acme"})
	assert.NotEmpty(t, entry.ID, "record succeeds even when the sink fails")
}
