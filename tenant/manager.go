package tenant

import (
	"context"
	"sync"
	"time"

	"github.com/bignyap/tenantstore/apperror"
	"github.com/bignyap/tenantstore/logger/api"
)

// RoleResolver derives a caller's role within a tenant. Role data is
// an external input; the default resolver grants editor.
type RoleResolver func(tenantID, userID string) Role

// Manager owns the tenant set, quota configuration and usage counters,
// and issues TenantContext capability objects. It is constructed
// explicitly and injected into request handlers; there is no global
// instance.
type Manager struct {
	repo    Repository
	roles   RoleResolver
	logger  api.Logger
	flusher *UsageFlusher

	// Serializes read-modify-write cycles on usage counters so a
	// quota check and its reservation happen as one step.
	mu sync.Mutex
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

func WithRoleResolver(resolver RoleResolver) ManagerOption {
	return func(m *Manager) { m.roles = resolver }
}

func WithLogger(logger api.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// WithUsageFlusher mirrors usage deltas into an external counter store
// for dashboards. Mirroring is best-effort and never gates operations.
func WithUsageFlusher(f *UsageFlusher) ManagerOption {
	return func(m *Manager) { m.flusher = f }
}

// NewManager creates a tenant manager over the given repository.
func NewManager(repo Repository, opts ...ManagerOption) *Manager {
	m := &Manager{
		repo:   repo,
		roles:  func(string, string) Role { return RoleEditor },
		logger: &api.NoopLogger{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithComponent("tenant")
	return m
}

// CreateTenant registers a tenant with zeroed usage counters. Fails
// with a conflict error if the tenant already exists.
func (m *Manager) CreateTenant(ctx context.Context, tenantID string, quota QuotaConfig) (*Tenant, error) {
	if tenantID == "" {
		return nil, apperror.Validation("tenant id must not be empty", nil)
	}
	if quota == (QuotaConfig{}) {
		quota = DefaultQuota()
	}

	t := &Tenant{
		ID:        tenantID,
		Quota:     quota,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	m.logger.Info(ctx, "tenant provisioned",
		api.Tenant(tenantID),
		api.Int64("max_blob_storage_bytes", quota.MaxBlobStorageBytes),
		api.Int64("max_blob_count", quota.MaxBlobCount),
	)
	return t, nil
}

// GetTenantContext issues a per-request capability object bound to the
// tenant's current quota and usage snapshot and the caller's role.
func (m *Manager) GetTenantContext(ctx context.Context, tenantID, userID string) (*TenantContext, error) {
	t, err := m.repo.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	role := m.roles(tenantID, userID)
	return &TenantContext{
		TenantID:  tenantID,
		UserID:    userID,
		Role:      role,
		Namespace: t.Namespace(),
		Quota:     t.Quota,
		Usage:     t.Usage,
		perms:     permissionsFor(role),
	}, nil
}

// ContextForRole issues a capability object for an externally
// authenticated role, e.g. one carried in a verified token, bypassing
// the role resolver.
func (m *Manager) ContextForRole(ctx context.Context, tenantID, userID string, role Role) (*TenantContext, error) {
	t, err := m.repo.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	return &TenantContext{
		TenantID:  tenantID,
		UserID:    userID,
		Role:      role,
		Namespace: t.Namespace(),
		Quota:     t.Quota,
		Usage:     t.Usage,
		perms:     permissionsFor(role),
	}, nil
}

// ReserveBlob atomically checks the blob quota and reserves usage for
// an upload of the given size. The check and the counter increment
// happen under one lock, so two concurrent uploads cannot both pass a
// near-full quota check. Callers must ReleaseBlob if the backend call
// fails afterwards.
func (m *Manager) ReserveBlob(ctx context.Context, tenantID string, size int64) error {
	if size < 0 {
		return apperror.Validation("blob size must not be negative", nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.repo.Get(ctx, tenantID)
	if err != nil {
		return err
	}

	if size > t.Quota.MaxBlobSizeBytes {
		return apperror.QuotaExceeded("blob exceeds maximum object size", nil)
	}
	if t.Usage.BlobStorageBytes+size > t.Quota.MaxBlobStorageBytes {
		return apperror.QuotaExceeded("blob storage quota exceeded", nil)
	}
	if t.Usage.BlobCount+1 > t.Quota.MaxBlobCount {
		return apperror.QuotaExceeded("blob count quota exceeded", nil)
	}

	t.Usage.BlobStorageBytes += size
	t.Usage.BlobCount++
	if err := m.repo.Update(ctx, t); err != nil {
		return err
	}
	m.mirror(tenantID, "blob_bytes", size)
	m.mirror(tenantID, "blob_count", 1)
	return nil
}

// ReleaseBlob undoes a reservation after a failed backend call.
func (m *Manager) ReleaseBlob(ctx context.Context, tenantID string, size int64) error {
	return m.UpdateBlobUsage(ctx, tenantID, -size, -1)
}

// UpdateBlobUsage adjusts usage counters; negative deltas are used for
// deletions. Counters are clamped at zero. It does not re-check the
// quota ceiling: callers reserve before the backend operation.
func (m *Manager) UpdateBlobUsage(ctx context.Context, tenantID string, deltaBytes, deltaCount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.repo.Get(ctx, tenantID)
	if err != nil {
		return err
	}

	t.Usage.BlobStorageBytes = clampZero(t.Usage.BlobStorageBytes + deltaBytes)
	t.Usage.BlobCount = clampZero(t.Usage.BlobCount + deltaCount)
	if err := m.repo.Update(ctx, t); err != nil {
		return err
	}
	m.mirror(tenantID, "blob_bytes", deltaBytes)
	m.mirror(tenantID, "blob_count", deltaCount)
	return nil
}

// ReserveRecord atomically checks the record quotas and reserves usage
// for one record of the given size.
func (m *Manager) ReserveRecord(ctx context.Context, tenantID string, size int64) error {
	if size < 0 {
		return apperror.Validation("record size must not be negative", nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.repo.Get(ctx, tenantID)
	if err != nil {
		return err
	}

	if t.Usage.Records+1 > t.Quota.MaxRecords {
		return apperror.QuotaExceeded("record count quota exceeded", nil)
	}
	if t.Usage.DataSizeBytes+size > t.Quota.MaxDataSizeBytes {
		return apperror.QuotaExceeded("data size quota exceeded", nil)
	}

	t.Usage.Records++
	t.Usage.DataSizeBytes += size
	if err := m.repo.Update(ctx, t); err != nil {
		return err
	}
	m.mirror(tenantID, "records", 1)
	m.mirror(tenantID, "data_bytes", size)
	return nil
}

// ReserveData atomically checks the data size ceiling and reserves
// bytes without consuming a record slot, used when an existing record
// grows, e.g. a list append or an overwrite with a larger value.
func (m *Manager) ReserveData(ctx context.Context, tenantID string, size int64) error {
	if size < 0 {
		return apperror.Validation("data size must not be negative", nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.repo.Get(ctx, tenantID)
	if err != nil {
		return err
	}

	if t.Usage.DataSizeBytes+size > t.Quota.MaxDataSizeBytes {
		return apperror.QuotaExceeded("data size quota exceeded", nil)
	}

	t.Usage.DataSizeBytes += size
	if err := m.repo.Update(ctx, t); err != nil {
		return err
	}
	m.mirror(tenantID, "data_bytes", size)
	return nil
}

// UpdateRecordUsage adjusts record counters; negative deltas are used
// for deletions. Counters are clamped at zero.
func (m *Manager) UpdateRecordUsage(ctx context.Context, tenantID string, deltaRecords, deltaBytes int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.repo.Get(ctx, tenantID)
	if err != nil {
		return err
	}

	t.Usage.Records = clampZero(t.Usage.Records + deltaRecords)
	t.Usage.DataSizeBytes = clampZero(t.Usage.DataSizeBytes + deltaBytes)
	if err := m.repo.Update(ctx, t); err != nil {
		return err
	}
	m.mirror(tenantID, "records", deltaRecords)
	m.mirror(tenantID, "data_bytes", deltaBytes)
	return nil
}

// Usage returns the tenant's current usage counters.
func (m *Manager) Usage(ctx context.Context, tenantID string) (Usage, error) {
	t, err := m.repo.Get(ctx, tenantID)
	if err != nil {
		return Usage{}, err
	}
	return t.Usage, nil
}

func (m *Manager) mirror(tenantID, metric string, delta int64) {
	if m.flusher == nil || delta == 0 {
		return
	}
	m.flusher.Record(tenantID, metric, delta)
}

func clampZero(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
