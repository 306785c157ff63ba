package tenant

import (
	"context"
	"sync"

	"github.com/bignyap/tenantstore/apperror"
)

// Repository persists tenant records. The in-memory implementation is
// the reference for tests and single-node deployments; durable
// implementations can be swapped in without touching the Manager.
type Repository interface {
	Create(ctx context.Context, t *Tenant) error
	Get(ctx context.Context, tenantID string) (*Tenant, error)
	Update(ctx context.Context, t *Tenant) error
}

// MemoryRepository is the in-memory reference Repository.
type MemoryRepository struct {
	mu      sync.RWMutex
	tenants map[string]Tenant
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tenants: make(map[string]Tenant)}
}

func (r *MemoryRepository) Create(ctx context.Context, t *Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tenants[t.ID]; exists {
		return apperror.Conflict("tenant already exists: "+t.ID, nil)
	}
	r.tenants[t.ID] = *t
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, tenantID string) (*Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, exists := r.tenants[tenantID]
	if !exists {
		return nil, apperror.NotFound("tenant not found: "+tenantID, nil)
	}
	out := t
	return &out, nil
}

func (r *MemoryRepository) Update(ctx context.Context, t *Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tenants[t.ID]; !exists {
		return apperror.NotFound("tenant not found: "+t.ID, nil)
	}
	r.tenants[t.ID] = *t
	return nil
}
