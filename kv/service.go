package kv

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bignyap/tenantstore/apperror"
	"github.com/bignyap/tenantstore/audit"
	"github.com/bignyap/tenantstore/kv/api"
	logapi "github.com/bignyap/tenantstore/logger/api"
	"github.com/bignyap/tenantstore/tenant"
)

// Service is the tenant-aware key-value layer. Values are JSON-encoded
// on the way in and decoded on the way out; quota is settled against
// the tenant manager on every mutation and every attempt is audited.
type Service struct {
	backend api.Backend
	tenants *tenant.Manager
	audits  *audit.Log
	logger  logapi.Logger
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

func WithLogger(logger logapi.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// NewService wraps a backend with tenant scoping, quota enforcement and
// auditing.
func NewService(backend api.Backend, tenants *tenant.Manager, audits *audit.Log, opts ...ServiceOption) *Service {
	s := &Service{
		backend: backend,
		tenants: tenants,
		audits:  audits,
		logger:  &logapi.NoopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("kv")
	return s
}

// Set stores a JSON-encoded value under the caller's namespace. A zero
// ttl means no expiry. Overwrites settle only the size difference
// against the data quota.
func (s *Service) Set(ctx context.Context, tctx *tenant.TenantContext, key string, value any, ttl time.Duration) error {
	if err := s.preWrite(tctx, key); err != nil {
		return s.fail(ctx, tctx, audit.OpUpdate, key, err)
	}

	data, err := json.Marshal(value)
	if err != nil {
		err = apperror.Validation("value is not JSON-encodable", err)
		return s.fail(ctx, tctx, audit.OpUpdate, key, err)
	}

	scoped := tctx.Namespace + key
	size := int64(len(data))

	old, existed, err := s.backend.Get(ctx, scoped)
	if err != nil {
		return s.fail(ctx, tctx, audit.OpUpdate, key, err)
	}

	if existed {
		delta := size - int64(len(old))
		if delta > 0 {
			if err := s.tenants.ReserveData(ctx, tctx.TenantID, delta); err != nil {
				return s.fail(ctx, tctx, audit.OpUpdate, key, err)
			}
		} else if delta < 0 {
			s.adjust(ctx, tctx, 0, delta)
		}
		if err := s.backend.Set(ctx, scoped, data, ttl); err != nil {
			if delta != 0 {
				s.adjust(ctx, tctx, 0, -delta)
			}
			return s.fail(ctx, tctx, audit.OpUpdate, key, err)
		}
	} else {
		if err := s.tenants.ReserveRecord(ctx, tctx.TenantID, size); err != nil {
			return s.fail(ctx, tctx, audit.OpCreate, key, err)
		}
		if err := s.backend.Set(ctx, scoped, data, ttl); err != nil {
			s.adjust(ctx, tctx, -1, -size)
			return s.fail(ctx, tctx, audit.OpCreate, key, err)
		}
		s.ok(ctx, tctx, audit.OpCreate, key)
		return nil
	}

	s.ok(ctx, tctx, audit.OpUpdate, key)
	return nil
}

// Get decodes the stored value into dest. Missing or expired keys
// surface as not-found errors.
func (s *Service) Get(ctx context.Context, tctx *tenant.TenantContext, key string, dest any) error {
	if err := s.preRead(tctx, key); err != nil {
		return s.fail(ctx, tctx, audit.OpRead, key, err)
	}

	data, ok, err := s.backend.Get(ctx, tctx.Namespace+key)
	if err != nil {
		return s.fail(ctx, tctx, audit.OpRead, key, err)
	}
	if !ok {
		err := apperror.NotFound("record not found", nil)
		return s.fail(ctx, tctx, audit.OpRead, key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		err = apperror.Internal("failed to decode stored value", err)
		return s.fail(ctx, tctx, audit.OpRead, key, err)
	}

	s.ok(ctx, tctx, audit.OpRead, key)
	return nil
}

// Delete removes a record or list and settles usage counters.
func (s *Service) Delete(ctx context.Context, tctx *tenant.TenantContext, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, s.fail(ctx, tctx, audit.OpDelete, key, err)
	}
	if !tctx.CanDelete(tenant.ResourceRecord) {
		err := apperror.Forbidden("record delete not permitted", nil)
		return false, s.fail(ctx, tctx, audit.OpDelete, key, err)
	}

	scoped := tctx.Namespace + key
	size := s.storedSize(ctx, scoped)

	deleted, err := s.backend.Delete(ctx, scoped)
	if err != nil {
		return false, s.fail(ctx, tctx, audit.OpDelete, key, err)
	}
	if deleted {
		s.adjust(ctx, tctx, -1, -size)
	}

	s.ok(ctx, tctx, audit.OpDelete, key)
	return deleted, nil
}

// ListAdd appends a JSON-encoded element to a list, creating the list
// on first append. The list length quota is enforced before the write.
func (s *Service) ListAdd(ctx context.Context, tctx *tenant.TenantContext, key string, element any, ttl time.Duration) (int64, error) {
	if err := s.preWrite(tctx, key); err != nil {
		return 0, s.fail(ctx, tctx, audit.OpUpdate, key, err)
	}

	data, err := json.Marshal(element)
	if err != nil {
		err = apperror.Validation("element is not JSON-encodable", err)
		return 0, s.fail(ctx, tctx, audit.OpUpdate, key, err)
	}

	scoped := tctx.Namespace + key
	size := int64(len(data))

	length, err := s.backend.ListLen(ctx, scoped)
	if err != nil {
		return 0, s.fail(ctx, tctx, audit.OpUpdate, key, err)
	}
	if max := tctx.Quota.MaxListLength; max > 0 && length >= int64(max) {
		err := apperror.QuotaExceeded("list length quota exceeded", nil)
		return 0, s.fail(ctx, tctx, audit.OpUpdate, key, err)
	}

	if length == 0 {
		err = s.tenants.ReserveRecord(ctx, tctx.TenantID, size)
	} else {
		err = s.tenants.ReserveData(ctx, tctx.TenantID, size)
	}
	if err != nil {
		return 0, s.fail(ctx, tctx, audit.OpUpdate, key, err)
	}

	newLen, err := s.backend.ListAppend(ctx, scoped, data, ttl)
	if err != nil {
		if length == 0 {
			s.adjust(ctx, tctx, -1, -size)
		} else {
			s.adjust(ctx, tctx, 0, -size)
		}
		return 0, s.fail(ctx, tctx, audit.OpUpdate, key, err)
	}

	s.ok(ctx, tctx, audit.OpUpdate, key)
	return newLen, nil
}

// ListRange returns list elements between start and stop inclusive as
// raw JSON, with negative indices counting from the end.
func (s *Service) ListRange(ctx context.Context, tctx *tenant.TenantContext, key string, start, stop int64) ([]json.RawMessage, error) {
	if err := s.preRead(tctx, key); err != nil {
		return nil, s.fail(ctx, tctx, audit.OpRead, key, err)
	}

	elems, err := s.backend.ListRange(ctx, tctx.Namespace+key, start, stop)
	if err != nil {
		return nil, s.fail(ctx, tctx, audit.OpRead, key, err)
	}

	out := make([]json.RawMessage, 0, len(elems))
	for _, elem := range elems {
		out = append(out, json.RawMessage(elem))
	}

	s.ok(ctx, tctx, audit.OpRead, key)
	return out, nil
}

// ListLen returns the current length of a list; absent lists have
// length zero.
func (s *Service) ListLen(ctx context.Context, tctx *tenant.TenantContext, key string) (int64, error) {
	if err := s.preRead(tctx, key); err != nil {
		return 0, s.fail(ctx, tctx, audit.OpRead, key, err)
	}

	length, err := s.backend.ListLen(ctx, tctx.Namespace+key)
	if err != nil {
		return 0, s.fail(ctx, tctx, audit.OpRead, key, err)
	}

	s.ok(ctx, tctx, audit.OpRead, key)
	return length, nil
}

// storedSize computes the byte footprint of a key for usage settlement,
// covering both scalar values and lists. Best-effort: unknown keys
// count as zero.
func (s *Service) storedSize(ctx context.Context, scoped string) int64 {
	if data, ok, err := s.backend.Get(ctx, scoped); err == nil && ok {
		return int64(len(data))
	}
	elems, err := s.backend.ListRange(ctx, scoped, 0, -1)
	if err != nil {
		return 0
	}
	var size int64
	for _, elem := range elems {
		size += int64(len(elem))
	}
	return size
}

func (s *Service) adjust(ctx context.Context, tctx *tenant.TenantContext, deltaRecords, deltaBytes int64) {
	if err := s.tenants.UpdateRecordUsage(ctx, tctx.TenantID, deltaRecords, deltaBytes); err != nil {
		s.logger.Warn(ctx, "record usage adjustment failed",
			logapi.ErrorField(err), logapi.Tenant(tctx.TenantID))
	}
}

func (s *Service) preRead(tctx *tenant.TenantContext, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if !tctx.CanRead(tenant.ResourceRecord) {
		return apperror.Forbidden("record read not permitted", nil)
	}
	return nil
}

func (s *Service) preWrite(tctx *tenant.TenantContext, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if !tctx.CanWrite(tenant.ResourceRecord) {
		return apperror.Forbidden("record write not permitted", nil)
	}
	return nil
}

func validateKey(key string) error {
	if key == "" {
		return apperror.Validation("record key must not be empty", nil)
	}
	if strings.HasPrefix(key, "/") {
		return apperror.Validation("record key must not start with a slash", nil)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return apperror.Validation("record key must not contain path traversal", nil)
		}
	}
	return nil
}

func (s *Service) ok(ctx context.Context, tctx *tenant.TenantContext, op audit.Operation, key string) {
	s.audits.Success(ctx, s.entry(tctx, op, key))
}

func (s *Service) fail(ctx context.Context, tctx *tenant.TenantContext, op audit.Operation, key string, err error) error {
	s.audits.Failure(ctx, s.entry(tctx, op, key), err)
	return err
}

func (s *Service) entry(tctx *tenant.TenantContext, op audit.Operation, key string) audit.Entry {
	return audit.Entry{
		TenantID:     tctx.TenantID,
		Operation:    op,
		ResourceKind: string(tenant.ResourceRecord),
		ResourceID:   key,
		Username:     tctx.UserID,
	}
}
