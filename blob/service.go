package blob

import (
	"context"
	"io"
	"time"

	"github.com/bignyap/tenantstore/apperror"
	"github.com/bignyap/tenantstore/audit"
	"github.com/bignyap/tenantstore/blob/api"
	logapi "github.com/bignyap/tenantstore/logger/api"
	"github.com/bignyap/tenantstore/tenant"
)

// Service is the tenant-aware blob layer. Every operation resolves the
// caller's permissions, scopes keys into the tenant namespace, settles
// quota with the tenant manager, and records an audit entry whether the
// operation succeeded or not. Callers never observe scoped keys.
type Service struct {
	backend api.BlobBackend
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
func NewService(backend api.BlobBackend, tenants *tenant.Manager, audits *audit.Log, opts ...ServiceOption) *Service {
	s := &Service{
		backend: backend,
		tenants: tenants,
		audits:  audits,
		logger:  &logapi.NoopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("blob")
	return s
}

// Upload stores a blob under the caller's namespace after reserving
// quota. The reservation is released if the backend write fails.
func (s *Service) Upload(ctx context.Context, tctx *tenant.TenantContext, key string, data []byte, opts api.UploadOptions) (api.Metadata, error) {
	if err := s.preWrite(tctx, key); err != nil {
		return api.Metadata{}, s.fail(ctx, tctx, audit.OpCreate, key, err)
	}

	size := int64(len(data))
	if err := s.tenants.ReserveBlob(ctx, tctx.TenantID, size); err != nil {
		return api.Metadata{}, s.fail(ctx, tctx, audit.OpCreate, key, err)
	}

	meta, err := s.backend.Upload(ctx, ScopeKey(tctx.Namespace, key), data, opts)
	if err != nil {
		s.release(ctx, tctx, size)
		return api.Metadata{}, s.fail(ctx, tctx, audit.OpCreate, key, err)
	}

	s.ok(ctx, tctx, audit.OpCreate, key)
	return s.unscope(tctx.Namespace, meta), nil
}

// UploadStream stores a blob from a reader of known size.
func (s *Service) UploadStream(ctx context.Context, tctx *tenant.TenantContext, key string, r io.Reader, size int64, opts api.UploadOptions) (api.Metadata, error) {
	if err := s.preWrite(tctx, key); err != nil {
		return api.Metadata{}, s.fail(ctx, tctx, audit.OpCreate, key, err)
	}
	if size < 0 {
		err := apperror.Validation("stream size must not be negative", nil)
		return api.Metadata{}, s.fail(ctx, tctx, audit.OpCreate, key, err)
	}

	if err := s.tenants.ReserveBlob(ctx, tctx.TenantID, size); err != nil {
		return api.Metadata{}, s.fail(ctx, tctx, audit.OpCreate, key, err)
	}

	meta, err := s.backend.UploadStream(ctx, ScopeKey(tctx.Namespace, key), r, size, opts)
	if err != nil {
		s.release(ctx, tctx, size)
		return api.Metadata{}, s.fail(ctx, tctx, audit.OpCreate, key, err)
	}

	s.ok(ctx, tctx, audit.OpCreate, key)
	return s.unscope(tctx.Namespace, meta), nil
}

// Download returns a blob's content.
func (s *Service) Download(ctx context.Context, tctx *tenant.TenantContext, key string) ([]byte, error) {
	if err := s.preRead(tctx, key); err != nil {
		return nil, s.fail(ctx, tctx, audit.OpRead, key, err)
	}

	data, err := s.backend.Download(ctx, ScopeKey(tctx.Namespace, key))
	if err != nil {
		return nil, s.fail(ctx, tctx, audit.OpRead, key, err)
	}

	s.ok(ctx, tctx, audit.OpRead, key)
	return data, nil
}

// DownloadStream returns a blob's content as a reader. The caller owns
// closing it.
func (s *Service) DownloadStream(ctx context.Context, tctx *tenant.TenantContext, key string) (io.ReadCloser, error) {
	if err := s.preRead(tctx, key); err != nil {
		return nil, s.fail(ctx, tctx, audit.OpRead, key, err)
	}

	rc, err := s.backend.DownloadStream(ctx, ScopeKey(tctx.Namespace, key))
	if err != nil {
		return nil, s.fail(ctx, tctx, audit.OpRead, key, err)
	}

	s.ok(ctx, tctx, audit.OpRead, key)
	return rc, nil
}

// Delete removes a blob and settles usage counters. The size is fetched
// before deletion; if that fetch fails the delete still proceeds and
// counters are left untouched.
func (s *Service) Delete(ctx context.Context, tctx *tenant.TenantContext, key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, s.fail(ctx, tctx, audit.OpDelete, key, err)
	}
	if !tctx.CanDelete(tenant.ResourceBlob) {
		err := apperror.Forbidden("blob delete not permitted", nil)
		return false, s.fail(ctx, tctx, audit.OpDelete, key, err)
	}

	scoped := ScopeKey(tctx.Namespace, key)

	size := int64(-1)
	if meta, err := s.backend.GetMetadata(ctx, scoped); err == nil {
		size = meta.Size
	}

	deleted, err := s.backend.Delete(ctx, scoped)
	if err != nil {
		return false, s.fail(ctx, tctx, audit.OpDelete, key, err)
	}

	if deleted && size >= 0 {
		if err := s.tenants.UpdateBlobUsage(ctx, tctx.TenantID, -size, -1); err != nil {
			s.logger.Warn(ctx, "usage adjustment failed after delete",
				logapi.ErrorField(err), logapi.Tenant(tctx.TenantID))
		}
	}

	s.ok(ctx, tctx, audit.OpDelete, key)
	return deleted, nil
}

// Exists reports whether a blob exists in the caller's namespace.
func (s *Service) Exists(ctx context.Context, tctx *tenant.TenantContext, key string) (bool, error) {
	if err := s.preRead(tctx, key); err != nil {
		return false, s.fail(ctx, tctx, audit.OpRead, key, err)
	}

	exists, err := s.backend.Exists(ctx, ScopeKey(tctx.Namespace, key))
	if err != nil {
		return false, s.fail(ctx, tctx, audit.OpRead, key, err)
	}

	s.ok(ctx, tctx, audit.OpRead, key)
	return exists, nil
}

// Copy duplicates a blob within the caller's namespace, reserving quota
// for the new object.
func (s *Service) Copy(ctx context.Context, tctx *tenant.TenantContext, srcKey, dstKey string) (api.Metadata, error) {
	if err := ValidateKey(srcKey); err != nil {
		return api.Metadata{}, s.fail(ctx, tctx, audit.OpCreate, dstKey, err)
	}
	if err := s.preWrite(tctx, dstKey); err != nil {
		return api.Metadata{}, s.fail(ctx, tctx, audit.OpCreate, dstKey, err)
	}
	if !tctx.CanRead(tenant.ResourceBlob) {
		err := apperror.Forbidden("blob read not permitted", nil)
		return api.Metadata{}, s.fail(ctx, tctx, audit.OpCreate, dstKey, err)
	}

	srcMeta, err := s.backend.GetMetadata(ctx, ScopeKey(tctx.Namespace, srcKey))
	if err != nil {
		return api.Metadata{}, s.fail(ctx, tctx, audit.OpCreate, dstKey, err)
	}

	if err := s.tenants.ReserveBlob(ctx, tctx.TenantID, srcMeta.Size); err != nil {
		return api.Metadata{}, s.fail(ctx, tctx, audit.OpCreate, dstKey, err)
	}

	meta, err := s.backend.Copy(ctx, ScopeKey(tctx.Namespace, srcKey), ScopeKey(tctx.Namespace, dstKey))
	if err != nil {
		s.release(ctx, tctx, srcMeta.Size)
		return api.Metadata{}, s.fail(ctx, tctx, audit.OpCreate, dstKey, err)
	}

	s.ok(ctx, tctx, audit.OpCreate, dstKey)
	return s.unscope(tctx.Namespace, meta), nil
}

// List returns one page of the caller's blobs. The prefix is relative
// to the tenant namespace; returned keys and the continuation token are
// unscoped.
func (s *Service) List(ctx context.Context, tctx *tenant.TenantContext, opts api.ListOptions) (api.ListResult, error) {
	if !tctx.CanRead(tenant.ResourceBlob) {
		err := apperror.Forbidden("blob read not permitted", nil)
		return api.ListResult{}, s.fail(ctx, tctx, audit.OpRead, opts.Prefix, err)
	}

	scoped := opts
	scoped.Prefix = tctx.Namespace + opts.Prefix
	if opts.ContinuationToken != "" {
		scoped.ContinuationToken = ScopeKey(tctx.Namespace, opts.ContinuationToken)
	}

	result, err := s.backend.List(ctx, scoped)
	if err != nil {
		return api.ListResult{}, s.fail(ctx, tctx, audit.OpRead, opts.Prefix, err)
	}

	for i := range result.Items {
		result.Items[i] = s.unscope(tctx.Namespace, result.Items[i])
	}
	result.NextToken = UnscopeKey(tctx.Namespace, result.NextToken)

	s.ok(ctx, tctx, audit.OpRead, opts.Prefix)
	return result, nil
}

// GetMetadata returns a blob's metadata with the unscoped key.
func (s *Service) GetMetadata(ctx context.Context, tctx *tenant.TenantContext, key string) (api.Metadata, error) {
	if err := s.preRead(tctx, key); err != nil {
		return api.Metadata{}, s.fail(ctx, tctx, audit.OpRead, key, err)
	}

	meta, err := s.backend.GetMetadata(ctx, ScopeKey(tctx.Namespace, key))
	if err != nil {
		return api.Metadata{}, s.fail(ctx, tctx, audit.OpRead, key, err)
	}

	s.ok(ctx, tctx, audit.OpRead, key)
	return s.unscope(tctx.Namespace, meta), nil
}

// GeneratePresignedURL returns a time-limited download URL for a blob.
func (s *Service) GeneratePresignedURL(ctx context.Context, tctx *tenant.TenantContext, key string, expiresIn time.Duration) (string, error) {
	if err := s.preRead(tctx, key); err != nil {
		return "", s.fail(ctx, tctx, audit.OpRead, key, err)
	}

	url, err := s.backend.GeneratePresignedURL(ctx, ScopeKey(tctx.Namespace, key), expiresIn)
	if err != nil {
		return "", s.fail(ctx, tctx, audit.OpRead, key, err)
	}

	s.ok(ctx, tctx, audit.OpRead, key)
	return url, nil
}

// Stats sums the caller's stored objects by walking the namespace.
func (s *Service) Stats(ctx context.Context, tctx *tenant.TenantContext) (api.Stats, error) {
	if !tctx.CanRead(tenant.ResourceBlob) {
		err := apperror.Forbidden("blob read not permitted", nil)
		return api.Stats{}, s.fail(ctx, tctx, audit.OpRead, "", err)
	}

	stats := api.Stats{}
	token := ""
	for {
		page, err := s.backend.List(ctx, api.ListOptions{
			Prefix:            tctx.Namespace,
			MaxKeys:           1000,
			ContinuationToken: token,
		})
		if err != nil {
			return api.Stats{}, s.fail(ctx, tctx, audit.OpRead, "", err)
		}
		for _, item := range page.Items {
			stats.ObjectCount++
			stats.TotalSizeBytes += item.Size
		}
		if !page.Truncated {
			break
		}
		token = page.NextToken
	}

	s.ok(ctx, tctx, audit.OpRead, "")
	return stats, nil
}

func (s *Service) preRead(tctx *tenant.TenantContext, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if !tctx.CanRead(tenant.ResourceBlob) {
		return apperror.Forbidden("blob read not permitted", nil)
	}
	return nil
}

func (s *Service) preWrite(tctx *tenant.TenantContext, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if !tctx.CanWrite(tenant.ResourceBlob) {
		return apperror.Forbidden("blob write not permitted", nil)
	}
	return nil
}

func (s *Service) release(ctx context.Context, tctx *tenant.TenantContext, size int64) {
	if err := s.tenants.ReleaseBlob(ctx, tctx.TenantID, size); err != nil {
		s.logger.Warn(ctx, "failed to release blob reservation",
			logapi.ErrorField(err), logapi.Tenant(tctx.TenantID))
	}
}

func (s *Service) unscope(namespace string, meta api.Metadata) api.Metadata {
	meta.Key = UnscopeKey(namespace, meta.Key)
	return meta
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
		ResourceKind: string(tenant.ResourceBlob),
		ResourceID:   key,
		Username:     tctx.UserID,
	}
}
