// Package dataaccess wires the tenant, blob, record, rate limit, audit
// and scanner subsystems into one injectable service object. Nothing in
// here is a singleton; construct a Service per process and pass it
// where it is needed.
package dataaccess

import (
	"context"

	"github.com/bignyap/tenantstore/apperror"
	"github.com/bignyap/tenantstore/audit"
	"github.com/bignyap/tenantstore/blob"
	blobmemory "github.com/bignyap/tenantstore/blob/adapters/memory"
	blobapi "github.com/bignyap/tenantstore/blob/api"
	"github.com/bignyap/tenantstore/kv"
	kvmemory "github.com/bignyap/tenantstore/kv/adapters/memory"
	kvapi "github.com/bignyap/tenantstore/kv/api"
	logapi "github.com/bignyap/tenantstore/logger/api"
	"github.com/bignyap/tenantstore/pubsub"
	"github.com/bignyap/tenantstore/ratelimit"
	"github.com/bignyap/tenantstore/scanner"
	"github.com/bignyap/tenantstore/sysconfig"
	"github.com/bignyap/tenantstore/tenant"
)

// Deps lists the injectable dependencies of a Service. Nil fields fall
// back to in-memory implementations, so the zero Deps builds a fully
// working single-process service.
type Deps struct {
	TenantRepo     tenant.Repository
	BlobBackend    blobapi.BlobBackend
	KVBackend      kvapi.Backend
	RateLimitStore ratelimit.Store
	AuditSinks     []audit.Sink
	Events         pubsub.Client
	RoleResolver   tenant.RoleResolver
	Flusher        *tenant.UsageFlusher
	Logger         logapi.Logger
	Config         *sysconfig.SystemConfig
}

// Service is the data access layer's composition root. The exported
// subsystems are safe for direct use; Authorize issues the capability
// object they all require.
type Service struct {
	Tenants *tenant.Manager
	Blobs   *blob.Service
	Records *kv.Service
	Limiter *ratelimit.Limiter
	Audits  *audit.Log
	Events  pubsub.Client

	logger  logapi.Logger
	flusher *tenant.UsageFlusher
}

// New builds a Service from its dependencies.
func New(deps Deps) *Service {
	if deps.TenantRepo == nil {
		deps.TenantRepo = tenant.NewMemoryRepository()
	}
	if deps.BlobBackend == nil {
		deps.BlobBackend = blobmemory.NewMemoryBackend()
	}
	if deps.KVBackend == nil {
		deps.KVBackend = kvmemory.NewMemoryBackend()
	}
	if deps.RateLimitStore == nil {
		deps.RateLimitStore = ratelimit.NewMemoryStore()
	}
	if deps.Events == nil {
		deps.Events = pubsub.NewCaptureClient()
	}
	if deps.Logger == nil {
		deps.Logger = &logapi.NoopLogger{}
	}
	if deps.Config == nil {
		cfg := sysconfig.Default()
		deps.Config = &cfg
	}

	// Policy rejections reach the event bus through the audit fan-out,
	// so the storage services never see the bus.
	sinks := append([]audit.Sink{pubsub.NewAuditBridge(deps.Events)}, deps.AuditSinks...)
	audits := audit.NewLog(deps.Config.AuditMaxEntries, sinks...)

	managerOpts := []tenant.ManagerOption{tenant.WithLogger(deps.Logger)}
	if deps.RoleResolver != nil {
		managerOpts = append(managerOpts, tenant.WithRoleResolver(deps.RoleResolver))
	}
	if deps.Flusher != nil {
		managerOpts = append(managerOpts, tenant.WithUsageFlusher(deps.Flusher))
	}
	tenants := tenant.NewManager(deps.TenantRepo, managerOpts...)

	return &Service{
		Tenants: tenants,
		Blobs:   blob.NewService(deps.BlobBackend, tenants, audits, blob.WithLogger(deps.Logger)),
		Records: kv.NewService(deps.KVBackend, tenants, audits, kv.WithLogger(deps.Logger)),
		Limiter: ratelimit.New(*deps.Config, deps.RateLimitStore),
		Audits:  audits,
		Events:  deps.Events,
		logger:  deps.Logger.WithComponent("dataaccess"),
		flusher: deps.Flusher,
	}
}

// Start launches background workers. Call once; pair with Shutdown.
func (s *Service) Start(ctx context.Context) {
	if s.flusher != nil {
		go s.flusher.Start(ctx)
	}
}

// Shutdown flushes pending work and releases external connections.
func (s *Service) Shutdown() error {
	if s.flusher != nil {
		s.flusher.Stop()
	}
	return s.Events.Close()
}

// Provision registers a tenant and announces it on the event bus.
func (s *Service) Provision(ctx context.Context, tenantID string, quota tenant.QuotaConfig) (*tenant.Tenant, error) {
	t, err := s.Tenants.CreateTenant(ctx, tenantID, quota)
	if err != nil {
		return nil, err
	}

	if err := s.Events.Publish(ctx, pubsub.Event{
		Type:     pubsub.EventTenantProvisioned,
		TenantID: tenantID,
	}); err != nil {
		s.logger.Warn(ctx, "failed to publish provisioning event",
			logapi.ErrorField(err), logapi.Tenant(tenantID))
	}
	return t, nil
}

// Authorize admits one request through the rate limiter and issues the
// caller's capability object, resolving the role via the configured
// resolver. Rejected requests are audited so rate limit pressure shows
// up in the tenant's stats.
func (s *Service) Authorize(ctx context.Context, tenantID, userID string) (*tenant.TenantContext, error) {
	if err := s.admit(ctx, tenantID, userID); err != nil {
		return nil, err
	}
	return s.Tenants.GetTenantContext(ctx, tenantID, userID)
}

// AuthorizeRole is Authorize for callers whose role arrives already
// verified, e.g. from a signed token.
func (s *Service) AuthorizeRole(ctx context.Context, tenantID, userID string, role tenant.Role) (*tenant.TenantContext, error) {
	if err := s.admit(ctx, tenantID, userID); err != nil {
		return nil, err
	}
	return s.Tenants.ContextForRole(ctx, tenantID, userID, role)
}

func (s *Service) admit(ctx context.Context, tenantID, userID string) error {
	ok, err := s.Limiter.Check(ctx, userID)
	if err != nil {
		return apperror.Connection("rate limit store unavailable", err)
	}
	if !ok {
		err := apperror.RateLimited("request rate limit exceeded", nil)
		s.Audits.Failure(ctx, audit.Entry{
			TenantID:     tenantID,
			Operation:    audit.OpRead,
			ResourceKind: "request",
			Username:     userID,
		}, err)
		return err
	}
	return nil
}

// Usage returns a tenant's current resource footprint.
func (s *Service) Usage(ctx context.Context, tenantID string) (tenant.Usage, error) {
	return s.Tenants.Usage(ctx, tenantID)
}

// ScanContent scans a payload on the caller's behalf. Unsafe results
// publish a security finding for the tenant.
func (s *Service) ScanContent(ctx context.Context, tctx *tenant.TenantContext, content string, contentType scanner.ContentType) scanner.ScanResult {
	result := scanner.Scan(content, contentType)
	if !result.Safe {
		if err := s.Events.Publish(ctx, pubsub.Event{
			Type:     pubsub.EventSecurityFinding,
			TenantID: tctx.TenantID,
			UserID:   tctx.UserID,
			Detail:   string(result.ContentType) + " severity " + string(result.Severity),
		}); err != nil {
			s.logger.Warn(ctx, "failed to publish security finding",
				logapi.ErrorField(err), logapi.Tenant(tctx.TenantID))
		}
	}
	return result
}

// UploadScanned scans textual content and stores it as a blob only when
// the scan comes back safe. The stored bytes are the scanner's
// sanitized form. Rejections are audited against the blob resource.
func (s *Service) UploadScanned(ctx context.Context, tctx *tenant.TenantContext, key, content string, contentType scanner.ContentType, opts blobapi.UploadOptions) (blobapi.Metadata, scanner.ScanResult, error) {
	result := s.ScanContent(ctx, tctx, content, contentType)
	if !result.Safe {
		err := apperror.Validation("content rejected by scanner, severity "+string(result.Severity), nil)
		s.Audits.Failure(ctx, audit.Entry{
			TenantID:     tctx.TenantID,
			Operation:    audit.OpCreate,
			ResourceKind: string(tenant.ResourceBlob),
			ResourceID:   key,
			Username:     tctx.UserID,
		}, err)
		return blobapi.Metadata{}, result, err
	}

	meta, err := s.Blobs.Upload(ctx, tctx, key, []byte(result.SanitizedCode), opts)
	return meta, result, err
}
