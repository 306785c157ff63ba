package dataaccess_test

import (
	"context"
	"testing"

	"github.com/bignyap/tenantstore/apperror"
	blobapi "github.com/bignyap/tenantstore/blob/api"
	"github.com/bignyap/tenantstore/dataaccess"
	"github.com/bignyap/tenantstore/pubsub"
	"github.com/bignyap/tenantstore/scanner"
	"github.com/bignyap/tenantstore/sysconfig"
	"github.com/bignyap/tenantstore/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(cfg *sysconfig.SystemConfig, resolver tenant.RoleResolver) (*dataaccess.Service, *pubsub.CaptureClient) {
	events := pubsub.NewCaptureClient()
	svc := dataaccess.New(dataaccess.Deps{
		Events:       events,
		Config:       cfg,
		RoleResolver: resolver,
	})
	return svc, events
}

func eventTypes(events *pubsub.CaptureClient) []pubsub.EventType {
	published := events.Events()
	out := make([]pubsub.EventType, 0, len(published))
	for _, ev := range published {
		out = append(out, ev.Type)
	}
	return out
}

func TestProvisionAndAuthorize(t *testing.T) {
	svc, events := newService(nil, nil)
	ctx := context.Background()

	created, err := svc.Provision(ctx, "acme", tenant.QuotaConfig{})
	require.NoError(t, err)
	assert.Equal(t, "acme", created.ID)
	assert.Contains(t, eventTypes(events), pubsub.EventTenantProvisioned)

	tctx, err := svc.Authorize(ctx, "acme", "alice")
	require.NoError(t, err)
	assert.Equal(t, "tenants/acme/", tctx.Namespace)
	assert.Equal(t, tenant.RoleEditor, tctx.Role)
}

func TestAuthorizeUnknownTenant(t *testing.T) {
	svc, _ := newService(nil, nil)

	_, err := svc.Authorize(context.Background(), "ghost", "alice")
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestAuthorizeRateLimited(t *testing.T) {
	cfg := sysconfig.Default()
	cfg.RateLimitMaxRequests = 2
	svc, events := newService(&cfg, func(string, string) tenant.Role { return tenant.RoleAdmin })
	ctx := context.Background()

	_, err := svc.Provision(ctx, "acme", tenant.QuotaConfig{})
	require.NoError(t, err)

	_, err = svc.Authorize(ctx, "acme", "alice")
	require.NoError(t, err)
	_, err = svc.Authorize(ctx, "acme", "alice")
	require.NoError(t, err)

	_, err = svc.Authorize(ctx, "acme", "alice")
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindRateLimited))
	assert.Contains(t, eventTypes(events), pubsub.EventRateLimited)

	// A fresh window lets the caller back in and exposes the stats.
	require.NoError(t, svc.Limiter.Clear(ctx, "alice"))
	tctx, err := svc.Authorize(ctx, "acme", "alice")
	require.NoError(t, err)

	stats, err := svc.Audits.StatsFor(ctx, tctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.RateLimited)
}

func TestUploadScannedRejectsUnsafe(t *testing.T) {
	svc, events := newService(nil, nil)
	ctx := context.Background()

	_, err := svc.Provision(ctx, "acme", tenant.QuotaConfig{})
	require.NoError(t, err)
	tctx, err := svc.Authorize(ctx, "acme", "alice")
	require.NoError(t, err)

	_, result, err := svc.UploadScanned(ctx, tctx, "widget.js", `eval(userInput)`, scanner.ContentJavaScript, blobapi.UploadOptions{})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	assert.False(t, result.Safe)
	assert.Equal(t, scanner.SeverityCritical, result.Severity)
	assert.Contains(t, eventTypes(events), pubsub.EventSecurityFinding)

	exists, err := svc.Blobs.Exists(ctx, tctx, "widget.js")
	require.NoError(t, err)
	assert.False(t, exists)

	usage, err := svc.Usage(ctx, "acme")
	require.NoError(t, err)
	assert.Zero(t, usage.BlobStorageBytes)
	assert.Zero(t, usage.BlobCount)
}

func TestUploadScannedStoresSafeContent(t *testing.T) {
	svc, events := newService(nil, nil)
	ctx := context.Background()

	_, err := svc.Provision(ctx, "acme", tenant.QuotaConfig{})
	require.NoError(t, err)
	tctx, err := svc.Authorize(ctx, "acme", "alice")
	require.NoError(t, err)

	content := `var greeting = "hello";`
	meta, result, err := svc.UploadScanned(ctx, tctx, "widget.js", content, scanner.ContentJavaScript, blobapi.UploadOptions{})
	require.NoError(t, err)
	assert.True(t, result.Safe)
	assert.Equal(t, "widget.js", meta.Key)
	assert.Equal(t, int64(len(content)), meta.Size)
	assert.NotContains(t, eventTypes(events), pubsub.EventSecurityFinding)

	data, err := svc.Blobs.Download(ctx, tctx, "widget.js")
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestQuotaRejectionPublishesEvent(t *testing.T) {
	svc, events := newService(nil, nil)
	ctx := context.Background()

	_, err := svc.Provision(ctx, "acme", tenant.QuotaConfig{
		MaxBlobStorageBytes: 10,
		MaxBlobCount:        5,
		MaxBlobSizeBytes:    10,
		MaxRecords:          5,
		MaxDataSizeBytes:    10,
		MaxListLength:       5,
	})
	require.NoError(t, err)
	tctx, err := svc.Authorize(ctx, "acme", "alice")
	require.NoError(t, err)

	_, err = svc.Blobs.Upload(ctx, tctx, "big.bin", make([]byte, 100), blobapi.UploadOptions{})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindQuotaExceeded))
	assert.Contains(t, eventTypes(events), pubsub.EventQuotaExceeded)
}

func TestAuthorizeRoleBypassesResolver(t *testing.T) {
	svc, _ := newService(nil, func(string, string) tenant.Role { return tenant.RoleViewer })
	ctx := context.Background()

	_, err := svc.Provision(ctx, "acme", tenant.QuotaConfig{})
	require.NoError(t, err)

	resolved, err := svc.Authorize(ctx, "acme", "alice")
	require.NoError(t, err)
	assert.Equal(t, tenant.RoleViewer, resolved.Role)

	verified, err := svc.AuthorizeRole(ctx, "acme", "alice", tenant.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, tenant.RoleAdmin, verified.Role)
	assert.True(t, verified.CanRead(tenant.ResourceAudit))
}
