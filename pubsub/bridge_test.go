package pubsub_test

import (
	"context"
	"testing"
	"time"

	"github.com/bignyap/tenantstore/apperror"
	"github.com/bignyap/tenantstore/audit"
	"github.com/bignyap/tenantstore/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditBridgePublishesPolicyRejections(t *testing.T) {
	capture := pubsub.NewCaptureClient()
	bridge := pubsub.NewAuditBridge(capture)
	ctx := context.Background()

	entry := audit.Entry{
		TenantID:     "acme",
		Username:     "alice",
		Operation:    audit.OpCreate,
		ResourceKind: "blob",
		ResourceID:   "report.pdf",
		Success:      false,
		ErrorMessage: "blob storage quota exceeded",
		ErrorKind:    apperror.KindQuotaExceeded.String(),
		Timestamp:    time.Now().UTC(),
	}
	require.NoError(t, bridge.Write(ctx, entry))

	events := capture.Events()
	require.Len(t, events, 1)
	assert.Equal(t, pubsub.EventQuotaExceeded, events[0].Type)
	assert.Equal(t, "acme", events[0].TenantID)
	assert.Equal(t, "alice", events[0].UserID)
	assert.Equal(t, "blob/report.pdf", events[0].Resource)
}

func TestAuditBridgeIgnoresSuccessesAndOtherFailures(t *testing.T) {
	capture := pubsub.NewCaptureClient()
	bridge := pubsub.NewAuditBridge(capture)
	ctx := context.Background()

	require.NoError(t, bridge.Write(ctx, audit.Entry{Success: true}))
	require.NoError(t, bridge.Write(ctx, audit.Entry{
		Success:   false,
		ErrorKind: apperror.KindNotFound.String(),
	}))

	assert.Empty(t, capture.Events())
}

func TestCaptureClientDeliversToSubscribers(t *testing.T) {
	capture := pubsub.NewCaptureClient()
	ctx := context.Background()

	var received []byte
	require.NoError(t, capture.Subscribe(ctx, func(ctx context.Context, payload []byte) error {
		received = payload
		return nil
	}))

	require.NoError(t, capture.Publish(ctx, pubsub.Event{
		Type:     pubsub.EventRateLimited,
		TenantID: "acme",
	}))

	assert.Contains(t, string(received), "rate.limited")
}
