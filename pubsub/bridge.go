package pubsub

import (
	"context"

	"github.com/bignyap/tenantstore/apperror"
	"github.com/bignyap/tenantstore/audit"
)

// AuditBridge is an audit sink that republishes policy rejections as
// events. Hanging it off the audit log's fan-out puts every service's
// quota, rate limit and permission failures on the bus without the
// services knowing the bus exists.
type AuditBridge struct {
	client Client
}

var _ audit.Sink = (*AuditBridge)(nil)

func NewAuditBridge(client Client) *AuditBridge {
	return &AuditBridge{client: client}
}

func (b *AuditBridge) Write(ctx context.Context, entry audit.Entry) error {
	if entry.Success {
		return nil
	}

	var eventType EventType
	switch entry.ErrorKind {
	case apperror.KindQuotaExceeded.String():
		eventType = EventQuotaExceeded
	case apperror.KindRateLimited.String():
		eventType = EventRateLimited
	case apperror.KindForbidden.String():
		eventType = EventAccessDenied
	default:
		return nil
	}

	return b.client.Publish(ctx, Event{
		Type:      eventType,
		TenantID:  entry.TenantID,
		UserID:    entry.Username,
		Resource:  entry.ResourceKind + "/" + entry.ResourceID,
		Detail:    entry.ErrorMessage,
		Timestamp: entry.Timestamp,
	})
}
