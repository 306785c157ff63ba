package audit

import (
	"context"

	"github.com/bignyap/tenantstore/httpclient"
)

// WebhookSink ships audit entries to an external HTTP collector. The
// underlying client retries with backoff and trips a circuit breaker,
// so a slow collector degrades to dropped entries rather than
// back-pressure on data operations.
type WebhookSink struct {
	client httpclient.Client
	path   string
}

var _ Sink = (*WebhookSink)(nil)

func NewWebhookSink(client httpclient.Client, path string) *WebhookSink {
	if path == "" {
		path = "/audit"
	}
	return &WebhookSink{client: client, path: path}
}

func (s *WebhookSink) Write(ctx context.Context, entry Entry) error {
	return s.client.Post(s.path, entry, nil)
}
