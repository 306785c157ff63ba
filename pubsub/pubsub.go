package pubsub

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// EventType classifies notifications emitted by the data access layer.
type EventType string

const (
	EventTenantProvisioned EventType = "tenant.provisioned"
	EventQuotaExceeded     EventType = "quota.exceeded"
	EventRateLimited       EventType = "rate.limited"
	EventAccessDenied      EventType = "access.denied"
	EventSecurityFinding   EventType = "security.finding"
)

// Event is one notification fanned out to subscribers. Payload detail
// stays small; consumers query the audit log for the full record.
type Event struct {
	Type      EventType `json:"type"`
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id,omitempty"`
	Resource  string    `json:"resource,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageHandler consumes raw event payloads from a subscription.
type MessageHandler func(ctx context.Context, payload []byte) error

// Client publishes and subscribes to data access events.
type Client interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context, handler MessageHandler) error
	Close() error
}

// Config selects and configures the event transport.
type Config struct {
	Type      string
	Enabled   bool
	Namespace string
	Redis     *RedisConfig
}

// RedisConfig holds the Redis pub/sub connection settings.
type RedisConfig struct {
	URL      string
	Password string
}

// New builds an event client from configuration. Disabled or "none"
// configurations return a no-op client.
func New(cfg Config) (Client, error) {
	if !cfg.Enabled {
		return &noopClient{}, nil
	}

	switch cfg.Type {
	case "redis":
		if cfg.Redis == nil {
			return nil, errors.New("missing Redis config")
		}
		return NewRedisClient(cfg)
	case "none":
		return &noopClient{}, nil
	default:
		return nil, fmt.Errorf("unsupported pubsub type: %s", cfg.Type)
	}
}
