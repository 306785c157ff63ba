package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const eventsChannel = "tenantstore.events"

// RedisClient fans events out over a Redis pub/sub channel.
type RedisClient struct {
	rdb       *redis.Client
	namespace string
}

var _ Client = (*RedisClient)(nil)

func NewRedisClient(cfg Config) (Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisClient{
		rdb:       rdb,
		namespace: cfg.Namespace,
	}, nil
}

func (r *RedisClient) channel() string {
	if r.namespace == "" {
		return eventsChannel
	}
	return fmt.Sprintf("%s:%s", r.namespace, eventsChannel)
}

func (r *RedisClient) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	bytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return r.rdb.Publish(ctx, r.channel(), bytes).Err()
}

func (r *RedisClient) Subscribe(ctx context.Context, handler MessageHandler) error {
	sub := r.rdb.Subscribe(ctx, r.channel())
	ch := sub.Channel()

	go func() {
		for msg := range ch {
			// Handler errors are the consumer's concern; the stream
			// keeps flowing.
			_ = handler(ctx, []byte(msg.Payload))
		}
	}()
	return nil
}

func (r *RedisClient) Close() error {
	return r.rdb.Close()
}
