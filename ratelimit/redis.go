package ratelimit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps timestamp lists in redis so the window survives
// process restarts and is shared across replicas. Keys expire one
// window after the last write; DeleteAll relies on the key prefix.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(userID string) string {
	return s.prefix + ":" + userID
}

func (s *RedisStore) Get(ctx context.Context, userID string) ([]time.Time, error) {
	raw, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var millis []int64
	if err := json.Unmarshal(raw, &millis); err != nil {
		return nil, err
	}
	stamps := make([]time.Time, 0, len(millis))
	for _, ms := range millis {
		stamps = append(stamps, time.UnixMilli(ms))
	}
	return stamps, nil
}

func (s *RedisStore) Put(ctx context.Context, userID string, stamps []time.Time) error {
	millis := make([]int64, 0, len(stamps))
	for _, ts := range stamps {
		millis = append(millis, ts.UnixMilli())
	}
	raw, err := json.Marshal(millis)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(userID), raw, s.ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	return s.client.Del(ctx, s.key(userID)).Err()
}

func (s *RedisStore) DeleteAll(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+":*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
