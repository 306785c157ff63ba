package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-memory reference Store implementation.
type MemoryStore struct {
	mu     sync.RWMutex
	stamps map[string][]time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{stamps: make(map[string][]time.Time)}
}

func (s *MemoryStore) Get(ctx context.Context, userID string) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]time.Time(nil), s.stamps[userID]...), nil
}

func (s *MemoryStore) Put(ctx context.Context, userID string, stamps []time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamps[userID] = append([]time.Time(nil), stamps...)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stamps, userID)
	return nil
}

func (s *MemoryStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamps = make(map[string][]time.Time)
	return nil
}
