package pubsub

import (
	"context"
	"encoding/json"
	"sync"
)

type noopClient struct{}

func (n *noopClient) Publish(ctx context.Context, event Event) error {
	return nil
}

func (n *noopClient) Subscribe(ctx context.Context, handler MessageHandler) error {
	return nil
}

func (n *noopClient) Close() error {
	return nil
}

// CaptureClient retains published events in memory and delivers them to
// local subscribers synchronously. Used in tests and single-process
// setups.
type CaptureClient struct {
	mu       sync.Mutex
	events   []Event
	handlers []MessageHandler
}

var _ Client = (*CaptureClient)(nil)

func NewCaptureClient() *CaptureClient {
	return &CaptureClient{}
}

func (c *CaptureClient) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.events = append(c.events, event)
	handlers := append([]MessageHandler(nil), c.handlers...)
	c.mu.Unlock()

	for _, handler := range handlers {
		_ = handler(ctx, payload)
	}
	return nil
}

func (c *CaptureClient) Subscribe(ctx context.Context, handler MessageHandler) error {
	c.mu.Lock()
	c.handlers = append(c.handlers, handler)
	c.mu.Unlock()
	return nil
}

func (c *CaptureClient) Close() error {
	return nil
}

// Events returns a copy of everything published so far.
func (c *CaptureClient) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}
