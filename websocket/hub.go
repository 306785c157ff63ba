package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/bignyap/tenantstore/logger/api"
	"github.com/bignyap/tenantstore/pubsub"
)

// Hub fans data access events out to connected clients, keyed by
// tenant. A client only ever receives events for its own tenant.
type Hub struct {
	// clients maps tenantID -> clientID -> Client
	clients map[string]map[string]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan tenantMessage
	done       chan struct{}

	mu     sync.RWMutex
	logger api.Logger
}

type tenantMessage struct {
	tenantID string
	payload  []byte
}

// NewHub creates an event stream hub.
func NewHub(logger api.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan tenantMessage, 64),
		done:       make(chan struct{}),
		logger:     logger.WithComponent("ws-hub"),
	}
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case msg := <-h.broadcast:
			h.deliver(msg)
		case <-h.done:
			return
		}
	}
}

// Stop terminates the run loop and closes all connections.
func (h *Hub) Stop() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, tenantClients := range h.clients {
		for _, client := range tenantClients {
			client.Close()
		}
	}
	h.clients = make(map[string]map[string]*Client)
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BroadcastEvent routes an event to the clients of its tenant.
func (h *Hub) BroadcastEvent(event pubsub.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.broadcast <- tenantMessage{tenantID: event.TenantID, payload: payload}
}

// AttachBus subscribes the hub to the event bus so published events
// reach connected clients.
func (h *Hub) AttachBus(ctx context.Context, bus pubsub.Client) error {
	return bus.Subscribe(ctx, func(ctx context.Context, payload []byte) error {
		var event pubsub.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return err
		}
		h.BroadcastEvent(event)
		return nil
	})
}

// ClientCount reports connected clients for one tenant.
func (h *Hub) ClientCount(tenantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[tenantID])
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.TenantID]; !ok {
		h.clients[client.TenantID] = make(map[string]*Client)
	}
	h.clients[client.TenantID][client.ID] = client

	h.logger.Info(context.Background(), "Client registered",
		api.String("client_id", client.ID),
		api.User(client.UserID),
		api.Tenant(client.TenantID),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if tenantClients, ok := h.clients[client.TenantID]; ok {
		if _, exists := tenantClients[client.ID]; exists {
			client.Close()
			delete(tenantClients, client.ID)
			if len(tenantClients) == 0 {
				delete(h.clients, client.TenantID)
			}
		}
	}

	h.logger.Info(context.Background(), "Client unregistered",
		api.String("client_id", client.ID),
		api.User(client.UserID),
	)
}

func (h *Hub) deliver(msg tenantMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients[msg.tenantID] {
		client.Send(msg.payload)
	}
}
