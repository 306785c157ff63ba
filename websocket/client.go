package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/bignyap/tenantstore/logger/api"
	"github.com/gorilla/websocket"
)

// Client is one WebSocket connection bound to a tenant and user.
type Client struct {
	ID       string
	UserID   string
	TenantID string

	conn     *websocket.Conn
	send     chan []byte
	hub      *Hub
	logger   api.Logger
	config   Config
	isClosed bool
	mu       sync.Mutex
}

// NewClient wraps an upgraded connection.
func NewClient(id, userID, tenantID string, conn *websocket.Conn, hub *Hub, logger api.Logger, config Config) *Client {
	return &Client{
		ID:       id,
		UserID:   userID,
		TenantID: tenantID,
		conn:     conn,
		send:     make(chan []byte, config.SendBufferSize),
		hub:      hub,
		logger:   logger.WithComponent("ws-client"),
		config:   config,
	}
}

// Send queues a message for delivery without blocking. Messages are
// dropped when the client's buffer is full.
func (c *Client) Send(message []byte) bool {
	c.mu.Lock()
	if c.isClosed {
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()

	select {
	case c.send <- message:
		return true
	default:
		c.logger.Warn(context.Background(), "Client send buffer full",
			api.String("client_id", c.ID),
			api.User(c.UserID),
		)
		return false
	}
}

// SendJSON marshals and queues a JSON message.
func (c *Client) SendJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.Send(data)
	return nil
}

// Close closes the connection and the send channel once.
func (c *Client) Close() {
	c.mu.Lock()
	if c.isClosed {
		c.mu.Unlock()
		return
	}
	c.isClosed = true
	close(c.send)
	c.mu.Unlock()

	c.conn.Close()
}

// ReadPump drains the connection to process control frames and detect
// disconnects. The event stream is one-way; inbound data frames are
// discarded. Run as a goroutine per client.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
	}()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// WritePump writes queued messages and keepalive pings to the peer.
// Run as a goroutine per client.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
