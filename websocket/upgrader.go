package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// OriginChecker decides whether a handshake origin is allowed.
type OriginChecker func(r *http.Request) bool

// AllowAllOrigins allows every origin. Development only.
func AllowAllOrigins() OriginChecker {
	return func(r *http.Request) bool {
		return true
	}
}

// AllowOrigins allows the listed origins.
func AllowOrigins(origins ...string) OriginChecker {
	originSet := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		originSet[origin] = struct{}{}
	}

	return func(r *http.Request) bool {
		_, ok := originSet[r.Header.Get("Origin")]
		return ok
	}
}

// Upgrade upgrades an HTTP connection to a WebSocket connection.
func Upgrade(w http.ResponseWriter, r *http.Request, config Config, checkOrigin OriginChecker) (*websocket.Conn, error) {
	if checkOrigin == nil {
		checkOrigin = AllowAllOrigins()
	}
	upgrader := &websocket.Upgrader{
		ReadBufferSize:  config.ReadBufferSize,
		WriteBufferSize: config.WriteBufferSize,
		CheckOrigin:     checkOrigin,
	}
	return upgrader.Upgrade(w, r, nil)
}
