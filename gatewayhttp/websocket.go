// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gatewayhttp

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/luxfi/bftgate/events"
	"github.com/luxfi/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans consensus events out to every connected WebSocket client. It
// exists specifically so the consensus engine never has to import an
// HTTP package: the engine calls Hub.Broadcast through an events.Hook,
// decoupling the transport from the protocol.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	logger  log.Logger
}

// NewHub returns an empty event hub.
func NewHub(logger log.Logger) *Hub {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &Hub{clients: make(map[*websocket.Conn]struct{}), logger: logger}
}

// ServeWS upgrades the request to a WebSocket connection and registers it
// as a broadcast target until the client disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	// The gateway only pushes events; it never expects client messages.
	// Reading to EOF detects disconnects without leaking a goroutine.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Hook returns an events.Hook that broadcasts every event to connected
// clients.
func (h *Hub) Hook() events.Hook {
	return func(ev events.Event) {
		h.Broadcast(ev)
	}
}

// Broadcast sends ev to every currently connected client, dropping any
// connection that fails to accept the write.
func (h *Hub) Broadcast(ev events.Event) {
	raw, err := json.Marshal(ev)
	if err != nil {
		h.logger.Warn("failed to marshal event for broadcast", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}
