package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// ScoresHandler broadcasts live frame updates via WebSocket. Unlike a
// polling loop, it is push-driven: the frame pipeline calls Publish for
// every scored frame of a running test.
type ScoresHandler struct {
	log     *zap.Logger
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
}

// NewScoresHandler creates a ScoresHandler with no connected clients.
// A nil logger disables logging.
func NewScoresHandler(log *zap.Logger) *ScoresHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ScoresHandler{
		log:     log,
		clients: make(map[*websocket.Conn]bool),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *ScoresHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Publish sends a score payload to all connected clients. Safe to call
// with no clients connected.
func (h *ScoresHandler) Publish(payload interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.clients) == 0 {
		return
	}

	msg, err := json.Marshal(map[string]any{
		"type":      "score",
		"data":      payload,
		"timestamp": time.Now().UnixMilli(),
	})
	if err != nil {
		h.log.Warn("failed to marshal score payload", zap.Error(err))
		return
	}

	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Debug("failed to write to client", zap.Error(err))
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *ScoresHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
