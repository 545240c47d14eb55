package socket

import (
	"encoding/json"
	"sync"

	"roadrescue-backend/models"
	"roadrescue-backend/utils/logger"

	"github.com/gorilla/websocket"
)

// Hub tracks live WebSocket connections keyed by user ID. One connection per
// user; a reconnect replaces the previous one.
type Hub struct {
	clients map[string]*websocket.Conn
	mu      sync.RWMutex
	logger  logger.Logger
}

// NewHub creates an empty hub.
func NewHub(log logger.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*websocket.Conn),
		logger:  log,
	}
}

// Register adds a client connection to the hub.
func (h *Hub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.clients[userID]; ok {
		old.Close()
	}
	h.clients[userID] = conn
	h.logger.Infof("WebSocket client registered: %s", userID)
}

// Unregister removes a client connection from the hub. The entry is only
// deleted when it still holds the given connection: when a reconnect has
// already replaced it, the superseded reader's deferred unregister must not
// evict the live connection.
func (h *Hub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, ok := h.clients[userID]; ok && current == conn {
		delete(h.clients, userID)
		h.logger.Infof("WebSocket client unregistered: %s", userID)
	}
}

// Send delivers a raw message to one user. An offline user is not an error;
// the message is simply dropped.
func (h *Hub) Send(userID string, message []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conn, ok := h.clients[userID]
	if !ok {
		return nil
	}
	return conn.WriteMessage(websocket.TextMessage, message)
}

// Publish delivers a lifecycle event to each of the given users. Delivery is
// best effort and never propagates an error back to the state transition
// that produced the event.
func (h *Hub) Publish(userIDs []string, event models.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Errorf("Failed to marshal %s event: %v", event.Type, err)
		return
	}
	for _, userID := range userIDs {
		if err := h.Send(userID, payload); err != nil {
			h.logger.Warnf("Failed to deliver %s event to %s: %v", event.Type, userID, err)
		}
	}
}
