// Package fallback pushes degraded-mode instructions to connected clients
// over WebSocket when a critical alert fires.
package fallback

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"medical-alert-service/internal/enrichment"
	"medical-alert-service/internal/logging"
	"medical-alert-service/internal/models"
)

const (
	// BroadcastSession receives every fallback regardless of session.
	BroadcastSession = "*"

	maxConnsPerSession = 10
	writeWait          = 5 * time.Second
)

// Message is the JSON frame sent to clients.
type Message struct {
	Type      string      `json:"type"`
	AlertID   string      `json:"alert_id"`
	Category  string      `json:"category"`
	Action    string      `json:"action"`
	Tier      models.Tier `json:"tier"`
	SessionID string      `json:"session_id,omitempty"`
}

// Hub tracks WebSocket connections per session.
type Hub struct {
	connections map[string]map[*websocket.Conn]bool
	mutex       sync.Mutex
	upgrader    websocket.Upgrader
	logger      *logging.Logger
}

func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		connections: make(map[string]map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the client goes away. The session query parameter carries the same raw
// session hint the client reports errors with; omitting it subscribes to all
// alerts.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	session := BroadcastSession
	if hint := r.URL.Query().Get("session"); hint != "" {
		session = enrichment.SessionID(hint)
	}
	if !h.AddConnection(session, conn) {
		_ = conn.Close()
		return
	}
	defer func() {
		h.RemoveConnection(session, conn)
		_ = conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// AddConnection registers conn under session. It reports false when the
// session already holds the maximum number of connections.
func (h *Hub) AddConnection(session string, conn *websocket.Conn) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, exists := h.connections[session]; !exists {
		h.connections[session] = make(map[*websocket.Conn]bool)
	}
	if len(h.connections[session]) >= maxConnsPerSession {
		h.logger.Warnf("Max connections reached for session %s", session)
		return false
	}
	h.connections[session][conn] = true
	h.logger.Debugf("Added WebSocket connection for session %s (total: %d)", session, len(h.connections[session]))
	return true
}

func (h *Hub) RemoveConnection(session string, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.removeLocked(session, conn)
}

func (h *Hub) removeLocked(session string, conn *websocket.Conn) {
	conns, exists := h.connections[session]
	if !exists {
		return
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.connections, session)
	}
}

// Connections returns the number of live connections.
func (h *Hub) Connections() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	n := 0
	for _, conns := range h.connections {
		n += len(conns)
	}
	return n
}

// TriggerFallback sends the category's fallback action to the alert's session
// and to broadcast subscribers. Connections that fail to accept the frame are
// dropped.
func (h *Hub) TriggerFallback(category models.ErrorCategory, alert models.AlertPayload) {
	msg := Message{
		Type:      "fallback",
		AlertID:   alert.ID,
		Category:  category.Code,
		Action:    category.FallbackAction,
		Tier:      alert.Tier,
		SessionID: alert.Context.SessionID,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Errorf("Marshal fallback for alert %s: %v", alert.ID, err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	sessions := []string{BroadcastSession}
	if s := alert.Context.SessionID; s != "" && s != BroadcastSession {
		sessions = append(sessions, s)
	}
	sent := 0
	for _, session := range sessions {
		for conn := range h.connections[session] {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Errorf("Failed to send fallback to session %s: %v", session, err)
				h.removeLocked(session, conn)
				_ = conn.Close()
				continue
			}
			sent++
		}
	}
	h.logger.WithFields(logrus.Fields{
		"alert_id": alert.ID,
		"category": category.Code,
		"action":   category.FallbackAction,
		"clients":  sent,
	}).Info("Fallback triggered")
}
