// Package hub provides connection management for WebSocket clients
// subscribed to a user's assistant session.
package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// Connection represents a single WebSocket connection.
type Connection struct {
	ID     string
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte
}

// Hub manages WebSocket connections, indexed by user.
type Hub struct {
	logger *zap.Logger

	mu          sync.RWMutex
	connections map[string]*Connection
	users       map[string]map[string]bool
}

// NewHub creates a new Hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:      logger,
		connections: make(map[string]*Connection),
		users:       make(map[string]map[string]bool),
	}
}

// Register adds a connection for a user and starts its write pump.
func (h *Hub) Register(userID string, ws *websocket.Conn) *Connection {
	conn := &Connection{
		ID:     uuid.New().String(),
		UserID: userID,
		Conn:   ws,
		Send:   make(chan []byte, 256),
	}

	h.mu.Lock()
	h.connections[conn.ID] = conn
	if h.users[userID] == nil {
		h.users[userID] = make(map[string]bool)
	}
	h.users[userID][conn.ID] = true
	h.mu.Unlock()

	h.logger.Debug("connection registered",
		zap.String("conn_id", conn.ID),
		zap.String("user_id", userID))

	go conn.writePump()
	return conn
}

// Unregister removes a connection and closes its send channel.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	if _, ok := h.connections[conn.ID]; ok {
		delete(h.connections, conn.ID)
		if set := h.users[conn.UserID]; set != nil {
			delete(set, conn.ID)
			if len(set) == 0 {
				delete(h.users, conn.UserID)
			}
		}
		close(conn.Send)
	}
	h.mu.Unlock()
}

// Publish sends a JSON payload to every connection of the user.
// Slow consumers with a full buffer are dropped.
func (h *Hub) Publish(userID string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Warn("failed to marshal push payload", zap.Error(err))
		return
	}

	h.mu.RLock()
	var stale []*Connection
	for connID := range h.users[userID] {
		conn, ok := h.connections[connID]
		if !ok {
			continue
		}
		select {
		case conn.Send <- data:
		default:
			stale = append(stale, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range stale {
		h.logger.Warn("connection buffer full, closing", zap.String("conn_id", conn.ID))
		h.Unregister(conn)
	}
}

// writePump drains the send channel onto the socket.
func (c *Connection) writePump() {
	defer c.Conn.Close()
	for data := range c.Send {
		c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
