package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WebSocketManager tracks live WebSocket connections so they can be closed
// on shutdown. http.Server.Shutdown does not close hijacked connections.
type WebSocketManager struct {
	connections map[string]*websocket.Conn // connectionID -> conn
	mutex       sync.RWMutex
}

// NewWebSocketManager creates an empty manager
func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{connections: make(map[string]*websocket.Conn)}
}

// Register stores conn and returns its connection id
func (wsm *WebSocketManager) Register(conn *websocket.Conn) string {
	connectionID := uuid.NewString()

	wsm.mutex.Lock()
	wsm.connections[connectionID] = conn
	total := len(wsm.connections)
	wsm.mutex.Unlock()

	logrus.WithFields(logrus.Fields{
		"connection_id": connectionID,
		"connections":   total,
	}).Debug("WebSocket connection registered")
	return connectionID
}

// Unregister forgets a connection. It does not close it.
func (wsm *WebSocketManager) Unregister(connectionID string) {
	wsm.mutex.Lock()
	delete(wsm.connections, connectionID)
	total := len(wsm.connections)
	wsm.mutex.Unlock()

	logrus.WithFields(logrus.Fields{
		"connection_id": connectionID,
		"connections":   total,
	}).Debug("WebSocket connection unregistered")
}

// Count returns the number of live connections
func (wsm *WebSocketManager) Count() int {
	wsm.mutex.RLock()
	defer wsm.mutex.RUnlock()
	return len(wsm.connections)
}

// CloseAll sends a going-away close frame to every connection and closes it.
// It returns the number of connections closed.
func (wsm *WebSocketManager) CloseAll() int {
	wsm.mutex.Lock()
	conns := wsm.connections
	wsm.connections = make(map[string]*websocket.Conn)
	wsm.mutex.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	deadline := time.Now().Add(time.Second)
	for _, conn := range conns {
		_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
		conn.Close()
	}
	if len(conns) > 0 {
		logrus.WithField("connections", len(conns)).Info("Closed WebSocket connections")
	}
	return len(conns)
}
