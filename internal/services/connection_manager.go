package services

import (
	"log"
	"sync"

	"github.com/Meru-dog/study-group-bot/internal/models"
)

// ConnectionManager tracks active attendance-board websocket clients.
type ConnectionManager struct {
	connections map[string]*models.BoardConnection
	mutex       sync.RWMutex
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*models.BoardConnection),
	}
}

// Add adds a new connection
func (cm *ConnectionManager) Add(conn *models.BoardConnection) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	cm.connections[conn.ConnID] = conn
	log.Printf("✅ [BOARD] Client connected: %s (Total: %d)", conn.ConnID, len(cm.connections))
}

// Remove removes a connection and closes its write channel.
func (cm *ConnectionManager) Remove(connID string) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	if conn, exists := cm.connections[connID]; exists {
		conn.MarkClosed()
		close(conn.WriteChan)
		delete(cm.connections, connID)
		log.Printf("❌ [BOARD] Client disconnected: %s (Total: %d)", connID, len(cm.connections))
	}
}

// Get retrieves a connection by ID
func (cm *ConnectionManager) Get(connID string) (*models.BoardConnection, bool) {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	conn, exists := cm.connections[connID]
	return conn, exists
}

// Count returns the number of active connections
func (cm *ConnectionManager) Count() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.connections)
}

// Broadcast queues a message for every connected client and returns how
// many accepted it.
func (cm *ConnectionManager) Broadcast(msg models.BoardMessage) int {
	cm.mutex.RLock()
	conns := make([]*models.BoardConnection, 0, len(cm.connections))
	for _, conn := range cm.connections {
		conns = append(conns, conn)
	}
	cm.mutex.RUnlock()

	delivered := 0
	for _, conn := range conns {
		if conn.SafeSend(msg) {
			delivered++
		}
	}
	return delivered
}
