package handlers

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/Meru-dog/study-group-bot/internal/models"
	"github.com/Meru-dog/study-group-bot/internal/services"
)

// BoardHandler streams day snapshots to attendance board clients.
type BoardHandler struct {
	connManager *services.ConnectionManager
	bot         *services.BotService
	metrics     *services.Metrics
}

// NewBoardHandler creates a new board handler
func NewBoardHandler(connManager *services.ConnectionManager, bot *services.BotService, metrics *services.Metrics) *BoardHandler {
	return &BoardHandler{connManager: connManager, bot: bot, metrics: metrics}
}

// Handle handles a new board connection
func (h *BoardHandler) Handle(c *websocket.Conn) {
	connID := uuid.New().String()
	done := make(chan struct{})

	conn := &models.BoardConnection{
		ConnID:    connID,
		Conn:      c,
		CreatedAt: time.Now(),
		WriteChan: make(chan models.BoardMessage, 16),
	}

	h.connManager.Add(conn)
	if h.metrics != nil {
		h.metrics.RecordBoardConnect()
	}
	defer func() {
		close(done)
		h.connManager.Remove(connID)
		if h.metrics != nil {
			h.metrics.RecordBoardDisconnect()
		}
	}()

	c.SetReadDeadline(time.Now().Add(90 * time.Second))
	c.SetPongHandler(func(appData string) error {
		c.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	go h.pingLoop(conn, done)
	go h.writeLoop(conn)

	// Push the current state so the board renders before the next change.
	snap := h.bot.CurrentSnapshot()
	conn.SafeSend(models.BoardMessage{Type: "snapshot", Snapshot: &snap})

	h.readLoop(conn)
}

// pingLoop keeps idle board connections alive.
func (h *BoardHandler) pingLoop(conn *models.BoardConnection, done <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				log.Printf("⚠️ [BOARD] Ping failed for %s: %v", conn.ConnID, err)
				return
			}
		}
	}
}

// readLoop drains client messages. Boards only ever send heartbeats; the
// loop mainly exists to notice disconnects.
func (h *BoardHandler) readLoop(conn *models.BoardConnection) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ [BOARD] Panic in readLoop: %v", r)
		}
	}()

	for {
		_, msg, err := conn.Conn.ReadMessage()
		if err != nil {
			break
		}
		conn.Conn.SetReadDeadline(time.Now().Add(90 * time.Second))

		var client struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &client); err != nil {
			continue
		}
		if client.Type == "ping" {
			conn.SafeSend(models.BoardMessage{Type: "pong"})
			if h.metrics != nil {
				h.metrics.RecordBoardMessage("ping", "inbound")
			}
		}
	}
}

// writeLoop handles outgoing messages to the client
func (h *BoardHandler) writeLoop(conn *models.BoardConnection) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ [BOARD] Panic in writeLoop: %v", r)
		}
	}()

	for msg := range conn.WriteChan {
		if err := conn.Conn.WriteJSON(msg); err != nil {
			log.Printf("❌ [BOARD] Write error for %s: %v", conn.ConnID, err)
			return
		}
	}
}
