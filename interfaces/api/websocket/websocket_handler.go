package websocket

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	websocketManager "eventfaces/infrastructure/websocket"
	"eventfaces/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

type WebSocketHandler struct {
	rooms *websocketManager.RoomManager
}

func NewWebSocketHandler(rooms *websocketManager.RoomManager) *WebSocketHandler {
	return &WebSocketHandler{rooms: rooms}
}

// WebSocketUpgrade rejects plain HTTP and requests without a valid event room
func (h *WebSocketHandler) WebSocketUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if _, err := uuid.Parse(c.Query("room")); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "room must be an event id")
	}
	return c.Next()
}

// HandleWebSocket streams the progress messages of one event room to the client
func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	client := h.rooms.Join(uuid.New(), c.Query("room"))
	defer h.rooms.Leave(client)

	// Reader detects the disconnect; clients never send anything we act on
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case msg, ok := <-client.Outbound:
			if !ok {
				return
			}
			_ = c.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WriteJSON(msg); err != nil {
				logger.WebSocketError("write_message", "WebSocket write error", err, map[string]interface{}{
					"client_id": client.ID.String(),
					"room":      client.Room,
				})
				return
			}
		case <-ping.C:
			_ = c.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
