package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	websocketManager "eventfaces/infrastructure/websocket"
	websocketHandler "eventfaces/interfaces/api/websocket"
)

// SetupWebSocketRoutes exposes /ws?room=<event_id>. Guests may watch progress without a token.
func SetupWebSocketRoutes(app *fiber.App, rooms *websocketManager.RoomManager) {
	wsHandler := websocketHandler.NewWebSocketHandler(rooms)

	app.Use("/ws", wsHandler.WebSocketUpgrade)
	app.Get("/ws", websocket.New(wsHandler.HandleWebSocket))
}
