package routes

import (
	"github.com/gofiber/fiber/v2"

	websocketManager "eventfaces/infrastructure/websocket"
	"eventfaces/interfaces/api/handlers"
	"eventfaces/pkg/config"
)

func SetupRoutes(app *fiber.App, h *handlers.Handlers, cfg *config.Config, rooms *websocketManager.RoomManager) {
	// Setup health and root routes
	SetupHealthRoutes(app, h.Health)

	// API version group
	api := app.Group("/api/v1")

	SetupEventRoutes(api, h, cfg)
	SetupPersonRoutes(api, h, cfg)
	SetupLogRoutes(api, h, cfg)

	// WebSocket routes need app, not api group
	SetupWebSocketRoutes(app, rooms)
}
