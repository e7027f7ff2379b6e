package routes

import (
	"github.com/gofiber/fiber/v2"

	"eventfaces/interfaces/api/handlers"
	"eventfaces/interfaces/api/middleware"
	"eventfaces/pkg/config"
)

// SetupLogRoutes sets up log-related routes
func SetupLogRoutes(router fiber.Router, h *handlers.Handlers, cfg *config.Config) {
	token := cfg.Admin.Token
	if token == "" {
		token = cfg.JWT.Secret
	}
	admin := router.Group("/admin", middleware.AdminToken(token))

	admin.Get("/logs", h.Log.GetLogs)
	admin.Get("/logs/files", h.Log.GetLogFiles)
	admin.Get("/logs/stats", h.Log.GetLogStats)
}
