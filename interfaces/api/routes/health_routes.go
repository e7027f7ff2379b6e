package routes

import (
	"github.com/gofiber/fiber/v2"

	"eventfaces/interfaces/api/handlers"
)

func SetupHealthRoutes(app *fiber.App, healthHandler *handlers.HealthHandler) {
	app.Get("/health", healthHandler.Health)
	app.Get("/health/detailed", healthHandler.DetailedHealth)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to Event Faces API",
			"version": "1.0.0",
			"docs":    "/api/v1",
			"health":  "/health",
		})
	})
}
