package routes

import (
	"github.com/gofiber/fiber/v2"

	"eventfaces/interfaces/api/handlers"
	"eventfaces/interfaces/api/middleware"
	"eventfaces/pkg/config"
)

func SetupEventRoutes(router fiber.Router, h *handlers.Handlers, cfg *config.Config) {
	events := router.Group("/events")
	protected := middleware.Protected(cfg.JWT.Secret)

	// Guests search without an account, bounded by the limiter
	events.Post("/:event_id/find-yourself", middleware.FindYourselfLimiter(cfg.RateLimit), h.Face.FindYourself)

	// Host routes
	events.Post("/", protected, h.Event.CreateEvent)
	events.Get("/", protected, h.Event.ListEvents)
	events.Get("/:event_id", protected, h.Event.GetEvent)
	events.Delete("/:event_id", protected, h.Event.DeleteEvent)
	events.Post("/:event_id/photos", protected, h.Event.AddPhotos)
	events.Get("/:event_id/photos", protected, h.Event.ListPhotos)

	// Face processing
	events.Post("/:event_id/process", protected, h.Processing.ProcessEvent)
	events.Post("/:event_id/reprocess", protected, h.Processing.ReprocessEvent)
	events.Post("/:event_id/merge-pass", protected, h.Processing.MergePass)
	events.Get("/:event_id/stats", protected, h.Processing.GetStats)
	events.Get("/:event_id/persons", protected, h.Person.ListPersons)
}
