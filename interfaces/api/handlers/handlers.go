package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"eventfaces/domain/services"
)

// Services contains all the services needed for handlers
type Services struct {
	EventService      services.EventService
	ProcessingService services.ProcessingService
	PersonService     services.PersonService
	FaceService       services.FaceService
}

// Handlers contains all HTTP handlers
type Handlers struct {
	Event      *EventHandler
	Processing *ProcessingHandler
	Person     *PersonHandler
	Face       *FaceHandler
	Health     *HealthHandler
	Log        *LogHandler
}

// NewHandlers creates a new instance of Handlers with all dependencies
func NewHandlers(svc *Services, health *HealthHandler) *Handlers {
	return &Handlers{
		Event:      NewEventHandler(svc.EventService),
		Processing: NewProcessingHandler(svc.ProcessingService),
		Person:     NewPersonHandler(svc.PersonService),
		Face:       NewFaceHandler(svc.FaceService),
		Health:     health,
		Log:        NewLogHandler(),
	}
}

func parseID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid "+param)
	}
	return id, nil
}
