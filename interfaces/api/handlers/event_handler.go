package handlers

import (
	"github.com/gofiber/fiber/v2"

	"eventfaces/domain/dto"
	"eventfaces/domain/services"
	"eventfaces/pkg/utils"
)

type EventHandler struct {
	eventService services.EventService
}

func NewEventHandler(eventService services.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// CreateEvent creates an event
// @Summary Create an event
// @Tags Events
// @Security BearerAuth
// @Router /api/v1/events [post]
func (h *EventHandler) CreateEvent(c *fiber.Ctx) error {
	var req dto.CreateEventRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	event, err := h.eventService.CreateEvent(c.UserContext(), req.Name)
	if err != nil {
		return err
	}
	return utils.CreatedResponse(c, "Event created", dto.EventToResponse(event))
}

// ListEvents returns events newest first
// @Summary List events
// @Tags Events
// @Security BearerAuth
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(20)
// @Router /api/v1/events [get]
func (h *EventHandler) ListEvents(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)

	events, total, err := h.eventService.ListEvents(c.UserContext(), page, limit)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, "Events retrieved", dto.EventListResponse{
		Events: dto.EventsToResponse(events),
		Total:  total,
		Page:   page,
		Limit:  limit,
	})
}

func (h *EventHandler) GetEvent(c *fiber.Ctx) error {
	eventID, err := parseID(c, "event_id")
	if err != nil {
		return err
	}

	event, err := h.eventService.GetEvent(c.UserContext(), eventID)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, "Event retrieved", dto.EventToResponse(event))
}

// DeleteEvent removes the event and everything derived from its photos
// @Summary Delete an event
// @Tags Events
// @Security BearerAuth
// @Router /api/v1/events/{event_id} [delete]
func (h *EventHandler) DeleteEvent(c *fiber.Ctx) error {
	eventID, err := parseID(c, "event_id")
	if err != nil {
		return err
	}

	if err := h.eventService.DeleteEvent(c.UserContext(), eventID); err != nil {
		return err
	}
	return utils.SuccessResponse(c, "Event deleted", nil)
}

// AddPhotos registers uploaded photos. Face processing happens in the background.
// @Summary Add photos to an event
// @Tags Events
// @Security BearerAuth
// @Router /api/v1/events/{event_id}/photos [post]
func (h *EventHandler) AddPhotos(c *fiber.Ctx) error {
	eventID, err := parseID(c, "event_id")
	if err != nil {
		return err
	}

	var req dto.AddPhotosRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	photos, err := h.eventService.AddPhotos(c.UserContext(), eventID, dto.AddPhotosRequestToNewPhotos(&req))
	if err != nil {
		return err
	}
	return utils.CreatedResponse(c, "Photos added", fiber.Map{
		"photos": dto.PhotosToResponse(photos),
		"count":  len(photos),
	})
}

func (h *EventHandler) ListPhotos(c *fiber.Ctx) error {
	eventID, err := parseID(c, "event_id")
	if err != nil {
		return err
	}
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)

	photos, total, err := h.eventService.ListPhotos(c.UserContext(), eventID, page, limit)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, "Photos retrieved", dto.PhotoListResponse{
		Photos: dto.PhotosToResponse(photos),
		Total:  total,
		Page:   page,
		Limit:  limit,
	})
}
