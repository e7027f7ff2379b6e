package handlers

import (
	"github.com/gofiber/fiber/v2"

	"eventfaces/domain/services"
	"eventfaces/pkg/utils"
)

type ProcessingHandler struct {
	processingService services.ProcessingService
}

func NewProcessingHandler(processingService services.ProcessingService) *ProcessingHandler {
	return &ProcessingHandler{processingService: processingService}
}

// ProcessEvent detects and clusters every pending photo of the event
// @Summary Process pending photos
// @Tags Processing
// @Security BearerAuth
// @Router /api/v1/events/{event_id}/process [post]
func (h *ProcessingHandler) ProcessEvent(c *fiber.Ctx) error {
	eventID, err := parseID(c, "event_id")
	if err != nil {
		return err
	}

	result, err := h.processingService.ProcessEventPhotos(c.UserContext(), eventID)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, "Event processed", result)
}

// ReprocessEvent discards faces and persons and processes the event from scratch
// @Summary Reprocess an event
// @Tags Processing
// @Security BearerAuth
// @Router /api/v1/events/{event_id}/reprocess [post]
func (h *ProcessingHandler) ReprocessEvent(c *fiber.Ctx) error {
	eventID, err := parseID(c, "event_id")
	if err != nil {
		return err
	}

	result, err := h.processingService.ReprocessEvent(c.UserContext(), eventID)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, "Event reprocessed", result)
}

// MergePass consolidates near-duplicate persons now instead of waiting for the schedule
// @Summary Run the merge pass
// @Tags Processing
// @Security BearerAuth
// @Router /api/v1/events/{event_id}/merge-pass [post]
func (h *ProcessingHandler) MergePass(c *fiber.Ctx) error {
	eventID, err := parseID(c, "event_id")
	if err != nil {
		return err
	}

	result, err := h.processingService.RunMergePass(c.UserContext(), eventID)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, "Merge pass completed", result)
}

func (h *ProcessingHandler) GetStats(c *fiber.Ctx) error {
	eventID, err := parseID(c, "event_id")
	if err != nil {
		return err
	}

	stats, err := h.processingService.GetProcessingStats(c.UserContext(), eventID)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, "Processing stats retrieved", stats)
}
