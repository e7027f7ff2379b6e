package handlers

import (
	"errors"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"eventfaces/domain/dto"
	"eventfaces/domain/services"
	"eventfaces/pkg/utils"
)

const maxSelfieSize = 10 * 1024 * 1024

type FaceHandler struct {
	faceService services.FaceService
}

func NewFaceHandler(faceService services.FaceService) *FaceHandler {
	return &FaceHandler{
		faceService: faceService,
	}
}

// FindYourself returns the event photos containing the face in the uploaded selfie
// @Summary Find yourself in an event
// @Tags Faces
// @Accept multipart/form-data
// @Produce json
// @Param selfie formData file true "Selfie image"
// @Param limit query int false "Max results" default(50)
// @Success 200 {object} utils.Response
// @Router /api/v1/events/{event_id}/find-yourself [post]
func (h *FaceHandler) FindYourself(c *fiber.Ctx) error {
	eventID, err := parseID(c, "event_id")
	if err != nil {
		return err
	}

	file, err := c.FormFile("selfie")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Selfie image is required", err)
	}
	if file.Size > maxSelfieSize {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "File size exceeds 10MB limit", nil)
	}

	contentType := file.Header.Get("Content-Type")
	if !isValidImageType(contentType) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid image type. Allowed: jpeg, png, webp", nil)
	}

	f, err := file.Open()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read file", err)
	}
	defer f.Close()

	imageData, err := io.ReadAll(io.LimitReader(f, maxSelfieSize))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read file", err)
	}

	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	matches, err := h.faceService.FindYourself(c.UserContext(), eventID, imageData, contentType, limit)
	if errors.Is(err, services.ErrProviderUnavailable) {
		return utils.SuccessResponse(c, "Face recognition is not enabled", dto.FindYourselfResponse{
			Enabled: false,
			Matches: []dto.PhotoMatchResponse{},
		})
	}
	if err != nil {
		return err
	}

	return utils.SuccessResponse(c, "Face search completed", dto.FindYourselfResponse{
		Enabled: true,
		Matches: dto.MatchesToResponse(matches),
		Count:   len(matches),
	})
}

func isValidImageType(contentType string) bool {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/webp":
		return true
	}
	return false
}
