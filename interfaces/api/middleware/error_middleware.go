package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"eventfaces/domain/services"
	"eventfaces/pkg/eventlock"
	"eventfaces/pkg/logger"
	"eventfaces/pkg/utils"
)

// StatusFor maps the service error taxonomy onto an HTTP status and client message
func StatusFor(err error) (int, string) {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	case errors.Is(err, services.ErrEventNotFound):
		return fiber.StatusNotFound, "Event not found"
	case errors.Is(err, services.ErrPersonNotFound):
		return fiber.StatusNotFound, "Person not found"
	case errors.Is(err, services.ErrPhotoNotFound):
		return fiber.StatusNotFound, "Photo not found"
	case errors.Is(err, services.ErrNoFaceInSelfie):
		return fiber.StatusUnprocessableEntity, "No face detected in the selfie. Please use a photo where your face is clearly visible"
	case errors.Is(err, services.ErrCrossEventMerge):
		return fiber.StatusBadRequest, "Persons belong to different events"
	case errors.Is(err, services.ErrInvalidInput):
		return fiber.StatusBadRequest, "Invalid input"
	case errors.Is(err, services.ErrProviderTimeout), errors.Is(err, services.ErrProviderError):
		return fiber.StatusServiceUnavailable, "Face recognition is temporarily unavailable"
	case errors.Is(err, services.ErrProviderUnavailable):
		return fiber.StatusServiceUnavailable, "Face recognition is not enabled"
	case errors.Is(err, eventlock.ErrNotAcquired):
		return fiber.StatusConflict, "Event is busy, try again shortly"
	default:
		return fiber.StatusInternalServerError, "An error occurred"
	}
}

func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code, message := StatusFor(err)

		if code >= fiber.StatusInternalServerError {
			logger.APIError("error_handler", "Request error occurred", err, map[string]interface{}{
				"status_code": code,
				"path":        c.Path(),
				"method":      c.Method(),
			})
		}

		return utils.ErrorResponse(c, code, message, err)
	}
}
