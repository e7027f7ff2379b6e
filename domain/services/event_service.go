package services

import (
	"context"

	"github.com/google/uuid"

	"eventfaces/domain/models"
)

// NewPhoto describes a photo registered with an event
type NewPhoto struct {
	ImageURL string
	FileName string
	MimeType string
	FileSize int64
	Width    int
	Height   int
}

// EventService manages events and their photos
type EventService interface {
	CreateEvent(ctx context.Context, name string) (*models.Event, error)
	GetEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error)
	ListEvents(ctx context.Context, page, limit int) ([]models.Event, int64, error)
	DeleteEvent(ctx context.Context, eventID uuid.UUID) error

	// AddPhotos registers photos as unprocessed. It never fails because of face processing.
	AddPhotos(ctx context.Context, eventID uuid.UUID, photos []NewPhoto) ([]models.Photo, error)
	ListPhotos(ctx context.Context, eventID uuid.UUID, page, limit int) ([]models.Photo, int64, error)
}
