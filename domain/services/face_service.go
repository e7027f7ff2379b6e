package services

import (
	"context"

	"github.com/google/uuid"

	"eventfaces/domain/models"
)

// PhotoMatch is one photo in which the searched face appears.
// Face is the best matching face of the photo.
type PhotoMatch struct {
	Photo      models.Photo
	Face       models.Face
	Similarity float64
}

// FaceService answers "which photos contain this face" for one event
type FaceService interface {
	// SearchByFace compares the embedding against every stored face of the event.
	// Results are deduplicated by photo and sorted by similarity, highest first.
	// limit <= 0 returns every match.
	SearchByFace(ctx context.Context, eventID uuid.UUID, embedding []float32, limit int) ([]PhotoMatch, error)

	// FindYourself extracts the largest face of the selfie and searches the event with it
	FindYourself(ctx context.Context, eventID uuid.UUID, selfie []byte, mimeType string, limit int) ([]PhotoMatch, error)
}
