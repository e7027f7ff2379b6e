package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"eventfaces/domain/models"
)

type FaceRepository interface {
	// SaveDetections replaces the faces of a photo and records the detection
	// outcome on the photo in one transaction. It is a no-op returning false
	// when the event no longer exists or the photo no longer holds claimID.
	SaveDetections(ctx context.Context, photoID, claimID uuid.UUID, faces []*models.Face) (bool, error)

	GetByID(ctx context.Context, id uuid.UUID) (*models.Face, error)
	GetByPhoto(ctx context.Context, photoID uuid.UUID) ([]models.Face, error)
	GetByPerson(ctx context.Context, personID uuid.UUID) ([]models.Face, error)

	// ListByEvent returns every face of the event in arrival order
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Face, error)
	// ListUnassignedByEvent returns faces without a person that clustering has not refused
	ListUnassignedByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Face, error)

	// Vector search - every face of the event with similarity >= threshold, most similar first
	SearchSimilarByEvent(ctx context.Context, eventID uuid.UUID, embedding pgvector.Vector, threshold float64) ([]FaceSearchResult, error)

	CountByEvent(ctx context.Context, eventID uuid.UUID) (int64, error)
	DeleteByEvent(ctx context.Context, eventID uuid.UUID) error
}

// FaceSearchResult represents a face search result with similarity score
type FaceSearchResult struct {
	Face       models.Face
	Photo      models.Photo
	Similarity float64 // Cosine similarity (-1..1, higher is more similar)
}
