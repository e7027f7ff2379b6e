package repositories

import (
	"context"

	"github.com/google/uuid"

	"eventfaces/domain/models"
)

// ClusteringChange is one atomic write of clustering results for an event
type ClusteringChange struct {
	EventID uuid.UUID

	// Upserts holds created or recomputed persons
	Upserts []*models.Person

	// Assignments maps face id to person id
	Assignments map[uuid.UUID]uuid.UUID

	// Absorbed maps deleted person ids to the person that took over their faces
	Absorbed map[uuid.UUID]uuid.UUID

	// AppliedPhotoIDs are moved from faces_found to clustering_applied
	AppliedPhotoIDs []uuid.UUID

	// Skipped maps refused face ids to the reason, recorded on the face
	Skipped map[uuid.UUID]string
}

// Empty reports whether the change writes nothing
func (c *ClusteringChange) Empty() bool {
	return len(c.Upserts) == 0 && len(c.Assignments) == 0 && len(c.Absorbed) == 0 && len(c.AppliedPhotoIDs) == 0 && len(c.Skipped) == 0
}

type PersonRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Person, error)

	// ListByEvent returns the event's persons in creation order
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Person, error)
	UpdateName(ctx context.Context, id uuid.UUID, name *string) error
	CountByEvent(ctx context.Context, eventID uuid.UUID) (int64, error)

	// ApplyClustering writes a clustering or merge result in one transaction.
	// It is a no-op returning false when the event no longer exists.
	ApplyClustering(ctx context.Context, change *ClusteringChange) (bool, error)

	DeleteByEvent(ctx context.Context, eventID uuid.UUID) error
}
