package repositories

import (
	"context"

	"github.com/google/uuid"

	"eventfaces/domain/models"
)

type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context, offset, limit int) ([]models.Event, int64, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	// Delete removes the event together with its photos, faces and persons
	Delete(ctx context.Context, id uuid.UUID) error
}
