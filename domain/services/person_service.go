package services

import (
	"context"

	"github.com/google/uuid"

	"eventfaces/domain/models"
)

// PersonService lets hosts review and curate the person clusters of an event
type PersonService interface {
	ListPersons(ctx context.Context, eventID uuid.UUID) ([]models.Person, error)
	GetPerson(ctx context.Context, personID uuid.UUID) (*models.Person, error)
	GetPersonFaces(ctx context.Context, personID uuid.UUID) ([]models.Face, error)

	// NamePerson sets the display name. An empty name clears it.
	NamePerson(ctx context.Context, personID uuid.UUID, name string) (*models.Person, error)

	// MergePersons moves every face of source into target and deletes source
	MergePersons(ctx context.Context, sourceID, targetID uuid.UUID) (*models.Person, error)
}
