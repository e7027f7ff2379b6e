package serviceimpl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"eventfaces/domain/models"
	"eventfaces/domain/repositories"
	"eventfaces/domain/services"
	"eventfaces/pkg/clustering"
	"eventfaces/pkg/eventlock"
	"eventfaces/pkg/logger"
)

type PersonServiceImpl struct {
	eventRepo   repositories.EventRepository
	faceRepo    repositories.FaceRepository
	personRepo  repositories.PersonRepository
	engine      *clustering.Engine
	locker      eventlock.Locker
	notifier    services.Notifier
	lockTimeout time.Duration
}

func NewPersonService(
	eventRepo repositories.EventRepository,
	faceRepo repositories.FaceRepository,
	personRepo repositories.PersonRepository,
	engine *clustering.Engine,
	locker eventlock.Locker,
	notifier services.Notifier,
	lockTimeout time.Duration,
) services.PersonService {
	if notifier == nil {
		notifier = services.NopNotifier{}
	}
	return &PersonServiceImpl{
		eventRepo:   eventRepo,
		faceRepo:    faceRepo,
		personRepo:  personRepo,
		engine:      engine,
		locker:      locker,
		notifier:    notifier,
		lockTimeout: lockTimeout,
	}
}

func (s *PersonServiceImpl) ListPersons(ctx context.Context, eventID uuid.UUID) ([]models.Person, error) {
	exists, err := s.eventRepo.Exists(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to check event: %w", err)
	}
	if !exists {
		return nil, services.ErrEventNotFound
	}
	return s.personRepo.ListByEvent(ctx, eventID)
}

func (s *PersonServiceImpl) GetPerson(ctx context.Context, personID uuid.UUID) (*models.Person, error) {
	person, err := s.personRepo.GetByID(ctx, personID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, services.ErrPersonNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return person, nil
}

func (s *PersonServiceImpl) GetPersonFaces(ctx context.Context, personID uuid.UUID) ([]models.Face, error) {
	if _, err := s.GetPerson(ctx, personID); err != nil {
		return nil, err
	}
	return s.faceRepo.GetByPerson(ctx, personID)
}

// NamePerson runs under the event lock so a concurrent merge cannot overwrite the name
func (s *PersonServiceImpl) NamePerson(ctx context.Context, personID uuid.UUID, name string) (*models.Person, error) {
	person, err := s.GetPerson(ctx, personID)
	if err != nil {
		return nil, err
	}

	var value *string
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		value = &trimmed
	}

	err = withEventLock(ctx, s.locker, s.lockTimeout, person.EventID, func() error {
		return s.personRepo.UpdateName(ctx, personID, value)
	})
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, services.ErrPersonNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to name person: %w", err)
	}

	logger.Cluster("person_named", "Person renamed", map[string]interface{}{
		"event_id":  person.EventID.String(),
		"person_id": personID.String(),
		"named":     value != nil,
	})
	s.notifier.Notify(person.EventID, services.NotifyPersonsUpdated, map[string]interface{}{
		"person_id": personID,
	})
	return s.GetPerson(ctx, personID)
}

// MergePersons folds source into target. Target keeps its id; the name follows
// the merge pass rule.
func (s *PersonServiceImpl) MergePersons(ctx context.Context, sourceID, targetID uuid.UUID) (*models.Person, error) {
	source, err := s.GetPerson(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	target, err := s.GetPerson(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if source.EventID != target.EventID {
		return nil, services.ErrCrossEventMerge
	}
	if sourceID == targetID {
		return target, nil
	}
	eventID := target.EventID

	err = withEventLock(ctx, s.locker, s.lockTimeout, eventID, func() error {
		clusters, err := loadClusters(ctx, s.personRepo, s.faceRepo, eventID)
		if err != nil {
			return err
		}

		// Reload inside the lock, a merge pass may have absorbed either side
		var src, dst *clustering.Cluster
		for _, c := range clusters {
			switch c.ID {
			case sourceID:
				src = c
			case targetID:
				dst = c
			}
		}
		if src == nil || dst == nil {
			return services.ErrPersonNotFound
		}

		merged, err := s.engine.MergeInto(dst, src)
		if err != nil {
			return err
		}

		applied, err := s.personRepo.ApplyClustering(ctx, &repositories.ClusteringChange{
			EventID:  eventID,
			Upserts:  []*models.Person{toPerson(eventID, merged)},
			Absorbed: map[uuid.UUID]uuid.UUID{sourceID: targetID},
		})
		if err != nil {
			return fmt.Errorf("failed to apply merge: %w", err)
		}
		if !applied {
			return services.ErrEventNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Cluster("persons_merged", "Persons merged by host", map[string]interface{}{
		"event_id":  eventID.String(),
		"source_id": sourceID.String(),
		"target_id": targetID.String(),
	})
	s.notifier.Notify(eventID, services.NotifyPersonsUpdated, map[string]interface{}{
		"merged_into": targetID,
	})
	return s.GetPerson(ctx, targetID)
}
