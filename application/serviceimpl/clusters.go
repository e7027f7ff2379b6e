package serviceimpl

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"eventfaces/domain/models"
	"eventfaces/domain/repositories"
	"eventfaces/pkg/clustering"
	"eventfaces/pkg/eventlock"
)

// loadClusters rebuilds the event's cluster set from stored persons and their faces
func loadClusters(ctx context.Context, personRepo repositories.PersonRepository, faceRepo repositories.FaceRepository, eventID uuid.UUID) ([]*clustering.Cluster, error) {
	persons, err := personRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list persons: %w", err)
	}
	faces, err := faceRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list faces: %w", err)
	}

	members := make(map[uuid.UUID][]clustering.Face, len(persons))
	for _, f := range faces {
		if f.PersonID == nil {
			continue
		}
		members[*f.PersonID] = append(members[*f.PersonID], toClusterFace(f))
	}

	clusters := make([]*clustering.Cluster, 0, len(persons))
	for _, p := range persons {
		c := &clustering.Cluster{
			ID:         p.ID,
			CreatedAt:  p.CreatedAt,
			Name:       p.Name,
			Members:    members[p.ID],
			Centroid:   p.Centroid.Slice(),
			PhotoCount: p.PhotoCount,
		}
		if p.RepresentativeFaceID != nil {
			c.RepresentativeFaceID = *p.RepresentativeFaceID
		}
		clusters = append(clusters, c)
	}
	return clusters, nil
}

func toClusterFace(f models.Face) clustering.Face {
	return clustering.Face{ID: f.ID, PhotoID: f.PhotoID, Embedding: f.Embedding.Slice()}
}

func toPerson(eventID uuid.UUID, c *clustering.Cluster) *models.Person {
	rep := c.RepresentativeFaceID
	return &models.Person{
		ID:                   c.ID,
		EventID:              eventID,
		Name:                 c.Name,
		PhotoCount:           c.PhotoCount,
		FaceCount:            len(c.Members),
		RepresentativeFaceID: &rep,
		Centroid:             pgvector.NewVector(c.Centroid),
		CreatedAt:            c.CreatedAt,
	}
}

func toPersons(eventID uuid.UUID, clusters []*clustering.Cluster) []*models.Person {
	persons := make([]*models.Person, len(clusters))
	for i, c := range clusters {
		persons[i] = toPerson(eventID, c)
	}
	return persons
}

// withEventLock runs fn inside the event's exclusive clustering scope
func withEventLock(ctx context.Context, locker eventlock.Locker, timeout time.Duration, eventID uuid.UUID, fn func() error) error {
	lockCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	unlock, err := locker.Lock(lockCtx, eventID)
	if err != nil {
		return err
	}
	defer unlock()

	return fn()
}
