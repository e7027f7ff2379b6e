package memstore

import (
	"context"

	"github.com/google/uuid"

	"eventfaces/domain/models"
	"eventfaces/domain/repositories"
)

type personRepository struct {
	s *Store
}

func (r *personRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Person, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.persons[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := copyPerson(p)
	return &out, nil
}

func (r *personRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Person, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	persons := make([]models.Person, 0)
	for _, p := range r.s.persons {
		if p.EventID == eventID {
			persons = append(persons, copyPerson(p))
		}
	}
	sortPersons(persons)
	return persons, nil
}

func (r *personRepository) UpdateName(ctx context.Context, id uuid.UUID, name *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.persons[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if name == nil {
		p.Name = nil
	} else {
		v := *name
		p.Name = &v
	}
	p.UpdatedAt = r.s.now()
	return nil
}

func (r *personRepository) CountByEvent(ctx context.Context, eventID uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, p := range r.s.persons {
		if p.EventID == eventID {
			n++
		}
	}
	return n, nil
}

func (r *personRepository) ApplyClustering(ctx context.Context, change *repositories.ClusteringChange) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !r.s.eventExists(change.EventID) {
		return false, nil
	}

	now := r.s.now()
	for _, person := range change.Upserts {
		if person.ID == uuid.Nil {
			person.ID = newID()
		}
		person.EventID = change.EventID
		if existing, ok := r.s.persons[person.ID]; ok {
			person.CreatedAt = existing.CreatedAt
		} else if person.CreatedAt.IsZero() {
			person.CreatedAt = now
		}
		person.UpdatedAt = now
		p := copyPerson(person)
		r.s.persons[person.ID] = &p
	}

	for faceID, personID := range change.Assignments {
		f, ok := r.s.faces[faceID]
		if !ok || f.EventID != change.EventID {
			continue
		}
		id := personID
		f.PersonID = &id
		f.UpdatedAt = now
	}

	for faceID, reason := range change.Skipped {
		f, ok := r.s.faces[faceID]
		if !ok || f.EventID != change.EventID || f.PersonID != nil {
			continue
		}
		f.ClusterError = reason
		f.UpdatedAt = now
	}

	for absorbed, survivor := range change.Absorbed {
		for _, f := range r.s.faces {
			if f.PersonID != nil && *f.PersonID == absorbed {
				id := survivor
				f.PersonID = &id
				f.UpdatedAt = now
			}
		}
		if p, ok := r.s.persons[absorbed]; ok && p.EventID == change.EventID {
			delete(r.s.persons, absorbed)
		}
	}

	for _, photoID := range change.AppliedPhotoIDs {
		p, ok := r.s.photos[photoID]
		if ok && p.FaceStatus == models.FaceStatusFacesFound {
			p.FaceStatus = models.FaceStatusClusteringApplied
			p.UpdatedAt = now
		}
	}
	return true, nil
}

func (r *personRepository) DeleteByEvent(ctx context.Context, eventID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, p := range r.s.persons {
		if p.EventID == eventID {
			delete(r.s.persons, id)
		}
	}
	for _, f := range r.s.faces {
		if f.EventID == eventID {
			f.PersonID = nil
		}
	}
	return nil
}
