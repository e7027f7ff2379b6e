// Package memstore is an in-memory identity store used for development
// (DB_DRIVER=memory) and service tests. It honors the same contracts as the
// postgres store, including atomic clustering writes and no-op writes for
// deleted events.
package memstore

import (
	"bytes"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"eventfaces/domain/models"
	"eventfaces/domain/repositories"
)

// Store holds every table behind one lock
type Store struct {
	mu      sync.RWMutex
	events  map[uuid.UUID]*models.Event
	photos  map[uuid.UUID]*models.Photo
	faces   map[uuid.UUID]*models.Face
	persons map[uuid.UUID]*models.Person
	now     func() time.Time
}

// New creates an empty store
func New() *Store {
	return &Store{
		events:  make(map[uuid.UUID]*models.Event),
		photos:  make(map[uuid.UUID]*models.Photo),
		faces:   make(map[uuid.UUID]*models.Face),
		persons: make(map[uuid.UUID]*models.Person),
		now:     time.Now,
	}
}

// SetClock replaces the store clock
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Events() repositories.EventRepository   { return &eventRepository{s} }
func (s *Store) Photos() repositories.PhotoRepository   { return &photoRepository{s} }
func (s *Store) Faces() repositories.FaceRepository     { return &faceRepository{s} }
func (s *Store) Persons() repositories.PersonRepository { return &personRepository{s} }

func (s *Store) eventExists(id uuid.UUID) bool {
	_, ok := s.events[id]
	return ok
}

func newID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

func before(at time.Time, aID uuid.UUID, bt time.Time, bID uuid.UUID) bool {
	if !at.Equal(bt) {
		return at.Before(bt)
	}
	return bytes.Compare(aID[:], bID[:]) < 0
}

// Copies strip relations and detach slices so callers never alias store state

func copyVector(v pgvector.Vector) pgvector.Vector {
	src := v.Slice()
	if src == nil {
		return pgvector.Vector{}
	}
	dst := make([]float32, len(src))
	copy(dst, src)
	return pgvector.NewVector(dst)
}

func copyUUIDPtr(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func copyTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyEvent(e *models.Event) models.Event {
	return models.Event{ID: e.ID, Name: e.Name, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt}
}

func copyPhoto(p *models.Photo) models.Photo {
	out := *p
	out.Faces = nil
	out.FaceClaimedAt = copyTimePtr(p.FaceClaimedAt)
	out.FaceClaimID = copyUUIDPtr(p.FaceClaimID)
	out.FaceRetryAfter = copyTimePtr(p.FaceRetryAfter)
	out.FaceProcessedAt = copyTimePtr(p.FaceProcessedAt)
	return out
}

func copyFace(f *models.Face) models.Face {
	out := *f
	out.Embedding = copyVector(f.Embedding)
	out.PersonID = copyUUIDPtr(f.PersonID)
	if f.Landmarks != nil {
		out.Landmarks = append([]byte(nil), f.Landmarks...)
	}
	return out
}

func copyPerson(p *models.Person) models.Person {
	out := *p
	out.Faces = nil
	out.Centroid = copyVector(p.Centroid)
	out.RepresentativeFaceID = copyUUIDPtr(p.RepresentativeFaceID)
	if p.Name != nil {
		name := *p.Name
		out.Name = &name
	}
	return out
}

func sortFaces(faces []models.Face) {
	sort.SliceStable(faces, func(i, j int) bool {
		return before(faces[i].CreatedAt, faces[i].ID, faces[j].CreatedAt, faces[j].ID)
	})
}

func sortPhotos(photos []models.Photo) {
	sort.SliceStable(photos, func(i, j int) bool {
		return before(photos[i].CreatedAt, photos[i].ID, photos[j].CreatedAt, photos[j].ID)
	})
}

func sortPersons(persons []models.Person) {
	sort.SliceStable(persons, func(i, j int) bool {
		return before(persons[i].CreatedAt, persons[i].ID, persons[j].CreatedAt, persons[j].ID)
	})
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
