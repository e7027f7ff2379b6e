package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"eventfaces/domain/models"
	"eventfaces/domain/repositories"
)

type eventRepository struct {
	s *Store
}

func (r *eventRepository) Create(ctx context.Context, event *models.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if event.ID == uuid.Nil {
		event.ID = newID()
	}
	now := r.s.now()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now

	e := copyEvent(event)
	r.s.events[event.ID] = &e
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.events[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := copyEvent(e)
	return &out, nil
}

func (r *eventRepository) List(ctx context.Context, offset, limit int) ([]models.Event, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	events := make([]models.Event, 0, len(r.s.events))
	for _, e := range r.s.events {
		events = append(events, copyEvent(e))
	}
	// Newest first
	sort.SliceStable(events, func(i, j int) bool {
		return before(events[j].CreatedAt, events[j].ID, events[i].CreatedAt, events[i].ID)
	})
	return paginate(events, offset, limit), int64(len(events)), nil
}

func (r *eventRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.eventExists(id), nil
}

func (r *eventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !r.s.eventExists(id) {
		return repositories.ErrNotFound
	}
	delete(r.s.events, id)
	for fid, f := range r.s.faces {
		if f.EventID == id {
			delete(r.s.faces, fid)
		}
	}
	for pid, p := range r.s.persons {
		if p.EventID == id {
			delete(r.s.persons, pid)
		}
	}
	for pid, p := range r.s.photos {
		if p.EventID == id {
			delete(r.s.photos, pid)
		}
	}
	return nil
}
