package serviceimpl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"eventfaces/domain/models"
	"eventfaces/domain/repositories"
	"eventfaces/domain/services"
	"eventfaces/pkg/logger"
)

type EventServiceImpl struct {
	eventRepo repositories.EventRepository
	photoRepo repositories.PhotoRepository

	// onPhotosAdded wakes the face worker. Nil leaves photos for the next poll.
	onPhotosAdded func(eventID uuid.UUID)
}

func NewEventService(
	eventRepo repositories.EventRepository,
	photoRepo repositories.PhotoRepository,
	onPhotosAdded func(eventID uuid.UUID),
) services.EventService {
	return &EventServiceImpl{
		eventRepo:     eventRepo,
		photoRepo:     photoRepo,
		onPhotosAdded: onPhotosAdded,
	}
}

func (s *EventServiceImpl) CreateEvent(ctx context.Context, name string) (*models.Event, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: event name is required", services.ErrInvalidInput)
	}

	event := &models.Event{Name: name}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return event, nil
}

func (s *EventServiceImpl) GetEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, services.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

func (s *EventServiceImpl) ListEvents(ctx context.Context, page, limit int) ([]models.Event, int64, error) {
	offset, limit := pageBounds(page, limit)
	return s.eventRepo.List(ctx, offset, limit)
}

// DeleteEvent removes the event with its photos, faces and persons.
// In-flight processing for the event turns into no-op writes.
func (s *EventServiceImpl) DeleteEvent(ctx context.Context, eventID uuid.UUID) error {
	err := s.eventRepo.Delete(ctx, eventID)
	if errors.Is(err, repositories.ErrNotFound) {
		return services.ErrEventNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	logger.API("event_deleted", "Event deleted", map[string]interface{}{"event_id": eventID.String()})
	return nil
}

func (s *EventServiceImpl) AddPhotos(ctx context.Context, eventID uuid.UUID, photos []services.NewPhoto) ([]models.Photo, error) {
	if len(photos) == 0 {
		return nil, fmt.Errorf("%w: no photos", services.ErrInvalidInput)
	}

	exists, err := s.eventRepo.Exists(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to check event: %w", err)
	}
	if !exists {
		return nil, services.ErrEventNotFound
	}

	rows := make([]*models.Photo, len(photos))
	for i, p := range photos {
		if strings.TrimSpace(p.ImageURL) == "" {
			return nil, fmt.Errorf("%w: photo %d has no image url", services.ErrInvalidInput, i)
		}
		rows[i] = &models.Photo{
			EventID:    eventID,
			ImageURL:   p.ImageURL,
			FileName:   p.FileName,
			MimeType:   p.MimeType,
			FileSize:   p.FileSize,
			Width:      p.Width,
			Height:     p.Height,
			FaceStatus: models.FaceStatusUnprocessed,
		}
	}

	err = s.photoRepo.CreateBatch(ctx, rows)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, services.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create photos: %w", err)
	}

	if s.onPhotosAdded != nil {
		s.onPhotosAdded(eventID)
	}

	created := make([]models.Photo, len(rows))
	for i, p := range rows {
		created[i] = *p
	}
	return created, nil
}

func (s *EventServiceImpl) ListPhotos(ctx context.Context, eventID uuid.UUID, page, limit int) ([]models.Photo, int64, error) {
	exists, err := s.eventRepo.Exists(ctx, eventID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to check event: %w", err)
	}
	if !exists {
		return nil, 0, services.ErrEventNotFound
	}

	offset, limit := pageBounds(page, limit)
	return s.photoRepo.GetByEvent(ctx, eventID, offset, limit)
}

func pageBounds(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return (page - 1) * limit, limit
}
