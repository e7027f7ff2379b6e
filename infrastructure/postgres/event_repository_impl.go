package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"eventfaces/domain/models"
	"eventfaces/domain/repositories"
)

type EventRepositoryImpl struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) repositories.EventRepository {
	return &EventRepositoryImpl{db: db}
}

func (r *EventRepositoryImpl) Create(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *EventRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &event, nil
}

func (r *EventRepositoryImpl) List(ctx context.Context, offset, limit int) ([]models.Event, int64, error) {
	var events []models.Event
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Event{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&events).Error

	return events, total, err
}

func (r *EventRepositoryImpl) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Delete removes the event. Photos, faces and persons go with it through ON DELETE CASCADE.
func (r *EventRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Event{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}
