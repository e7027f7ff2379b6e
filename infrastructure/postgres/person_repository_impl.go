package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"eventfaces/domain/models"
	"eventfaces/domain/repositories"
)

type PersonRepositoryImpl struct {
	db *gorm.DB
}

func NewPersonRepository(db *gorm.DB) repositories.PersonRepository {
	return &PersonRepositoryImpl{db: db}
}

func (r *PersonRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Person, error) {
	var person models.Person
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&person).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &person, nil
}

func (r *PersonRepositoryImpl) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Person, error) {
	var persons []models.Person
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at ASC, id ASC").
		Find(&persons).Error
	return persons, err
}

func (r *PersonRepositoryImpl) UpdateName(ctx context.Context, id uuid.UUID, name *string) error {
	result := r.db.WithContext(ctx).Model(&models.Person{}).Where("id = ?", id).Updates(map[string]interface{}{
		"name":       name,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *PersonRepositoryImpl) CountByEvent(ctx context.Context, eventID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Person{}).Where("event_id = ?", eventID).Count(&count).Error
	return count, err
}

func (r *PersonRepositoryImpl) ApplyClustering(ctx context.Context, change *repositories.ClusteringChange) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := lockEvent(tx, change.EventID)
		if err != nil || !ok {
			return err
		}
		now := time.Now()

		// Persons first so face assignments can reference new rows
		if len(change.Upserts) > 0 {
			for _, person := range change.Upserts {
				person.EventID = change.EventID
				person.UpdatedAt = now
				if person.CreatedAt.IsZero() {
					person.CreatedAt = now
				}
			}
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"name", "photo_count", "face_count", "representative_face_id", "centroid", "updated_at",
				}),
			}).Omit(clause.Associations).CreateInBatches(change.Upserts, 50).Error
			if err != nil {
				return err
			}
		}

		byPerson := make(map[uuid.UUID][]uuid.UUID)
		for faceID, personID := range change.Assignments {
			byPerson[personID] = append(byPerson[personID], faceID)
		}
		for personID, faceIDs := range byPerson {
			err := tx.Model(&models.Face{}).
				Where("event_id = ? AND id IN ?", change.EventID, faceIDs).
				Updates(map[string]interface{}{"person_id": personID, "updated_at": now}).Error
			if err != nil {
				return err
			}
		}

		for faceID, reason := range change.Skipped {
			err := tx.Model(&models.Face{}).
				Where("event_id = ? AND id = ? AND person_id IS NULL", change.EventID, faceID).
				Updates(map[string]interface{}{"cluster_error": reason, "updated_at": now}).Error
			if err != nil {
				return err
			}
		}

		// Reassign before deleting, the foreign key would null them otherwise
		for absorbed, survivor := range change.Absorbed {
			err := tx.Model(&models.Face{}).
				Where("event_id = ? AND person_id = ?", change.EventID, absorbed).
				Updates(map[string]interface{}{"person_id": survivor, "updated_at": now}).Error
			if err != nil {
				return err
			}
		}
		if len(change.Absorbed) > 0 {
			ids := make([]uuid.UUID, 0, len(change.Absorbed))
			for absorbed := range change.Absorbed {
				ids = append(ids, absorbed)
			}
			if err := tx.Where("event_id = ? AND id IN ?", change.EventID, ids).Delete(&models.Person{}).Error; err != nil {
				return err
			}
		}

		if len(change.AppliedPhotoIDs) > 0 {
			err := tx.Model(&models.Photo{}).
				Where("id IN ? AND face_status = ?", change.AppliedPhotoIDs, models.FaceStatusFacesFound).
				Updates(map[string]interface{}{
					"face_status": models.FaceStatusClusteringApplied,
					"updated_at":  now,
				}).Error
			if err != nil {
				return err
			}
		}

		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (r *PersonRepositoryImpl) DeleteByEvent(ctx context.Context, eventID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Face{}).Where("event_id = ?", eventID).Update("person_id", nil).Error; err != nil {
			return err
		}
		return tx.Where("event_id = ?", eventID).Delete(&models.Person{}).Error
	})
}
