package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"eventfaces/domain/models"
	"eventfaces/domain/repositories"
)

type PhotoRepositoryImpl struct {
	db *gorm.DB
}

func NewPhotoRepository(db *gorm.DB) repositories.PhotoRepository {
	return &PhotoRepositoryImpl{db: db}
}

var pendingStatuses = []models.FaceProcessingStatus{models.FaceStatusUnprocessed, models.FaceStatusDetecting}

func (r *PhotoRepositoryImpl) Create(ctx context.Context, photo *models.Photo) error {
	return r.db.WithContext(ctx).Create(photo).Error
}

func (r *PhotoRepositoryImpl) CreateBatch(ctx context.Context, photos []*models.Photo) error {
	if len(photos) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(photos, 100).Error
}

func (r *PhotoRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	var photo models.Photo
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&photo).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &photo, nil
}

func (r *PhotoRepositoryImpl) GetByEvent(ctx context.Context, eventID uuid.UUID, offset, limit int) ([]models.Photo, int64, error) {
	var photos []models.Photo
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Photo{}).Where("event_id = ?", eventID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&photos).Error

	return photos, total, err
}

// pending scopes a query to unclaimed photos that still need detection and
// are past their retry backoff
func pending(maxRetries int, now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("face_status IN ?", pendingStatuses).
			Where("face_claimed_at IS NULL").
			Where("face_retry_count < ?", maxRetries).
			Where("face_retry_after IS NULL OR face_retry_after <= ?", now)
	}
}

func (r *PhotoRepositoryImpl) GetPendingByEvent(ctx context.Context, eventID uuid.UUID, maxRetries, limit int) ([]models.Photo, error) {
	var photos []models.Photo
	err := r.db.WithContext(ctx).
		Scopes(pending(maxRetries, time.Now())).
		Where("event_id = ?", eventID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&photos).Error
	return photos, err
}

func (r *PhotoRepositoryImpl) GetEventsWithPending(ctx context.Context, maxRetries, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.Photo{}).
		Scopes(pending(maxRetries, time.Now())).
		Select("event_id").
		Group("event_id").
		Order("MIN(created_at) ASC").
		Limit(limit).
		Pluck("event_id", &ids).Error
	return ids, err
}

func (r *PhotoRepositoryImpl) ClaimForDetection(ctx context.Context, id uuid.UUID, maxRetries int) (uuid.UUID, bool, error) {
	now := time.Now()
	claimID := uuid.Must(uuid.NewV7())
	result := r.db.WithContext(ctx).Model(&models.Photo{}).
		Scopes(pending(maxRetries, now)).
		Where("id = ?", id).
		Where("EXISTS (SELECT 1 FROM events e WHERE e.id = photos.event_id)").
		Updates(map[string]interface{}{
			"face_status":     models.FaceStatusDetecting,
			"face_claimed_at": now,
			"face_claim_id":   claimID,
			"updated_at":      now,
		})
	if result.Error != nil || result.RowsAffected != 1 {
		return uuid.Nil, false, result.Error
	}
	return claimID, true, nil
}

func (r *PhotoRepositoryImpl) RecordFailure(ctx context.Context, id uuid.UUID, failure repositories.DetectionFailure) (models.FaceProcessingStatus, error) {
	now := time.Now()
	var status models.FaceProcessingStatus
	err := r.db.WithContext(ctx).Raw(`
		UPDATE photos SET
			face_retry_count = face_retry_count + 1,
			face_error = ?,
			face_claimed_at = NULL,
			face_claim_id = NULL,
			face_status = CASE WHEN face_retry_count + 1 >= ? THEN ? ELSE ? END,
			face_retry_after = CASE WHEN face_retry_count + 1 >= ? THEN NULL ELSE ?::timestamptz END,
			updated_at = ?
		WHERE id = ? AND face_claim_id = ?
		RETURNING face_status
	`, failure.Reason,
		failure.MaxRetries, models.FaceStatusFailed, models.FaceStatusDetecting,
		failure.MaxRetries, now.Add(failure.Backoff),
		now, id, failure.ClaimID).Scan(&status).Error
	if err != nil {
		return "", err
	}
	if status != "" {
		return status, nil
	}

	// Nothing updated: either the photo is gone or another claim owns it
	var current models.Photo
	if err := r.db.WithContext(ctx).Select("face_status").Where("id = ?", id).Take(&current).Error; err != nil {
		return "", notFound(err)
	}
	return current.FaceStatus, repositories.ErrClaimLost
}

func (r *PhotoRepositoryImpl) CountByEventAndStatus(ctx context.Context, eventID uuid.UUID) (map[models.FaceProcessingStatus]int64, error) {
	var rows []struct {
		FaceStatus models.FaceProcessingStatus
		Count      int64
	}
	err := r.db.WithContext(ctx).Model(&models.Photo{}).
		Select("face_status, COUNT(*) AS count").
		Where("event_id = ?", eventID).
		Group("face_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.FaceProcessingStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.FaceStatus] = row.Count
	}
	return counts, nil
}

func (r *PhotoRepositoryImpl) ResetEvent(ctx context.Context, eventID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Photo{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"face_status":       models.FaceStatusUnprocessed,
			"face_count":        0,
			"face_retry_count":  0,
			"face_error":        "",
			"face_claimed_at":   nil,
			"face_claim_id":     nil,
			"face_retry_after":  nil,
			"face_processed_at": nil,
			"updated_at":        time.Now(),
		})
	return result.RowsAffected, result.Error
}

// ResetStuckDetecting releases claims left behind by a crashed run
func (r *PhotoRepositoryImpl) ResetStuckDetecting(ctx context.Context, stuckThresholdMinutes int) (int64, error) {
	threshold := time.Now().Add(-time.Duration(stuckThresholdMinutes) * time.Minute)

	result := r.db.WithContext(ctx).Model(&models.Photo{}).
		Where("face_status = ?", models.FaceStatusDetecting).
		Where("face_claimed_at < ?", threshold).
		Updates(map[string]interface{}{
			"face_status":     models.FaceStatusUnprocessed,
			"face_claimed_at": nil,
			"face_claim_id":   nil,
			"updated_at":      time.Now(),
		})

	return result.RowsAffected, result.Error
}
