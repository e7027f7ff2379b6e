package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"eventfaces/domain/models"
	"eventfaces/domain/repositories"
)

type FaceRepositoryImpl struct {
	db *gorm.DB
}

func NewFaceRepository(db *gorm.DB) repositories.FaceRepository {
	return &FaceRepositoryImpl{db: db}
}

func (r *FaceRepositoryImpl) SaveDetections(ctx context.Context, photoID, claimID uuid.UUID, faces []*models.Face) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var eventID uuid.UUID
		if err := tx.Model(&models.Photo{}).Where("id = ?", photoID).Pluck("event_id", &eventID).Error; err != nil {
			return err
		}
		if eventID == uuid.Nil {
			return nil
		}

		// Event first, then photo, matching the order a cascading delete takes
		ok, err := lockEvent(tx, eventID)
		if err != nil || !ok {
			return err
		}

		var photo models.Photo
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", photoID).Take(&photo).Error
		if err != nil {
			return notFound(err)
		}
		// A reset or stuck-photo release hands the photo to a newer claim
		if photo.FaceStatus != models.FaceStatusDetecting || photo.FaceClaimID == nil || *photo.FaceClaimID != claimID {
			return nil
		}

		if err := tx.Where("photo_id = ?", photoID).Delete(&models.Face{}).Error; err != nil {
			return err
		}

		for _, face := range faces {
			face.EventID = eventID
			face.PhotoID = photoID
		}
		if len(faces) > 0 {
			if err := tx.CreateInBatches(faces, 50).Error; err != nil {
				return err
			}
		}

		status := models.FaceStatusNoFaces
		if len(faces) > 0 {
			status = models.FaceStatusFacesFound
		}
		now := time.Now()
		err = tx.Model(&models.Photo{}).Where("id = ?", photoID).Updates(map[string]interface{}{
			"face_status":       status,
			"face_count":        len(faces),
			"face_error":        "",
			"face_claimed_at":   nil,
			"face_claim_id":     nil,
			"face_retry_after":  nil,
			"face_processed_at": now,
			"updated_at":        now,
		}).Error
		if err != nil {
			return err
		}

		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (r *FaceRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Face, error) {
	var face models.Face
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&face).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &face, nil
}

func (r *FaceRepositoryImpl) GetByPhoto(ctx context.Context, photoID uuid.UUID) ([]models.Face, error) {
	var faces []models.Face
	err := r.db.WithContext(ctx).Where("photo_id = ?", photoID).Order("created_at ASC, id ASC").Find(&faces).Error
	return faces, err
}

func (r *FaceRepositoryImpl) GetByPerson(ctx context.Context, personID uuid.UUID) ([]models.Face, error) {
	var faces []models.Face
	err := r.db.WithContext(ctx).Where("person_id = ?", personID).Order("created_at ASC, id ASC").Find(&faces).Error
	return faces, err
}

func (r *FaceRepositoryImpl) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Face, error) {
	var faces []models.Face
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Order("created_at ASC, id ASC").Find(&faces).Error
	return faces, err
}

func (r *FaceRepositoryImpl) ListUnassignedByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Face, error) {
	var faces []models.Face
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND person_id IS NULL AND cluster_error = ''", eventID).
		Order("created_at ASC, id ASC").
		Find(&faces).Error
	return faces, err
}

type faceSimilarityRow struct {
	models.Face `gorm:"embedded"`
	Similarity  float64
}

// SearchSimilarByEvent finds faces similar to the given embedding using cosine distance.
// pgvector's <=> is 1 - cosine similarity.
func (r *FaceRepositoryImpl) SearchSimilarByEvent(ctx context.Context, eventID uuid.UUID, embedding pgvector.Vector, threshold float64) ([]repositories.FaceSearchResult, error) {
	var rows []faceSimilarityRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT f.*, 1 - (f.embedding <=> ?) AS similarity
		FROM faces f
		WHERE f.event_id = ?
		AND vector_dims(f.embedding) = ?
		AND (f.embedding <=> ?) <> 'NaN'::float8
		AND 1 - (f.embedding <=> ?) >= ?
		ORDER BY similarity DESC, f.created_at ASC, f.id ASC
	`, embedding, eventID, len(embedding.Slice()), embedding, embedding, threshold).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []repositories.FaceSearchResult{}, nil
	}

	photoIDs := make([]uuid.UUID, 0, len(rows))
	seen := make(map[uuid.UUID]bool, len(rows))
	for _, row := range rows {
		if !seen[row.PhotoID] {
			seen[row.PhotoID] = true
			photoIDs = append(photoIDs, row.PhotoID)
		}
	}

	var photos []models.Photo
	if err := r.db.WithContext(ctx).Where("id IN ?", photoIDs).Find(&photos).Error; err != nil {
		return nil, err
	}
	photoByID := make(map[uuid.UUID]models.Photo, len(photos))
	for _, p := range photos {
		photoByID[p.ID] = p
	}

	results := make([]repositories.FaceSearchResult, 0, len(rows))
	for _, row := range rows {
		photo, ok := photoByID[row.PhotoID]
		if !ok {
			continue
		}
		results = append(results, repositories.FaceSearchResult{
			Face:       row.Face,
			Photo:      photo,
			Similarity: row.Similarity,
		})
	}
	return results, nil
}

func (r *FaceRepositoryImpl) CountByEvent(ctx context.Context, eventID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Face{}).Where("event_id = ?", eventID).Count(&count).Error
	return count, err
}

func (r *FaceRepositoryImpl) DeleteByEvent(ctx context.Context, eventID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("event_id = ?", eventID).Delete(&models.Face{}).Error
}
