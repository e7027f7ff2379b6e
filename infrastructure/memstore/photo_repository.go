package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"eventfaces/domain/models"
	"eventfaces/domain/repositories"
)

type photoRepository struct {
	s *Store
}

func (r *photoRepository) Create(ctx context.Context, photo *models.Photo) error {
	return r.CreateBatch(ctx, []*models.Photo{photo})
}

func (r *photoRepository) CreateBatch(ctx context.Context, photos []*models.Photo) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	for _, photo := range photos {
		if !r.s.eventExists(photo.EventID) {
			return repositories.ErrNotFound
		}
		if photo.ID == uuid.Nil {
			photo.ID = newID()
		}
		if photo.FaceStatus == "" {
			photo.FaceStatus = models.FaceStatusUnprocessed
		}
		if photo.CreatedAt.IsZero() {
			photo.CreatedAt = now
		}
		photo.UpdatedAt = now
		p := copyPhoto(photo)
		r.s.photos[photo.ID] = &p
	}
	return nil
}

func (r *photoRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.photos[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := copyPhoto(p)
	return &out, nil
}

func (r *photoRepository) GetByEvent(ctx context.Context, eventID uuid.UUID, offset, limit int) ([]models.Photo, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	photos := r.byEvent(eventID, func(*models.Photo) bool { return true })
	return paginate(photos, offset, limit), int64(len(photos)), nil
}

func pending(p *models.Photo, maxRetries int, now time.Time) bool {
	if p.FaceClaimedAt != nil || p.FaceRetryCount >= maxRetries {
		return false
	}
	if p.FaceRetryAfter != nil && now.Before(*p.FaceRetryAfter) {
		return false
	}
	return p.FaceStatus == models.FaceStatusUnprocessed || p.FaceStatus == models.FaceStatusDetecting
}

// holdsClaim reports whether claimID is the photo's live claim
func holdsClaim(p *models.Photo, claimID uuid.UUID) bool {
	return p.FaceClaimID != nil && *p.FaceClaimID == claimID
}

func (r *photoRepository) GetPendingByEvent(ctx context.Context, eventID uuid.UUID, maxRetries, limit int) ([]models.Photo, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	now := r.s.now()
	photos := r.byEvent(eventID, func(p *models.Photo) bool { return pending(p, maxRetries, now) })
	return paginate(photos, 0, limit), nil
}

func (r *photoRepository) GetEventsWithPending(ctx context.Context, maxRetries, limit int) ([]uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	// Oldest pending photo first so long waiting events are served first
	now := r.s.now()
	oldest := make(map[uuid.UUID]models.Photo)
	for _, p := range r.s.photos {
		if !pending(p, maxRetries, now) || !r.s.eventExists(p.EventID) {
			continue
		}
		if cur, ok := oldest[p.EventID]; !ok || before(p.CreatedAt, p.ID, cur.CreatedAt, cur.ID) {
			oldest[p.EventID] = *p
		}
	}
	photos := make([]models.Photo, 0, len(oldest))
	for _, p := range oldest {
		photos = append(photos, p)
	}
	sortPhotos(photos)

	ids := make([]uuid.UUID, 0, len(photos))
	for _, p := range paginate(photos, 0, limit) {
		ids = append(ids, p.EventID)
	}
	return ids, nil
}

func (r *photoRepository) ClaimForDetection(ctx context.Context, id uuid.UUID, maxRetries int) (uuid.UUID, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	p, ok := r.s.photos[id]
	if !ok || !r.s.eventExists(p.EventID) || !pending(p, maxRetries, now) {
		return uuid.Nil, false, nil
	}
	claimID := newID()
	p.FaceStatus = models.FaceStatusDetecting
	p.FaceClaimedAt = &now
	p.FaceClaimID = &claimID
	p.UpdatedAt = now
	return claimID, true, nil
}

func (r *photoRepository) RecordFailure(ctx context.Context, id uuid.UUID, failure repositories.DetectionFailure) (models.FaceProcessingStatus, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.photos[id]
	if !ok {
		return "", repositories.ErrNotFound
	}
	if !holdsClaim(p, failure.ClaimID) {
		return p.FaceStatus, repositories.ErrClaimLost
	}
	now := r.s.now()
	p.FaceRetryCount++
	p.FaceError = failure.Reason
	p.FaceClaimedAt = nil
	p.FaceClaimID = nil
	p.UpdatedAt = now
	if p.FaceRetryCount >= failure.MaxRetries {
		p.FaceStatus = models.FaceStatusFailed
		p.FaceRetryAfter = nil
	} else {
		p.FaceStatus = models.FaceStatusDetecting
		retryAfter := now.Add(failure.Backoff)
		p.FaceRetryAfter = &retryAfter
	}
	return p.FaceStatus, nil
}

func (r *photoRepository) CountByEventAndStatus(ctx context.Context, eventID uuid.UUID) (map[models.FaceProcessingStatus]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := make(map[models.FaceProcessingStatus]int64)
	for _, p := range r.s.photos {
		if p.EventID == eventID {
			counts[p.FaceStatus]++
		}
	}
	return counts, nil
}

func (r *photoRepository) ResetEvent(ctx context.Context, eventID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	now := r.s.now()
	for _, p := range r.s.photos {
		if p.EventID != eventID {
			continue
		}
		p.FaceStatus = models.FaceStatusUnprocessed
		p.FaceCount = 0
		p.FaceRetryCount = 0
		p.FaceError = ""
		p.FaceClaimedAt = nil
		p.FaceClaimID = nil
		p.FaceRetryAfter = nil
		p.FaceProcessedAt = nil
		p.UpdatedAt = now
		n++
	}
	return n, nil
}

func (r *photoRepository) ResetStuckDetecting(ctx context.Context, stuckThresholdMinutes int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	cutoff := now.Add(-time.Duration(stuckThresholdMinutes) * time.Minute)
	var n int64
	for _, p := range r.s.photos {
		if p.FaceStatus != models.FaceStatusDetecting || p.FaceClaimedAt == nil || !p.FaceClaimedAt.Before(cutoff) {
			continue
		}
		p.FaceStatus = models.FaceStatusUnprocessed
		p.FaceClaimedAt = nil
		p.FaceClaimID = nil
		p.UpdatedAt = now
		n++
	}
	return n, nil
}

// byEvent returns matching photos in upload order. Callers hold the lock.
func (r *photoRepository) byEvent(eventID uuid.UUID, keep func(*models.Photo) bool) []models.Photo {
	photos := make([]models.Photo, 0)
	for _, p := range r.s.photos {
		if p.EventID == eventID && keep(p) {
			photos = append(photos, copyPhoto(p))
		}
	}
	sortPhotos(photos)
	return photos
}
