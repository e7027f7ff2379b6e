package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"eventfaces/domain/models"
)

type PhotoRepository interface {
	// CRUD
	Create(ctx context.Context, photo *models.Photo) error
	CreateBatch(ctx context.Context, photos []*models.Photo) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Photo, error)
	GetByEvent(ctx context.Context, eventID uuid.UUID, offset, limit int) ([]models.Photo, int64, error)

	// Face processing
	// GetPendingByEvent returns unclaimed photos that are unprocessed or waiting for a detection retry
	GetPendingByEvent(ctx context.Context, eventID uuid.UUID, maxRetries, limit int) ([]models.Photo, error)
	GetEventsWithPending(ctx context.Context, maxRetries, limit int) ([]uuid.UUID, error)

	// ClaimForDetection moves a pending photo to detecting and marks it claimed.
	// Only one caller can win the claim. The returned claim id must be passed to
	// SaveDetections or RecordFailure, which release it.
	ClaimForDetection(ctx context.Context, id uuid.UUID, maxRetries int) (uuid.UUID, bool, error)

	// RecordFailure bumps the retry counter. The photo stays in detecting until
	// the backoff elapses, or moves to faces_failed once MaxRetries attempts have
	// failed. ErrClaimLost when the claim is no longer held.
	RecordFailure(ctx context.Context, id uuid.UUID, failure DetectionFailure) (models.FaceProcessingStatus, error)

	CountByEventAndStatus(ctx context.Context, eventID uuid.UUID) (map[models.FaceProcessingStatus]int64, error)
	ResetEvent(ctx context.Context, eventID uuid.UUID) (int64, error)                  // Reset every photo of the event to unprocessed
	ResetStuckDetecting(ctx context.Context, stuckThresholdMinutes int) (int64, error) // Release claims older than the threshold
}

// DetectionFailure describes a failed detection attempt
type DetectionFailure struct {
	ClaimID    uuid.UUID
	Reason     string
	MaxRetries int
	Backoff    time.Duration // Delay before the photo may be claimed again
}
