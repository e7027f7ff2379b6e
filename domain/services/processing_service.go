package services

import (
	"context"

	"github.com/google/uuid"
)

// ProcessResult summarizes one processEventPhotos run
type ProcessResult struct {
	EventID uuid.UUID `json:"event_id"`

	// Enabled is false when no provider is configured and nothing ran
	Enabled bool `json:"enabled"`

	PhotosProcessed int `json:"photos_processed"`
	PhotosFailed    int `json:"photos_failed"`
	PhotosNoFaces   int `json:"photos_no_faces"`
	FacesDetected   int `json:"faces_detected"`
	FacesSkipped    int `json:"faces_skipped"`

	PersonsCreated int `json:"persons_created"`
	PersonsUpdated int `json:"persons_updated"`
}

// MergePassResult summarizes one merge pass
type MergePassResult struct {
	EventID       uuid.UUID `json:"event_id"`
	Enabled       bool      `json:"enabled"`
	PersonsBefore int       `json:"persons_before"`
	PersonsAfter  int       `json:"persons_after"`
	Merged        int       `json:"merged"`
}

// FaceProcessingStats contains face processing statistics for an event
type FaceProcessingStats struct {
	Enabled         bool  `json:"enabled"`
	TotalPhotos     int64 `json:"total_photos"`
	PendingPhotos   int64 `json:"pending_photos"`
	DetectingPhotos int64 `json:"detecting_photos"`
	ProcessedPhotos int64 `json:"processed_photos"`
	NoFacePhotos    int64 `json:"no_face_photos"`
	FailedPhotos    int64 `json:"failed_photos"`
	TotalFaces      int64 `json:"total_faces"`
	TotalPersons    int64 `json:"total_persons"`
}

// ProcessingService drives detection and clustering for events
type ProcessingService interface {
	// Enabled reports whether an embedding provider is configured
	Enabled() bool

	// ProcessEventPhotos detects faces in every pending photo of the event and clusters them
	ProcessEventPhotos(ctx context.Context, eventID uuid.UUID) (*ProcessResult, error)

	// ReprocessEvent deletes every face and person of the event and runs the pipeline from scratch
	ReprocessEvent(ctx context.Context, eventID uuid.UUID) (*ProcessResult, error)

	// RunMergePass consolidates near-duplicate persons of the event
	RunMergePass(ctx context.Context, eventID uuid.UUID) (*MergePassResult, error)

	GetProcessingStats(ctx context.Context, eventID uuid.UUID) (*FaceProcessingStats, error)

	// RecoverStuckPhotos resets photos left in detecting for longer than the threshold
	RecoverStuckPhotos(ctx context.Context, stuckMinutes int) (int64, error)

	// PendingEvents lists events with photos waiting for detection
	PendingEvents(ctx context.Context, limit int) ([]uuid.UUID, error)
}
