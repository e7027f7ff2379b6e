package serviceimpl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"eventfaces/domain/models"
	"eventfaces/domain/repositories"
	"eventfaces/domain/services"
	"eventfaces/pkg/clustering"
	"eventfaces/pkg/eventlock"
	"eventfaces/pkg/logger"
	"eventfaces/pkg/similarity"
)

const maxRetryBackoff = 30 * time.Minute

// ProcessingConfig holds the orchestrator tunables
type ProcessingConfig struct {
	MinConfidence     float64
	MaxRetries        int
	DetectConcurrency int
	LockTimeout       time.Duration

	// RetryBackoff is the wait after the first failed detection. It doubles per
	// failure up to maxRetryBackoff.
	RetryBackoff time.Duration

	// PageSize is how many pending photos are fetched per round
	PageSize int
}

type ProcessingServiceImpl struct {
	eventRepo  repositories.EventRepository
	photoRepo  repositories.PhotoRepository
	faceRepo   repositories.FaceRepository
	personRepo repositories.PersonRepository
	provider   services.EmbeddingProvider
	engine     *clustering.Engine
	locker     eventlock.Locker
	notifier   services.Notifier
	cfg        ProcessingConfig
}

// NewProcessingService creates the orchestrator. A nil provider disables face
// processing and every operation becomes a no-op.
func NewProcessingService(
	eventRepo repositories.EventRepository,
	photoRepo repositories.PhotoRepository,
	faceRepo repositories.FaceRepository,
	personRepo repositories.PersonRepository,
	provider services.EmbeddingProvider,
	engine *clustering.Engine,
	locker eventlock.Locker,
	notifier services.Notifier,
	cfg ProcessingConfig,
) services.ProcessingService {
	if notifier == nil {
		notifier = services.NopNotifier{}
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.DetectConcurrency <= 0 {
		cfg.DetectConcurrency = 4
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 200
	}
	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = 0
	}
	return &ProcessingServiceImpl{
		eventRepo:  eventRepo,
		photoRepo:  photoRepo,
		faceRepo:   faceRepo,
		personRepo: personRepo,
		provider:   provider,
		engine:     engine,
		locker:     locker,
		notifier:   notifier,
		cfg:        cfg,
	}
}

func (s *ProcessingServiceImpl) Enabled() bool {
	return s.provider != nil
}

func (s *ProcessingServiceImpl) requireEvent(ctx context.Context, eventID uuid.UUID) error {
	exists, err := s.eventRepo.Exists(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to check event: %w", err)
	}
	if !exists {
		return services.ErrEventNotFound
	}
	return nil
}

// ProcessEventPhotos detects faces in all pending photos, then clusters every
// unassigned face of the event in one pass under the event lock.
func (s *ProcessingServiceImpl) ProcessEventPhotos(ctx context.Context, eventID uuid.UUID) (*services.ProcessResult, error) {
	result := &services.ProcessResult{EventID: eventID, Enabled: s.Enabled()}
	if !s.Enabled() {
		return result, nil
	}
	if err := s.requireEvent(ctx, eventID); err != nil {
		return nil, err
	}

	start := time.Now()
	if err := s.detectPending(ctx, eventID, result); err != nil {
		return result, err
	}

	if err := withEventLock(ctx, s.locker, s.cfg.LockTimeout, eventID, func() error {
		return s.clusterLocked(ctx, eventID, result)
	}); err != nil {
		return result, err
	}

	logger.Face("event_processed", "Event photos processed", map[string]interface{}{
		"event_id":         eventID.String(),
		"photos_processed": result.PhotosProcessed,
		"photos_failed":    result.PhotosFailed,
		"faces_detected":   result.FacesDetected,
		"persons_created":  result.PersonsCreated,
		"persons_updated":  result.PersonsUpdated,
		"duration_ms":      time.Since(start).Milliseconds(),
	})
	s.notifier.Notify(eventID, services.NotifyProcessingDone, result)
	return result, nil
}

// detectPending runs detection for every pending photo once. Photos that fail are
// left for the next call so a flaky provider cannot spin this loop.
func (s *ProcessingServiceImpl) detectPending(ctx context.Context, eventID uuid.UUID, result *services.ProcessResult) error {
	attempted := make(map[uuid.UUID]bool)
	var mu sync.Mutex

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		photos, err := s.photoRepo.GetPendingByEvent(ctx, eventID, s.cfg.MaxRetries, s.cfg.PageSize)
		if err != nil {
			return fmt.Errorf("failed to get pending photos: %w", err)
		}

		batch := make([]models.Photo, 0, len(photos))
		for _, p := range photos {
			if !attempted[p.ID] {
				attempted[p.ID] = true
				batch = append(batch, p)
			}
		}
		if len(batch) == 0 {
			return nil
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.cfg.DetectConcurrency)
		for i := range batch {
			photo := batch[i]
			g.Go(func() error {
				outcome := s.detectPhoto(gctx, photo)
				mu.Lock()
				outcome.addTo(result)
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
}

type detectOutcome struct {
	claimed bool
	failed  bool
	faces   int
	skipped int
}

func (o detectOutcome) addTo(r *services.ProcessResult) {
	if !o.claimed {
		return
	}
	if o.failed {
		r.PhotosFailed++
		return
	}
	r.PhotosProcessed++
	if o.faces == 0 {
		r.PhotosNoFaces++
	}
	r.FacesDetected += o.faces
	r.FacesSkipped += o.skipped
}

// detectPhoto claims a photo, calls the provider and stores its faces
func (s *ProcessingServiceImpl) detectPhoto(ctx context.Context, photo models.Photo) detectOutcome {
	var out detectOutcome

	claimID, claimed, err := s.photoRepo.ClaimForDetection(ctx, photo.ID, s.cfg.MaxRetries)
	if err != nil {
		logger.FaceError("claim_failed", "Failed to claim photo", err, map[string]interface{}{
			"event_id": photo.EventID.String(),
			"photo_id": photo.ID.String(),
		})
		return out
	}
	if !claimed {
		return out
	}
	out.claimed = true

	detected, err := s.provider.DetectFaces(ctx, photo.ImageURL)
	if err != nil && ctx.Err() != nil {
		// Canceled, not a provider failure. The stuck photo job releases the claim.
		out.claimed = false
		return out
	}
	if err != nil {
		out.failed = true
		s.recordFailure(ctx, photo, claimID, err)
		return out
	}

	faces := make([]*models.Face, 0, len(detected))
	for _, d := range detected {
		if d.Confidence < s.cfg.MinConfidence || similarity.IsZero(d.Embedding) {
			out.skipped++
			continue
		}
		face := &models.Face{
			EventID:    photo.EventID,
			PhotoID:    photo.ID,
			Embedding:  pgvector.NewVector(d.Embedding),
			BboxX:      d.BboxX,
			BboxY:      d.BboxY,
			BboxWidth:  d.BboxWidth,
			BboxHeight: d.BboxHeight,
			Confidence: d.Confidence,
		}
		if len(d.Landmarks) > 0 {
			face.Landmarks = datatypes.JSON(d.Landmarks)
		}
		faces = append(faces, face)
	}

	applied, err := s.faceRepo.SaveDetections(ctx, photo.ID, claimID, faces)
	if err != nil {
		out.failed = true
		s.recordFailure(ctx, photo, claimID, err)
		return out
	}
	if !applied {
		// Event deleted, or photo reset and claimed again while the provider was working
		logger.FaceWarn("detections_discarded", "Detection result discarded", map[string]interface{}{
			"event_id": photo.EventID.String(),
			"photo_id": photo.ID.String(),
		})
		out.claimed = false
		return out
	}
	out.faces = len(faces)

	status := models.FaceStatusNoFaces
	if len(faces) > 0 {
		status = models.FaceStatusFacesFound
	}
	s.notifier.Notify(photo.EventID, services.NotifyPhotoUpdated, map[string]interface{}{
		"photo_id":    photo.ID,
		"face_status": status,
		"face_count":  len(faces),
	})
	return out
}

// retryBackoff doubles the base delay per earlier failure
func retryBackoff(base time.Duration, failures int) time.Duration {
	delay := base
	for i := 0; i < failures && delay < maxRetryBackoff; i++ {
		delay *= 2
	}
	if delay > maxRetryBackoff {
		delay = maxRetryBackoff
	}
	return delay
}

func (s *ProcessingServiceImpl) recordFailure(ctx context.Context, photo models.Photo, claimID uuid.UUID, cause error) {
	status, err := s.photoRepo.RecordFailure(context.WithoutCancel(ctx), photo.ID, repositories.DetectionFailure{
		ClaimID:    claimID,
		Reason:     cause.Error(),
		MaxRetries: s.cfg.MaxRetries,
		Backoff:    retryBackoff(s.cfg.RetryBackoff, photo.FaceRetryCount),
	})
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) && !errors.Is(err, repositories.ErrClaimLost) {
			logger.FaceError("record_failure_failed", "Failed to record detection failure", err, map[string]interface{}{
				"event_id": photo.EventID.String(),
				"photo_id": photo.ID.String(),
			})
		}
		return
	}

	logger.FaceWarn("detection_failed", "Face detection failed", map[string]interface{}{
		"event_id":    photo.EventID.String(),
		"photo_id":    photo.ID.String(),
		"error":       cause.Error(),
		"face_status": string(status),
	})
	s.notifier.Notify(photo.EventID, services.NotifyPhotoUpdated, map[string]interface{}{
		"photo_id":    photo.ID,
		"face_status": status,
	})
}

// clusterLocked feeds every unassigned face of the event through the engine.
// Callers hold the event lock.
func (s *ProcessingServiceImpl) clusterLocked(ctx context.Context, eventID uuid.UUID, result *services.ProcessResult) error {
	faces, err := s.faceRepo.ListUnassignedByEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to list unassigned faces: %w", err)
	}
	if len(faces) == 0 {
		return nil
	}

	clusters, err := loadClusters(ctx, s.personRepo, s.faceRepo, eventID)
	if err != nil {
		return err
	}

	input := make([]clustering.Face, len(faces))
	photoIDs := make([]uuid.UUID, 0)
	seen := make(map[uuid.UUID]bool)
	for i, f := range faces {
		input[i] = toClusterFace(f)
		if !seen[f.PhotoID] {
			seen[f.PhotoID] = true
			photoIDs = append(photoIDs, f.PhotoID)
		}
	}

	assign, err := s.engine.Assign(clusters, input)
	if err != nil {
		logger.ClusterError("clustering_halted", "Clustering halted for event", err, map[string]interface{}{
			"event_id": eventID.String(),
			"faces":    len(input),
		})
		return err
	}
	skipped := make(map[uuid.UUID]string, len(assign.Skipped))
	for _, sf := range assign.Skipped {
		skipped[sf.FaceID] = sf.Err.Error()
		logger.ClusterWarn("face_skipped", "Face skipped by clustering", map[string]interface{}{
			"event_id": eventID.String(),
			"face_id":  sf.FaceID.String(),
			"error":    sf.Err.Error(),
		})
	}

	applied, err := s.personRepo.ApplyClustering(ctx, &repositories.ClusteringChange{
		EventID:         eventID,
		Upserts:         toPersons(eventID, assign.Changed()),
		Assignments:     assign.Assignments,
		AppliedPhotoIDs: photoIDs,
		Skipped:         skipped,
	})
	if err != nil {
		return fmt.Errorf("failed to apply clustering: %w", err)
	}
	if !applied {
		return nil
	}

	result.PersonsCreated += len(assign.Created)
	result.PersonsUpdated += len(assign.Updated)

	logger.Cluster("clustering_applied", "Faces clustered", map[string]interface{}{
		"event_id":        eventID.String(),
		"faces":           len(assign.Assignments),
		"skipped":         len(assign.Skipped),
		"persons_created": len(assign.Created),
		"persons_updated": len(assign.Updated),
		"persons_total":   len(assign.Clusters),
	})
	s.notifier.Notify(eventID, services.NotifyPersonsUpdated, map[string]interface{}{
		"persons_total": len(assign.Clusters),
	})
	return nil
}

// ReprocessEvent wipes the event's faces and persons and runs the pipeline again
func (s *ProcessingServiceImpl) ReprocessEvent(ctx context.Context, eventID uuid.UUID) (*services.ProcessResult, error) {
	if !s.Enabled() {
		return &services.ProcessResult{EventID: eventID}, nil
	}
	if err := s.requireEvent(ctx, eventID); err != nil {
		return nil, err
	}

	err := withEventLock(ctx, s.locker, s.cfg.LockTimeout, eventID, func() error {
		if err := s.personRepo.DeleteByEvent(ctx, eventID); err != nil {
			return fmt.Errorf("failed to delete persons: %w", err)
		}
		if err := s.faceRepo.DeleteByEvent(ctx, eventID); err != nil {
			return fmt.Errorf("failed to delete faces: %w", err)
		}
		n, err := s.photoRepo.ResetEvent(ctx, eventID)
		if err != nil {
			return fmt.Errorf("failed to reset photos: %w", err)
		}
		logger.Face("event_reset", "Event face data reset for reprocessing", map[string]interface{}{
			"event_id": eventID.String(),
			"photos":   n,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.ProcessEventPhotos(ctx, eventID)
}

// RunMergePass consolidates persons whose centroids clear the merge threshold
func (s *ProcessingServiceImpl) RunMergePass(ctx context.Context, eventID uuid.UUID) (*services.MergePassResult, error) {
	result := &services.MergePassResult{EventID: eventID, Enabled: s.Enabled()}
	if !s.Enabled() {
		return result, nil
	}
	if err := s.requireEvent(ctx, eventID); err != nil {
		return nil, err
	}

	err := withEventLock(ctx, s.locker, s.cfg.LockTimeout, eventID, func() error {
		clusters, err := loadClusters(ctx, s.personRepo, s.faceRepo, eventID)
		if err != nil {
			return err
		}
		result.PersonsBefore = len(clusters)
		result.PersonsAfter = len(clusters)

		merged, err := s.engine.MergePass(clusters)
		if err != nil {
			logger.ClusterError("merge_halted", "Merge pass halted for event", err, map[string]interface{}{
				"event_id": eventID.String(),
			})
			return err
		}
		if len(merged.Absorbed) == 0 {
			return nil
		}

		applied, err := s.personRepo.ApplyClustering(ctx, &repositories.ClusteringChange{
			EventID:  eventID,
			Upserts:  toPersons(eventID, merged.Survivors),
			Absorbed: merged.Absorbed,
		})
		if err != nil {
			return fmt.Errorf("failed to apply merge: %w", err)
		}
		if !applied {
			return nil
		}

		result.PersonsAfter = len(merged.Clusters)
		result.Merged = len(merged.Absorbed)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Merged > 0 {
		logger.Cluster("merge_pass", "Persons merged", map[string]interface{}{
			"event_id":       eventID.String(),
			"persons_before": result.PersonsBefore,
			"persons_after":  result.PersonsAfter,
		})
		s.notifier.Notify(eventID, services.NotifyPersonsUpdated, map[string]interface{}{
			"persons_total": result.PersonsAfter,
		})
	}
	return result, nil
}

func (s *ProcessingServiceImpl) GetProcessingStats(ctx context.Context, eventID uuid.UUID) (*services.FaceProcessingStats, error) {
	if err := s.requireEvent(ctx, eventID); err != nil {
		return nil, err
	}

	counts, err := s.photoRepo.CountByEventAndStatus(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to count photos: %w", err)
	}
	faces, err := s.faceRepo.CountByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to count faces: %w", err)
	}
	persons, err := s.personRepo.CountByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to count persons: %w", err)
	}

	stats := &services.FaceProcessingStats{
		Enabled:         s.Enabled(),
		PendingPhotos:   counts[models.FaceStatusUnprocessed],
		DetectingPhotos: counts[models.FaceStatusDetecting],
		ProcessedPhotos: counts[models.FaceStatusFacesFound] + counts[models.FaceStatusClusteringApplied],
		NoFacePhotos:    counts[models.FaceStatusNoFaces],
		FailedPhotos:    counts[models.FaceStatusFailed],
		TotalFaces:      faces,
		TotalPersons:    persons,
	}
	for _, n := range counts {
		stats.TotalPhotos += n
	}
	return stats, nil
}

func (s *ProcessingServiceImpl) RecoverStuckPhotos(ctx context.Context, stuckMinutes int) (int64, error) {
	return s.photoRepo.ResetStuckDetecting(ctx, stuckMinutes)
}

func (s *ProcessingServiceImpl) PendingEvents(ctx context.Context, limit int) ([]uuid.UUID, error) {
	if !s.Enabled() {
		return nil, nil
	}
	return s.photoRepo.GetEventsWithPending(ctx, s.cfg.MaxRetries, limit)
}
