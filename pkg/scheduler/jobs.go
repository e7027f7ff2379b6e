package scheduler

import (
	"context"
	"time"

	"eventfaces/domain/models"
	"eventfaces/domain/services"
	"eventfaces/pkg/logger"
)

const (
	MergePassJobID   = "face-merge-pass"
	StuckPhotosJobID = "face-stuck-recovery"
	stuckPhotosCron  = "*/5 * * * *"
	eventPageSize    = 100
	jobRunTimeout    = 30 * time.Minute
)

// EventLister pages through every event
type EventLister interface {
	ListEvents(ctx context.Context, page, limit int) ([]models.Event, int64, error)
}

// MergeAllEvents runs the merge pass for every event and returns the number of persons merged.
// A failing event is logged and skipped.
func MergeAllEvents(ctx context.Context, events EventLister, processing services.ProcessingService) (int, error) {
	merged := 0
	for page := 1; ; page++ {
		batch, total, err := events.ListEvents(ctx, page, eventPageSize)
		if err != nil {
			return merged, err
		}
		for _, e := range batch {
			if ctx.Err() != nil {
				return merged, ctx.Err()
			}
			result, err := processing.RunMergePass(ctx, e.ID)
			if err != nil {
				logger.SchedulerError("merge_pass_failed", "Merge pass failed", err, map[string]interface{}{
					"event_id": e.ID.String(),
				})
				continue
			}
			merged += result.Merged
		}
		if len(batch) == 0 || int64(page*eventPageSize) >= total {
			return merged, nil
		}
	}
}

// RegisterFaceJobs schedules the periodic merge pass and the stuck photo recovery
func RegisterFaceJobs(s JobScheduler, events EventLister, processing services.ProcessingService, mergeCron string, stuckMinutes int) error {
	if err := ValidateCronExpression(mergeCron); err != nil {
		return err
	}

	if err := s.AddJob(MergePassJobID, mergeCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobRunTimeout)
		defer cancel()

		merged, err := MergeAllEvents(ctx, events, processing)
		if err != nil {
			logger.SchedulerError("merge_pass_aborted", "Merge pass job aborted", err, nil)
			return
		}
		logger.Scheduler("merge_pass_done", "Merge pass job finished", map[string]interface{}{"merged": merged})
	}); err != nil {
		return err
	}

	return s.AddJob(StuckPhotosJobID, stuckPhotosCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		n, err := processing.RecoverStuckPhotos(ctx, stuckMinutes)
		if err != nil {
			logger.SchedulerError("stuck_recovery_failed", "Stuck photo recovery failed", err, nil)
			return
		}
		if n > 0 {
			logger.Scheduler("stuck_recovered", "Reset photos stuck in detection", map[string]interface{}{"photos": n})
		}
	})
}
