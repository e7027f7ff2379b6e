package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"eventfaces/domain/models"
	"eventfaces/domain/services"
)

type stubEvents struct {
	events []models.Event
}

func (s *stubEvents) ListEvents(ctx context.Context, page, limit int) ([]models.Event, int64, error) {
	start := (page - 1) * limit
	if start >= len(s.events) {
		return nil, int64(len(s.events)), nil
	}
	end := start + limit
	if end > len(s.events) {
		end = len(s.events)
	}
	return s.events[start:end], int64(len(s.events)), nil
}

type stubProcessing struct {
	services.ProcessingService
	merged  map[uuid.UUID]int
	failFor uuid.UUID
	calls   int
}

func (s *stubProcessing) RunMergePass(ctx context.Context, eventID uuid.UUID) (*services.MergePassResult, error) {
	s.calls++
	if eventID == s.failFor {
		return nil, errors.New("boom")
	}
	return &services.MergePassResult{EventID: eventID, Merged: s.merged[eventID]}, nil
}

func TestMergeAllEvents_PagesAndSkipsFailures(t *testing.T) {
	events := make([]models.Event, 0, eventPageSize+5)
	for i := 0; i < eventPageSize+5; i++ {
		events = append(events, models.Event{ID: uuid.New()})
	}
	proc := &stubProcessing{
		merged:  map[uuid.UUID]int{events[0].ID: 2, events[eventPageSize+1].ID: 1},
		failFor: events[3].ID,
	}

	merged, err := MergeAllEvents(context.Background(), &stubEvents{events: events}, proc)
	if err != nil {
		t.Fatalf("MergeAllEvents: %v", err)
	}
	if merged != 3 {
		t.Errorf("merged = %d, want 3", merged)
	}
	if proc.calls != len(events) {
		t.Errorf("calls = %d, want %d", proc.calls, len(events))
	}
}

func TestMergeAllEvents_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	proc := &stubProcessing{}
	_, err := MergeAllEvents(ctx, &stubEvents{events: []models.Event{{ID: uuid.New()}}}, proc)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if proc.calls != 0 {
		t.Error("merge ran after cancel")
	}
}

func TestRegisterFaceJobs(t *testing.T) {
	s := NewJobScheduler()
	if err := RegisterFaceJobs(s, &stubEvents{}, &stubProcessing{}, "*/30 * * * *", 15); err != nil {
		t.Fatalf("RegisterFaceJobs: %v", err)
	}

	jobs := s.ListJobs()
	if len(jobs) != 2 || jobs[0].ID != MergePassJobID || jobs[1].ID != StuckPhotosJobID {
		t.Fatalf("jobs = %+v", jobs)
	}
	if err := s.AddJob(MergePassJobID, "* * * * *", func() {}); err == nil {
		t.Error("duplicate job accepted")
	}
	if err := s.RemoveJob(StuckPhotosJobID); err != nil {
		t.Errorf("RemoveJob: %v", err)
	}
	if len(s.ListJobs()) != 1 {
		t.Error("job not removed")
	}
}

func TestRegisterFaceJobs_InvalidCron(t *testing.T) {
	if err := RegisterFaceJobs(NewJobScheduler(), &stubEvents{}, &stubProcessing{}, "not a cron", 15); err == nil {
		t.Fatal("invalid cron accepted")
	}
}
