package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"eventfaces/pkg/logger"
)

// JobScheduler runs named cron jobs. Every job runs in singleton mode so a slow
// merge pass is never started twice.
type JobScheduler interface {
	Start()
	Stop()
	AddJob(id, cronExpr string, task func()) error
	RemoveJob(id string) error
	ListJobs() []JobInfo
	IsRunning() bool
}

type JobInfo struct {
	ID       string     `json:"id"`
	CronExpr string     `json:"cron"`
	LastRun  *time.Time `json:"last_run,omitempty"`
	NextRun  *time.Time `json:"next_run,omitempty"`
}

type job struct {
	cronExpr string
	ref      *gocron.Job
	lastRun  *time.Time
}

type GocronScheduler struct {
	scheduler *gocron.Scheduler
	jobs      map[string]*job
	mu        sync.RWMutex
	running   bool
}

func NewJobScheduler() *GocronScheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	return &GocronScheduler{
		scheduler: s,
		jobs:      make(map[string]*job),
	}
}

func (s *GocronScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		logger.SchedulerWarn("start", "Scheduler is already running", nil)
		return
	}

	s.scheduler.StartAsync()
	s.running = true
	logger.Scheduler("started", "Job scheduler started", map[string]interface{}{"jobs": len(s.jobs)})
}

func (s *GocronScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.scheduler.Stop()
	s.running = false
	logger.Scheduler("stopped", "Job scheduler stopped", nil)
}

func (s *GocronScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *GocronScheduler) AddJob(id, cronExpr string, task func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; exists {
		return fmt.Errorf("job with ID %s already exists", id)
	}

	ref, err := s.scheduler.Cron(cronExpr).Do(func() {
		now := time.Now()
		s.mu.Lock()
		if j, ok := s.jobs[id]; ok {
			j.lastRun = &now
		}
		s.mu.Unlock()

		logger.Scheduler("job_executing", "Executing job", map[string]interface{}{"job_id": id})
		task()
	})
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", id, err)
	}

	s.jobs[id] = &job{cronExpr: cronExpr, ref: ref}
	logger.Scheduler("job_added", "Job added", map[string]interface{}{
		"job_id":    id,
		"cron_expr": cronExpr,
		"next_run":  ref.NextRun().Format(time.RFC3339),
	})
	return nil
}

func (s *GocronScheduler) RemoveJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("job with ID %s not found", id)
	}

	s.scheduler.RemoveByReference(j.ref)
	delete(s.jobs, id)
	logger.Scheduler("job_removed", "Job removed", map[string]interface{}{"job_id": id})
	return nil
}

// ListJobs returns a snapshot of every job sorted by ID
func (s *GocronScheduler) ListJobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobInfo, 0, len(s.jobs))
	for id, j := range s.jobs {
		info := JobInfo{ID: id, CronExpr: j.cronExpr}
		if j.lastRun != nil {
			last := *j.lastRun
			info.LastRun = &last
		}
		if next := j.ref.NextRun(); !next.IsZero() {
			info.NextRun = &next
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out
}

// ValidateCronExpression checks a five field cron expression
func ValidateCronExpression(cronExpr string) error {
	s := gocron.NewScheduler(time.UTC)
	if _, err := s.Cron(cronExpr).Do(func() {}); err != nil {
		return fmt.Errorf("invalid cron expression: %v", err)
	}
	return nil
}
