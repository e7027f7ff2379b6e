package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"eventfaces/domain/services"
	"eventfaces/pkg/logger"
)

// FaceWorker picks up events with pending photos and runs the processing pipeline for them
type FaceWorker struct {
	processing services.ProcessingService
	health     func(ctx context.Context) error

	// Worker control
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.Mutex

	// Events queued by Trigger, processed before the next poll
	triggers chan uuid.UUID

	// Events being processed right now, so a trigger and a poll never overlap
	inFlight   map[uuid.UUID]bool
	inFlightMu sync.Mutex

	// Configuration
	pollInterval  time.Duration
	maxConcurrent int
	batchSize     int

	// Circuit breaker
	circuitBreaker *CircuitBreaker

	processed int64
	failed    int64
}

// CircuitBreaker prevents cascading failures
type CircuitBreaker struct {
	failures     int32
	threshold    int32
	resetTimeout time.Duration
	lastFailure  time.Time
	mu           sync.RWMutex
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(threshold int32, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold:    threshold,
		resetTimeout: resetTimeout,
	}
}

// IsOpen returns true if circuit is open (should not proceed)
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	if atomic.LoadInt32(&cb.failures) >= cb.threshold {
		// Allow one request through (half-open state) once the timeout passed
		return time.Since(cb.lastFailure) <= cb.resetTimeout
	}
	return false
}

// RecordSuccess resets the failure count
func (cb *CircuitBreaker) RecordSuccess() {
	atomic.StoreInt32(&cb.failures, 0)
}

// RecordFailure increments failure count
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	atomic.AddInt32(&cb.failures, 1)
	cb.lastFailure = time.Now()
}

// GetFailures returns current failure count
func (cb *CircuitBreaker) GetFailures() int32 {
	return atomic.LoadInt32(&cb.failures)
}

// FaceWorkerConfig holds worker tunables
type FaceWorkerConfig struct {
	PollInterval  time.Duration
	MaxConcurrent int // Events processed in parallel
	BatchSize     int // Events picked up per poll
}

// NewFaceWorker creates a new face processing worker. health may be nil.
func NewFaceWorker(processing services.ProcessingService, health func(ctx context.Context) error, cfg FaceWorkerConfig) *FaceWorker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 2
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	return &FaceWorker{
		processing:     processing,
		health:         health,
		triggers:       make(chan uuid.UUID, 64),
		inFlight:       make(map[uuid.UUID]bool),
		pollInterval:   cfg.PollInterval,
		maxConcurrent:  cfg.MaxConcurrent,
		batchSize:      cfg.BatchSize,
		circuitBreaker: NewCircuitBreaker(10, 60*time.Second), // Open after 10 failures, reset after 60s
	}
}

// Start starts the face worker
func (w *FaceWorker) Start() {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = true
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run()
	logger.Face("worker_started", "Face worker started", map[string]interface{}{
		"poll_interval":  w.pollInterval.String(),
		"max_concurrent": w.maxConcurrent,
	})
}

// Stop stops the face worker gracefully
func (w *FaceWorker) Stop() {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = false
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
	logger.Face("worker_stopped", "Face worker stopped", nil)
}

// IsRunning returns whether the worker is running
func (w *FaceWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isRunning
}

// Trigger asks the worker to process an event without waiting for the next poll.
// It never blocks; a full queue is drained by the poll anyway.
func (w *FaceWorker) Trigger(eventID uuid.UUID) {
	select {
	case w.triggers <- eventID:
	default:
	}
}

// run is the main worker loop
func (w *FaceWorker) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Process immediately on start
	w.processPendingEvents()

	for {
		select {
		case <-w.ctx.Done():
			return
		case eventID := <-w.triggers:
			w.processTriggered(eventID)
		case <-ticker.C:
			w.processPendingEvents()
		}
	}
}

// processPendingEvents fetches events with pending photos and processes them
func (w *FaceWorker) processPendingEvents() {
	if !w.providerReady() {
		return
	}

	eventIDs, err := w.processing.PendingEvents(w.ctx, w.batchSize)
	if err != nil {
		logger.FaceError("pending_events_failed", "Error fetching events with pending photos", err, nil)
		return
	}
	if len(eventIDs) == 0 {
		return
	}

	w.processEvents(eventIDs)
}

// processTriggered handles an upload nudge. A nudge refused here is picked up by a later poll.
func (w *FaceWorker) processTriggered(eventID uuid.UUID) {
	if !w.providerReady() {
		return
	}
	w.processEvents([]uuid.UUID{eventID})
}

// providerReady checks the circuit breaker and the provider health
func (w *FaceWorker) providerReady() bool {
	if w.circuitBreaker.IsOpen() {
		logger.FaceWarn("circuit_open", "Circuit breaker open, skipping face processing", map[string]interface{}{
			"failures": w.circuitBreaker.GetFailures(),
		})
		return false
	}

	if w.health != nil {
		ctx, cancel := context.WithTimeout(w.ctx, 5*time.Second)
		err := w.health(ctx)
		cancel()
		if err != nil {
			w.circuitBreaker.RecordFailure()
			logger.FaceWarn("provider_unavailable", "Face provider not available, circuit breaker triggered", map[string]interface{}{
				"error": err.Error(),
			})
			return false
		}
	}
	return true
}

func (w *FaceWorker) processEvents(eventIDs []uuid.UUID) {
	var eventWg sync.WaitGroup
	sem := make(chan struct{}, w.maxConcurrent)

	for _, id := range eventIDs {
		if !w.claim(id) {
			continue
		}

		sem <- struct{}{} // Acquire semaphore
		eventWg.Add(1)

		go func(eventID uuid.UUID) {
			defer eventWg.Done()
			defer func() { <-sem }() // Release semaphore
			defer w.release(eventID)

			w.processEvent(eventID)
		}(id)
	}

	eventWg.Wait()
}

func (w *FaceWorker) processEvent(eventID uuid.UUID) {
	result, err := w.processing.ProcessEventPhotos(w.ctx, eventID)
	if err != nil {
		if w.ctx.Err() == nil {
			atomic.AddInt64(&w.failed, 1)
			logger.FaceError("event_processing_failed", "Event processing failed", err, map[string]interface{}{
				"event_id": eventID.String(),
			})
		}
		return
	}

	atomic.AddInt64(&w.processed, 1)
	switch {
	case result.PhotosFailed > 0 && result.PhotosProcessed == 0:
		w.circuitBreaker.RecordFailure()
	case result.PhotosProcessed > 0:
		w.circuitBreaker.RecordSuccess()
	}
}

func (w *FaceWorker) claim(eventID uuid.UUID) bool {
	w.inFlightMu.Lock()
	defer w.inFlightMu.Unlock()
	if w.inFlight[eventID] {
		return false
	}
	w.inFlight[eventID] = true
	return true
}

func (w *FaceWorker) release(eventID uuid.UUID) {
	w.inFlightMu.Lock()
	defer w.inFlightMu.Unlock()
	delete(w.inFlight, eventID)
}

// GetStats returns worker statistics
func (w *FaceWorker) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"isRunning":       w.IsRunning(),
		"maxConcurrent":   w.maxConcurrent,
		"batchSize":       w.batchSize,
		"circuitBreaker":  !w.circuitBreaker.IsOpen(),
		"circuitFailures": w.circuitBreaker.GetFailures(),
		"eventsProcessed": atomic.LoadInt64(&w.processed),
		"eventsFailed":    atomic.LoadInt64(&w.failed),
	}
}
