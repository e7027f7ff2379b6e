// Package eventlock serializes clustering work per event.
//
// Two clustering runs for the same event must never interleave; runs for
// different events proceed in parallel.
package eventlock

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrNotAcquired is returned when the lock could not be taken before the context ended
var ErrNotAcquired = errors.New("event lock not acquired")

// Locker grants exclusive per-event scopes. The returned unlock func is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, eventID uuid.UUID) (func(), error)
}

type entry struct {
	ch   chan struct{}
	refs int
}

// Local is an in-process keyed mutex
type Local struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*entry
}

// NewLocal creates an in-process locker
func NewLocal() *Local {
	return &Local{locks: make(map[uuid.UUID]*entry)}
}

// Lock blocks until the event's lock is free or ctx is done
func (l *Local) Lock(ctx context.Context, eventID uuid.UUID) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[eventID]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.locks[eventID] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.drop(eventID, e)
		return nil, fmt.Errorf("%w: event %s: %v", ErrNotAcquired, eventID, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.drop(eventID, e)
		})
	}, nil
}

// Held reports how many callers hold or wait for the event's lock
func (l *Local) Held(eventID uuid.UUID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.locks[eventID]; ok {
		return e.refs
	}
	return 0
}

func (l *Local) drop(eventID uuid.UUID, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, eventID)
	}
}
