package redis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"eventfaces/infrastructure/websocket"
	"eventfaces/pkg/eventlock"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestEventLockerSerializes(t *testing.T) {
	_, rdb := newTestRedis(t)
	locker := NewEventLocker(rdb, time.Minute)
	locker.retryDelay = 5 * time.Millisecond
	eventID := uuid.New()

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), eventID)
			if err != nil {
				t.Errorf("Lock: %v", err)
				return
			}
			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			unlock()
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxActive)
	}
}

func TestEventLockerTimeout(t *testing.T) {
	_, rdb := newTestRedis(t)
	locker := NewEventLocker(rdb, time.Minute)
	locker.retryDelay = 5 * time.Millisecond
	eventID := uuid.New()

	unlock, err := locker.Lock(context.Background(), eventID)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, eventID); !errors.Is(err, eventlock.ErrNotAcquired) {
		t.Fatalf("err = %v, want ErrNotAcquired", err)
	}

	// Another event is independent
	unlockOther, err := locker.Lock(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("other event: %v", err)
	}
	unlockOther()
}

func TestEventLockerReleaseKeepsForeignLease(t *testing.T) {
	mr, rdb := newTestRedis(t)
	locker := NewEventLocker(rdb, time.Minute)
	eventID := uuid.New()

	unlock, err := locker.Lock(context.Background(), eventID)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	// Lease expired and another replica took it
	mr.Set(locker.key(eventID), "someone-else")
	unlock()
	unlock()

	got, err := mr.Get(locker.key(eventID))
	if err != nil || got != "someone-else" {
		t.Errorf("foreign lease = %q, %v", got, err)
	}
}

func TestProgressBusForwards(t *testing.T) {
	_, rdb := newTestRedis(t)
	bus := NewProgressBus(rdb, "test:progress")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan websocket.Message, 1)
	if err := bus.StartForwarder(ctx, func(m websocket.Message) { got <- m }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}

	eventID := uuid.New()
	bus.Notify(eventID, "persons:updated", map[string]interface{}{"count": 3})

	select {
	case m := <-got:
		if m.Room != eventID.String() || m.Type != "persons:updated" {
			t.Errorf("message = %+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for forwarded message")
	}
}
