package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"eventfaces/pkg/eventlock"
	"eventfaces/pkg/logger"
)

// Deletes or extends the key only while it still carries our token
var (
	releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	refreshScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// EventLocker is a lease based lock shared by all replicas. A held lease is
// refreshed in the background until it is released.
type EventLocker struct {
	rdb        *goredis.Client
	ttl        time.Duration
	retryDelay time.Duration
	prefix     string
}

func NewEventLocker(rdb *goredis.Client, ttl time.Duration) *EventLocker {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &EventLocker{
		rdb:        rdb,
		ttl:        ttl,
		retryDelay: 50 * time.Millisecond,
		prefix:     "eventfaces:lock:event:",
	}
}

var _ eventlock.Locker = (*EventLocker)(nil)

func (l *EventLocker) key(eventID uuid.UUID) string {
	return l.prefix + eventID.String()
}

func (l *EventLocker) Lock(ctx context.Context, eventID uuid.UUID) (func(), error) {
	key := l.key(eventID)
	token := uuid.NewString()

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err == nil && ok {
			break
		}
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: event %s: %v", eventlock.ErrNotAcquired, eventID, ctx.Err())
		case <-time.After(l.retryDelay):
		}
	}

	stop := make(chan struct{})
	go l.refresh(key, token, stop)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.rdb, []string{key}, token).Err(); err != nil {
				logger.ClusterError("lock_release_failed", "Failed to release event lock", err, map[string]interface{}{
					"event_id": eventID.String(),
				})
			}
		})
	}, nil
}

func (l *EventLocker) refresh(key, token string, stop <-chan struct{}) {
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			n, err := refreshScript.Run(ctx, l.rdb, []string{key}, token, l.ttl.Milliseconds()).Int()
			cancel()
			if err != nil || n == 0 {
				logger.ClusterWarn("lock_refresh_failed", "Event lock lease could not be refreshed", map[string]interface{}{
					"key":   key,
					"error": fmt.Sprint(err),
				})
				if n == 0 && err == nil {
					return
				}
			}
		}
	}
}
