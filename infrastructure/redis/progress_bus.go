package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"eventfaces/infrastructure/websocket"
	"eventfaces/pkg/logger"
)

// ProgressBus publishes progress messages to a redis channel so every
// replica can forward them to its own websocket clients.
type ProgressBus struct {
	rdb     *goredis.Client
	channel string
}

func NewProgressBus(rdb *goredis.Client, channel string) *ProgressBus {
	if channel == "" {
		channel = "eventfaces:progress"
	}
	return &ProgressBus{rdb: rdb, channel: channel}
}

func (b *ProgressBus) Publish(ctx context.Context, msg websocket.Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// Notify publishes without blocking the caller on a slow redis
func (b *ProgressBus) Notify(eventID uuid.UUID, msgType string, data interface{}) {
	msg := websocket.Message{Room: eventID.String(), Type: msgType, Data: data}
	if err := b.Publish(context.Background(), msg); err != nil {
		logger.WebSocketError("publish_failed", "Failed to publish progress", err, map[string]interface{}{
			"event_id": eventID.String(),
			"type":     msgType,
		})
	}
}

// StartForwarder subscribes and hands every message to onMsg until ctx ends
func (b *ProgressBus) StartForwarder(ctx context.Context, onMsg func(websocket.Message)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)

	// Ensures the subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var msg websocket.Message
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					logger.WebSocketError("bad_payload", "Bad progress payload", err, nil)
					continue
				}
				onMsg(msg)
			}
		}
	}()

	return nil
}
