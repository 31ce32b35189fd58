package events

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/redis/go-redis/v9"
)

// EventsChannel receives every event.
const EventsChannel = "forum:events"

// CommunityChannel receives the events scoped to one community.
func CommunityChannel(communityID uint) string {
	return fmt.Sprintf("forum:community:%d", communityID)
}

// RedisPublisher publishes events with Redis PUBLISH.
type RedisPublisher struct {
	rdb *redis.Client
}

// NewRedisPublisher creates a publisher on rdb. A nil client publishes nothing.
func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, evt Event) error {
	if p.rdb == nil {
		return nil
	}
	payload, err := evt.encode()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.rdb.Publish(ctx, EventsChannel, payload).Err(); err != nil {
		return err
	}
	if evt.CommunityID != 0 {
		return p.rdb.Publish(ctx, CommunityChannel(evt.CommunityID), payload).Err()
	}
	return nil
}

// Close is a no-op; the client belongs to the caller.
func (p *RedisPublisher) Close() error { return nil }

// Subscribe delivers every message on the events channels to onMessage until
// ctx is cancelled. A panicking handler is logged and the loop continues.
func (p *RedisPublisher) Subscribe(ctx context.Context, onMessage func(channel, payload string)) error {
	if p.rdb == nil {
		return nil
	}
	sub := p.rdb.PSubscribe(ctx, EventsChannel, "forum:community:*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							slog.Error("panic in event subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()
	return nil
}
