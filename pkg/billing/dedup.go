package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventDeduper remembers webhook event IDs so retried deliveries of an
// already-applied event are skipped. Seen only reads; MarkSeen records the
// ID after the event has been applied. Marking on entry would consume the
// ID even when processing fails and silently swallow the provider's retry.
type EventDeduper interface {
	// Seen reports whether the event ID was already marked as applied.
	Seen(ctx context.Context, eventID string) (bool, error)

	// MarkSeen records the event ID as applied.
	MarkSeen(ctx context.Context, eventID string) error
}

type redisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates an EventDeduper on Redis. The TTL bounds the dedup
// window; it should comfortably exceed the provider's webhook retry horizon
// (Paddle retries for up to three days).
func NewRedisDeduper(client *redis.Client, ttl time.Duration) EventDeduper {
	if client == nil {
		panic("billing: redis client is required")
	}
	if ttl <= 0 {
		ttl = 96 * time.Hour
	}
	return &redisDeduper{client: client, ttl: ttl}
}

func (d *redisDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := d.client.Exists(ctx, webhookEventKey(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup webhook event %s: %w", eventID, err)
	}
	return n > 0, nil
}

func (d *redisDeduper) MarkSeen(ctx context.Context, eventID string) error {
	if err := d.client.Set(ctx, webhookEventKey(eventID), 1, d.ttl).Err(); err != nil {
		return fmt.Errorf("mark webhook event %s: %w", eventID, err)
	}
	return nil
}

func webhookEventKey(eventID string) string {
	return "billing:webhook:" + eventID
}
