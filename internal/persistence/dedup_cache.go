package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupKeyPrefix = "ingest:dedup:"

// DedupCache remembers which ticket a correlation key produced. It is only a
// shortcut; the unique index on tickets.source_event_id stays authoritative.
type DedupCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDedupCache returns nil when no client is available.
func NewDedupCache(r *Redis, ttl time.Duration) *DedupCache {
	if r == nil || r.Client == nil || ttl <= 0 {
		return nil
	}
	return &DedupCache{client: r.Client, ttl: ttl}
}

// Lookup returns the ticket id stored for key.
func (c *DedupCache) Lookup(ctx context.Context, key string) (string, bool, error) {
	if c == nil {
		return "", false, nil
	}
	id, err := c.client.Get(ctx, dedupKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// Remember stores key -> ticketID, replacing any earlier mapping. Callers
// only remember ids confirmed by storage.
func (c *DedupCache) Remember(ctx context.Context, key, ticketID string) error {
	if c == nil {
		return nil
	}
	return c.client.Set(ctx, dedupKeyPrefix+key, ticketID, c.ttl).Err()
}

// Forget removes a stale mapping.
func (c *DedupCache) Forget(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, dedupKeyPrefix+key).Err()
}
