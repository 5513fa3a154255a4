// Package dedupe provides an optional Redis-backed in-flight guard that
// skips persisting and enqueueing a task identity already Queued,
// releasing the lock once the task reaches a terminal state.
package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "eureka:offchain:inflight:"

// Guard is a SETNX-with-TTL lock keyed by task identity. A nil *Guard is
// valid and treats every identity as not in flight, so callers can wire
// it in unconditionally.
type Guard struct {
	client *redis.Client
	ttl    time.Duration
}

// New returns a Guard backed by client, holding each lock for ttl unless
// released sooner via Release.
func New(client *redis.Client, ttl time.Duration) *Guard {
	return &Guard{client: client, ttl: ttl}
}

func lockKey(manifest, uri string) string {
	return fmt.Sprintf("%s%s|%s", keyPrefix, manifest, uri)
}

// TryAcquire reports whether (manifest, uri) was not already in flight,
// atomically claiming it if so. A nil Guard always returns true.
func (g *Guard) TryAcquire(ctx context.Context, manifest, uri string) (bool, error) {
	if g == nil {
		return true, nil
	}

	ok, err := g.client.SetNX(ctx, lockKey(manifest, uri), 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe guard: acquire: %w", err)
	}
	return ok, nil
}

// Release clears the lock for (manifest, uri), to be called once a task
// reaches a terminal state. A nil Guard is a no-op.
func (g *Guard) Release(ctx context.Context, manifest, uri string) error {
	if g == nil {
		return nil
	}

	if err := g.client.Del(ctx, lockKey(manifest, uri)).Err(); err != nil {
		return fmt.Errorf("dedupe guard: release: %w", err)
	}
	return nil
}
