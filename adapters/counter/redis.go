package counter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/balbonits/drm-broker/core"
	"github.com/redis/go-redis/v9"
)

// RedisCounter implements the StreamCounter interface using Redis
// counters. Every increment refreshes the ceiling TTL so a counter
// abandoned by a crashed client eventually expires.
type RedisCounter struct {
	client  *redis.Client
	prefix  string
	ceiling time.Duration
}

// NewRedisCounter creates a RedisCounter with the given ceiling TTL.
func NewRedisCounter(client *redis.Client, ceiling time.Duration) *RedisCounter {
	return &RedisCounter{
		client:  client,
		prefix:  "drm:streams:",
		ceiling: ceiling,
	}
}

// Increment atomically bumps the subject's live stream count.
func (c *RedisCounter) Increment(ctx context.Context, subject string) error {
	key := c.prefix + subject

	if err := c.client.Incr(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: failed to increment stream count: %v", core.ErrCacheUnavailable, err)
	}

	if err := c.client.Expire(ctx, key, c.ceiling).Err(); err != nil {
		return fmt.Errorf("%w: failed to set stream count expiry: %v", core.ErrCacheUnavailable, err)
	}

	return nil
}

// Decrement atomically lowers the subject's live stream count. The count
// is clamped at zero on read, so decrementing past zero is harmless.
func (c *RedisCounter) Decrement(ctx context.Context, subject string) error {
	key := c.prefix + subject

	if err := c.client.Decr(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: failed to decrement stream count: %v", core.ErrCacheUnavailable, err)
	}

	return nil
}

// Count returns the subject's live stream count.
func (c *RedisCounter) Count(ctx context.Context, subject string) (int, error) {
	val, err := c.client.Get(ctx, c.prefix+subject).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: failed to read stream count: %v", core.ErrCacheUnavailable, err)
	}

	if val < 0 {
		return 0, nil
	}
	return val, nil
}
