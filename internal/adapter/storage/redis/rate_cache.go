package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RateCache implements ports.RateCache using Redis. Rates are keyed by
// currency pair and expire after the configured TTL; the FX gateway stays
// authoritative when the cache misses or fails.
type RateCache struct {
	client *goredis.Client
	prefix string
}

// NewRateCache creates a new Redis-backed FX rate cache.
func NewRateCache(client *goredis.Client) *RateCache {
	return &RateCache{
		client: client,
		prefix: "fxrate:",
	}
}

func (c *RateCache) key(base, target string) string {
	return c.prefix + base + ":" + target
}

// Get retrieves a cached rate for the pair. The second return value is
// false when the pair is not cached.
func (c *RateCache) Get(ctx context.Context, base, target string) (float64, bool, error) {
	rate, err := c.client.Get(ctx, c.key(base, target)).Float64()
	if err != nil {
		if err == goredis.Nil {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("redis rate get: %w", err)
	}
	return rate, true, nil
}

// Set stores a rate for the pair with TTL.
func (c *RateCache) Set(ctx context.Context, base, target string, rate float64, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(base, target), rate, ttl).Err(); err != nil {
		return fmt.Errorf("redis rate set: %w", err)
	}
	return nil
}
