package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateCache_SetAndGet(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewRateCache(client)
	ctx := context.Background()

	// Get before set => miss
	_, ok, err := cache.Get(ctx, "USD", "GTQ")
	assert.NoError(t, err)
	assert.False(t, ok)

	err = cache.Set(ctx, "USD", "GTQ", 7.8, 10*time.Minute)
	require.NoError(t, err)

	rate, ok, err := cache.Get(ctx, "USD", "GTQ")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 7.8, rate, 1e-9)
}

func TestRateCache_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewRateCache(client)
	ctx := context.Background()

	err := cache.Set(ctx, "GTQ", "USD", 0.128, 1*time.Second)
	require.NoError(t, err)

	s.FastForward(2 * time.Second)

	_, ok, err := cache.Get(ctx, "GTQ", "USD")
	assert.NoError(t, err)
	assert.False(t, ok, "expired rate should miss")
}

func TestRateCache_PairsAreDirectional(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewRateCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "USD", "GTQ", 7.8, time.Minute))

	_, ok, err := cache.Get(ctx, "GTQ", "USD")
	require.NoError(t, err)
	assert.False(t, ok, "inverse pair must not hit the forward entry")
}
