// SPDX-License-Identifier: MIT
package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	c, err := NewRedisCache(RedisConfig{Addr: mr.Addr()}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCacheSetGet(t *testing.T) {
	c, _ := newTestRedis(t)
	ctx := context.Background()

	c.Set(ctx, "k1", "1,234", time.Minute)

	got, ok := c.Get(ctx, "k1")
	require.True(t, ok)
	assert.Equal(t, "1,234", got)

	_, ok = c.Get(ctx, "missing")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, 1, stats.CurrentSize)
}

func TestRedisCacheTTL(t *testing.T) {
	c, mr := newTestRedis(t)
	ctx := context.Background()

	c.Set(ctx, "k1", "answer", time.Minute)

	mr.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx, "k1")
	assert.False(t, ok)
}

func TestRedisCacheDeleteAndClear(t *testing.T) {
	c, _ := newTestRedis(t)
	ctx := context.Background()

	c.Set(ctx, "k1", "a", time.Minute)
	c.Set(ctx, "k2", "b", time.Minute)

	c.Delete(ctx, "k1")
	_, ok := c.Get(ctx, "k1")
	assert.False(t, ok)

	c.Clear(ctx)
	_, ok = c.Get(ctx, "k2")
	assert.False(t, ok)
}

func TestRedisCacheHealthCheck(t *testing.T) {
	c, mr := newTestRedis(t)
	require.NoError(t, c.HealthCheck(context.Background()))

	mr.Close()
	assert.Error(t, c.HealthCheck(context.Background()))
}

func TestNewRedisCacheConnectionFailure(t *testing.T) {
	_, err := NewRedisCache(RedisConfig{Addr: "127.0.0.1:1"}, zerolog.Nop())
	assert.Error(t, err)
}
