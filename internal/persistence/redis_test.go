package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-hub/internal/config"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r := NewRedis(config.RedisConfig{Addr: mr.Addr()}, zap.NewNop())
	t.Cleanup(r.Close)
	return r, mr
}

func TestLeaseIsExclusive(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t)

	ok, err := r.TryLease(ctx, "sweep", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.TryLease(ctx, "sweep", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.ReleaseLease(ctx, "sweep", "b"))
	assert.True(t, mr.Exists("sweep"), "foreign holder cannot release")

	require.NoError(t, r.ReleaseLease(ctx, "sweep", "a"))
	assert.False(t, mr.Exists("sweep"))

	ok, err = r.TryLease(ctx, "sweep", "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("sweep"))
}

func TestRedisWithoutAddress(t *testing.T) {
	r := NewRedis(config.RedisConfig{}, zap.NewNop())
	assert.Error(t, r.Ping(context.Background()))
	_, err := r.TryLease(context.Background(), "k", "h", time.Second)
	assert.Error(t, err)
	assert.Nil(t, NewDedupCache(r, time.Minute))
}

func TestDedupCache(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t)
	cache := NewDedupCache(r, time.Hour)

	_, ok, err := cache.Lookup(ctx, "prometheus:abc:1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Remember(ctx, "prometheus:abc:1", "ticket-1"))
	require.NoError(t, cache.Remember(ctx, "prometheus:abc:1", "ticket-2"))

	id, ok, err := cache.Lookup(ctx, "prometheus:abc:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ticket-2", id, "latest confirmed mapping wins")

	mr.FastForward(2 * time.Hour)
	_, ok, err = cache.Lookup(ctx, "prometheus:abc:1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNilDedupCacheIsNoop(t *testing.T) {
	var cache *DedupCache
	_, ok, err := cache.Lookup(context.Background(), "k")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, cache.Remember(context.Background(), "k", "v"))
}
