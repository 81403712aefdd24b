package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/apicatalog/pkg/observability"
	"github.com/platinummonkey/apicatalog/pkg/storage"
)

func setup(t *testing.T) (*RedisCache, *storage.MemoryStore, *miniredis.Miniredis, *observability.Metrics) {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := storage.DefaultConfig()
	cfg.RedisURL = "redis://" + mr.Addr()
	client, err := NewClient(context.Background(), cfg)
	require.NoError(t, err)

	store := storage.NewMemoryStore()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	c := NewRedisCache(store, client, time.Hour, metrics, nil)
	t.Cleanup(func() { c.Close() })
	return c, store, mr, metrics
}

func TestNewClient_BadURL(t *testing.T) {
	cfg := storage.DefaultConfig()
	cfg.RedisURL = "memcached://nope"
	_, err := NewClient(context.Background(), cfg)
	assert.Error(t, err)
}

func TestRedisCache_ReadThrough(t *testing.T) {
	ctx := context.Background()
	c, _, mr, metrics := setup(t)

	d := &storage.Description{Title: "Pets", Original: []byte("openapi: 3.1.0"), Compiled: []byte(`{"Service":[]}`)}
	require.NoError(t, c.Put(ctx, d))
	assert.False(t, mr.Exists(key(d.ID)), "put does not fill the cache")

	got, err := c.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pets", got.Title)
	assert.True(t, mr.Exists(key(d.ID)))
	assert.Equal(t, time.Hour, mr.TTL(key(d.ID)))

	got, err = c.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.Original, got.Original)
	assert.JSONEq(t, `{"Service":[]}`, string(got.Compiled))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheHitsTotal.WithLabelValues(Name)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheMissesTotal.WithLabelValues(Name)))
}

func TestRedisCache_WritesInvalidate(t *testing.T) {
	ctx := context.Background()
	c, _, mr, _ := setup(t)

	d := &storage.Description{Title: "Pets", Compiled: []byte(`{}`)}
	require.NoError(t, c.Put(ctx, d))
	_, err := c.Get(ctx, d.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists(key(d.ID)))

	d.Title = "Pets v2"
	require.NoError(t, c.Put(ctx, d))
	assert.False(t, mr.Exists(key(d.ID)))

	got, err := c.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pets v2", got.Title)

	require.NoError(t, c.Delete(ctx, d.ID))
	assert.False(t, mr.Exists(key(d.ID)))
	_, err = c.Get(ctx, d.ID)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestRedisCache_CorruptEntryIsDropped(t *testing.T) {
	ctx := context.Background()
	c, store, mr, _ := setup(t)

	d := &storage.Description{Title: "Pets", Compiled: []byte(`{}`)}
	require.NoError(t, store.Put(ctx, d))
	require.NoError(t, mr.Set(key(d.ID), "{not json"))

	got, err := c.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pets", got.Title)
}

func TestRedisCache_RedisDownFallsBack(t *testing.T) {
	ctx := context.Background()
	c, store, mr, _ := setup(t)

	d := &storage.Description{Title: "Pets", Compiled: []byte(`{}`)}
	require.NoError(t, store.Put(ctx, d))
	mr.Close()

	got, err := c.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pets", got.Title)
	assert.Error(t, c.PingCache(ctx))
	assert.NoError(t, c.Ping(ctx))
}

func TestRedisCache_RejectsBadID(t *testing.T) {
	c, _, _, _ := setup(t)
	_, err := c.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, storage.ErrInvalidID))
}
