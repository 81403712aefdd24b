package backend

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/apicatalog/pkg/observability"
	"github.com/platinummonkey/apicatalog/pkg/storage"
	"github.com/platinummonkey/apicatalog/pkg/storage/cache"
)

func quietDeps(t *testing.T) (Deps, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	return Deps{
		Logger:  observability.NewLogger(observability.ErrorLevel, io.Discard),
		Metrics: metrics,
	}, metrics
}

func TestOpen_Filesystem(t *testing.T) {
	cfg := storage.DefaultConfig()
	cfg.FilesystemRoot = t.TempDir()
	deps, metrics := quietDeps(t)

	b, err := Open(context.Background(), cfg, deps)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Store.Put(context.Background(), &storage.Description{Compiled: []byte(`{}`)}))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StorageOperationsTotal.WithLabelValues("put", "filesystem", "ok")))

	h := observability.NewHealthChecker("test")
	b.RegisterHealth(h)
	status := h.Check(context.Background())
	assert.Equal(t, observability.StatusHealthy, status.Status)
	assert.Contains(t, status.Dependencies, "filesystem")
}

func TestOpen_SQLiteWithCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := storage.DefaultConfig()
	cfg.Type = "sqlite"
	cfg.SQLitePath = filepath.Join(t.TempDir(), "catalog.db")
	cfg.CacheEnabled = true
	cfg.RedisURL = "redis://" + mr.Addr()
	deps, metrics := quietDeps(t)

	b, err := Open(context.Background(), cfg, deps)
	require.NoError(t, err)
	defer b.Close()

	_, isCache := b.Store.(*cache.RedisCache)
	assert.True(t, isCache)

	ctx := context.Background()
	d := &storage.Description{Title: "Pets", Compiled: []byte(`{}`)}
	require.NoError(t, b.Store.Put(ctx, d))
	for i := 0; i < 2; i++ {
		_, err := b.Store.Get(ctx, d.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheHitsTotal.WithLabelValues(cache.Name)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StorageOperationsTotal.WithLabelValues("get", "sqlite", "ok")))

	h := observability.NewHealthChecker("test")
	b.RegisterHealth(h)
	mr.Close()
	status := h.Check(ctx)
	assert.Equal(t, observability.StatusDegraded, status.Status, "the cache is optional")
}

func TestOpen_UnknownType(t *testing.T) {
	cfg := storage.DefaultConfig()
	cfg.Type = "tape"
	deps, _ := quietDeps(t)
	_, err := Open(context.Background(), cfg, deps)
	assert.Error(t, err)
}
