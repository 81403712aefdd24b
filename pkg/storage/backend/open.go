// Package backend assembles the storage stack described by a storage.Config.
package backend

import (
	"context"
	"fmt"

	"github.com/platinummonkey/apicatalog/pkg/observability"
	"github.com/platinummonkey/apicatalog/pkg/storage"
	"github.com/platinummonkey/apicatalog/pkg/storage/blob"
	"github.com/platinummonkey/apicatalog/pkg/storage/cache"
	"github.com/platinummonkey/apicatalog/pkg/storage/sqlstore"
)

// Deps are the shared services the stack reports to. Any field may be nil.
type Deps struct {
	Logger  *observability.Logger
	Metrics *observability.Metrics
	OTel    *observability.OTelMetrics
}

type check struct {
	name     string
	pinger   observability.Pinger
	required bool
}

// Backend is an opened storage stack
type Backend struct {
	Store  storage.Store
	Name   string
	checks []check
}

// Open builds the store for cfg.Type, moves originals to S3 when a bucket is
// configured, instruments the result and puts the Redis cache in front when
// caching is enabled
func Open(ctx context.Context, cfg storage.Config, deps Deps) (*Backend, error) {
	logger := deps.Logger
	if logger == nil {
		logger = observability.FromContext(ctx)
	}

	base, err := openBase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	b := &Backend{Name: cfg.Type}
	b.checks = append(b.checks, check{name: cfg.Type, pinger: base, required: true})

	var store storage.Store = base
	if cfg.S3Bucket != "" {
		blobs, err := blob.NewS3Store(ctx, cfg)
		if err != nil {
			base.Close()
			return nil, err
		}
		store = storage.NewWithBlobs(store, blobs)
		b.checks = append(b.checks, check{name: "s3", pinger: blobs, required: true})
		logger.WithField("bucket", cfg.S3Bucket).Info("Original descriptions stored in S3")
	}

	store = storage.Instrument(store, cfg.Type, deps.Metrics, deps.OTel)

	if cfg.CacheEnabled && cfg.RedisURL != "" {
		client, err := cache.NewClient(ctx, cfg)
		if err != nil {
			store.Close()
			return nil, err
		}
		c := cache.NewRedisCache(store, client, cfg.CacheTTL, deps.Metrics, logger)
		store = c
		b.checks = append(b.checks, check{
			name:   "redis",
			pinger: observability.PingFunc(c.PingCache),
		})
		logger.WithField("ttl", cfg.CacheTTL.String()).Info("Redis description cache enabled")
	}

	b.Store = store
	logger.WithField("type", cfg.Type).Info("Storage initialized")
	return b, nil
}

func openBase(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	switch cfg.Type {
	case "filesystem":
		return storage.NewFileSystemStore(cfg.FilesystemRoot)
	case "memory":
		return storage.NewMemoryStore(), nil
	case "postgres":
		return sqlstore.Open(ctx, sqlstore.Postgres, cfg.PostgresURL, sqlOptions(cfg))
	case "sqlite":
		return sqlstore.Open(ctx, sqlstore.SQLite, cfg.SQLitePath, sqlOptions(cfg))
	default:
		return nil, fmt.Errorf("invalid storage type: %s", cfg.Type)
	}
}

func sqlOptions(cfg storage.Config) sqlstore.Options {
	opts := sqlstore.DefaultOptions()
	opts.ReplicaURLs = sqlstore.ParseReplicaURLs(cfg.PostgresReplicaURLs)
	if cfg.PostgresMaxConns > 0 {
		opts.MaxConns = cfg.PostgresMaxConns
	}
	if cfg.PostgresMinConns > 0 {
		opts.MinConns = cfg.PostgresMinConns
	}
	if cfg.PostgresTimeout > 0 {
		opts.Timeout = cfg.PostgresTimeout
	}
	return opts
}

// RegisterHealth adds every backend of the stack to h. The cache is optional.
func (b *Backend) RegisterHealth(h *observability.HealthChecker) {
	for _, c := range b.checks {
		h.Register(c.name, c.pinger, c.required)
	}
}

// Close releases every connection of the stack
func (b *Backend) Close() error {
	return b.Store.Close()
}
