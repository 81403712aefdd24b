// Package cache serves stored descriptions from Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/apicatalog/pkg/observability"
	"github.com/platinummonkey/apicatalog/pkg/storage"
)

// Name labels this cache in metrics
const Name = "redis"

const keyPrefix = "apicatalog:description:"

// NewClient creates a Redis client from cfg and checks the connection
func NewClient(ctx context.Context, cfg storage.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}
	if cfg.RedisDB > 0 {
		opts.DB = cfg.RedisDB
	}
	if cfg.RedisMaxRetries > 0 {
		opts.MaxRetries = cfg.RedisMaxRetries
	}
	if cfg.RedisPoolSize > 0 {
		opts.PoolSize = cfg.RedisPoolSize
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// entry is the cached form of a description. Original is not part of the
// Description JSON, so it is carried separately.
type entry struct {
	*storage.Description
	Original []byte `json:"original"`
}

// RedisCache is a read-through cache in front of a Store. Writes go to the
// store first and then drop the cached copy. Redis failures never fail a
// request; they fall back to the store.
type RedisCache struct {
	next    storage.Store
	client  *redis.Client
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *observability.Logger
}

// NewRedisCache wraps next. metrics may be nil.
func NewRedisCache(next storage.Store, client *redis.Client, ttl time.Duration, metrics *observability.Metrics, logger *observability.Logger) *RedisCache {
	return &RedisCache{next: next, client: client, ttl: ttl, metrics: metrics, logger: logger}
}

func key(id string) string { return keyPrefix + id }

func (c *RedisCache) warn(err error, msg string) {
	if c.logger != nil {
		c.logger.WithError(err).Warn(msg)
	}
}

func (c *RedisCache) lookup(ctx context.Context, id string) (*storage.Description, bool) {
	data, err := c.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.warn(err, "redis get failed")
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil || e.Description == nil {
		c.client.Del(ctx, key(id))
		return nil, false
	}
	e.Description.Original = e.Original
	return e.Description, true
}

func (c *RedisCache) fill(ctx context.Context, d *storage.Description) {
	data, err := json.Marshal(entry{Description: d, Original: d.Original})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(d.ID), data, c.ttl).Err(); err != nil {
		c.warn(err, "redis set failed")
	}
}

// Get implements storage.Store.Get
func (c *RedisCache) Get(ctx context.Context, id string) (*storage.Description, error) {
	if err := storage.CheckID(id); err != nil {
		return nil, err
	}
	if d, ok := c.lookup(ctx, id); ok {
		c.metrics.ObserveCache(Name, true)
		return d, nil
	}
	c.metrics.ObserveCache(Name, false)

	d, err := c.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, d)
	return d, nil
}

// Put implements storage.Store.Put
func (c *RedisCache) Put(ctx context.Context, d *storage.Description) error {
	if err := c.next.Put(ctx, d); err != nil {
		return err
	}
	c.invalidate(ctx, d.ID)
	return nil
}

// Delete implements storage.Store.Delete
func (c *RedisCache) Delete(ctx context.Context, id string) error {
	err := c.next.Delete(ctx, id)
	if err == nil || errors.Is(err, storage.ErrNotFound) {
		c.invalidate(ctx, id)
	}
	return err
}

func (c *RedisCache) invalidate(ctx context.Context, id string) {
	if err := c.client.Del(ctx, key(id)).Err(); err != nil {
		c.warn(err, "redis delete failed")
	}
}

// List implements storage.Store.List. Listings are not cached.
func (c *RedisCache) List(ctx context.Context, limit, offset int) ([]*storage.Description, error) {
	return c.next.List(ctx, limit, offset)
}

// Ping implements storage.Store.Ping. Only the store decides; see PingCache.
func (c *RedisCache) Ping(ctx context.Context) error { return c.next.Ping(ctx) }

// PingCache checks the Redis connection
func (c *RedisCache) PingCache(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close implements storage.Store.Close
func (c *RedisCache) Close() error {
	return errors.Join(c.client.Close(), c.next.Close())
}
