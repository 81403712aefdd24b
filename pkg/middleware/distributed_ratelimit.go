package middleware

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisLimiter counts requests per key in a fixed window stored in Redis,
// so the limit is shared across instances. Bursts are not supported.
type RedisLimiter struct {
	redis  *redis.Client
	config RateLimitConfig
	prefix string
}

// NewRedisLimiter creates a new Redis-backed rate limiter
func NewRedisLimiter(client *redis.Client, config RateLimitConfig, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "apicatalog:ratelimit"
	}
	return &RedisLimiter{redis: client, config: config, prefix: prefix}
}

// Name identifies the limiter in metrics
func (rl *RedisLimiter) Name() string { return "redis" }

// Allow increments key's counter for the current window
func (rl *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	pipe := rl.redis.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{Allowed: true}, fmt.Errorf("redis error: %w", err)
	}

	// the window starts at the first request of a key
	reset := ttl.Val()
	if reset < 0 {
		reset = rl.config.WindowDuration
		if err := rl.redis.PExpire(ctx, redisKey, reset).Err(); err != nil {
			return Decision{Allowed: true}, fmt.Errorf("redis error: %w", err)
		}
	}

	count := incr.Val()
	remaining := int64(rl.config.RequestsPerWindow) - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= int64(rl.config.RequestsPerWindow),
		Limit:     rl.config.RequestsPerWindow,
		Remaining: int(remaining),
		Reset:     reset,
	}, nil
}

// Reset clears the count for a key
func (rl *RedisLimiter) Reset(ctx context.Context, key string) error {
	return rl.redis.Del(ctx, fmt.Sprintf("%s:%s", rl.prefix, key)).Err()
}
