// Package middleware rate limits the expensive API routes.
//
// Compiling a description can take far longer than any other request, so
// POST /descriptions and POST /compile are guarded by a per-client limiter.
// Clients are keyed by X-Forwarded-For, X-Real-IP or the remote address.
//
// MemoryLimiter is a token bucket per client, local to one process:
//
//	limiter := middleware.NewMemoryLimiter(middleware.DefaultRateLimitConfig())
//	router.Handle("/compile", middleware.RateLimit(limiter, logger, metrics)(handler))
//
// RedisLimiter counts requests in a fixed window shared by every instance
// behind the same Redis. Redis failures fail open.
package middleware
