// Package middleware provides HTTP middleware for the webdesk backend.
//
// Middleware stack includes:
//   - CORS: Cross-origin resource sharing with configurable origins
//   - RateLimit: Per-IP token bucket rate limiting
//
// Rate Limiting:
//   - Per-IP tracking; limiters idle for five minutes are dropped
//   - Token bucket algorithm
//   - 429 responses carry a Retry-After header and a retryAfter field
//   - Global rate limiting option
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.CORSConfigFor(cfg.CORS.Origins)))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
