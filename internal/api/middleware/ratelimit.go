package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RateLimit defines limits for an endpoint pattern.
type RateLimit struct {
	Requests int
	Window   time.Duration
	KeyFunc  func(r *http.Request) string
}

// RateLimiter implements fixed-window rate limiting on redis counters.
// With no redis client it is a pass-through.
type RateLimiter struct {
	client *redis.Client
	logger zerolog.Logger
	limits map[string]RateLimit
}

// NewRateLimiter creates a new rate limiter with per-endpoint budgets.
func NewRateLimiter(client *redis.Client, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		logger: logger,
		limits: map[string]RateLimit{
			"POST /v1/register": {10, time.Hour, ipKey},
			"POST /v1/send":     {60, time.Minute, ipKey},
			"GET /v1/messages":  {120, time.Minute, ipKey},
			"GET /v1/agents/":   {100, time.Minute, ipKey},
			"GET /v1/channels":  {60, time.Minute, ipKey},
		},
	}
}

// Middleware enforces the configured limits.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.client == nil {
			next.ServeHTTP(w, r)
			return
		}

		pattern, limit, ok := rl.match(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		// Scope the counter to the route so budgets don't collide.
		key := limit.KeyFunc(r) + ":" + pattern

		pipe := rl.client.Pipeline()
		incr := pipe.Incr(r.Context(), key)
		pipe.Expire(r.Context(), key, limit.Window)
		if _, err := pipe.Exec(r.Context()); err != nil {
			// Fail open: a rate-limit outage must not take the relay down.
			rl.logger.Warn().Err(err).Msg("rate limit check failed")
			next.ServeHTTP(w, r)
			return
		}

		count := incr.Val()
		remaining := int64(limit.Requests) - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Requests))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(limit.Requests) {
			w.Header().Set("Retry-After", strconv.Itoa(int(limit.Window.Seconds())))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// match finds the limit for a request by method + path prefix.
func (rl *RateLimiter) match(r *http.Request) (string, RateLimit, bool) {
	pattern := r.Method + " " + r.URL.Path
	if limit, ok := rl.limits[pattern]; ok {
		return pattern, limit, true
	}
	for p, limit := range rl.limits {
		if strings.HasSuffix(p, "/") && strings.HasPrefix(pattern, p) {
			return p, limit, true
		}
	}
	return "", RateLimit{}, false
}

// ipKey returns a rate limit key based on client IP. Every budget keys
// on the IP: the agent query parameter is not authenticated until the
// handler runs, so a key built from it could be rotated at will.
func ipKey(r *http.Request) string {
	return "ratelimit:ip:" + realIP(r)
}

// realIP trusts chi's RealIP middleware, which rewrites RemoteAddr.
func realIP(r *http.Request) string {
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	return host
}
