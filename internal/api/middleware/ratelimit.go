package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/morriswong/datachat/internal/api/response"
	"github.com/morriswong/datachat/internal/repository/redis"
)

// RateLimitMiddleware handles rate limiting
type RateLimitMiddleware struct {
	rateLimiter *redis.RateLimiter
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(rateLimiter *redis.RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{rateLimiter: rateLimiter}
}

// Limit applies rate limiting keyed by session ID
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := GetSession(r.Context())
		if !ok {
			response.InternalError(w, "session not resolved")
			return
		}

		allowed, remaining, resetTime, err := m.rateLimiter.Allow(r.Context(), sess.ID.String())
		if err != nil {
			// If the rate limiter fails, allow the request
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", resetTime.Format(time.RFC3339))

		if !allowed {
			response.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}
