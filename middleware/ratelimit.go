package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/upb/physics-tutor/services/ratelimit"
	"github.com/upb/physics-tutor/utils"
	"go.uber.org/zap"
)

// RateLimiter decides whether a client may proceed
type RateLimiter interface {
	CheckLimit(key string) ratelimit.RateLimitResult
}

// RateLimitMiddleware throttles requests per client address
type RateLimitMiddleware struct {
	limiter RateLimiter
	logger  *zap.Logger
}

// NewRateLimitMiddleware creates a new RateLimitMiddleware
func NewRateLimitMiddleware(limiter RateLimiter, logger *zap.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		logger:  logger,
	}
}

// Limit rejects requests over the client's budget with 429 and a Retry-After header
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		result := m.limiter.CheckLimit(key)
		if !result.Allowed {
			seconds := int(math.Ceil(result.RetryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			m.logger.Warn("rate limit exceeded",
				zap.String("request_id", GetRequestIDFromContext(r.Context())),
				zap.String("client", key),
				zap.Duration("retry_after", result.RetryAfter))

			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			_ = utils.WriteTooManyRequests(w, "Too many requests, slow down", map[string]interface{}{
				"retry_after_seconds": seconds,
			})
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		next.ServeHTTP(w, r)
	})
}

// clientKey strips the port so one client maps to one bucket
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
