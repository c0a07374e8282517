package middleware

import (
	"net"
	"net/http"

	"catgraph/pkg/common"
	"catgraph/pkg/ratelimit"

	"go.uber.org/zap"
)

// RateLimit applies a per-client rate limit keyed on the caller's IP.
// Limiter errors fail open: a broken limiter store must not take the API
// down with it.
func RateLimit(limiter ratelimit.RateLimiter, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), clientIP(r))
			if err != nil {
				logger.Warn("Rate limiter failed, allowing request",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				w.Header().Set("Retry-After", "60")
				common.RespondError(w, http.StatusTooManyRequests, common.StandardErrorCodes.TooManyRequests, "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the caller address. The RealIP middleware runs earlier
// in the chain, so RemoteAddr already reflects X-Forwarded-For when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
