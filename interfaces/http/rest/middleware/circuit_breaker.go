package middleware

import (
	"net/http"
	"time"

	"catgraph/pkg/common"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// CircuitBreakerConfig holds configuration for the circuit breaker
type CircuitBreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// FailureThreshold is the 5xx ratio at which the breaker trips once
	// MinRequests have been observed.
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultCircuitBreakerConfig returns a default configuration for the
// circuit breaker
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// CircuitBreaker sheds load once a route group keeps failing. A request is
// counted as a failure when it ends in a 5xx; 4xx responses are the
// caller's problem and leave the breaker alone.
func CircuitBreaker(config CircuitBreakerConfig, logger *zap.Logger) func(next http.Handler) http.Handler {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, err := cb.Execute(func() (any, error) {
				ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
				next.ServeHTTP(ww, r)

				if ww.Status() >= http.StatusInternalServerError {
					return nil, http.ErrAbortHandler
				}
				return nil, nil
			})
			if err == nil {
				return
			}

			switch err {
			case gobreaker.ErrOpenState, gobreaker.ErrTooManyRequests:
				logger.Warn("Circuit breaker rejected request",
					zap.String("breaker", config.Name),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				)
				common.RespondError(w, http.StatusServiceUnavailable, common.StandardErrorCodes.ServiceUnavailable, "Service temporarily unavailable")
			case http.ErrAbortHandler:
				// The handler already wrote its 5xx; the breaker only
				// needed the failure count.
			default:
				common.RespondError(w, http.StatusInternalServerError, common.StandardErrorCodes.InternalError, "Service error")
			}
		})
	}
}
