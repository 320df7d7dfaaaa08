package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vodpipeline/mediaconvert-trigger/internal/utils/response"
)

// Limiter is satisfied by *ratelimit.TokenBucket
type Limiter interface {
	Allow(ctx context.Context, scope string) (bool, error)
	GetRemaining(ctx context.Context, scope string) (int64, error)
	Capacity() int64
}

// RateLimitMiddleware limits requests per authenticated sender. It must run
// after AuthMiddleware.
func RateLimitMiddleware(limiter Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, ok := GetSubjectFromContext(r.Context())
			if !ok {
				response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(
					errors.New("sender not authenticated")))
				return
			}

			allowed, err := limiter.Allow(r.Context(), subject)
			if err != nil {
				response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(
					fmt.Errorf("rate limit check failed: %w", err)))
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(limiter.Capacity(), 10))
			w.Header().Set("X-RateLimit-Reset", "60")
			if remaining, err := limiter.GetRemaining(r.Context(), subject); err != nil {
				slog.Warn("Failed to read remaining rate limit",
					slog.String("subject", subject),
					slog.String("error", err.Error()))
			} else {
				w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			}

			if !allowed {
				response.WriteJSON(w, http.StatusTooManyRequests, response.GeneralError(
					errors.New("rate limit exceeded")))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
