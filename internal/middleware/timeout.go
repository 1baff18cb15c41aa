package middleware

import (
	"context"
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds how long a single request may run.
const DefaultRequestTimeout = 30 * time.Second

// Timeout cancels the request context and writes a timeout response
// when a handler exceeds the deadline.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		handler := http.TimeoutHandler(next, timeout, "Request Timeout")
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			handler.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
