// Package request holds helpers shared by middleware and handlers for
// pulling per-request data (authenticated user, client IP) out of an
// *http.Request.
package request

import (
	"context"
	"net/http"
	"strings"

	"github.com/mkammes/taskpilot/internal/models"
)

type contextKey string

const userContextKey contextKey = "user"

// UserContextKey exposes the context key for tests that need to inject
// non-user values.
func UserContextKey() contextKey { return userContextKey }

// WithUser attaches the authenticated user to the context.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the authenticated user, or nil when the
// request carries none.
func UserFromContext(r *http.Request) *models.User {
	u, _ := r.Context().Value(userContextKey).(*models.User)
	return u
}

// ClientIP returns the originating client address, preferring proxy
// headers over the socket address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First hop in the list is the original client.
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}
