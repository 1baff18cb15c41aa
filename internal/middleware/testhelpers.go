package middleware

import (
	"context"

	"github.com/mkammes/taskpilot/internal/models"
)

// SetUserInContext injects a user the way Auth does. Exported so
// handler tests can build authenticated requests without a token.
func SetUserInContext(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
