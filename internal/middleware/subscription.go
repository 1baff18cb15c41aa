package middleware

import (
	"context"
	"log"
	"net/http"

	"github.com/google/uuid"
)

// ProChecker reports whether a user is on an active Pro-tier plan.
// subscription.Service implements it.
type ProChecker interface {
	IsPro(ctx context.Context, userID uuid.UUID) (bool, error)
}

// RequirePro rejects requests from non-Pro users with 403. It must run
// after Auth so the user is already on the context.
func RequirePro(subs ProChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r)
			if user == nil {
				respondError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			pro, err := subs.IsPro(r.Context(), user.ID)
			if err != nil {
				log.Printf("Failed to resolve subscription plan: %v", err)
				respondError(w, http.StatusInternalServerError, "Failed to resolve subscription")
				return
			}
			if !pro {
				respondError(w, http.StatusForbidden, "This feature requires a Pro subscription")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
