package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/mkammes/taskpilot/internal/models"
)

func TestUserFromContext(t *testing.T) {
	t.Parallel()

	t.Run("user present", func(t *testing.T) {
		t.Parallel()

		want := &models.User{ID: uuid.New(), Email: "test@example.com"}
		req := httptest.NewRequest("GET", "/", nil)
		req = req.WithContext(SetUserInContext(req.Context(), want))

		got := UserFromContext(req)
		if got == nil {
			t.Fatal("expected user in context")
		}
		if got.ID != want.ID || got.Email != want.Email {
			t.Errorf("UserFromContext = %+v, want %+v", got, want)
		}
	})

	t.Run("no user", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("GET", "/", nil)
		if got := UserFromContext(req); got != nil {
			t.Errorf("expected nil user, got %+v", got)
		}
	})
}
