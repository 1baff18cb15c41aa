package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/mkammes/taskpilot/internal/models"
)

type mockProChecker struct {
	pro bool
	err error
}

func (m *mockProChecker) IsPro(_ context.Context, _ uuid.UUID) (bool, error) {
	return m.pro, m.err
}

func TestRequirePro(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		user       *models.User
		checker    *mockProChecker
		wantStatus int
	}{
		{
			name:       "pro user passes",
			user:       &models.User{ID: uuid.New()},
			checker:    &mockProChecker{pro: true},
			wantStatus: http.StatusOK,
		},
		{
			name:       "free user is rejected",
			user:       &models.User{ID: uuid.New()},
			checker:    &mockProChecker{pro: false},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "missing user is unauthorized",
			user:       nil,
			checker:    &mockProChecker{pro: true},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "plan lookup failure is a server error",
			user:       &models.User{ID: uuid.New()},
			checker:    &mockProChecker{err: errors.New("database down")},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := RequirePro(tt.checker)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/insights", nil)
			if tt.user != nil {
				req = req.WithContext(SetUserInContext(req.Context(), tt.user))
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, expected %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
