package request

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/mkammes/taskpilot/internal/models"
)

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:    "x-forwarded-for single hop",
			headers: map[string]string{"X-Forwarded-For": "1.2.3.4"},
			want:    "1.2.3.4",
		},
		{
			name:    "x-forwarded-for takes first hop",
			headers: map[string]string{"X-Forwarded-For": " 1.2.3.4 , 5.6.7.8 "},
			want:    "1.2.3.4",
		},
		{
			name:    "x-real-ip fallback",
			headers: map[string]string{"X-Real-IP": "9.9.9.9"},
			want:    "9.9.9.9",
		},
		{
			name:    "x-forwarded-for wins over x-real-ip",
			headers: map[string]string{"X-Forwarded-For": "1.2.3.4", "X-Real-IP": "9.9.9.9"},
			want:    "1.2.3.4",
		},
		{
			name:   "remote addr when no proxy headers",
			remote: "10.0.0.1:12345",
			want:   "10.0.0.1:12345",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if tt.remote != "" {
				r.RemoteAddr = tt.remote
			}

			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserFromContext(t *testing.T) {
	t.Parallel()

	t.Run("round trips through WithUser", func(t *testing.T) {
		t.Parallel()

		u := &models.User{ID: uuid.New(), Email: "a@b.c"}
		r := httptest.NewRequest("GET", "/", nil).WithContext(WithUser(context.Background(), u))

		got := UserFromContext(r)
		if got != u {
			t.Fatalf("UserFromContext() = %v, want the stored user", got)
		}
	})

	t.Run("nil when absent", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest("GET", "/", nil)
		if got := UserFromContext(r); got != nil {
			t.Errorf("UserFromContext() = %+v, want nil", got)
		}
	})

	t.Run("nil for wrong value type", func(t *testing.T) {
		t.Parallel()

		ctx := context.WithValue(context.Background(), UserContextKey(), "not a user")
		r := httptest.NewRequest("GET", "/", nil).WithContext(ctx)
		if got := UserFromContext(r); got != nil {
			t.Errorf("UserFromContext() = %+v, want nil", got)
		}
	})
}
