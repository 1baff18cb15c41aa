package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestErrorHandler_PassThrough(t *testing.T) {
	t.Parallel()

	handler := ErrorHandler(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestErrorHandler_PanicRecovery(t *testing.T) {
	t.Parallel()

	handler := ErrorHandler(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}

	var body ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Success {
		t.Error("expected success false")
	}
	if body.Error != "Internal Server Error" {
		t.Errorf("expected error Internal Server Error, got %q", body.Error)
	}
	if body.Message != "An unexpected error occurred" {
		t.Errorf("panic detail should not leak, got %q", body.Message)
	}
	if body.Path != "/test" {
		t.Errorf("expected path /test, got %q", body.Path)
	}
	if body.Timestamp == "" {
		t.Error("expected timestamp set")
	}
}

func TestErrorHandler_RuntimePanic(t *testing.T) {
	t.Parallel()

	handler := ErrorHandler(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var m map[string]string
		m["key"] = "value" // nil map write
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
}
