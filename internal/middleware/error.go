package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	logpkg "github.com/mkammes/taskpilot/internal/logger"
	"go.uber.org/zap"
)

// ErrorResponse is the body written when a handler panics.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Path      string `json:"path"`
}

// ErrorHandler recovers from handler panics, logs them server-side,
// and returns a generic 500 so panic details never reach the client.
func ErrorHandler(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic_recovered",
						zap.Any("error", rec),
						zap.String("path", logpkg.SanitizePath(r.URL.Path)),
						zap.String("method", r.Method),
					)
					writePanicResponse(w, r, logger)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func writePanicResponse(w http.ResponseWriter, r *http.Request, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)

	response := ErrorResponse{
		Success:   false,
		Error:     "Internal Server Error",
		Message:   "An unexpected error occurred",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      r.URL.Path,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("failed_to_encode_error_response",
			zap.Error(err),
			zap.String("path", logpkg.SanitizePath(r.URL.Path)),
		)
	}
}
