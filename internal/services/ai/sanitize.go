package ai

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

type contextKey string

const (
	userIDContextKey    contextKey = "user_id"
	requestIDContextKey contextKey = "request_id"
)

const (
	// MaxPreviewLength bounds response previews in normal logs.
	MaxPreviewLength = 200
	// maxDebugPreviewLength bounds previews when debug logging is on.
	maxDebugPreviewLength = 10000
)

// WithUserID tags the context so provider logs can attribute calls.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// WithRequestID tags the context with the inbound request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// ExtractUserID returns the tagged user ID, or "" when absent.
func ExtractUserID(ctx context.Context) string {
	switch id := ctx.Value(userIDContextKey).(type) {
	case uuid.UUID:
		return id.String()
	case string:
		return id
	}
	return ""
}

// ExtractRequestID returns the tagged request ID, or "" when absent.
func ExtractRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDContextKey).(string); ok {
		return id
	}
	return ""
}

// SanitizeResponse produces a log-safe preview of model output: valid
// UTF-8, no control characters, bounded length. Model output can echo
// user input, so it is never logged raw even in debug mode.
func SanitizeResponse(response string, fullLog bool) string {
	if response == "" {
		return ""
	}
	maxLen := MaxPreviewLength
	if fullLog {
		maxLen = maxDebugPreviewLength
	}
	return sanitizeForLogging(response, maxLen)
}

func sanitizeForLogging(s string, maxLen int) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			b.WriteRune(r)
		}
	}

	return TruncateString(b.String(), maxLen)
}

// TruncateString caps s at maxLen bytes, appending an ellipsis when cut.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
