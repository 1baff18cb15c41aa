// Package logger builds the shared zap logger and provides helpers
// for keeping request-derived values safe to log. Paths, IPs, and
// error text all pass through a client at some point, so control
// characters and unbounded lengths are stripped before they reach the
// log stream.
package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxPathLength caps URL paths in log fields.
	MaxPathLength = 500
	// MaxErrorMessageLength caps error text in log fields.
	MaxErrorMessageLength = 1000
	// MaxGeneralStringLength caps other request-derived strings.
	MaxGeneralStringLength = 2000
)

// SanitizePath prepares a URL path for logging.
func SanitizePath(path string) string {
	return SanitizeString(path, MaxPathLength)
}

// SanitizeError prepares an error's message for logging.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error(), MaxErrorMessageLength)
}

// SanitizeString strips control characters, repairs invalid UTF-8,
// and truncates to maxLength. A non-positive maxLength falls back to
// MaxGeneralStringLength.
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxGeneralStringLength
	}

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
	s = b.String()

	if len(s) > maxLength {
		s = s[:maxLength] + "..."
	}
	return s
}
