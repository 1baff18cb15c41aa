package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// APIError carries the provider's error details. IsPermanent
// distinguishes quota exhaustion (won't recover until billing changes)
// from transient rate limiting.
type APIError struct {
	Message     string
	Type        string
	Code        string
	StatusCode  int
	RetryAfter  *time.Duration
	IsPermanent bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

// IsRateLimitError reports whether err is a transient 429.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 && !apiErr.IsPermanent
	}

	// SDK errors that never made it into an APIError
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests")
}

// IsQuotaError reports whether err means the account's quota is spent.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsPermanent || apiErr.Code == "insufficient_quota"
	}

	msg := err.Error()
	return strings.Contains(msg, "insufficient_quota") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "billing")
}

// ExtractAPIError pulls structured details out of a provider error.
// The OpenAI SDK embeds the response JSON in the error string, so a
// best-effort parse recovers message, type, and code. Returns nil for
// errors that are not 429s.
func ExtractAPIError(err error) *APIError {
	if err == nil {
		return nil
	}

	msg := err.Error()
	if !strings.Contains(msg, "429") {
		return nil
	}

	apiErr := &APIError{
		StatusCode: 429,
		Message:    msg,
		Type:       "rate_limit_error",
	}

	if start := strings.Index(msg, "{"); start != -1 {
		raw := msg[start:]
		if end := strings.LastIndex(raw, "}"); end != -1 {
			var detail struct {
				Message string `json:"message"`
				Type    string `json:"type"`
				Code    string `json:"code"`
			}
			if json.Unmarshal([]byte(raw[:end+1]), &detail) == nil {
				apiErr.Message = detail.Message
				apiErr.Type = detail.Type
				apiErr.Code = detail.Code
				apiErr.IsPermanent = detail.Code == "insufficient_quota"
			}
		}
	}

	retryAfter := 60 * time.Second
	if apiErr.IsPermanent {
		retryAfter = time.Hour
	}
	apiErr.RetryAfter = &retryAfter

	return apiErr
}

// GetRetryDelay picks a backoff for re-enqueueing a failed AI job.
// Quota errors back off in hours, rate limits in minutes, everything
// else in seconds, each doubling per attempt up to a cap.
func GetRetryDelay(err error, attempt int) time.Duration {
	// Clamp the shift so the doubling can't overflow.
	shift := attempt
	if shift < 0 {
		shift = 0
	}
	if shift > 10 {
		shift = 10
	}
	factor := time.Duration(1 << uint(shift))

	switch {
	case IsQuotaError(err):
		delay := time.Hour * factor
		if delay > 24*time.Hour {
			delay = 24 * time.Hour
		}
		return delay

	case IsRateLimitError(err):
		delay := 60 * time.Second * factor
		if delay > 15*time.Minute {
			delay = 15 * time.Minute
		}
		if apiErr := ExtractAPIError(err); apiErr != nil && apiErr.RetryAfter != nil && *apiErr.RetryAfter > delay {
			delay = *apiErr.RetryAfter
		}
		return delay

	default:
		delay := 5 * time.Second * factor
		if delay > 5*time.Minute {
			delay = 5 * time.Minute
		}
		return delay
	}
}
