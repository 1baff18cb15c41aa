package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// maxErrorMessageLength caps error text returned to clients so wrapped
// internal errors cannot leak long chains of detail.
const maxErrorMessageLength = 200

type successEnvelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

type errorEnvelope struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// respondJSON writes data wrapped in the standard success envelope.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	envelope := successEnvelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondJSONError writes the standard error envelope. The message is
// truncated before it leaves the process.
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	envelope := errorEnvelope{
		Success:   false,
		Error:     errorType,
		Message:   truncateErrorMessage(message),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func truncateErrorMessage(message string) string {
	if len(message) > maxErrorMessageLength {
		return message[:maxErrorMessageLength] + "..."
	}
	return message
}
