package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/benvon/smart-calendar/internal/middleware"
	"go.uber.org/zap"
)

const maxErrorMessageLength = 200

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// sanitizeErrorMessage keeps client-facing messages short
func sanitizeErrorMessage(message string) string {
	if len(message) > maxErrorMessageLength {
		return message[:maxErrorMessageLength] + "..."
	}
	return message
}

// respondJSONError sends an error JSON response with a sanitized message
func respondJSONError(w http.ResponseWriter, r *http.Request, status int, errorType, message string, logger *zap.Logger) {
	middleware.RespondError(w, r, status, errorType, sanitizeErrorMessage(message), logger)
}
