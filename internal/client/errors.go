package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNotFound means the backend has no such event. Callers finalizing a
	// delete treat it as success.
	ErrNotFound = errors.New("not found")
	// ErrAuthExpired means the session token was rejected
	ErrAuthExpired = errors.New("authentication expired")
	// ErrConflict means the backend is busy or a concurrent write is in flight
	ErrConflict = errors.New("conflict")
	// ErrDuplicate means add-event found an event with the same title and date.
	// It wraps ErrConflict.
	ErrDuplicate = fmt.Errorf("duplicate event: %w", ErrConflict)
	// ErrNetwork means the request never produced an HTTP response
	ErrNetwork = errors.New("network failure")
)

// APIError is any other non-2xx response
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether err is worth retrying after a delay
func IsRetryable(err error) bool {
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrNetwork) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	return false
}

// errorBody is the JSON error shape returned by the backend
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details"`
	Message string `json:"message"`
}

// statusError maps a non-2xx status to the client error taxonomy
func statusError(status int, body []byte) error {
	switch status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuthExpired
	case http.StatusConflict, http.StatusLocked, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return fmt.Errorf("%w (status %d): %s", ErrConflict, status, errorMessage(body))
	default:
		return &APIError{StatusCode: status, Message: errorMessage(body)}
	}
}

func errorMessage(body []byte) string {
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		msg := eb.Error
		if msg == "" {
			msg = eb.Message
		}
		if eb.Details != "" {
			msg = strings.TrimSpace(msg + ": " + eb.Details)
		}
		if msg != "" {
			return msg
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if s == "" {
		return http.StatusText(http.StatusInternalServerError)
	}
	return s
}
