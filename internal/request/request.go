package request

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const subjectContextKey contextKey = "subject"

// SubjectContextKey returns the context key used for the caller's subject. Exposed for tests that inject non-string values.
func SubjectContextKey() contextKey { return subjectContextKey }

// ClientIP extracts the client IP from the request, respecting X-Forwarded-For and X-Real-IP.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}

// BearerToken returns the token of an "Authorization: Bearer" header, or ""
func BearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// WithSubject returns a context carrying the authenticated subject.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectContextKey, subject)
}

// SubjectFromContext returns the subject from the request context, or "" if missing or wrong type.
func SubjectFromContext(r *http.Request) string {
	s, _ := r.Context().Value(subjectContextKey).(string)
	return s
}
