package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/benvon/smart-calendar/internal/request"
	"go.uber.org/zap"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth(t *testing.T) {
	t.Parallel()

	verify := func(_ context.Context, token string) (string, error) {
		if token == "good" {
			return "user-1", nil
		}
		return "", errors.New("bad token")
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", wantStatus: http.StatusUnauthorized},
		{name: "rejected token", header: "Bearer bad", wantStatus: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer good", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var subject string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				subject = request.SubjectFromContext(r)
			})
			req := httptest.NewRequest("GET", "/api/calendar/events", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			Auth(verify, zap.NewNop())(next).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus == http.StatusOK && subject != "user-1" {
				t.Errorf("Expected subject user-1 in context, got %q", subject)
			}
		})
	}
}

func TestContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		method      string
		contentType string
		wantStatus  int
	}{
		{name: "GET without content type", method: "GET", wantStatus: http.StatusOK},
		{name: "DELETE without content type", method: "DELETE", wantStatus: http.StatusOK},
		{name: "POST missing content type", method: "POST", wantStatus: http.StatusBadRequest},
		{name: "POST text", method: "POST", contentType: "text/plain", wantStatus: http.StatusUnsupportedMediaType},
		{name: "POST json with charset", method: "POST", contentType: "application/json; charset=utf-8", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(tt.method, "/", strings.NewReader("{}"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			ContentType(zap.NewNop())(okHandler()).ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestMaxRequestSize(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("POST", "/", strings.NewReader(strings.Repeat("x", 64)))
	w := httptest.NewRecorder()
	MaxRequestSize(16, zap.NewNop())(okHandler()).ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status 413, got %d", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	mw, err := RateLimit("2-M", zap.NewNop())
	if err != nil {
		t.Fatalf("RateLimit() error = %v", err)
	}
	h := mw(okHandler())

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		statuses = append(statuses, w.Code)
	}
	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	if !reflect.DeepEqual(statuses, want) {
		t.Errorf("statuses = %v, want %v", statuses, want)
	}

	if _, err := RateLimit("nonsense", zap.NewNop()); err == nil {
		t.Error("Expected error for malformed rate")
	}
}

func TestCORS_Preflight(t *testing.T) {
	t.Parallel()

	h := CORS([]string{"http://app.example"})(okHandler())
	req := httptest.NewRequest(http.MethodOptions, "/api/calendar/events", nil)
	req.Header.Set("Origin", "http://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://app.example" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestParseOrigins(t *testing.T) {
	t.Parallel()

	got := ParseOrigins(" http://a , ,http://b,http://a")
	want := []string{"http://a", "http://b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseOrigins() = %v, want %v", got, want)
	}
}
