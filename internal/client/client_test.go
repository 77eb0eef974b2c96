package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benvon/smart-calendar/internal/models"
	"github.com/benvon/smart-calendar/internal/session"
	"golang.org/x/oauth2"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_RejectsBadURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "ftp://example.com", "://bad"} {
		if _, err := New(raw); err == nil {
			t.Errorf("New(%q) expected error", raw)
		}
	}
}

func TestListEvents(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/calendar/events" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = io.WriteString(w, `[
			{"id":"1","title":"Dentist","start":"2026-10-16","eventColor":"#DC2626"},
			{"id":"2","title":"","start":"2026-10-20T00:00:00"},
			{"id":"3","title":"Broken","start":"not-a-date"}
		]`)
	}, WithLocation(time.UTC))

	events, err := c.ListEvents(context.Background())
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (unparseable one skipped)", len(events))
	}
	if events[0].ColorTag != models.ColorUrgent {
		t.Errorf("color = %q, want urgent", events[0].ColorTag)
	}
	if events[1].Title != "Untitled Event" {
		t.Errorf("title = %q, want Untitled Event", events[1].Title)
	}
	if got := events[1].StartDate.Format(models.DateLayout); got != "2026-10-20" {
		t.Errorf("start = %s, want 2026-10-20", got)
	}
}

func TestAddEvent(t *testing.T) {
	t.Parallel()

	var got models.EventPayload
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"new-1","title":"Team Meeting","start":"2026-10-17"}`)
	}, WithLocation(time.UTC))

	ev := models.CalendarEvent{
		ID:          "stale-id",
		DisplayID:   "disp-1",
		Title:       "Team Meeting",
		StartDate:   time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC),
		ColorTag:    models.ColorMeeting,
		Description: "Upcoming meeting",
	}
	created, err := c.AddEvent(context.Background(), ev)
	if err != nil {
		t.Fatalf("AddEvent() error = %v", err)
	}
	if got.ID != "" {
		t.Errorf("AddEvent sent id %q, want none", got.ID)
	}
	if !got.IsAllDay || got.Start != "2026-10-17" {
		t.Errorf("payload = %+v", got)
	}
	if created.ID != "new-1" || created.DisplayID != "disp-1" {
		t.Errorf("created = %+v", created)
	}
	if created.Description != "Upcoming meeting" || created.ColorTag != models.ColorMeeting {
		t.Errorf("fields not carried over from request: %+v", created)
	}
}

func TestAddEvent_Duplicate(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"error":"Event already exists","existingEvent":{"id":"old-7","title":"Gym","start":"2026-10-18"}}`)
	}, WithLocation(time.UTC))

	ev := models.CalendarEvent{DisplayID: "d", Title: "Gym", StartDate: time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)}
	existing, err := c.AddEvent(context.Background(), ev)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("error = %v, want ErrDuplicate", err)
	}
	if !errors.Is(err, ErrConflict) {
		t.Error("ErrDuplicate should also match ErrConflict")
	}
	if existing.ID != "old-7" || existing.DisplayID != "d" {
		t.Errorf("existing = %+v", existing)
	}
}

func TestAddEvent_DuplicateWithUnreadableExisting(t *testing.T) {
	t.Parallel()

	bodies := []string{
		`{"error":"Event already exists","existingEvent":{"id":"42","title":"Dentist","start":"not-a-date"}}`,
		`{"error":"Event already exists","existingEvent":{"title":"Dentist","start":"2026-10-18"}}`,
	}
	for _, body := range bodies {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, body)
		}, WithLocation(time.UTC))

		ev := models.CalendarEvent{DisplayID: "d", Title: "Dentist", StartDate: time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)}
		got, err := c.AddEvent(context.Background(), ev)
		if errors.Is(err, ErrDuplicate) {
			t.Errorf("body %s: error = %v, must not be ErrDuplicate", body, err)
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusConflict {
			t.Errorf("body %s: error = %v, want *APIError with status 409", body, err)
		}
		if got.ID != "" || got.Title != "" {
			t.Errorf("body %s: event = %+v, want zero", body, got)
		}
	}
}

func TestAddEvent_InvalidEventNotSent(t *testing.T) {
	t.Parallel()

	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})
	_, err := c.AddEvent(context.Background(), models.CalendarEvent{StartDate: time.Now()})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Error("invalid event should not reach the backend")
	}
}

func TestUpdateEvent_SendsID(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var p models.EventPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		if p.ID != "abc" {
			t.Errorf("id = %q, want abc", p.ID)
		}
		_ = json.NewEncoder(w).Encode(p)
	})
	ev := models.CalendarEvent{ID: "abc", Title: "Yoga", StartDate: time.Now()}
	if _, err := c.UpdateEvent(context.Background(), ev); err != nil {
		t.Fatalf("UpdateEvent() error = %v", err)
	}
	if _, err := c.UpdateEvent(context.Background(), models.CalendarEvent{Title: "x", StartDate: time.Now()}); err == nil {
		t.Error("UpdateEvent without id should fail")
	}
}

func TestDeleteEvent_StatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "ok", status: http.StatusNoContent, want: nil},
		{name: "not found", status: http.StatusNotFound, want: ErrNotFound},
		{name: "unauthorized", status: http.StatusUnauthorized, want: ErrAuthExpired},
		{name: "forbidden", status: http.StatusForbidden, want: ErrAuthExpired},
		{name: "conflict", status: http.StatusConflict, want: ErrConflict},
		{name: "locked", status: http.StatusLocked, want: ErrConflict},
		{name: "rate limited", status: http.StatusTooManyRequests, want: ErrConflict},
		{name: "unavailable", status: http.StatusServiceUnavailable, want: ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodDelete || r.URL.Path != "/api/calendar/events/ev 1" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				w.WriteHeader(tt.status)
			})
			err := c.DeleteEvent(context.Background(), "ev 1")
			if tt.want == nil {
				if err != nil {
					t.Errorf("DeleteEvent() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("DeleteEvent() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDeleteEvent_OtherStatusIsAPIError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"Database error","details":"boom"}`)
	})
	err := c.DeleteEvent(context.Background(), "x")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != 500 || apiErr.Message != "Database error: boom" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if !IsRetryable(err) {
		t.Error("5xx should be retryable")
	}
}

func TestNetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(url, WithTimeout(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Health(context.Background()); !errors.Is(err, ErrNetwork) {
		t.Errorf("Health() error = %v, want ErrNetwork", err)
	}
}

func TestCancelledContextIsNotNetworkError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Health(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrNetwork) {
		t.Error("cancellation should not be reported as a network failure")
	}
}

func TestAuthorization(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	if err := store.Save(context.Background(), &oauth2.Token{AccessToken: "secret", TokenType: "Bearer"}); err != nil {
		t.Fatal(err)
	}
	var expired int32
	var status int32 = http.StatusOK
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); atomic.LoadInt32(&status) == http.StatusOK && got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		w.WriteHeader(int(atomic.LoadInt32(&status)))
	}, WithSessionStore(store), WithAuthExpiredHook(func() { atomic.AddInt32(&expired, 1) }))

	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health() error = %v", err)
	}

	atomic.StoreInt32(&status, http.StatusUnauthorized)
	if err := c.Health(context.Background()); !errors.Is(err, ErrAuthExpired) {
		t.Fatalf("error = %v, want ErrAuthExpired", err)
	}
	if atomic.LoadInt32(&expired) != 1 {
		t.Error("auth expired hook not called")
	}
	tok, err := store.Load(context.Background())
	if err != nil || tok != nil {
		t.Errorf("session not cleared: tok=%v err=%v", tok, err)
	}
}

func TestExpiredTokenNotSent(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	_ = store.Save(context.Background(), &oauth2.Token{
		AccessToken: "old",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(-time.Hour),
	})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("Authorization = %q, want none", got)
		}
	}, WithSessionStore(store))
	if err := c.Health(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req models.GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Prompt != "plan my week" || len(req.History) != 1 {
			t.Errorf("request = %+v", req)
		}
		_, _ = io.WriteString(w, "{\"response\":\"Sure, \",\"done\":false}\n{\"response\":\"here it is\",\"done\":true}\n")
	})
	history := []models.ChatMessage{{Role: models.ChatRoleUser, Content: "hi"}}
	got, err := c.Generate(context.Background(), "plan my week", history)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "Sure, here it is" {
		t.Errorf("Generate() = %q", got)
	}

	if _, err := c.Generate(context.Background(), "   ", nil); err == nil {
		t.Error("empty prompt should fail")
	}
}

func TestParseGenerateBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "empty", body: "  ", want: ""},
		{name: "plain text", body: "Hello there", want: "Hello there"},
		{name: "single object", body: `{"response":"Line one\nLine two"}`, want: "Line one\nLine two"},
		{name: "stream", body: "{\"response\":\"a\"}\n\n{\"response\":\"b\"}\n", want: "ab"},
		{name: "sse style", body: "data: {\"response\":\"x\"}\ndata: {\"response\":\"y\",\"done\":true}\ndata: {\"response\":\"z\"}", want: "xy"},
		{name: "unknown json", body: `{"message":"hi"}`, want: `{"message":"hi"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ParseGenerateBody([]byte(tt.body)); got != tt.want {
				t.Errorf("ParseGenerateBody() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorMessage_TruncatesText(t *testing.T) {
	t.Parallel()

	msg := errorMessage([]byte(strings.Repeat("x", 300)))
	if len(msg) != 203 {
		t.Errorf("len = %d, want 203", len(msg))
	}
}
