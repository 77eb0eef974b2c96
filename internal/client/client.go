// Package client talks to the calendar backend REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/benvon/smart-calendar/internal/logger"
	"github.com/benvon/smart-calendar/internal/models"
	"github.com/benvon/smart-calendar/internal/session"
	"github.com/benvon/smart-calendar/internal/telemetry"
	"github.com/benvon/smart-calendar/internal/validation"
	"go.uber.org/zap"
)

const (
	pathEvents   = "/api/calendar/events"
	pathAddEvent = "/api/calendar/add-event"
	pathGenerate = "/api/generate"
	pathHealth   = "/api/health"

	maxBodyBytes = 4 << 20
)

// Client is a calendar backend client. It is safe for concurrent use.
type Client struct {
	baseURL       *url.URL
	httpClient    *http.Client
	store         session.Store
	logger        *zap.Logger
	location      *time.Location
	onAuthExpired func()
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithSessionStore sets where the bearer token is read from
func WithSessionStore(store session.Store) Option {
	return func(c *Client) {
		c.store = store
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger.OrNop(l)
	}
}

// WithLocation sets the time zone event dates are interpreted in
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithAuthExpiredHook is called after a 401/403 response cleared the session
func WithAuthExpiredHook(fn func()) Option {
	return func(c *Client) {
		c.onAuthExpired = fn
	}
}

// New creates a Client for the backend at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		store:      session.NewMemoryStore(),
		logger:     zap.NewNop(),
		location:   time.Local,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListEvents fetches every event of the authenticated user
func (c *Client) ListEvents(ctx context.Context) ([]models.CalendarEvent, error) {
	var payloads []models.EventPayload
	if err := c.do(ctx, http.MethodGet, pathEvents, nil, &payloads, "calendar.list_events"); err != nil {
		return nil, err
	}
	events := make([]models.CalendarEvent, 0, len(payloads))
	for _, p := range payloads {
		ev, err := models.FromPayload(p, c.location)
		if err != nil {
			c.logger.Warn("event_payload_skipped",
				zap.String("event_id", p.ID),
				zap.String("error", logger.SanitizeError(err)))
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// AddEvent creates a new backend event. The id is never sent, so the backend
// always creates. A duplicate title and date returns the existing event
// together with ErrDuplicate; when the existing event cannot be read the
// error is an *APIError instead.
func (c *Client) AddEvent(ctx context.Context, ev models.CalendarEvent) (models.CalendarEvent, error) {
	return c.postEvent(ctx, ev, false, "calendar.add_event")
}

// UpdateEvent upserts an event by its backend id
func (c *Client) UpdateEvent(ctx context.Context, ev models.CalendarEvent) (models.CalendarEvent, error) {
	if !ev.Persisted() {
		return models.CalendarEvent{}, errors.New("cannot update an event without a backend id")
	}
	return c.postEvent(ctx, ev, true, "calendar.update_event")
}

func (c *Client) postEvent(ctx context.Context, ev models.CalendarEvent, includeID bool, op string) (models.CalendarEvent, error) {
	if err := validation.ValidateEvent(&ev); err != nil {
		return models.CalendarEvent{}, fmt.Errorf("invalid event: %w", err)
	}

	var created models.EventPayload
	err := c.do(ctx, http.MethodPost, pathAddEvent, ev.ToPayload(includeID), &created, op)
	if err != nil {
		var dup *duplicateError
		if errors.As(err, &dup) {
			existing, perr := models.FromPayload(dup.existing, c.location)
			if perr == nil && existing.ID == "" {
				perr = errors.New("missing id")
			}
			if perr != nil {
				return models.CalendarEvent{}, &APIError{
					StatusCode: http.StatusConflict,
					Message:    "duplicate event with unreadable existing event: " + perr.Error(),
				}
			}
			existing.DisplayID = ev.DisplayID
			return existing, ErrDuplicate
		}
		return models.CalendarEvent{}, err
	}

	out, err := models.FromPayload(created, c.location)
	if err != nil {
		return models.CalendarEvent{}, fmt.Errorf("invalid event in response: %w", err)
	}
	out.DisplayID = ev.DisplayID
	// Older backends echo only id, title and start
	if out.Description == "" {
		out.Description = ev.Description
	}
	if out.PlanTitle == "" {
		out.PlanTitle = ev.PlanTitle
		out.IsPlanEvent = ev.IsPlanEvent
	}
	if created.EventColor == "" {
		out.ColorTag = ev.ColorTag
	}
	return out, nil
}

// DeleteEvent permanently deletes an event. A missing event yields ErrNotFound.
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("event id is required")
	}
	return c.do(ctx, http.MethodDelete, pathEvents+"/"+url.PathEscape(id), nil, nil, "calendar.delete_event")
}

// Health returns nil when the backend answers its liveness probe
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, pathHealth, nil, nil, "calendar.health")
}

type duplicateError struct {
	existing models.EventPayload
}

func (e *duplicateError) Error() string { return ErrDuplicate.Error() }
func (e *duplicateError) Unwrap() error { return ErrDuplicate }

// do executes one request. out may be nil, a *[]byte for the raw body, or a
// pointer to decode JSON into.
func (c *Client) do(ctx context.Context, method, path string, in, out any, op string) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(ctx, req)

	ctx, span := telemetry.StartClientSpan(ctx, req, op)
	req = req.WithContext(ctx)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			telemetry.EndSpan(span, 0, ctxErr)
			return ctxErr
		}
		telemetry.EndSpan(span, 0, err)
		c.logger.Warn("backend_request_failed",
			zap.String("operation", op),
			zap.String("error", logger.SanitizeError(err)))
		return fmt.Errorf("%s: %w: %w", op, ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		telemetry.EndSpan(span, resp.StatusCode, err)
		return fmt.Errorf("%s: %w: failed to read response: %w", op, ErrNetwork, err)
	}

	c.logger.Debug("backend_request",
		zap.String("operation", op),
		zap.String("method", method),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode >= http.StatusBadRequest {
		serr := statusError(resp.StatusCode, data)
		telemetry.EndSpan(span, resp.StatusCode, serr)
		if errors.Is(serr, ErrAuthExpired) {
			c.expireSession(ctx)
		}
		if resp.StatusCode == http.StatusConflict && path == pathAddEvent {
			if existing, ok := parseExisting(data); ok {
				return &duplicateError{existing: existing}
			}
		}
		return fmt.Errorf("%s: %w", op, serr)
	}
	telemetry.EndSpan(span, resp.StatusCode, nil)

	switch dst := out.(type) {
	case nil:
		return nil
	case *[]byte:
		*dst = data
		return nil
	default:
		if len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%s: failed to decode response: %w", op, err)
		}
		return nil
	}
}

// authorize attaches the stored bearer token when one is present and valid
func (c *Client) authorize(ctx context.Context, req *http.Request) {
	tok, err := session.TokenSource(ctx, c.store).Token()
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			c.logger.Warn("session_load_failed", zap.String("error", logger.SanitizeError(err)))
		}
		return
	}
	tok.SetAuthHeader(req)
}

func (c *Client) expireSession(ctx context.Context) {
	if err := c.store.Clear(context.WithoutCancel(ctx)); err != nil {
		c.logger.Warn("session_clear_failed", zap.String("error", logger.SanitizeError(err)))
	}
	c.logger.Info("session_expired")
	if c.onAuthExpired != nil {
		c.onAuthExpired()
	}
}

func parseExisting(body []byte) (models.EventPayload, bool) {
	var dup struct {
		ExistingEvent *models.EventPayload `json:"existingEvent"`
	}
	if json.Unmarshal(body, &dup) != nil || dup.ExistingEvent == nil || dup.ExistingEvent.ID == "" {
		return models.EventPayload{}, false
	}
	return *dup.ExistingEvent, true
}
