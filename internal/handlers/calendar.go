package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/smart-calendar/internal/logger"
	"github.com/benvon/smart-calendar/internal/models"
	"github.com/benvon/smart-calendar/internal/request"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Route names, usable with mux.CurrentRoute
const (
	RouteListEvents  = "list-events"
	RouteAddEvent    = "add-event"
	RouteDeleteEvent = "delete-event"
	RouteGenerate    = "generate"
	RouteHealth      = "health"
)

// ErrEventNotFound is returned by an EventStore for unknown ids
var ErrEventNotFound = errors.New("event not found")

// DuplicateEventError is returned by an EventStore when an event with the same
// title and start date already exists
type DuplicateEventError struct {
	Existing models.EventPayload
}

func (e *DuplicateEventError) Error() string {
	return "event already exists"
}

// EventStore persists events per subject
type EventStore interface {
	List(ctx context.Context, subject string) ([]models.EventPayload, error)
	// Save creates the event, or replaces it when its id is already known.
	// created reports which of the two happened.
	Save(ctx context.Context, subject string, ev models.EventPayload) (saved models.EventPayload, created bool, err error)
	Delete(ctx context.Context, subject, id string) error
}

// CalendarHandler serves the calendar event endpoints
type CalendarHandler struct {
	store  EventStore
	logger *zap.Logger
}

// NewCalendarHandler creates a new calendar handler
func NewCalendarHandler(store EventStore, log *zap.Logger) *CalendarHandler {
	return &CalendarHandler{store: store, logger: logger.OrNop(log)}
}

// RegisterRoutes registers calendar routes on the given router
// The router should already have the /api/calendar prefix
func (h *CalendarHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/events", h.ListEvents).Methods("GET").Name(RouteListEvents)
	r.HandleFunc("/add-event", h.AddEvent).Methods("POST").Name(RouteAddEvent)
	r.HandleFunc("/events/{id}", h.DeleteEvent).Methods("DELETE").Name(RouteDeleteEvent)
}

// ListEvents returns every event of the caller sorted by start date
func (h *CalendarHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.store.List(r.Context(), request.SubjectFromContext(r))
	if err != nil {
		h.logger.Error("list_events_failed", zap.Error(err))
		respondJSONError(w, r, http.StatusInternalServerError, "Internal Server Error", "Failed to load events", h.logger)
		return
	}
	if events == nil {
		events = []models.EventPayload{}
	}
	respondJSON(w, http.StatusOK, events)
}

// AddEvent creates an event, or updates it when the body carries a known id
func (h *CalendarHandler) AddEvent(w http.ResponseWriter, r *http.Request) {
	var ev models.EventPayload
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		respondJSONError(w, r, http.StatusBadRequest, "Bad Request", "Invalid JSON body", h.logger)
		return
	}
	ev.Title = strings.TrimSpace(ev.Title)
	if ev.Title == "" {
		respondJSONError(w, r, http.StatusBadRequest, "Bad Request", "title is required", h.logger)
		return
	}
	if _, err := time.Parse(models.DateLayout, firstDate(ev.Start)); err != nil {
		respondJSONError(w, r, http.StatusBadRequest, "Bad Request", "start must be a YYYY-MM-DD date", h.logger)
		return
	}
	ev.Start = firstDate(ev.Start)
	ev.IsAllDay = true

	saved, created, err := h.store.Save(r.Context(), request.SubjectFromContext(r), ev)
	if err != nil {
		var dup *DuplicateEventError
		if errors.As(err, &dup) {
			respondJSON(w, http.StatusConflict, map[string]any{
				"error":         "Event already exists",
				"existingEvent": dup.Existing,
			})
			return
		}
		h.logger.Error("save_event_failed", zap.Error(err))
		respondJSONError(w, r, http.StatusInternalServerError, "Internal Server Error", "Failed to save event", h.logger)
		return
	}

	h.logger.Debug("event_saved",
		zap.String("event_id", saved.ID),
		zap.Bool("created", created),
		zap.String("title", logger.SanitizeTitle(saved.Title)))
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, saved)
}

// DeleteEvent permanently removes an event
func (h *CalendarHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	err := h.store.Delete(r.Context(), request.SubjectFromContext(r), id)
	switch {
	case errors.Is(err, ErrEventNotFound):
		respondJSONError(w, r, http.StatusNotFound, "Event not found", "No event with id "+id, h.logger)
	case err != nil:
		h.logger.Error("delete_event_failed", zap.String("event_id", id), zap.Error(err))
		respondJSONError(w, r, http.StatusInternalServerError, "Internal Server Error", "Failed to delete event", h.logger)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func firstDate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > len(models.DateLayout) {
		return s[:len(models.DateLayout)]
	}
	return s
}
