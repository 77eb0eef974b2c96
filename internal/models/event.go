package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire format for all-day event dates
const DateLayout = "2006-01-02"

// CalendarEvent represents an all-day calendar event as the client sees it.
//
// ID is the backend identity and changes when a deleted event is restored by
// re-creating it. DisplayID is the identity the view keys on and survives
// delete/undo unchanged.
type CalendarEvent struct {
	ID          string    `json:"id,omitempty"`
	DisplayID   string    `json:"display_id"`
	Title       string    `json:"title" validate:"required,max=500"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	ColorTag    ColorTag  `json:"color_tag" validate:"omitempty,color_tag"`
	Description string    `json:"description,omitempty"`
	PlanTitle   string    `json:"plan_title,omitempty"`
	IsPlanEvent bool      `json:"is_plan_event,omitempty"`
}

// NewDisplayID returns a fresh view identity
func NewDisplayID() string {
	return uuid.NewString()
}

// Persisted reports whether the backend has assigned an id
func (e *CalendarEvent) Persisted() bool {
	return e.ID != ""
}

// DuplicateKey is the (title, date) pair the backend treats as a natural key
func (e *CalendarEvent) DuplicateKey() string {
	return strings.ToLower(strings.TrimSpace(e.Title)) + "|" + e.StartDate.Format(DateLayout)
}

// DateOnly truncates t to midnight in its own location
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EventPayload is the JSON shape exchanged with the calendar backend
type EventPayload struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Start       string `json:"start"`
	IsAllDay    bool   `json:"isAllDay"`
	EventColor  string `json:"eventColor,omitempty"`
	Description string `json:"description,omitempty"`
	PlanTitle   string `json:"planTitle,omitempty"`
	IsPlanEvent bool   `json:"isPlanEvent,omitempty"`
}

// ToPayload converts an event to its wire form. Omitting the id forces the
// backend to create rather than update.
func (e *CalendarEvent) ToPayload(includeID bool) EventPayload {
	p := EventPayload{
		Title:       e.Title,
		Start:       e.StartDate.Format(DateLayout),
		IsAllDay:    true,
		EventColor:  e.ColorTag.Hex(),
		Description: e.Description,
		PlanTitle:   e.PlanTitle,
		IsPlanEvent: e.IsPlanEvent,
	}
	if includeID {
		p.ID = e.ID
	}
	return p
}

// FromPayload converts a wire event. Dates may carry a time part, which is dropped.
func FromPayload(p EventPayload, loc *time.Location) (CalendarEvent, error) {
	if loc == nil {
		loc = time.Local
	}
	raw := strings.TrimSpace(p.Start)
	if len(raw) > len(DateLayout) {
		raw = raw[:len(DateLayout)]
	}
	start, err := time.ParseInLocation(DateLayout, raw, loc)
	if err != nil {
		return CalendarEvent{}, fmt.Errorf("invalid start date %q: %w", p.Start, err)
	}
	title := p.Title
	if strings.TrimSpace(title) == "" {
		title = "Untitled Event"
	}
	return CalendarEvent{
		ID:          p.ID,
		Title:       title,
		StartDate:   start,
		ColorTag:    ColorTagFromHex(p.EventColor),
		Description: p.Description,
		PlanTitle:   p.PlanTitle,
		IsPlanEvent: p.IsPlanEvent,
	}, nil
}
