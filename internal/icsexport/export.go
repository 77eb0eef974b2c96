// Package icsexport renders calendar events as an iCalendar (RFC 5545) feed.
package icsexport

import (
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/benvon/smart-calendar/internal/models"
)

const (
	productID = "-//benvon//smart-calendar//EN"
	uidDomain = "@smart-calendar"

	// PropertyPlanTitle carries the plan an event was committed from
	PropertyPlanTitle ical.ComponentProperty = "X-SMART-CALENDAR-PLAN"
	// PropertyColorTag carries the palette entry name
	PropertyColorTag ical.ComponentProperty = "X-SMART-CALENDAR-COLOR-TAG"

	propertyColor ical.ComponentProperty = "COLOR"
)

// Options tunes the exported calendar
type Options struct {
	Name string
	Now  time.Time
}

// Build converts events to an iCalendar document. Every event is all-day.
// UIDs use the backend id, or the display id for events not yet saved.
func Build(events []models.CalendarEvent, opts Options) *ical.Calendar {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	for _, e := range events {
		id := e.ID
		if id == "" {
			id = e.DisplayID
		}
		ev := cal.AddEvent(id + uidDomain)
		ev.SetDtStampTime(opts.Now.UTC())
		ev.SetSummary(e.Title)
		start := models.DateOnly(e.StartDate)
		ev.SetAllDayStartAt(start)
		ev.SetAllDayEndAt(start.AddDate(0, 0, 1))
		if e.Description != "" {
			ev.SetDescription(e.Description)
		}
		if e.ColorTag != "" {
			ev.SetProperty(PropertyColorTag, string(e.ColorTag))
			ev.SetProperty(propertyColor, e.ColorTag.Hex())
		}
		if e.IsPlanEvent || e.PlanTitle != "" {
			ev.AddProperty(ical.ComponentPropertyCategories, "Plan")
			if e.PlanTitle != "" {
				ev.SetProperty(PropertyPlanTitle, e.PlanTitle)
			}
		}
	}
	return cal
}

// Write serializes events to w
func Write(w io.Writer, events []models.CalendarEvent, opts Options) error {
	return Build(events, opts).SerializeTo(w)
}
