// Package plan holds the editable plan draft between extraction and commit.
package plan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benvon/smart-calendar/internal/dates"
	"github.com/benvon/smart-calendar/internal/extractor"
	"github.com/benvon/smart-calendar/internal/logger"
	"github.com/benvon/smart-calendar/internal/models"
	"github.com/benvon/smart-calendar/internal/validation"
	"go.uber.org/zap"
)

var (
	ErrNoPlan       = errors.New("no plan loaded")
	ErrUnknownField = errors.New("unknown plan field")
	ErrNoSuchStep   = errors.New("plan step out of range")
)

// Editable step fields
const (
	FieldTime        = "time"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldCompletion  = "completion"
	FieldDay         = "day"
)

// EventCreator persists one event. lifecycle.Manager satisfies it.
type EventCreator interface {
	Add(ctx context.Context, ev models.CalendarEvent) (models.CalendarEvent, error)
}

// CommitResult reports the outcome of Agree
type CommitResult struct {
	Added  []models.CalendarEvent
	Failed int
}

// Editor holds at most one plan draft. It is safe for concurrent use.
type Editor struct {
	mu     sync.Mutex
	draft  *models.PlanDraft
	gen    uint64 // bumped on every change to draft
	logger *zap.Logger
}

// NewEditor creates an empty editor
func NewEditor(l *zap.Logger) *Editor {
	return &Editor{logger: logger.OrNop(l)}
}

// Load replaces the current draft. A nil or empty plan clears it.
func (e *Editor) Load(p *models.PlanDraft) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	if p == nil || len(p.Steps) == 0 {
		e.draft = nil
		return
	}
	e.draft = p.Clone()
	e.logger.Debug("plan_loaded",
		zap.String("title", logger.SanitizeTitle(p.Title)),
		zap.Int("steps", len(p.Steps)))
}

// Draft returns a copy of the current draft
func (e *Editor) Draft() (*models.PlanDraft, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft == nil {
		return nil, false
	}
	return e.draft.Clone(), true
}

// Steps returns a copy of the current steps
func (e *Editor) Steps() []models.PlanStep {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft == nil {
		return nil
	}
	return append([]models.PlanStep(nil), e.draft.Steps...)
}

// SetTitle renames the plan
func (e *Editor) SetTitle(title string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft == nil {
		return ErrNoPlan
	}
	e.draft.Title = strings.TrimSpace(title)
	e.gen++
	return nil
}

// SetField edits one field of one step in place. The day field accepts text
// such as "3 days from today" and keeps its first integer.
func (e *Editor) SetField(step int, field, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft == nil {
		return ErrNoPlan
	}
	if step < 0 || step >= len(e.draft.Steps) {
		return fmt.Errorf("%w: %d", ErrNoSuchStep, step)
	}

	s := e.draft.Steps[step]
	switch field {
	case FieldTime:
		s.Time = strings.TrimSpace(value)
	case FieldTitle:
		title := strings.TrimSpace(value)
		if title == "" {
			return errors.New("step title is required")
		}
		s.Title = title
	case FieldDescription:
		s.Description = strings.TrimSpace(value)
	case FieldCompletion:
		s.CompletionCriterion = strings.TrimSpace(value)
	case FieldDay:
		offset := extractor.DayNumber(value)
		if !dates.ValidOffset(offset) {
			return fmt.Errorf("day offset %d out of range", offset)
		}
		s.DayOffset = offset
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	e.draft.Steps[step] = s
	e.gen++
	return nil
}

// Cancel discards the draft
func (e *Editor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft != nil {
		e.logger.Debug("plan_cancelled", zap.String("title", logger.SanitizeTitle(e.draft.Title)))
	}
	e.draft = nil
	e.gen++
}

// Agree commits every step as an all-day plan event dated today plus its day
// offset. The draft is discarded when every step was added; after a partial
// failure only the failed steps remain so Agree can be repeated. A draft
// loaded, edited or cancelled while the commit runs is left as it is.
func (e *Editor) Agree(ctx context.Context, creator EventCreator, today time.Time) (CommitResult, error) {
	e.mu.Lock()
	if e.draft == nil {
		e.mu.Unlock()
		return CommitResult{}, ErrNoPlan
	}
	draft := e.draft.Clone()
	startGen := e.gen
	e.mu.Unlock()

	if err := validation.ValidatePlan(draft); err != nil {
		return CommitResult{}, fmt.Errorf("invalid plan: %w", err)
	}

	var (
		res    CommitResult
		errs   []error
		failed []models.PlanStep
	)
	for i, step := range draft.Steps {
		saved, err := creator.Add(ctx, StepEvent(draft.Title, step, today))
		if err != nil {
			failed = append(failed, step)
			errs = append(errs, fmt.Errorf("step %q: %w", step.Title, err))
			if ctx.Err() != nil {
				failed = append(failed, draft.Steps[i+1:]...)
				break
			}
			continue
		}
		res.Added = append(res.Added, saved)
	}
	res.Failed = len(failed)

	e.mu.Lock()
	switch {
	case e.gen != startGen:
		e.logger.Debug("plan_changed_during_commit", zap.String("title", logger.SanitizeTitle(draft.Title)))
	case len(failed) == 0:
		e.draft = nil
		e.gen++
	default:
		e.draft = &models.PlanDraft{Title: draft.Title, Steps: failed}
		e.gen++
	}
	e.mu.Unlock()

	e.logger.Info("plan_committed",
		zap.String("title", logger.SanitizeTitle(draft.Title)),
		zap.Int("added", len(res.Added)),
		zap.Int("failed", res.Failed))
	if res.Failed > 0 {
		return res, fmt.Errorf("added %d of %d plan events: %w", len(res.Added), len(draft.Steps), errors.Join(errs...))
	}
	return res, nil
}

// StepEvent builds the calendar event for one plan step
func StepEvent(planTitle string, step models.PlanStep, today time.Time) models.CalendarEvent {
	return models.CalendarEvent{
		DisplayID:   models.NewDisplayID(),
		Title:       step.Title,
		StartDate:   dates.Resolve(today, step.DayOffset),
		ColorTag:    models.ColorPlan,
		Description: step.Description,
		PlanTitle:   planTitle,
		IsPlanEvent: true,
	}
}
