// Package extractor turns assistant output into calendar event drafts, an
// optional plan draft and the text to show the user.
package extractor

import (
	"fmt"
	"strings"
	"time"

	"github.com/benvon/smart-calendar/internal/dates"
	"github.com/benvon/smart-calendar/internal/logger"
	"github.com/benvon/smart-calendar/internal/models"
	"github.com/benvon/smart-calendar/internal/textclean"
	"go.uber.org/zap"
)

// Result is everything extracted from one assistant turn
type Result struct {
	Events   []models.CalendarEventDraft `json:"events"`
	Plan     *models.PlanDraft           `json:"plan,omitempty"`
	Response string                      `json:"response"`
}

// Extractor runs the extraction pipeline. The zero value is not usable; use New.
type Extractor struct {
	now    func() time.Time
	logger *zap.Logger
}

// Option configures an Extractor
type Option func(*Extractor)

// WithClock fixes the clock used to resolve weekday and calendar-date expressions
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the logger used for debug tracing of extraction decisions
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger.OrNop(l)
	}
}

// New creates an Extractor
func New(opts ...Option) *Extractor {
	e := &Extractor{now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract parses one assistant response given the prompt that produced it.
// It never fails: internal errors degrade to an empty result carrying a
// cleaned response.
func (e *Extractor) Extract(response, userInput string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("extraction_failed",
				zap.String("panic", fmt.Sprint(r)),
				zap.String("response_preview", logger.Preview(response)),
			)
			result = Result{Response: safeClean(response)}
		}
	}()

	today := dates.Today(e.now())
	prepared := textclean.Prepare(response)

	result.Response = ExtractResponse(prepared)
	result.Plan = ExtractPlan(prepared)

	if IsQuestion(userInput) {
		e.logger.Debug("extraction_question_suppressed",
			zap.String("input_preview", logger.Preview(userInput)))
		result.Events = []models.CalendarEventDraft{}
		return result
	}

	candidates := e.structured(prepared)
	source := "structured"
	if len(candidates) == 0 {
		candidates = Fallback(textclean.Clean(response), today)
		source = "fallback_response"
	}
	if len(candidates) == 0 {
		candidates = Fallback(userInput, today)
		source = "fallback_input"
	}

	result.Events = make([]models.CalendarEventDraft, 0, len(candidates))
	for _, c := range candidates {
		result.Events = append(result.Events, models.CalendarEventDraft{
			Title:       c.Title,
			DayOffset:   c.DayOffset,
			Description: Describe(c.Title, c.DayOffset),
			ColorTag:    ColorFor(c.Title, c.DayOffset),
			Signature:   c.Signature(),
		})
	}

	if len(result.Events) > 0 {
		e.logger.Debug("extraction_events_found",
			zap.String("source", source),
			zap.Int("count", len(result.Events)))
	}
	return result
}

// structured runs tag matching, validation and both de-duplication passes
func (e *Extractor) structured(prepared string) []Candidate {
	raw := StructuredCandidates(prepared)
	valid := make([]Candidate, 0, len(raw))
	for _, c := range raw {
		c.Title = NormalizeTitle(c.Title)
		if err := ValidateCandidate(c); err != nil {
			e.logger.Debug("extraction_candidate_rejected",
				zap.String("title", logger.SanitizeTitle(c.Title)),
				zap.Int("day_offset", c.DayOffset),
				zap.String("reason", err.Error()))
			continue
		}
		valid = append(valid, c)
	}
	valid = Dedupe(valid)

	cleaned := make([]Candidate, 0, len(valid))
	for _, c := range valid {
		c.Title = CleanupTitle(c.Title)
		if ValidateCandidate(c) != nil {
			continue
		}
		cleaned = append(cleaned, c)
	}
	return Dedupe(cleaned)
}

// safeClean strips markers without any regex-heavy stage that may have failed
func safeClean(s string) string {
	defer func() { _ = recover() }()
	out := textclean.Clean(s)
	if strings.TrimSpace(out) == "" {
		return ""
	}
	return out
}
