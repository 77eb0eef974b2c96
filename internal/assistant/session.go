// Package assistant runs one chat conversation: each submitted prompt is
// answered by a generator, extracted, and merged into the calendar.
package assistant

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
	"github.com/benvon/smart-calendar/internal/services/ai"
	"go.uber.org/zap"
)

var (
	// ErrSuperseded is returned when a newer prompt was submitted before the
	// reply to this one arrived
	ErrSuperseded = errors.New("superseded by a newer prompt")

	ErrEmptyPrompt = errors.New("prompt is empty")
)

// DraftSink persists extracted drafts. lifecycle.Manager satisfies it.
type DraftSink interface {
	AddDrafts(ctx context.Context, drafts []models.CalendarEventDraft, today time.Time) ([]models.CalendarEvent, error)
}

// PlanSink receives an extracted plan. plan.Editor satisfies it.
type PlanSink interface {
	Load(p *models.PlanDraft)
}

// Turn is the outcome of one submitted prompt
type Turn struct {
	Prompt   string
	Reply    string
	Result   extractor.Result
	Added    []models.CalendarEvent
	Question bool
}

// Session is safe for concurrent use. Only the latest submission completes.
type Session struct {
	gen       ai.Generator
	sink      DraftSink
	plans     PlanSink
	extractor *extractor.Extractor
	now       func() time.Time
	logger    *zap.Logger

	mu      sync.Mutex
	history []models.ChatMessage
	seq     uint64
	cancel  context.CancelFunc
}

// Option configures a Session
type Option func(*Session)

// WithPlanSink sets where extracted plans are loaded
func WithPlanSink(p PlanSink) Option {
	return func(s *Session) { s.plans = p }
}

// WithClock sets the clock used for "today"
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = logger.OrNop(l) }
}

// WithExtractor replaces the default extractor
func WithExtractor(e *extractor.Extractor) Option {
	return func(s *Session) {
		if e != nil {
			s.extractor = e
		}
	}
}

// New creates a session. sink may be nil for a read-only session that only
// reports drafts.
func New(gen ai.Generator, sink DraftSink, opts ...Option) *Session {
	s := &Session{
		gen:    gen,
		sink:   sink,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.extractor == nil {
		s.extractor = extractor.New(extractor.WithClock(s.now), extractor.WithLogger(s.logger))
	}
	return s
}

// Submit answers prompt. Any generation still running for an earlier prompt
// is cancelled and returns ErrSuperseded. A turn overtaken while adding its
// drafts also returns ErrSuperseded, without touching the plan or history. Drafts whose title and date are
// already on the calendar are skipped; questions never create events.
func (s *Session) Submit(ctx context.Context, prompt string) (Turn, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Turn{}, ErrEmptyPrompt
	}

	genCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	seq := s.seq
	s.cancel = cancel
	history := append([]models.ChatMessage(nil), s.history...)
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		if s.seq == seq {
			s.cancel = nil
		}
		s.mu.Unlock()
		cancel()
	}()

	s.logger.Debug("prompt_submitted",
		zap.Uint64("seq", seq),
		zap.String("prompt_preview", logger.Preview(prompt)))

	reply, err := s.gen.Generate(genCtx, prompt, history)
	if !s.current(seq) {
		s.logger.Debug("reply_discarded", zap.Uint64("seq", seq))
		return Turn{}, ErrSuperseded
	}
	if err != nil {
		return Turn{}, fmt.Errorf("generate reply: %w", err)
	}

	res := s.extractor.Extract(reply, prompt)
	turn := Turn{
		Prompt:   prompt,
		Reply:    reply,
		Result:   res,
		Question: extractor.IsQuestion(prompt),
	}

	var addErr error
	if len(res.Events) > 0 && s.sink != nil {
		turn.Added, addErr = s.sink.AddDrafts(ctx, res.Events, dates.Today(s.now()))
	}

	s.mu.Lock()
	if s.seq != seq {
		s.mu.Unlock()
		s.logger.Debug("reply_discarded_after_add",
			zap.Uint64("seq", seq),
			zap.Int("added", len(turn.Added)))
		return turn, ErrSuperseded
	}
	if res.Plan != nil && s.plans != nil {
		s.plans.Load(res.Plan)
	}
	s.history = append(s.history,
		models.ChatMessage{Role: models.ChatRoleUser, Content: prompt},
		models.ChatMessage{Role: models.ChatRoleAssistant, Content: res.Response},
	)
	s.mu.Unlock()

	s.logger.Info("prompt_answered",
		zap.Int("drafts", len(res.Events)),
		zap.Int("added", len(turn.Added)),
		zap.Bool("plan", res.Plan != nil),
		zap.Bool("question", turn.Question))
	if addErr != nil {
		return turn, fmt.Errorf("add events: %w", addErr)
	}
	return turn, nil
}

func (s *Session) current(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq == seq
}

// History returns a copy of the conversation so far
func (s *Session) History() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ChatMessage(nil), s.history...)
}

// Reset cancels any running generation and forgets the conversation
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.seq++
	s.history = nil
}
