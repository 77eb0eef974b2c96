// Package fakebackend is an in-memory calendar backend speaking the same REST
// API as the real one. It backs client and lifecycle tests and the serve-fake
// command.
package fakebackend

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/benvon/smart-calendar/internal/handlers"
	"github.com/benvon/smart-calendar/internal/logger"
	"github.com/benvon/smart-calendar/internal/middleware"
	"github.com/benvon/smart-calendar/internal/models"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

// DefaultReply is what ScriptedResponder answers once its script runs out
const DefaultReply = "**Part 1: Response**\nI'm here to help with your calendar."

// Backend is the in-memory backend
type Backend struct {
	store     *MemoryStore
	faults    *faults
	logger    *zap.Logger
	verifier  middleware.TokenVerifier
	responder handlers.Responder
	stream    bool
	rate      string
	origins   []string
	service   string
	handler   http.Handler
}

// Option configures a Backend
type Option func(*Backend)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(b *Backend) { b.logger = logger.OrNop(l) }
}

// WithTokenVerifier replaces AnyTokenVerifier
func WithTokenVerifier(v middleware.TokenVerifier) Option {
	return func(b *Backend) { b.verifier = v }
}

// WithResponder sets what answers /api/generate
func WithResponder(r handlers.Responder) Option {
	return func(b *Backend) { b.responder = r }
}

// WithStreaming makes /api/generate answer with newline-delimited chunks
func WithStreaming(stream bool) Option {
	return func(b *Backend) { b.stream = stream }
}

// WithRateLimit limits calendar requests per client, e.g. "5-S". Excess
// requests get 429.
func WithRateLimit(rate string) Option {
	return func(b *Backend) { b.rate = rate }
}

// WithCORS allows browser clients from the given origins
func WithCORS(origins ...string) Option {
	return func(b *Backend) { b.origins = origins }
}

// WithTracing records a server span per request under the given service name
func WithTracing(service string) Option {
	return func(b *Backend) { b.service = service }
}

// New builds a Backend
func New(opts ...Option) (*Backend, error) {
	b := &Backend{
		store:     NewMemoryStore(),
		faults:    newFaults(),
		logger:    zap.NewNop(),
		verifier:  AnyTokenVerifier(),
		responder: NewScriptedResponder(),
	}
	for _, opt := range opts {
		opt(b)
	}

	r := mux.NewRouter()
	if b.service != "" {
		r.Use(otelmux.Middleware(b.service))
	}
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize, b.logger))
	r.Use(middleware.ContentType(b.logger))
	r.Use(middleware.ErrorHandler(b.logger))
	r.Use(middleware.Logging(b.logger))
	r.Use(b.faults.middleware(b.logger))

	r.HandleFunc("/api/health", handlers.HealthCheck).Methods("GET").Name(handlers.RouteHealth)

	auth := middleware.Auth(b.verifier, b.logger)

	calendar := r.PathPrefix("/api/calendar").Subrouter()
	calendar.Use(auth)
	if b.rate != "" {
		limit, err := middleware.RateLimit(b.rate, b.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		calendar.Use(limit)
	}
	handlers.NewCalendarHandler(b.store, b.logger).RegisterRoutes(calendar)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth)
	handlers.NewGenerateHandler(b.responder, b.stream, b.logger).RegisterRoutes(api)

	b.handler = r
	if len(b.origins) > 0 {
		b.handler = middleware.CORS(b.origins)(r)
	}
	return b, nil
}

// Handler returns the HTTP handler
func (b *Backend) Handler() http.Handler {
	return b.handler
}

// Store exposes the event store for seeding and inspection
func (b *Backend) Store() *MemoryStore {
	return b.store
}

// InjectFault answers the next times requests of route with status. times <= 0
// clears the fault.
func (b *Backend) InjectFault(route Route, status, times int) {
	b.faults.inject(route, status, times)
}

// Calls returns how many requests reached route, including faulted ones
func (b *Backend) Calls(route Route) int {
	return b.faults.count(route)
}

// ScriptedResponder replays queued replies in order, then DefaultReply
type ScriptedResponder struct {
	mu      sync.Mutex
	replies []string
	prompts []string
}

// NewScriptedResponder creates a responder with the given script
func NewScriptedResponder(replies ...string) *ScriptedResponder {
	return &ScriptedResponder{replies: replies}
}

// Push appends replies to the script
func (s *ScriptedResponder) Push(replies ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, replies...)
}

// Prompts returns every prompt received so far
func (s *ScriptedResponder) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// Generate implements handlers.Responder
func (s *ScriptedResponder) Generate(ctx context.Context, prompt string, _ []models.ChatMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if len(s.replies) == 0 {
		return DefaultReply, nil
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}
