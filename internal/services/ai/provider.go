package ai

import (
	"context"
	"sort"

	"github.com/benvon/smart-calendar/internal/models"
)

// Generator produces the assistant reply for a prompt and the conversation so far
type Generator interface {
	Generate(ctx context.Context, prompt string, history []models.ChatMessage) (string, error)
}

// GeneratorFunc adapts a function to Generator
type GeneratorFunc func(ctx context.Context, prompt string, history []models.ChatMessage) (string, error)

// Generate calls f
func (f GeneratorFunc) Generate(ctx context.Context, prompt string, history []models.ChatMessage) (string, error) {
	return f(ctx, prompt, history)
}

// ProviderFactory creates a generator from provider settings
type ProviderFactory func(config map[string]string) (Generator, error)

// ProviderRegistry stores available generator providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider builds the named provider
func (r *ProviderRegistry) GetProvider(name string, config map[string]string) (Generator, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}

	return factory(config)
}

// Names lists the registered providers in order
func (r *ProviderRegistry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "AI provider not found: " + e.Name
}

// RegisterBackend registers the calendar backend's own generate endpoint,
// reached through g (normally a *client.Client)
func RegisterBackend(registry *ProviderRegistry, g Generator) {
	registry.Register("backend", func(map[string]string) (Generator, error) {
		return g, nil
	})
}
