package fakebackend

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/benvon/smart-calendar/internal/handlers"
	"github.com/benvon/smart-calendar/internal/models"
	"github.com/google/uuid"
)

// MemoryStore keeps events per subject in memory
type MemoryStore struct {
	mu     sync.Mutex
	events map[string]map[string]models.EventPayload
}

var _ handlers.EventStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string]map[string]models.EventPayload)}
}

// List returns the subject's events sorted by start date, then title
func (s *MemoryStore) List(_ context.Context, subject string) ([]models.EventPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.EventPayload, 0, len(s.events[subject]))
	for _, ev := range s.events[subject] {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Save upserts by id. Without a known id, an event with the same title
// (case-insensitive) and start date is reported as a duplicate.
func (s *MemoryStore) Save(_ context.Context, subject string, ev models.EventPayload) (models.EventPayload, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.bucket(subject)
	if ev.ID != "" {
		if _, ok := bucket[ev.ID]; ok {
			bucket[ev.ID] = ev
			return ev, false, nil
		}
	}
	for _, existing := range bucket {
		if existing.Start == ev.Start && strings.EqualFold(existing.Title, ev.Title) {
			return models.EventPayload{}, false, &handlers.DuplicateEventError{Existing: existing}
		}
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	bucket[ev.ID] = ev
	return ev, true, nil
}

// Delete removes an event
func (s *MemoryStore) Delete(_ context.Context, subject, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[subject][id]; !ok {
		return handlers.ErrEventNotFound
	}
	delete(s.events[subject], id)
	return nil
}

// Seed stores events directly, assigning ids where missing, and returns them
func (s *MemoryStore) Seed(subject string, events ...models.EventPayload) []models.EventPayload {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.bucket(subject)
	out := make([]models.EventPayload, 0, len(events))
	for _, ev := range events {
		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}
		ev.IsAllDay = true
		bucket[ev.ID] = ev
		out = append(out, ev)
	}
	return out
}

// Count returns how many events the subject has
func (s *MemoryStore) Count(subject string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events[subject])
}

func (s *MemoryStore) bucket(subject string) map[string]models.EventPayload {
	b, ok := s.events[subject]
	if !ok {
		b = make(map[string]models.EventPayload)
		s.events[subject] = b
	}
	return b
}
