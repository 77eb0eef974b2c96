package lifecycle

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/benvon/smart-calendar/internal/client"
	"github.com/benvon/smart-calendar/internal/models"
	"github.com/cenkalti/backoff/v4"
)

var today = time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

// manualScheduler fires timers only when the test advances it
type manualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	s       *manualScheduler
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{s: s, at: s.now + d, f: f}
	s.timers = append(s.timers, t)
	return t
}

// Advance moves time forward and runs due callbacks in deadline order
func (s *manualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	var due []*manualTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired && t.at <= s.now {
			t.fired = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()
	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
}

// Armed counts timers that have neither fired nor been stopped
func (s *manualScheduler) Armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// mockBackend keeps events in memory; the func fields override single calls
type mockBackend struct {
	mu      sync.Mutex
	events  map[string]models.CalendarEvent
	nextID  int
	deletes []string
	adds    []models.CalendarEvent
	lists   int

	ListFunc   func(ctx context.Context) ([]models.CalendarEvent, error)
	AddFunc    func(ctx context.Context, ev models.CalendarEvent) (models.CalendarEvent, error)
	UpdateFunc func(ctx context.Context, ev models.CalendarEvent) (models.CalendarEvent, error)
	DeleteFunc func(ctx context.Context, id string) error
}

var _ Backend = (*mockBackend)(nil)

func newMockBackend(events ...models.CalendarEvent) *mockBackend {
	b := &mockBackend{events: make(map[string]models.CalendarEvent)}
	for _, ev := range events {
		b.events[ev.ID] = ev
	}
	return b
}

func (b *mockBackend) ListEvents(ctx context.Context) ([]models.CalendarEvent, error) {
	b.mu.Lock()
	b.lists++
	fn := b.ListFunc
	b.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.CalendarEvent, 0, len(b.events))
	for _, ev := range b.events {
		ev.DisplayID = ""
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (b *mockBackend) AddEvent(ctx context.Context, ev models.CalendarEvent) (models.CalendarEvent, error) {
	b.mu.Lock()
	b.adds = append(b.adds, ev)
	fn := b.AddFunc
	b.mu.Unlock()
	if fn != nil {
		return fn(ctx, ev)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	ev.ID = fmt.Sprintf("new-%d", b.nextID)
	b.events[ev.ID] = ev
	return ev, nil
}

func (b *mockBackend) UpdateEvent(ctx context.Context, ev models.CalendarEvent) (models.CalendarEvent, error) {
	b.mu.Lock()
	fn := b.UpdateFunc
	b.mu.Unlock()
	if fn != nil {
		return fn(ctx, ev)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[ev.ID] = ev
	return ev, nil
}

func (b *mockBackend) DeleteEvent(ctx context.Context, id string) error {
	b.mu.Lock()
	b.deletes = append(b.deletes, id)
	fn := b.DeleteFunc
	b.mu.Unlock()
	if fn != nil {
		return fn(ctx, id)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.events[id]; !ok {
		return client.ErrNotFound
	}
	delete(b.events, id)
	return nil
}

func (b *mockBackend) deleteCount(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, d := range b.deletes {
		if d == id {
			n++
		}
	}
	return n
}

func (b *mockBackend) addCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.adds)
}

func (b *mockBackend) has(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.events[id]
	return ok
}

func (b *mockBackend) remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.events, id)
}

// noticeLog collects notices
type noticeLog struct {
	mu      sync.Mutex
	notices []Notice
}

func (l *noticeLog) notify(n Notice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notices = append(l.notices, n)
}

func (l *noticeLog) all() []Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Notice(nil), l.notices...)
}

func event(id, title string, dayOffset int) models.CalendarEvent {
	return models.CalendarEvent{
		ID:        id,
		Title:     title,
		StartDate: today.AddDate(0, 0, dayOffset),
		ColorTag:  models.ColorDefault,
	}
}

type fixture struct {
	m       *Manager
	backend *mockBackend
	sched   *manualScheduler
	notices *noticeLog
}

// newFixture builds a manager already loaded with the backend's events
func newFixture(t *testing.T, events []models.CalendarEvent, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		backend: newMockBackend(events...),
		sched:   &manualScheduler{},
		notices: &noticeLog{},
	}
	opts = append([]Option{
		WithScheduler(f.sched),
		WithNotifier(f.notices.notify),
		WithGraceWindow(10 * time.Second),
		WithBackOff(backoff.NewConstantBackOff(time.Second)),
		WithClock(func() time.Time { return today.Add(9 * time.Hour) }),
	}, opts...)
	f.m = NewManager(f.backend, opts...)
	if err := f.m.Refresh(context.Background()); err != nil {
		t.Fatalf("initial Refresh() error = %v", err)
	}
	return f
}

// displayID finds the display id of the visible event with the backend id
func (f *fixture) displayID(t *testing.T, id string) string {
	t.Helper()
	for _, ev := range f.m.Events() {
		if ev.ID == id {
			return ev.DisplayID
		}
	}
	t.Fatalf("event %s is not visible", id)
	return ""
}

func (f *fixture) visible(id string) bool {
	for _, ev := range f.m.Events() {
		if ev.ID == id {
			return true
		}
	}
	return false
}

func (f *fixture) selectAndDelete(t *testing.T, id string) models.PendingDeletion {
	t.Helper()
	if err := f.m.Select(f.displayID(t, id)); err != nil {
		t.Fatalf("Select(%s) error = %v", id, err)
	}
	pd, err := f.m.Delete()
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	return pd
}
