// Package lifecycle keeps the client-side event list, reconciles it with the
// backend and implements optimistic delete with a single-slot undo.
package lifecycle

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/benvon/smart-calendar/internal/logger"
	"github.com/benvon/smart-calendar/internal/models"
	"github.com/cenkalti/backoff/v4"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	DefaultGraceWindow     = 10 * time.Second
	DefaultRefreshInterval = 60 * time.Second

	// conflictNoticeThreshold is the consecutive conflict that gets surfaced
	conflictNoticeThreshold = 3
	// maxFinalizeAttempts bounds DELETE retries after conflicts
	maxFinalizeAttempts = 5
	finalizedRingSize   = 64
	finalizeTimeout     = 30 * time.Second
)

var (
	ErrNoSelection    = errors.New("no event selected")
	ErrEventNotFound  = errors.New("event is not in the visible list")
	ErrNothingToUndo  = errors.New("no deletion is pending")
	ErrOffline        = errors.New("backend is offline")
	ErrManagerStopped = errors.New("manager is stopped")
)

// Backend is the calendar transport the manager drives
type Backend interface {
	ListEvents(ctx context.Context) ([]models.CalendarEvent, error)
	AddEvent(ctx context.Context, ev models.CalendarEvent) (models.CalendarEvent, error)
	UpdateEvent(ctx context.Context, ev models.CalendarEvent) (models.CalendarEvent, error)
	DeleteEvent(ctx context.Context, id string) error
}

// pendingSlot is the single in-flight deletion
type pendingSlot struct {
	deletion models.PendingDeletion
	gen      uint64
	timer    Timer
}

// Manager owns the visible event list. All methods are safe for concurrent use.
type Manager struct {
	backend         Backend
	scheduler       Scheduler
	notify          Notifier
	onAuthExpired   func()
	logger          *zap.Logger
	now             func() time.Time
	grace           time.Duration
	refreshInterval time.Duration

	mu        sync.Mutex
	events    []models.CalendarEvent
	selected  string
	pending   *pendingSlot
	gen       uint64
	finalized *idRing
	online    bool
	stopped   bool

	// addedSeq marks local inserts so a refresh that started earlier keeps them
	addedSeq map[string]uint64
	seq      uint64

	conflicts    int // consecutive refresh conflicts
	backoff      backoff.BackOff
	retries      map[uint64]Timer
	retryID      uint64
	refreshRetry bool

	baseCtx context.Context
	cancel  context.CancelFunc
	cron    *cron.Cron
	wg      sync.WaitGroup
}

// Option configures a Manager
type Option func(*Manager)

// WithScheduler replaces the timer source
func WithScheduler(s Scheduler) Option {
	return func(m *Manager) { m.scheduler = s }
}

// WithGraceWindow sets how long a deletion stays undoable
func WithGraceWindow(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.grace = d
		}
	}
}

// WithRefreshInterval sets the periodic refresh interval used by Start
func WithRefreshInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.refreshInterval = d
		}
	}
}

// WithNotifier sets where user-facing notices go
func WithNotifier(n Notifier) Option {
	return func(m *Manager) {
		if n != nil {
			m.notify = n
		}
	}
}

// WithAuthExpiredHook is called when the backend rejects the session
func WithAuthExpiredHook(fn func()) Option {
	return func(m *Manager) { m.onAuthExpired = fn }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = logger.OrNop(l) }
}

// WithClock sets the clock used for grace deadlines
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithBackOff sets the delay policy for retries after conflicts
func WithBackOff(b backoff.BackOff) Option {
	return func(m *Manager) {
		if b != nil {
			m.backoff = b
		}
	}
}

// NewManager creates a Manager. The backend is assumed online.
func NewManager(backend Backend, opts ...Option) *Manager {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 500 * time.Millisecond
	eb.MaxInterval = 10 * time.Second
	eb.MaxElapsedTime = 0

	m := &Manager{
		backend:         backend,
		scheduler:       RealScheduler{},
		notify:          func(Notice) {},
		logger:          zap.NewNop(),
		now:             time.Now,
		grace:           DefaultGraceWindow,
		refreshInterval: DefaultRefreshInterval,
		finalized:       newIDRing(finalizedRingSize),
		addedSeq:        make(map[string]uint64),
		online:          true,
		backoff:         eb,
		retries:         make(map[uint64]Timer),
		baseCtx:         context.Background(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Events returns a snapshot of the visible events in date order
func (m *Manager) Events() []models.CalendarEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.CalendarEvent(nil), m.events...)
}

// Pending returns the pending deletion, if any
func (m *Manager) Pending() (models.PendingDeletion, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return models.PendingDeletion{}, false
	}
	return m.pending.deletion, true
}

// Selected returns the selected event, if any
func (m *Manager) Selected() (models.CalendarEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexOf(m.selected); i >= 0 {
		return m.events[i], true
	}
	return models.CalendarEvent{}, false
}

// Find returns the visible event with the given display id
func (m *Manager) Find(displayID string) (models.CalendarEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexOf(displayID); i >= 0 {
		return m.events[i], true
	}
	return models.CalendarEvent{}, false
}

// SetOnline records whether the backend is reachable. Refresh is skipped while offline.
func (m *Manager) SetOnline(online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	m.mu.Unlock()
	if changed {
		m.logger.Info("backend_online_changed", zap.Bool("online", online))
	}
}

// Select selects an event. A pending deletion is finalized first, without
// waiting for the backend.
func (m *Manager) Select(displayID string) error {
	m.mu.Lock()
	if m.indexOf(displayID) < 0 {
		m.mu.Unlock()
		return ErrEventNotFound
	}
	prev := m.detachPendingLocked(models.DeletionConfirmed)
	m.selected = displayID
	m.mu.Unlock()

	if prev != nil {
		m.logger.Debug("pending_deletion_preempted", zap.String("reason", "select"))
		m.spawn(func() { m.finalize(prev.deletion.Event, 1) })
	}
	return nil
}

// ClearSelection drops the selection. A pending deletion keeps its timer.
func (m *Manager) ClearSelection() {
	m.mu.Lock()
	m.selected = ""
	m.mu.Unlock()
}

// Delete optimistically deletes the selected event. It disappears at once and
// is deleted on the backend when the grace window lapses, unless undone.
func (m *Manager) Delete() (models.PendingDeletion, error) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return models.PendingDeletion{}, ErrManagerStopped
	}
	i := m.indexOf(m.selected)
	if i < 0 {
		m.mu.Unlock()
		return models.PendingDeletion{}, ErrNoSelection
	}
	prev := m.detachPendingLocked(models.DeletionConfirmed)

	ev := m.events[i]
	m.events = append(m.events[:i:i], m.events[i+1:]...)
	m.selected = ""
	m.gen++
	gen := m.gen
	slot := &pendingSlot{
		deletion: models.PendingDeletion{
			Event:         ev,
			GraceDeadline: m.now().Add(m.grace),
			State:         models.DeletionPending,
		},
		gen: gen,
	}
	slot.timer = m.scheduler.AfterFunc(m.grace, func() { m.graceExpired(gen) })
	m.pending = slot
	snapshot := slot.deletion
	m.mu.Unlock()

	m.logger.Info("event_delete_pending",
		zap.String("display_id", ev.DisplayID),
		zap.String("event_id", ev.ID),
		zap.Duration("grace", m.grace))
	if prev != nil {
		m.logger.Debug("pending_deletion_preempted", zap.String("reason", "delete"))
		m.spawn(func() { m.finalize(prev.deletion.Event, 1) })
	}
	return snapshot, nil
}

// graceExpired finalizes the deletion armed with gen, if it is still the pending one
func (m *Manager) graceExpired(gen uint64) {
	m.mu.Lock()
	if m.pending == nil || m.pending.gen != gen {
		m.mu.Unlock()
		return
	}
	slot := m.detachPendingLocked(models.DeletionConfirmed)
	m.mu.Unlock()

	m.spawn(func() { m.finalize(slot.deletion.Event, 1) })
}

// detachPendingLocked empties the slot, stopping its timer
func (m *Manager) detachPendingLocked(state models.DeletionState) *pendingSlot {
	slot := m.pending
	if slot == nil {
		return nil
	}
	m.pending = nil
	if slot.timer != nil {
		slot.timer.Stop()
	}
	slot.deletion.State = state
	if state == models.DeletionConfirmed {
		m.finalized.add(slot.deletion.Event.ID)
	}
	return slot
}

// finalize issues the DELETE. attempt counts conflict retries.
func (m *Manager) finalize(ev models.CalendarEvent, attempt int) {
	if !ev.Persisted() {
		m.logger.Debug("event_delete_finalized_local_only", zap.String("display_id", ev.DisplayID))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(m.context()), finalizeTimeout)
	defer cancel()

	err := m.backend.DeleteEvent(ctx, ev.ID)
	switch {
	case err == nil || isNotFound(err):
		m.logger.Info("event_delete_finalized",
			zap.String("event_id", ev.ID),
			zap.Bool("already_gone", err != nil))
		m.resetBackoff()
	case isConflict(err):
		if attempt >= maxFinalizeAttempts {
			m.logger.Warn("event_delete_abandoned", zap.String("event_id", ev.ID), zap.Int("attempts", attempt))
			m.emit(Notice{Level: NoticeError, Message: "Could not delete \"" + ev.Title + "\": the calendar stayed busy", Err: err})
			return
		}
		m.afterConflict(err, attempt, func() {
			m.finalize(ev, attempt+1)
			if err := m.Refresh(m.context()); err != nil && !errors.Is(err, ErrOffline) {
				m.logger.Debug("refresh_after_conflict_failed", zap.String("error", logger.SanitizeError(err)))
			}
		})
	default:
		m.logger.Warn("event_delete_failed",
			zap.String("event_id", ev.ID),
			zap.String("error", logger.SanitizeError(err)))
		m.handleError("delete \""+ev.Title+"\"", err)
	}
}

// Undo restores the pending deletion. The backend list decides whether the
// event is simply shown again or re-created under a new backend id; the
// display id is kept either way.
func (m *Manager) Undo(ctx context.Context) (models.CalendarEvent, error) {
	m.mu.Lock()
	slot := m.detachPendingLocked(models.DeletionUndone)
	if slot == nil {
		m.mu.Unlock()
		return models.CalendarEvent{}, ErrNothingToUndo
	}
	m.gen++
	m.mu.Unlock()

	ev := slot.deletion.Event
	restored, err := m.restore(ctx, ev)
	m.insert(restored)

	m.logger.Info("event_delete_undone",
		zap.String("display_id", restored.DisplayID),
		zap.String("old_event_id", ev.ID),
		zap.String("event_id", restored.ID),
		zap.Bool("recreated", restored.ID != ev.ID))
	return restored, err
}

// restore decides between re-insertion and re-creation. Failures still yield
// an event to show; the error is reported through a notice as well.
func (m *Manager) restore(ctx context.Context, ev models.CalendarEvent) (models.CalendarEvent, error) {
	if ev.Persisted() {
		exists, err := m.backendHas(ctx, ev.ID)
		if err != nil {
			m.handleError("check the restored event", err)
			return ev, err
		}
		if exists {
			return ev, nil
		}
	}

	recreated, err := m.backend.AddEvent(ctx, withoutID(ev))
	switch {
	case err == nil, adoptable(recreated, err):
		recreated.DisplayID = ev.DisplayID
		return recreated, nil
	default:
		m.handleError("restore \""+ev.Title+"\"", err)
		return withoutID(ev), err
	}
}

func (m *Manager) backendHas(ctx context.Context, id string) (bool, error) {
	events, err := m.backend.ListEvents(ctx)
	if err != nil {
		return false, err
	}
	for _, e := range events {
		if e.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// Update changes title and description. A failure leaves the list untouched.
func (m *Manager) Update(ctx context.Context, displayID, title, description string) (models.CalendarEvent, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.CalendarEvent{}, errors.New("title is required")
	}
	ev, ok := m.Find(displayID)
	if !ok {
		return models.CalendarEvent{}, ErrEventNotFound
	}
	ev.Title = title
	ev.Description = strings.TrimSpace(description)

	var saved models.CalendarEvent
	var err error
	if ev.Persisted() {
		saved, err = m.backend.UpdateEvent(ctx, ev)
	} else {
		saved, err = m.backend.AddEvent(ctx, ev)
	}
	if err != nil {
		m.handleError("update \""+title+"\"", err)
		return models.CalendarEvent{}, err
	}
	saved.DisplayID = displayID

	m.mu.Lock()
	if i := m.indexOf(displayID); i >= 0 {
		m.events[i] = saved
		m.markAddedLocked(saved.ID)
		m.sortLocked()
	}
	m.mu.Unlock()
	return saved, nil
}

// Add persists a new event and shows it. A backend duplicate is shown as the
// existing event.
func (m *Manager) Add(ctx context.Context, ev models.CalendarEvent) (models.CalendarEvent, error) {
	if ev.DisplayID == "" {
		ev.DisplayID = models.NewDisplayID()
	}
	saved, err := m.backend.AddEvent(ctx, withoutID(ev))
	if err != nil && !adoptable(saved, err) {
		m.handleError("add \""+ev.Title+"\"", err)
		return models.CalendarEvent{}, err
	}
	saved.DisplayID = ev.DisplayID
	m.insert(saved)
	m.logger.Info("event_added",
		zap.String("event_id", saved.ID),
		zap.String("title", logger.SanitizeTitle(saved.Title)),
		zap.Bool("existing", err != nil))
	return saved, nil
}

// AddDrafts persists extracted drafts relative to today, skipping drafts whose
// title and date are already visible. Failures do not stop the remaining drafts.
func (m *Manager) AddDrafts(ctx context.Context, drafts []models.CalendarEventDraft, today time.Time) ([]models.CalendarEvent, error) {
	var added []models.CalendarEvent
	var errs []error
	for _, d := range drafts {
		ev := draftEvent(d, today)
		if m.visibleKey(ev.DuplicateKey()) {
			m.logger.Debug("draft_skipped_duplicate", zap.String("title", logger.SanitizeTitle(d.Title)))
			continue
		}
		saved, err := m.Add(ctx, ev)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		added = append(added, saved)
	}
	return added, errors.Join(errs...)
}

func (m *Manager) visibleKey(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.events {
		if m.events[i].DuplicateKey() == key {
			return true
		}
	}
	return false
}

// insert shows ev, replacing any event with the same display id or backend id
func (m *Manager) insert(ev models.CalendarEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < len(m.events); i++ {
		cur := m.events[i]
		if cur.DisplayID == ev.DisplayID || (ev.Persisted() && cur.ID == ev.ID) {
			m.events = append(m.events[:i], m.events[i+1:]...)
			i--
		}
	}
	m.events = append(m.events, ev)
	m.markAddedLocked(ev.ID)
	m.sortLocked()
}

func (m *Manager) markAddedLocked(id string) {
	if id == "" {
		return
	}
	m.seq++
	m.addedSeq[id] = m.seq
}

func (m *Manager) indexOf(displayID string) int {
	if displayID == "" {
		return -1
	}
	for i := range m.events {
		if m.events[i].DisplayID == displayID {
			return i
		}
	}
	return -1
}

func (m *Manager) sortLocked() {
	sort.SliceStable(m.events, func(i, j int) bool {
		a, b := m.events[i], m.events[j]
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.Before(b.StartDate)
		}
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	})
}

// context is the base context of background work
func (m *Manager) context() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseCtx
}

// spawn runs fire-and-forget work tracked by Wait
func (m *Manager) spawn(fn func()) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		fn()
	}()
}

// Wait blocks until all fire-and-forget work has finished
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) emit(n Notice) {
	m.logger.Debug("notice", zap.String("level", string(n.Level)), zap.String("message", n.Message))
	m.notify(n)
}

func withoutID(ev models.CalendarEvent) models.CalendarEvent {
	ev.ID = ""
	return ev
}
