package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/benvon/smart-calendar/internal/dates"
	"github.com/benvon/smart-calendar/internal/logger"
	"github.com/benvon/smart-calendar/internal/models"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Refresh fetches the backend list and merges it by backend id. Events under
// a pending or recent deletion stay hidden; local events without a backend id
// and events inserted while the fetch was in flight are kept.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	if !m.online {
		m.mu.Unlock()
		return ErrOffline
	}
	startSeq := m.seq
	m.mu.Unlock()

	remote, err := m.backend.ListEvents(ctx)
	if err != nil {
		if isConflict(err) {
			m.scheduleRefreshRetry(err)
			return err
		}
		m.handleError("refresh the calendar", err)
		return err
	}
	m.mu.Lock()
	m.conflicts = 0
	m.backoff.Reset()
	m.mergeLocked(remote, startSeq)
	count := len(m.events)
	m.mu.Unlock()

	m.logger.Debug("events_refreshed", zap.Int("remote", len(remote)), zap.Int("visible", count))
	return nil
}

func (m *Manager) mergeLocked(remote []models.CalendarEvent, startSeq uint64) {
	byID := make(map[string]models.CalendarEvent, len(m.events))
	for _, ev := range m.events {
		if ev.Persisted() {
			byID[ev.ID] = ev
		}
	}
	pendingID := ""
	if m.pending != nil {
		pendingID = m.pending.deletion.Event.ID
	}

	merged := make([]models.CalendarEvent, 0, len(remote))
	seen := make(map[string]bool, len(remote))
	for _, ev := range remote {
		if ev.ID == "" || seen[ev.ID] || ev.ID == pendingID || m.finalized.contains(ev.ID) {
			continue
		}
		seen[ev.ID] = true
		if local, ok := byID[ev.ID]; ok {
			ev.DisplayID = local.DisplayID
		} else {
			ev.DisplayID = models.NewDisplayID()
		}
		merged = append(merged, ev)
		delete(m.addedSeq, ev.ID)
	}
	for _, ev := range m.events {
		switch {
		case !ev.Persisted():
			merged = append(merged, ev)
		case !seen[ev.ID] && m.addedSeq[ev.ID] > startSeq:
			merged = append(merged, ev)
		default:
			if !seen[ev.ID] {
				delete(m.addedSeq, ev.ID)
			}
		}
	}
	m.events = merged
	if m.indexOf(m.selected) < 0 {
		m.selected = ""
	}
	m.sortLocked()
}

func (m *Manager) scheduleRefreshRetry(err error) {
	m.mu.Lock()
	m.conflicts++
	count := m.conflicts
	if m.refreshRetry {
		m.mu.Unlock()
		if count == conflictNoticeThreshold {
			m.emit(Notice{Level: NoticeWarning, Message: "The calendar is busy; changes may take a moment to appear.", Err: err})
		}
		return
	}
	m.refreshRetry = true
	m.mu.Unlock()

	m.afterConflict(err, count, func() {
		m.mu.Lock()
		m.refreshRetry = false
		m.mu.Unlock()
		if err := m.Refresh(m.context()); err != nil && !errors.Is(err, ErrOffline) {
			m.logger.Debug("refresh_retry_failed", zap.String("error", logger.SanitizeError(err)))
		}
	})
}

// Start loads the events once and then refreshes them periodically until Stop.
// The initial load error is returned but does not prevent the schedule.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrManagerStopped
	}
	if m.cron != nil {
		m.mu.Unlock()
		return errors.New("manager already started")
	}
	m.baseCtx, m.cancel = context.WithCancel(ctx)
	m.cron = cron.New()
	m.cron.Schedule(cron.Every(m.refreshInterval), cron.FuncJob(m.refreshTick))
	m.cron.Start()
	base := m.baseCtx
	m.mu.Unlock()

	m.logger.Info("event_refresh_started", zap.Duration("interval", m.refreshInterval))
	return m.Refresh(base)
}

func (m *Manager) refreshTick() {
	if err := m.Refresh(m.context()); err != nil && !errors.Is(err, ErrOffline) {
		m.logger.Debug("scheduled_refresh_failed", zap.String("error", logger.SanitizeError(err)))
	}
}

// Stop halts the refresh schedule and pending retries, finalizes a pending
// deletion and waits for background work.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		m.Wait()
		return
	}
	m.stopped = true
	c := m.cron
	for id, t := range m.retries {
		t.Stop()
		delete(m.retries, id)
	}
	slot := m.detachPendingLocked(models.DeletionConfirmed)
	m.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	if slot != nil {
		m.finalize(slot.deletion.Event, maxFinalizeAttempts)
	}
	m.Wait()

	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()
	m.logger.Info("event_manager_stopped")
}

// draftEvent turns an extracted draft into an unsaved event
func draftEvent(d models.CalendarEventDraft, today time.Time) models.CalendarEvent {
	return models.CalendarEvent{
		DisplayID:   models.NewDisplayID(),
		Title:       d.Title,
		StartDate:   dates.Resolve(today, d.DayOffset),
		ColorTag:    d.ColorTag,
		Description: d.Description,
	}
}
