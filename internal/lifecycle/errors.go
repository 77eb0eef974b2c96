package lifecycle

import (
	"errors"

	"github.com/benvon/smart-calendar/internal/client"
	"github.com/benvon/smart-calendar/internal/logger"
	"github.com/benvon/smart-calendar/internal/models"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

func isNotFound(err error) bool  { return errors.Is(err, client.ErrNotFound) }
func isConflict(err error) bool  { return errors.Is(err, client.ErrConflict) }
func isDuplicate(err error) bool { return errors.Is(err, client.ErrDuplicate) }

// adoptable reports whether a duplicate add returned an existing backend
// event that can stand in for the new one
func adoptable(existing models.CalendarEvent, err error) bool {
	return isDuplicate(err) && existing.ID != "" && existing.Title != ""
}

// handleError turns a backend failure into the hook call or notice it deserves.
// action completes "Could not ...".
func (m *Manager) handleError(action string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, client.ErrAuthExpired):
		m.logger.Warn("session_rejected", zap.String("action", action))
		if m.onAuthExpired != nil {
			m.onAuthExpired()
		}
		m.emit(Notice{Level: NoticeError, Message: "Your session has expired. Please sign in again.", Err: err})
	case errors.Is(err, client.ErrNetwork):
		m.emit(Notice{Level: NoticeWarning, Message: "Could not " + action + ": the calendar is unreachable. Your change is kept locally.", Err: err})
	case isConflict(err):
		m.emit(Notice{Level: NoticeWarning, Message: "Could not " + action + ": the calendar is busy. Try again shortly.", Err: err})
	default:
		m.logger.Error("backend_request_failed",
			zap.String("action", action),
			zap.String("error", logger.SanitizeError(err)))
		m.emit(Notice{Level: NoticeError, Message: "Could not " + action + ".", Err: err})
	}
}

// afterConflict schedules retry after a backoff delay. count is the number of
// consecutive conflicts seen by the caller; only the conflictNoticeThreshold-th
// one is surfaced.
func (m *Manager) afterConflict(err error, count int, retry func()) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	delay := m.backoff.NextBackOff()
	if delay == backoff.Stop {
		delay = m.refreshInterval
	}
	m.retryID++
	id := m.retryID
	m.retries[id] = m.scheduler.AfterFunc(delay, func() {
		m.mu.Lock()
		_, live := m.retries[id]
		delete(m.retries, id)
		stopped := m.stopped
		m.mu.Unlock()
		if live && !stopped {
			m.spawn(retry)
		}
	})
	m.mu.Unlock()

	m.logger.Debug("backend_conflict_retry_scheduled",
		zap.Int("consecutive", count),
		zap.Duration("delay", delay))
	if count == conflictNoticeThreshold {
		m.emit(Notice{Level: NoticeWarning, Message: "The calendar is busy; changes may take a moment to appear.", Err: err})
	}
}

func (m *Manager) resetBackoff() {
	m.mu.Lock()
	m.backoff.Reset()
	m.mu.Unlock()
}
