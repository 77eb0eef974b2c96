package models

import "time"

// DeletionState is the state of a pending deletion
type DeletionState string

const (
	DeletionPending   DeletionState = "pending"
	DeletionConfirmed DeletionState = "confirmed"
	DeletionUndone    DeletionState = "undone"
)

// PendingDeletion is an optimistic delete that can still be undone until
// GraceDeadline passes
type PendingDeletion struct {
	Event         CalendarEvent `json:"event"`
	GraceDeadline time.Time     `json:"grace_deadline"`
	State         DeletionState `json:"state"`
}
