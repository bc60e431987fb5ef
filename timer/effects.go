package timer

import (
	"context"
	"time"

	"pomosync"
)

// EntrySpec describes the time entry a finished work phase should produce.
type EntrySpec struct {
	ProjectID      pomosync.ProjectID
	TaskID         pomosync.TaskID
	IdempotencyKey string
	StartedAt      time.Time
	EndedAt        time.Time
	Duration       time.Duration
	Notes          string
	Tags           []pomosync.TagID
}

// Recorder persists a completed work phase. Failures are logged by callers
// and never block a transition.
type Recorder interface {
	Record(ctx context.Context, spec EntrySpec) error
}

type NotificationKind string

const (
	WorkNotification      NotificationKind = "work"
	BreakNotification     NotificationKind = "break"
	CompleteNotification  NotificationKind = "complete"
	TimeEntryNotification NotificationKind = "timeEntry"
)

type Notification struct {
	Kind       NotificationKind
	Title      string
	Body       string
	Persistent bool
}

// Notifier surfaces a phase-boundary cue. Fire and forget.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Effect is a side effect requested by a transition. Transitions compute
// the next state and return effects; callers execute them off the critical
// path so a slow recorder never holds up the next phase.
type Effect interface {
	effect()
}

type RecordEntry struct {
	Spec EntrySpec
}

func (RecordEntry) effect() {}

type Notify struct {
	Notification
}

func (Notify) effect() {}
