package pomosync

import (
	"context"
	"time"
)

type ExistingRecord[T ~string] struct {
	ID        T
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewExistingRecord[T ~string](id string) ExistingRecord[T] {
	now := time.Now()
	return ExistingRecord[T]{
		ID:        T(id),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TimeEntryRecord is the durable record produced when a work phase ends.
// IdempotencyKey identifies the work-phase instance it came from; multiple
// sessions reporting the same phase collapse to one row.
type TimeEntryRecord struct {
	UserID         UserID
	ProjectID      ProjectID
	TaskID         TaskID
	IdempotencyKey string

	//
	StartedAt time.Time
	EndedAt   time.Time
	Duration  time.Duration
	Notes     string
	Tags      []TagID
	IsRunning bool
}

type ExistingTimeEntryRecord struct {
	ExistingRecord[EntryID]
	TimeEntryRecord
}

// TimerSettingsRecord is the durable subset of the timer state: the pieces
// that survive a reload. Live status/elapsed stay session-transient.
type TimerSettingsRecord struct {
	UserID UserID

	//
	WorkMinutes  int
	BreakMinutes int
	Repetitions  int
	ProjectID    ProjectID
	TaskID       TaskID
	Notes        string
	Tags         []TagID
}

type ExistingTimerSettingsRecord struct {
	ExistingRecord[UserID]
	TimerSettingsRecord
}

type TimeEntryRepo interface {
	InsertEntry(context.Context, TimeEntryRecord) (ExistingTimeEntryRecord, error)
	GetEntry(ctx context.Context, id EntryID) (ExistingTimeEntryRecord, error)
	GetEntriesByUser(ctx context.Context, id UserID) ([]ExistingTimeEntryRecord, error)
	DeleteEntry(ctx context.Context, id EntryID) (ExistingTimeEntryRecord, error)
}

type TimerSettingsRepo interface {
	UpsertSettings(context.Context, TimerSettingsRecord) (ExistingTimerSettingsRecord, error)
	GetSettings(ctx context.Context, id UserID) (ExistingTimerSettingsRecord, error)
	DeleteSettings(ctx context.Context, id UserID) (ExistingTimerSettingsRecord, error)
}
