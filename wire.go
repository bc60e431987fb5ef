package pomosync

import (
	"time"
)

type SyncEventType string

const (
	EventStart       SyncEventType = "start"
	EventPause       SyncEventType = "pause"
	EventResume      SyncEventType = "resume"
	EventStop        SyncEventType = "stop"
	EventSkip        SyncEventType = "skip"
	EventTick        SyncEventType = "tick"
	EventRequestSync SyncEventType = "requestSync"
	EventSnapshot    SyncEventType = "snapshot"
)

func (t SyncEventType) Valid() bool {
	switch t {
	case EventStart, EventPause, EventResume, EventStop, EventSkip,
		EventTick, EventRequestSync, EventSnapshot:
		return true
	}
	return false
}

// SyncEvent is a serialized timer action broadcast to all of a user's
// connected sessions. Payload carries the sender's snapshot at the moment
// the action was applied; receivers replay the named transition rather
// than copying fields, so Timestamp doubles as the transition's wall clock.
type SyncEvent struct {
	Type      SyncEventType `json:"type"`
	Payload   TimerSnapshot `json:"payload"`
	Timestamp time.Time     `json:"timestamp"`
}

func NewSyncEvent(t SyncEventType, snap TimerSnapshot, at time.Time) SyncEvent {
	return SyncEvent{
		Type:      t,
		Payload:   snap,
		Timestamp: at,
	}
}

// TimeEntryRequest is the recorder call shape posted to the REST surface.
type TimeEntryRequest struct {
	ProjectID      ProjectID `json:"project"`
	TaskID         TaskID    `json:"task,omitempty"`
	IdempotencyKey string    `json:"idempotencyKey"`
	StartTime      time.Time `json:"startTime"`
	EndTime        time.Time `json:"endTime"`
	DurationMS     int64     `json:"duration_ms"`
	Notes          string    `json:"notes,omitempty"`
	Tags           []TagID   `json:"tags,omitempty"`
	IsRunning      bool      `json:"isRunning"`
}

// TimerSettingsRequest is the durable settings subset on the REST surface.
type TimerSettingsRequest struct {
	WorkMinutes  int       `json:"workDurationMin"`
	BreakMinutes int       `json:"breakDurationMin"`
	Repetitions  int       `json:"repetitions"`
	ProjectID    ProjectID `json:"projectId,omitempty"`
	TaskID       TaskID    `json:"taskId,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	Tags         []TagID   `json:"tags,omitempty"`
}
