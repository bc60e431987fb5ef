package pomosync

import (
	"time"
)

type TimerStatus uint8

const (
	_ TimerStatus = iota
	TimerIdle
	TimerRunning
	TimerPaused
)

func (s TimerStatus) String() string {
	switch s {
	case TimerIdle:
		return "idle"
	case TimerRunning:
		return "running"
	case TimerPaused:
		return "paused"
	default:
		return "unknown"
	}
}

type TimerMode uint8

const (
	_ TimerMode = iota
	WorkMode
	BreakMode
)

func (m TimerMode) String() string {
	switch m {
	case WorkMode:
		return "work"
	case BreakMode:
		return "break"
	default:
		return "unknown"
	}
}

type (
	UserID    string
	ProjectID string
	TaskID    string
	TagID     string
	EntryID   string
)

// TimerSnapshot is one user's timer view, mirrored across every connected
// session. It travels over the sync channel and is never stored as-is.
type TimerSnapshot struct {
	Status            TimerStatus `json:"status"`
	Mode              TimerMode   `json:"mode"`
	WorkMinutes       int         `json:"workMinutes"`
	BreakMinutes      int         `json:"breakMinutes"`
	Repetitions       int         `json:"repetitions"`
	CurrentRepetition int         `json:"currentRepetition"`
	ElapsedMS         int64       `json:"elapsedMs"`
	WorkStartedAt     time.Time   `json:"workStartedAt,omitzero"`
	ProjectID         ProjectID   `json:"projectId,omitempty"`
	TaskID            TaskID      `json:"taskId,omitempty"`
	Notes             string      `json:"notes,omitempty"`
	Tags              []TagID     `json:"tags,omitempty"`
	Infinite          bool        `json:"infinite,omitempty"`
	PhaseSeq          uint64      `json:"phaseSeq"`
}
