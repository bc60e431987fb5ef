package timer

import (
	"fmt"
	"time"

	"pomosync"
)

const (
	DefaultWorkMinutes  = 25
	DefaultBreakMinutes = 5
	DefaultRepetitions  = 4
)

// Machine is the timer state machine. One instance per session, owned by a
// single goroutine or guarded by the owner; transitions are the only
// mutation path. Illegal transitions are silent no-ops so duplicate or
// out-of-order sync events collapse harmlessly.
type Machine struct {
	status pomosync.TimerStatus
	mode   pomosync.TimerMode

	workMinutes  int
	breakMinutes int
	repetitions  int
	currentRep   int

	clock         ElapsedClock
	workStartedAt time.Time

	projectID pomosync.ProjectID
	taskID    pomosync.TaskID
	notes     string
	tags      []pomosync.TagID
	infinite  bool

	// phaseSeq identifies the current phase instance; completedSeq is the
	// last instance whose completion has been handled. Gating completion on
	// the pair keeps replayed ticks from recording twice.
	phaseSeq     uint64
	completedSeq uint64
}

func NewMachine() *Machine {
	return &Machine{
		status:       pomosync.TimerIdle,
		mode:         pomosync.WorkMode,
		workMinutes:  DefaultWorkMinutes,
		breakMinutes: DefaultBreakMinutes,
		repetitions:  DefaultRepetitions,
		currentRep:   1,
	}
}

// Start is legal from idle or paused. A fresh start enters a new work phase;
// from paused it behaves as resume.
func (m *Machine) Start(now time.Time) ([]Effect, bool) {
	switch m.status {
	case pomosync.TimerPaused:
		m.clock.ResumeAt(now)
		m.status = pomosync.TimerRunning
		return nil, true
	case pomosync.TimerIdle:
		m.mode = pomosync.WorkMode
		m.clock.StartAt(now)
		m.workStartedAt = now
		m.phaseSeq++
		m.status = pomosync.TimerRunning
		return nil, true
	default:
		return nil, false
	}
}

func (m *Machine) Pause(now time.Time) ([]Effect, bool) {
	if m.status != pomosync.TimerRunning {
		return nil, false
	}
	m.clock.PauseAt(now)
	m.status = pomosync.TimerPaused
	return nil, true
}

func (m *Machine) Resume(now time.Time) ([]Effect, bool) {
	if m.status != pomosync.TimerPaused {
		return nil, false
	}
	m.clock.ResumeAt(now)
	m.status = pomosync.TimerRunning
	return nil, true
}

// Stop ends the session from any active state. A work phase with a project
// still produces its time entry; everything else resets to idle defaults.
func (m *Machine) Stop(now time.Time) ([]Effect, bool) {
	if m.status == pomosync.TimerIdle {
		return nil, false
	}
	effects := m.entryEffects(now)
	m.resetToIdle()
	return effects, true
}

// Skip ends the current phase early and applies the same transition table a
// natural completion would.
func (m *Machine) Skip(now time.Time) ([]Effect, bool) {
	if m.status == pomosync.TimerIdle {
		return nil, false
	}
	if m.status == pomosync.TimerPaused {
		m.clock.ResumeAt(now)
		m.status = pomosync.TimerRunning
	}
	return m.advance(now), true
}

// Tick samples the clock and fires the phase transition once elapsed crosses
// the phase duration. Infinite work phases never auto-complete.
func (m *Machine) Tick(now time.Time) ([]Effect, bool) {
	if m.status != pomosync.TimerRunning {
		return nil, false
	}
	if m.infinite && m.mode == pomosync.WorkMode {
		return nil, false
	}
	if m.completedSeq >= m.phaseSeq {
		return nil, false
	}
	if m.clock.Elapsed(now) < m.phaseDuration() {
		return nil, false
	}
	return m.advance(now), true
}

func (m *Machine) advance(now time.Time) []Effect {
	m.completedSeq = m.phaseSeq
	effects := m.entryEffects(now)

	switch nextPhase(m.mode, m.breakMinutes, m.currentRep, m.repetitions) {
	case phaseWorkNext:
		if m.currentRep < m.repetitions {
			m.currentRep++
		}
		m.mode = pomosync.WorkMode
		m.status = pomosync.TimerRunning
		m.clock.StartAt(now)
		m.workStartedAt = now
		m.phaseSeq++
		effects = append(effects, Notify{Notification{
			Kind:  WorkNotification,
			Title: "Work time",
			Body:  fmt.Sprintf("Repetition %d of %d", m.currentRep, m.repetitions),
		}})
	case phaseBreakNext:
		m.mode = pomosync.BreakMode
		m.status = pomosync.TimerRunning
		m.clock.StartAt(now)
		m.workStartedAt = time.Time{}
		m.phaseSeq++
		effects = append(effects, Notify{Notification{
			Kind:  BreakNotification,
			Title: "Break time",
			Body:  fmt.Sprintf("%d minute break", m.breakMinutes),
		}})
	case phaseSessionDone:
		m.resetToIdle()
		effects = append(effects, Notify{Notification{
			Kind:       CompleteNotification,
			Title:      "All sessions complete",
			Persistent: true,
		}})
	}
	return effects
}

// entryEffects builds the recording effects for the phase ending now, or
// nothing when the phase is not an attributable work phase.
func (m *Machine) entryEffects(now time.Time) []Effect {
	if m.mode != pomosync.WorkMode || m.projectID == "" || m.workStartedAt.IsZero() {
		return nil
	}
	duration := m.clock.Elapsed(now)
	if !m.infinite {
		if limit := m.phaseDuration(); duration > limit {
			duration = limit
		}
	}
	spec := EntrySpec{
		ProjectID:      m.projectID,
		TaskID:         m.taskID,
		IdempotencyKey: fmt.Sprintf("%d-%d", m.workStartedAt.UnixMilli(), m.phaseSeq),
		StartedAt:      m.workStartedAt,
		EndedAt:        now,
		Duration:       duration,
		Notes:          m.notes,
		Tags:           m.tags,
	}
	return []Effect{
		RecordEntry{Spec: spec},
		Notify{Notification{
			Kind:  TimeEntryNotification,
			Title: "Time entry recorded",
			Body:  fmt.Sprintf("%s tracked", duration.Round(time.Second)),
		}},
	}
}

func (m *Machine) resetToIdle() {
	m.completedSeq = m.phaseSeq
	m.status = pomosync.TimerIdle
	m.mode = pomosync.WorkMode
	m.clock.Reset()
	m.workStartedAt = time.Time{}
	m.currentRep = 1
}

func (m *Machine) phaseDuration() time.Duration {
	switch m.mode {
	case pomosync.BreakMode:
		return time.Duration(m.breakMinutes) * time.Minute
	default:
		return time.Duration(m.workMinutes) * time.Minute
	}
}

// Setters. Durations, repetitions and infinite mode only change while idle;
// attribution can change at any time and attaches to the entry at phase end.

func (m *Machine) SetWorkMinutes(minutes int) bool {
	if m.status != pomosync.TimerIdle || minutes <= 0 {
		return false
	}
	m.workMinutes = minutes
	return true
}

func (m *Machine) SetBreakMinutes(minutes int) bool {
	if m.status != pomosync.TimerIdle || minutes < 0 {
		return false
	}
	m.breakMinutes = minutes
	return true
}

func (m *Machine) SetRepetitions(n int) bool {
	if m.status != pomosync.TimerIdle || n < 1 {
		return false
	}
	m.repetitions = n
	return true
}

func (m *Machine) SetInfinite(infinite bool) bool {
	if m.status != pomosync.TimerIdle {
		return false
	}
	m.infinite = infinite
	return true
}

func (m *Machine) SetProject(id pomosync.ProjectID) {
	m.projectID = id
}

func (m *Machine) SetTask(id pomosync.TaskID) {
	m.taskID = id
}

func (m *Machine) SetNotes(notes string) {
	m.notes = notes
}

func (m *Machine) SetTags(tags []pomosync.TagID) {
	m.tags = append([]pomosync.TagID(nil), tags...)
}

func (m *Machine) Status() pomosync.TimerStatus {
	return m.status
}

func (m *Machine) Mode() pomosync.TimerMode {
	return m.mode
}

func (m *Machine) CurrentRepetition() int {
	return m.currentRep
}

func (m *Machine) ProjectID() pomosync.ProjectID {
	return m.projectID
}

func (m *Machine) WorkStartedAt() time.Time {
	return m.workStartedAt
}

func (m *Machine) Elapsed(now time.Time) time.Duration {
	d := m.clock.Elapsed(now)
	if m.status == pomosync.TimerIdle {
		return 0
	}
	if m.infinite && m.mode == pomosync.WorkMode {
		return d
	}
	if limit := m.phaseDuration(); d > limit {
		return limit
	}
	return d
}

func (m *Machine) Snapshot(now time.Time) pomosync.TimerSnapshot {
	return pomosync.TimerSnapshot{
		Status:            m.status,
		Mode:              m.mode,
		WorkMinutes:       m.workMinutes,
		BreakMinutes:      m.breakMinutes,
		Repetitions:       m.repetitions,
		CurrentRepetition: m.currentRep,
		ElapsedMS:         m.Elapsed(now).Milliseconds(),
		WorkStartedAt:     m.workStartedAt,
		ProjectID:         m.projectID,
		TaskID:            m.taskID,
		Notes:             m.notes,
		Tags:              append([]pomosync.TagID(nil), m.tags...),
		Infinite:          m.infinite,
		PhaseSeq:          m.phaseSeq,
	}
}

// Settings returns the durable subset that survives a reload.
func (m *Machine) Settings() pomosync.TimerSettingsRecord {
	return pomosync.TimerSettingsRecord{
		WorkMinutes:  m.workMinutes,
		BreakMinutes: m.breakMinutes,
		Repetitions:  m.repetitions,
		ProjectID:    m.projectID,
		TaskID:       m.taskID,
		Notes:        m.notes,
		Tags:         append([]pomosync.TagID(nil), m.tags...),
	}
}

// RestoreSettings seeds the durable subset, idle only.
func (m *Machine) RestoreSettings(rec pomosync.TimerSettingsRecord) bool {
	if m.status != pomosync.TimerIdle {
		return false
	}
	m.SetWorkMinutes(rec.WorkMinutes)
	m.SetBreakMinutes(rec.BreakMinutes)
	m.SetRepetitions(rec.Repetitions)
	m.SetProject(rec.ProjectID)
	m.SetTask(rec.TaskID)
	m.SetNotes(rec.Notes)
	m.SetTags(rec.Tags)
	return true
}

// Restore converges this machine onto a peer's snapshot. Fields are
// re-validated against the machine's invariants rather than trusted: the
// repetition counter is clamped, the clock is rebuilt from the reported
// elapsed value, and the phase sequence is taken from the snapshot so every
// device keys the restored phase identically.
func (m *Machine) Restore(snap pomosync.TimerSnapshot, now time.Time) {
	if snap.Repetitions >= 1 {
		m.repetitions = snap.Repetitions
	}
	if snap.WorkMinutes > 0 {
		m.workMinutes = snap.WorkMinutes
	}
	if snap.BreakMinutes >= 0 {
		m.breakMinutes = snap.BreakMinutes
	}
	m.currentRep = snap.CurrentRepetition
	if m.currentRep < 1 {
		m.currentRep = 1
	}
	if m.currentRep > m.repetitions {
		m.currentRep = m.repetitions
	}
	m.projectID = snap.ProjectID
	m.taskID = snap.TaskID
	m.notes = snap.Notes
	m.tags = append([]pomosync.TagID(nil), snap.Tags...)
	m.infinite = snap.Infinite

	switch snap.Status {
	case pomosync.TimerRunning, pomosync.TimerPaused:
		m.status = snap.Status
		m.mode = snap.Mode
		if m.mode != pomosync.WorkMode && m.mode != pomosync.BreakMode {
			m.mode = pomosync.WorkMode
		}
		elapsed := time.Duration(snap.ElapsedMS) * time.Millisecond
		m.clock.RestoreAt(now, elapsed, snap.Status == pomosync.TimerRunning)
		if m.mode == pomosync.WorkMode {
			m.workStartedAt = snap.WorkStartedAt
			if m.workStartedAt.IsZero() {
				m.workStartedAt = now.Add(-elapsed)
			}
		} else {
			m.workStartedAt = time.Time{}
		}
	default:
		m.status = pomosync.TimerIdle
		m.mode = pomosync.WorkMode
		m.clock.Reset()
		m.workStartedAt = time.Time{}
		m.currentRep = 1
	}

	// The snapshot's sequence identifies the shared phase instance, so it
	// replaces the local one even when lower; all devices must derive the
	// same idempotency key for the phase. An active phase is pending again
	// regardless of local history, otherwise a device that already finished
	// a session would never complete the restored phase.
	m.phaseSeq = snap.PhaseSeq
	if m.status == pomosync.TimerIdle {
		m.completedSeq = m.phaseSeq
		return
	}
	if m.phaseSeq == 0 {
		m.phaseSeq = 1
	}
	m.completedSeq = m.phaseSeq - 1
}
