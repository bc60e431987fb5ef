package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pomosync"
)

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestMachine(workMin, breakMin, reps int) *Machine {
	m := NewMachine()
	m.SetWorkMinutes(workMin)
	m.SetBreakMinutes(breakMin)
	m.SetRepetitions(reps)
	m.SetProject("proj-1")
	return m
}

func recordings(effects []Effect) []EntrySpec {
	var specs []EntrySpec
	for _, e := range effects {
		if r, ok := e.(RecordEntry); ok {
			specs = append(specs, r.Spec)
		}
	}
	return specs
}

func TestMachine_WorkBreakCycle(t *testing.T) {
	t.Parallel()

	// 25/5 with two repetitions: work, break, work, done.
	m := newTestMachine(25, 5, 2)

	_, ok := m.Start(t0)
	require.True(t, ok)
	require.Equal(t, pomosync.TimerRunning, m.Status())
	require.Equal(t, pomosync.WorkMode, m.Mode())
	require.Equal(t, t0, m.WorkStartedAt())

	// first work phase completes
	now := t0.Add(25 * time.Minute)
	effects, ok := m.Tick(now)
	require.True(t, ok)
	specs := recordings(effects)
	require.Len(t, specs, 1)
	assert.Equal(t, pomosync.ProjectID("proj-1"), specs[0].ProjectID)
	assert.Equal(t, 25*time.Minute, specs[0].Duration)
	assert.Equal(t, t0, specs[0].StartedAt)
	assert.Equal(t, pomosync.BreakMode, m.Mode())
	assert.Equal(t, pomosync.TimerRunning, m.Status())
	assert.Equal(t, 1, m.CurrentRepetition())
	assert.True(t, m.WorkStartedAt().IsZero())

	// break completes
	now = now.Add(5 * time.Minute)
	effects, ok = m.Tick(now)
	require.True(t, ok)
	require.Empty(t, recordings(effects))
	assert.Equal(t, pomosync.WorkMode, m.Mode())
	assert.Equal(t, 2, m.CurrentRepetition())
	assert.Equal(t, now, m.WorkStartedAt())

	// final work phase ends the session
	now = now.Add(25 * time.Minute)
	effects, ok = m.Tick(now)
	require.True(t, ok)
	require.Len(t, recordings(effects), 1)
	assert.Equal(t, pomosync.TimerIdle, m.Status())
	assert.Equal(t, 1, m.CurrentRepetition())

	var kinds []NotificationKind
	for _, e := range effects {
		if n, ok := e.(Notify); ok {
			kinds = append(kinds, n.Kind)
		}
	}
	assert.Contains(t, kinds, CompleteNotification)
}

func TestMachine_ZeroBreakRunsBackToBack(t *testing.T) {
	t.Parallel()

	m := newTestMachine(25, 0, 3)
	_, ok := m.Start(t0)
	require.True(t, ok)

	now := t0
	for rep := 1; rep < 3; rep++ {
		now = now.Add(25 * time.Minute)
		effects, ok := m.Tick(now)
		require.True(t, ok)
		require.Len(t, recordings(effects), 1)
		// no break mode ever observed
		assert.Equal(t, pomosync.WorkMode, m.Mode())
		assert.Equal(t, pomosync.TimerRunning, m.Status())
		assert.Equal(t, rep+1, m.CurrentRepetition())
	}

	now = now.Add(25 * time.Minute)
	effects, ok := m.Tick(now)
	require.True(t, ok)
	require.Len(t, recordings(effects), 1)
	assert.Equal(t, pomosync.TimerIdle, m.Status())
}

func TestMachine_PauseResumeNoDrift(t *testing.T) {
	t.Parallel()

	m := newTestMachine(25, 5, 4)
	m.Start(t0)

	pausedAt := t0.Add(10 * time.Minute)
	_, ok := m.Pause(pausedAt)
	require.True(t, ok)
	require.Equal(t, pomosync.TimerPaused, m.Status())

	// any real-world delay during the pause accrues nothing
	resumedAt := pausedAt.Add(3 * time.Hour)
	assert.Equal(t, 10*time.Minute, m.Elapsed(resumedAt))
	_, ok = m.Resume(resumedAt)
	require.True(t, ok)
	assert.Equal(t, 10*time.Minute, m.Elapsed(resumedAt))

	// phase completes 15 minutes after resume
	_, ok = m.Tick(resumedAt.Add(14 * time.Minute))
	assert.False(t, ok)
	effects, ok := m.Tick(resumedAt.Add(15 * time.Minute))
	require.True(t, ok)
	specs := recordings(effects)
	require.Len(t, specs, 1)
	assert.Equal(t, 25*time.Minute, specs[0].Duration)
}

func TestMachine_IllegalTransitionsAreNoOps(t *testing.T) {
	t.Parallel()

	m := newTestMachine(25, 5, 4)

	_, ok := m.Pause(t0)
	assert.False(t, ok)
	_, ok = m.Resume(t0)
	assert.False(t, ok)
	_, ok = m.Stop(t0)
	assert.False(t, ok)
	_, ok = m.Skip(t0)
	assert.False(t, ok)
	_, ok = m.Tick(t0)
	assert.False(t, ok)

	m.Start(t0)
	_, ok = m.Start(t0.Add(time.Minute))
	assert.False(t, ok, "start while running must be a no-op")
	_, ok = m.Resume(t0.Add(time.Minute))
	assert.False(t, ok)
}

func TestMachine_DuplicateStopRecordsOnce(t *testing.T) {
	t.Parallel()

	m := newTestMachine(25, 5, 4)
	m.Start(t0)

	now := t0.Add(12 * time.Minute)
	effects, ok := m.Stop(now)
	require.True(t, ok)
	require.Len(t, recordings(effects), 1)

	effects, ok = m.Stop(now)
	assert.False(t, ok)
	assert.Empty(t, recordings(effects))
}

func TestMachine_DuplicateTickRecordsOnce(t *testing.T) {
	t.Parallel()

	// single repetition: completion lands on idle, where a replayed tick
	// must change nothing
	m := newTestMachine(25, 5, 1)
	m.Start(t0)

	now := t0.Add(25 * time.Minute)
	effects, ok := m.Tick(now)
	require.True(t, ok)
	require.Len(t, recordings(effects), 1)
	require.Equal(t, pomosync.TimerIdle, m.Status())

	// replayed tick after completion
	effects, ok = m.Tick(now.Add(time.Second))
	assert.False(t, ok)
	assert.Empty(t, recordings(effects))
}

func TestMachine_StopWithoutProjectRecordsNothing(t *testing.T) {
	t.Parallel()

	m := NewMachine()
	m.SetWorkMinutes(25)
	m.Start(t0)

	effects, ok := m.Stop(t0.Add(10 * time.Minute))
	require.True(t, ok)
	assert.Empty(t, recordings(effects))
	assert.Equal(t, pomosync.TimerIdle, m.Status())
}

func TestMachine_InfiniteModeNeverAutoCompletes(t *testing.T) {
	t.Parallel()

	m := newTestMachine(25, 5, 4)
	require.True(t, m.SetInfinite(true))
	m.Start(t0)

	_, ok := m.Tick(t0.Add(10 * time.Hour))
	assert.False(t, ok)
	assert.Equal(t, 10*time.Hour, m.Elapsed(t0.Add(10*time.Hour)))

	effects, ok := m.Stop(t0.Add(10 * time.Hour))
	require.True(t, ok)
	specs := recordings(effects)
	require.Len(t, specs, 1)
	assert.Equal(t, 10*time.Hour, specs[0].Duration)
}

func TestMachine_SkipAppliesTransitionTable(t *testing.T) {
	t.Parallel()

	m := newTestMachine(25, 5, 2)
	m.Start(t0)

	now := t0.Add(3 * time.Minute)
	effects, ok := m.Skip(now)
	require.True(t, ok)
	specs := recordings(effects)
	require.Len(t, specs, 1)
	assert.Equal(t, 3*time.Minute, specs[0].Duration)
	assert.Equal(t, pomosync.BreakMode, m.Mode())

	// skipping the break goes straight to the next work phase
	now = now.Add(time.Minute)
	effects, ok = m.Skip(now)
	require.True(t, ok)
	assert.Empty(t, recordings(effects))
	assert.Equal(t, pomosync.WorkMode, m.Mode())
	assert.Equal(t, 2, m.CurrentRepetition())
}

func TestMachine_SettersGatedWhileActive(t *testing.T) {
	t.Parallel()

	m := newTestMachine(25, 5, 4)
	assert.True(t, m.SetWorkMinutes(30))
	assert.False(t, m.SetWorkMinutes(0))
	assert.False(t, m.SetRepetitions(0))

	m.Start(t0)
	assert.False(t, m.SetWorkMinutes(45))
	assert.False(t, m.SetBreakMinutes(10))
	assert.False(t, m.SetRepetitions(6))
	assert.False(t, m.SetInfinite(true))

	// attribution stays editable mid-phase
	m.SetNotes("deep work")
	m.SetTask("task-9")
	snap := m.Snapshot(t0.Add(time.Minute))
	assert.Equal(t, "deep work", snap.Notes)
	assert.Equal(t, pomosync.TaskID("task-9"), snap.TaskID)
	assert.Equal(t, 30, snap.WorkMinutes)
}

func TestMachine_ElapsedStaysBounded(t *testing.T) {
	t.Parallel()

	m := newTestMachine(25, 5, 4)
	m.Start(t0)

	// sampled long past the threshold, before any tick fired
	assert.Equal(t, 25*time.Minute, m.Elapsed(t0.Add(90*time.Minute)))
	snap := m.Snapshot(t0.Add(90 * time.Minute))
	assert.Equal(t, (25 * time.Minute).Milliseconds(), snap.ElapsedMS)
}

func TestMachine_RepetitionBounds(t *testing.T) {
	t.Parallel()

	m := newTestMachine(1, 0, 2)
	m.Start(t0)
	now := t0
	for i := 0; i < 10; i++ {
		now = now.Add(time.Minute)
		m.Tick(now)
		rep := m.CurrentRepetition()
		require.GreaterOrEqual(t, rep, 1)
		require.LessOrEqual(t, rep, 2)
		if m.Status() == pomosync.TimerIdle {
			break
		}
	}
	assert.Equal(t, pomosync.TimerIdle, m.Status())
}

func TestMachine_RestoreConverges(t *testing.T) {
	t.Parallel()

	source := newTestMachine(25, 5, 4)
	source.Start(t0)
	source.Pause(t0.Add(7 * time.Minute))
	source.Resume(t0.Add(9 * time.Minute))

	now := t0.Add(15 * time.Minute) // 13m logical elapsed
	snap := source.Snapshot(now)

	stale := NewMachine()
	stale.Restore(snap, now)
	assert.Equal(t, pomosync.TimerRunning, stale.Status())
	assert.Equal(t, pomosync.WorkMode, stale.Mode())
	assert.Equal(t, source.Elapsed(now), stale.Elapsed(now))
	assert.Equal(t, source.WorkStartedAt(), stale.WorkStartedAt())
}

func TestMachine_RestoreAfterLocalHistoryStillCompletes(t *testing.T) {
	t.Parallel()

	// this device already ran a full session, so its sequence counters are
	// ahead of a peer that just started its first phase
	m := newTestMachine(25, 0, 2)
	m.Start(t0)
	m.Tick(t0.Add(25 * time.Minute))
	m.Tick(t0.Add(50 * time.Minute))
	require.Equal(t, pomosync.TimerIdle, m.Status())

	peer := newTestMachine(25, 5, 4)
	start := t0.Add(time.Hour)
	peer.Start(start)
	snap := peer.Snapshot(start)

	m.Restore(snap, start)
	require.Equal(t, pomosync.TimerRunning, m.Status())

	// the restored phase must still complete locally
	effects, ok := m.Tick(start.Add(25 * time.Minute))
	require.True(t, ok)
	specs := recordings(effects)
	require.Len(t, specs, 1)

	// and record under the same key the peer derives for this phase
	peerEffects, ok := peer.Tick(start.Add(25 * time.Minute))
	require.True(t, ok)
	peerSpecs := recordings(peerEffects)
	require.Len(t, peerSpecs, 1)
	assert.Equal(t, peerSpecs[0].IdempotencyKey, specs[0].IdempotencyKey)
}

func TestMachine_RestoreClampsInvalidSnapshot(t *testing.T) {
	t.Parallel()

	m := NewMachine()
	m.Restore(pomosync.TimerSnapshot{
		Status:            pomosync.TimerRunning,
		Mode:              pomosync.WorkMode,
		WorkMinutes:       25,
		BreakMinutes:      5,
		Repetitions:       3,
		CurrentRepetition: 9,
		ElapsedMS:         -500,
	}, t0)

	assert.Equal(t, 3, m.CurrentRepetition())
	assert.Equal(t, time.Duration(0), m.Elapsed(t0))
	assert.False(t, m.WorkStartedAt().IsZero(), "active work phase needs a start time")
}

func TestNextPhase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		mode         pomosync.TimerMode
		breakMinutes int
		current      int
		total        int
		want         phaseOutcome
	}{
		{"work to break", pomosync.WorkMode, 5, 1, 4, phaseBreakNext},
		{"work zero break chains work", pomosync.WorkMode, 0, 2, 4, phaseWorkNext},
		{"final work completes session", pomosync.WorkMode, 5, 4, 4, phaseSessionDone},
		{"final work zero break completes session", pomosync.WorkMode, 0, 4, 4, phaseSessionDone},
		{"break to work", pomosync.BreakMode, 5, 1, 4, phaseWorkNext},
		{"final break completes session", pomosync.BreakMode, 5, 4, 4, phaseSessionDone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := nextPhase(tt.mode, tt.breakMinutes, tt.current, tt.total)
			assert.Equal(t, tt.want, got)
		})
	}
}
