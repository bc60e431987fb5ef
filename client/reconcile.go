package client

import (
	"time"

	"pomosync"
	"pomosync/timer"
)

// reconcile applies an inbound sync event by replaying the named transition
// on the local machine, never by overwriting fields, so the machine's own
// invariants re-validate the remote claim. The applyingRemote flag keeps
// the application from echoing back onto the channel. Transition effects
// still run locally; the recorder's idempotency key collapses duplicate
// recordings across sessions to one entry.
func (s *Session) reconcile(evt pomosync.SyncEvent) {
	if !evt.Type.Valid() {
		s.l.Warn("dropping sync event of unknown type", "type", evt.Type)
		return
	}
	now := evt.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	s.mu.Lock()
	s.applyingRemote = true
	var effects []timer.Effect
	switch evt.Type {
	case pomosync.EventStart:
		effects, _ = s.machine.Start(now)
	case pomosync.EventPause:
		effects, _ = s.machine.Pause(now)
	case pomosync.EventResume:
		effects, _ = s.machine.Resume(now)
	case pomosync.EventStop:
		effects, _ = s.machine.Stop(now)
	case pomosync.EventSkip:
		effects, _ = s.machine.Skip(now)
	case pomosync.EventTick:
		// the sender crossed its phase threshold; our own clock decides
		// whether we have too
		effects, _ = s.machine.Tick(time.Now())
	case pomosync.EventSnapshot:
		s.machine.Restore(evt.Payload, time.Now())
	case pomosync.EventRequestSync:
		snap := s.machine.Snapshot(time.Now())
		s.applyingRemote = false
		s.mu.Unlock()
		s.send(pomosync.NewSyncEvent(pomosync.EventSnapshot, snap, time.Now()))
		return
	}
	s.applyingRemote = false
	s.mu.Unlock()

	s.runEffects(effects)
}
