package timer

import (
	"pomosync"
)

type phaseOutcome uint8

const (
	phaseWorkNext phaseOutcome = iota
	phaseBreakNext
	phaseSessionDone
)

// nextPhase decides what follows a completed phase. With a zero break the
// work phases run back to back; the final work repetition ends the session
// with no trailing break.
func nextPhase(mode pomosync.TimerMode, breakMinutes, current, total int) phaseOutcome {
	if mode == pomosync.WorkMode {
		if current >= total {
			return phaseSessionDone
		}
		if breakMinutes > 0 {
			return phaseBreakNext
		}
		return phaseWorkNext
	}

	// after any break, next is work
	if current < total {
		return phaseWorkNext
	}
	return phaseSessionDone
}
