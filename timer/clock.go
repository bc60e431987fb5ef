// Package timer holds the work/break timer state machine shared by every
// session of a user. All mutation goes through the transition API so the
// machine's invariants are checked in one place.
package timer

import (
	"time"
)

// ElapsedClock turns wall-clock samples into a logical elapsed duration for
// the current phase. On pause the last value is frozen; on resume the start
// reference is recomputed as now minus the frozen value, so elapsed stays
// continuous across any number of pause/resume cycles without summing deltas.
type ElapsedClock struct {
	ref     time.Time
	frozen  time.Duration
	running bool
}

func (c *ElapsedClock) StartAt(now time.Time) {
	c.ref = now
	c.frozen = 0
	c.running = true
}

func (c *ElapsedClock) Elapsed(now time.Time) time.Duration {
	if !c.running {
		return c.frozen
	}
	if d := now.Sub(c.ref); d > 0 {
		return d
	}
	return 0
}

func (c *ElapsedClock) PauseAt(now time.Time) {
	if !c.running {
		return
	}
	c.frozen = c.Elapsed(now)
	c.ref = time.Time{}
	c.running = false
}

func (c *ElapsedClock) ResumeAt(now time.Time) {
	if c.running {
		return
	}
	c.ref = now.Add(-c.frozen)
	c.running = true
}

// RestoreAt rewinds the clock so that Elapsed(now) == elapsed, used when
// converging onto a peer's snapshot.
func (c *ElapsedClock) RestoreAt(now time.Time, elapsed time.Duration, running bool) {
	if elapsed < 0 {
		elapsed = 0
	}
	if running {
		c.ref = now.Add(-elapsed)
		c.frozen = 0
		c.running = true
		return
	}
	c.ref = time.Time{}
	c.frozen = elapsed
	c.running = false
}

func (c *ElapsedClock) Reset() {
	c.ref = time.Time{}
	c.frozen = 0
	c.running = false
}

func (c *ElapsedClock) Running() bool {
	return c.running
}
