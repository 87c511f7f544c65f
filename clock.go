package particlefx

import (
	"fmt"
	"time"
)

// Clock turns wall time into whole fixed simulation ticks.
type Clock struct {
	Time  time.Time
	Dt    time.Duration
	Ticks uint64

	step     time.Duration
	maxTicks int
	acc      time.Duration
	started  bool
	dropped  uint64
}

// NewClock panics if step is not positive, like time.NewTicker.
func NewClock(step time.Duration, maxTicksPerFrame int) *Clock {
	if step <= 0 {
		panic(fmt.Sprintf("particlefx: clock step must be positive, got %v", step))
	}
	return &Clock{step: step, maxTicks: maxTicksPerFrame}
}

// Advance accumulates the time since the previous call and returns how many
// ticks to run now. A backlog beyond maxTicksPerFrame is dropped so a long
// stall does not snowball. The first call only starts the clock.
func (c *Clock) Advance(now time.Time) int {
	if !c.started {
		c.Time = now
		c.started = true
		return 0
	}
	c.Dt = now.Sub(c.Time)
	c.Time = now
	if c.Dt > 0 {
		c.acc += c.Dt
	}

	n := int(c.acc / c.step)
	if n > c.maxTicks {
		c.dropped += uint64(n - c.maxTicks)
		n = c.maxTicks
		c.acc = 0
	} else {
		c.acc -= time.Duration(n) * c.step
	}
	c.Ticks += uint64(n)
	return n
}

// Step is the tick length in seconds.
func (c *Clock) Step() float32 { return float32(c.step.Seconds()) }

// Dropped counts ticks discarded by the per-frame limit.
func (c *Clock) Dropped() uint64 { return c.dropped }
