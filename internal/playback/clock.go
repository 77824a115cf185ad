// Package playback implements the virtual playback clock and keeps an
// external media handle in step with it.
package playback

import (
	"math"
	"time"
)

// State is the clock's playback state.
type State int

const (
	Paused State = iota
	Playing
	Scrubbing
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Scrubbing:
		return "scrubbing"
	default:
		return "paused"
	}
}

// Clock is the virtual time cursor of a project. It advances only while
// Playing, once per scheduler tick, and reports every time change to its
// listener. A forced change asks the listener to reseek regardless of drift.
//
// Clock is not safe for concurrent use; it expects to run under the same
// lock as its scheduler callbacks.
type Clock struct {
	sched    Scheduler
	duration func() float64

	state State
	time  float64
	loop  bool

	onChange func(t float64, force bool)
}

// NewClock returns a paused clock at zero. duration reports the current
// project length.
func NewClock(sched Scheduler, duration func() float64) *Clock {
	return &Clock{sched: sched, duration: duration}
}

// OnChange registers the time-change listener.
func (c *Clock) OnChange(fn func(t float64, force bool)) {
	c.onChange = fn
}

// State returns the current state.
func (c *Clock) State() State { return c.state }

// Time returns the clock time in seconds.
func (c *Clock) Time() float64 { return c.time }

// Loop reports whether playback wraps at the end.
func (c *Clock) Loop() bool { return c.loop }

// SetLoop turns looping on or off.
func (c *Clock) SetLoop(loop bool) { c.loop = loop }

// Play starts advancing the clock. Playing from the end restarts at zero.
func (c *Clock) Play() {
	if c.state == Playing {
		return
	}
	if c.time >= c.duration() {
		c.time = 0
	}
	c.state = Playing
	c.sched.ScheduleTick(c.Tick)
	c.notify(false)
}

// Pause stops the clock where it is.
func (c *Clock) Pause() {
	if c.state == Paused {
		return
	}
	if c.state == Playing {
		c.sched.Cancel()
	}
	c.state = Paused
	c.notify(false)
}

// Toggle switches between Playing and Paused.
func (c *Clock) Toggle() {
	if c.state == Playing {
		c.Pause()
		return
	}
	c.Play()
}

// Seek jumps to t, clamped to the project. The state is unchanged.
func (c *Clock) Seek(t float64) {
	c.time = c.clamp(t)
	c.notify(true)
}

// StartScrub stops playback and hands time control to the pointer.
func (c *Clock) StartScrub() {
	if c.state == Scrubbing {
		return
	}
	if c.state == Playing {
		c.sched.Cancel()
	}
	c.state = Scrubbing
	c.notify(true)
}

// ScrubTo moves the cursor during a scrub. Every call forces a reseek.
// Outside a scrub it behaves as Seek.
func (c *Clock) ScrubTo(t float64) {
	c.time = c.clamp(t)
	c.notify(true)
}

// EndScrub returns to Paused.
func (c *Clock) EndScrub() {
	if c.state != Scrubbing {
		return
	}
	c.state = Paused
	c.notify(false)
}

// Tick advances the clock by dt. It does nothing unless Playing.
func (c *Clock) Tick(dt time.Duration) {
	if c.state != Playing {
		return
	}
	next := c.time + dt.Seconds()
	if d := c.duration(); next >= d {
		if c.loop {
			next = 0
		} else {
			next = d
			c.state = Paused
			c.sched.Cancel()
		}
	}
	c.time = next
	c.notify(false)
}

// Reclamp pulls the cursor back inside the project after the timeline
// shrank, without changing state.
func (c *Clock) Reclamp() {
	if t := c.clamp(c.time); t != c.time {
		c.time = t
		c.notify(true)
	}
}

func (c *Clock) clamp(t float64) float64 {
	if math.IsNaN(t) || t < 0 {
		return 0
	}
	if d := c.duration(); t > d {
		return d
	}
	return t
}

func (c *Clock) notify(force bool) {
	if c.onChange != nil {
		c.onChange(c.time, force)
	}
}
