package playback

import (
	"math"
	"testing"
	"time"
)

type change struct {
	t     float64
	force bool
}

func newTestClock(duration float64) (*Clock, *ManualScheduler, *[]change) {
	sched := NewManualScheduler()
	c := NewClock(sched, func() float64 { return duration })
	var changes []change
	c.OnChange(func(t float64, force bool) {
		changes = append(changes, change{t, force})
	})
	return c, sched, &changes
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestClockInitialState(t *testing.T) {
	c, sched, _ := newTestClock(10)
	if c.State() != Paused || c.Time() != 0 {
		t.Errorf("initial = %s at %v, want paused at 0", c.State(), c.Time())
	}
	sched.Advance(time.Second)
	if c.Time() != 0 {
		t.Errorf("paused clock advanced to %v", c.Time())
	}
}

func TestClockPlayAdvances(t *testing.T) {
	c, sched, changes := newTestClock(10)
	c.Play()
	if c.State() != Playing || !sched.Ticking() {
		t.Fatalf("after Play() state = %s, ticking = %v", c.State(), sched.Ticking())
	}
	sched.Step(3, 500*time.Millisecond)
	if !near(c.Time(), 1.5) {
		t.Errorf("Time() = %v, want 1.5", c.Time())
	}
	if got := len(*changes); got != 4 {
		t.Errorf("changes = %d, want 4 (play + 3 ticks)", got)
	}

	c.Play()
	if got := len(*changes); got != 4 {
		t.Errorf("Play() while playing notified again")
	}
}

func TestClockStopsAtEnd(t *testing.T) {
	c, sched, _ := newTestClock(2)
	c.Play()
	sched.Step(3, time.Second)

	if c.State() != Paused {
		t.Errorf("State() = %s, want paused", c.State())
	}
	if c.Time() != 2 {
		t.Errorf("Time() = %v, want 2", c.Time())
	}
	if sched.Ticking() {
		t.Error("tick still scheduled after reaching end")
	}

	c.Play()
	if c.Time() != 0 {
		t.Errorf("Play() at end: Time() = %v, want 0", c.Time())
	}
}

func TestClockLoops(t *testing.T) {
	c, sched, _ := newTestClock(2)
	c.SetLoop(true)
	c.Play()
	sched.Step(2, time.Second)

	if c.State() != Playing {
		t.Errorf("State() = %s, want playing", c.State())
	}
	if c.Time() != 0 {
		t.Errorf("Time() = %v, want 0 after wrap", c.Time())
	}
	sched.Advance(250 * time.Millisecond)
	if !near(c.Time(), 0.25) {
		t.Errorf("Time() = %v, want 0.25", c.Time())
	}
}

func TestClockPause(t *testing.T) {
	c, sched, _ := newTestClock(10)
	c.Play()
	sched.Advance(time.Second)
	c.Pause()
	sched.Advance(time.Second)

	if c.State() != Paused || !near(c.Time(), 1) {
		t.Errorf("after Pause() = %s at %v", c.State(), c.Time())
	}
	if sched.Ticking() {
		t.Error("tick still scheduled after Pause()")
	}
}

func TestClockSeek(t *testing.T) {
	tests := []struct {
		seek float64
		want float64
	}{
		{4, 4},
		{-1, 0},
		{30, 10},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		c, _, changes := newTestClock(10)
		c.Seek(tt.seek)
		if c.Time() != tt.want {
			t.Errorf("Seek(%v): Time() = %v, want %v", tt.seek, c.Time(), tt.want)
		}
		if len(*changes) != 1 || !(*changes)[0].force {
			t.Errorf("Seek(%v) changes = %+v, want one forced", tt.seek, *changes)
		}
	}
}

func TestClockSeekWhilePlayingKeepsPlaying(t *testing.T) {
	c, sched, _ := newTestClock(10)
	c.Play()
	c.Seek(5)
	sched.Advance(time.Second)
	if c.State() != Playing || !near(c.Time(), 6) {
		t.Errorf("got %s at %v, want playing at 6", c.State(), c.Time())
	}
}

func TestClockScrub(t *testing.T) {
	c, sched, changes := newTestClock(10)
	c.Play()
	sched.Advance(time.Second)

	c.StartScrub()
	if c.State() != Scrubbing || sched.Ticking() {
		t.Fatalf("StartScrub(): state = %s, ticking = %v", c.State(), sched.Ticking())
	}

	*changes = nil
	for _, x := range []float64{2, 2.5, 3} {
		c.ScrubTo(x)
	}
	sched.Advance(time.Second)
	if c.Time() != 3 {
		t.Errorf("Time() = %v, want 3", c.Time())
	}
	for _, ch := range *changes {
		if !ch.force {
			t.Errorf("scrub change at %v not forced", ch.t)
		}
	}

	c.EndScrub()
	if c.State() != Paused {
		t.Errorf("EndScrub(): state = %s, want paused", c.State())
	}
	c.EndScrub()
}

func TestClockToggle(t *testing.T) {
	c, _, _ := newTestClock(10)
	c.Toggle()
	if c.State() != Playing {
		t.Errorf("State() = %s, want playing", c.State())
	}
	c.Toggle()
	if c.State() != Paused {
		t.Errorf("State() = %s, want paused", c.State())
	}
}

func TestClockReclamp(t *testing.T) {
	duration := 10.0
	sched := NewManualScheduler()
	c := NewClock(sched, func() float64 { return duration })
	c.Seek(8)
	duration = 5
	c.Reclamp()
	if c.Time() != 5 {
		t.Errorf("Time() = %v, want 5", c.Time())
	}
}

func TestStateString(t *testing.T) {
	if Paused.String() != "paused" || Playing.String() != "playing" || Scrubbing.String() != "scrubbing" {
		t.Error("unexpected State strings")
	}
}
