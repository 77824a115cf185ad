package playback

import (
	"sort"
	"sync"
	"time"
)

// Scheduler supplies the recurring frame tick and one-shot timeouts that
// drive a Clock and an Adapter.
//
// Callbacks are invoked with whatever lock the scheduler was built with
// held, so they may touch session state directly.
type Scheduler interface {
	// ScheduleTick starts invoking fn once per frame with the wall-clock
	// time elapsed since the previous call. It replaces any earlier tick.
	ScheduleTick(fn func(dt time.Duration))
	// Cancel stops the frame tick. It never blocks on a running tick.
	Cancel()
	// AfterFunc runs fn once after d unless the returned cancel is called first.
	AfterFunc(d time.Duration, fn func()) (cancel func())
}

// TickerScheduler drives ticks from a time.Ticker on its own goroutine.
type TickerScheduler struct {
	interval time.Duration
	lock     sync.Locker

	mu   sync.Mutex
	stop chan struct{}
}

// NewTickerScheduler returns a scheduler ticking fps times per second.
// Every callback runs with lock held.
func NewTickerScheduler(fps int, lock sync.Locker) *TickerScheduler {
	if fps <= 0 {
		fps = 60
	}
	return &TickerScheduler{
		interval: time.Second / time.Duration(fps),
		lock:     lock,
	}
}

func (s *TickerScheduler) ScheduleTick(fn func(dt time.Duration)) {
	s.mu.Lock()
	if s.stop != nil {
		close(s.stop)
	}
	stop := make(chan struct{})
	s.stop = stop
	s.mu.Unlock()

	go s.run(fn, stop)
}

func (s *TickerScheduler) run(fn func(dt time.Duration), stop chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			s.lock.Lock()
			// Cancel may have been called while we waited for the lock.
			select {
			case <-stop:
				s.lock.Unlock()
				return
			default:
			}
			fn(now.Sub(last))
			s.lock.Unlock()
			last = now
		}
	}
}

func (s *TickerScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

func (s *TickerScheduler) AfterFunc(d time.Duration, fn func()) func() {
	done := make(chan struct{})
	var once sync.Once
	timer := time.AfterFunc(d, func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		select {
		case <-done:
			return
		default:
		}
		once.Do(func() { close(done) })
		fn()
	})
	return func() {
		once.Do(func() { close(done) })
		timer.Stop()
	}
}

// ManualScheduler is a Scheduler advanced explicitly by Advance. It holds
// no lock and is meant for tests and offline rendering.
type ManualScheduler struct {
	now    time.Duration
	tick   func(dt time.Duration)
	timers []*manualTimer
	seq    int
}

type manualTimer struct {
	at        time.Duration
	seq       int
	fn        func()
	cancelled bool
}

// NewManualScheduler returns a scheduler at time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (m *ManualScheduler) ScheduleTick(fn func(dt time.Duration)) {
	m.tick = fn
}

func (m *ManualScheduler) Cancel() {
	m.tick = nil
}

func (m *ManualScheduler) AfterFunc(d time.Duration, fn func()) func() {
	m.seq++
	t := &manualTimer{at: m.now + d, seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return func() { t.cancelled = true }
}

// Ticking reports whether a frame tick is scheduled.
func (m *ManualScheduler) Ticking() bool {
	return m.tick != nil
}

// Pending returns the number of timers that have neither fired nor been cancelled.
func (m *ManualScheduler) Pending() int {
	n := 0
	for _, t := range m.timers {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// Advance moves time forward by dt, fires every timer that became due, then
// delivers one frame tick if ticking.
func (m *ManualScheduler) Advance(dt time.Duration) {
	m.now += dt

	var due, rest []*manualTimer
	for _, t := range m.timers {
		switch {
		case t.cancelled:
		case t.at <= m.now:
			due = append(due, t)
		default:
			rest = append(rest, t)
		}
	}
	m.timers = rest
	sort.Slice(due, func(i, j int) bool {
		if due[i].at != due[j].at {
			return due[i].at < due[j].at
		}
		return due[i].seq < due[j].seq
	})
	for _, t := range due {
		if !t.cancelled {
			t.cancelled = true
			t.fn()
		}
	}

	if m.tick != nil {
		m.tick(dt)
	}
}

// Step delivers n frame ticks of dt each.
func (m *ManualScheduler) Step(n int, dt time.Duration) {
	for i := 0; i < n; i++ {
		m.Advance(dt)
	}
}
