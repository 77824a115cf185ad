package playback

import (
	"log/slog"
	"math"
	"time"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// Defaults for SyncConfig.
const (
	DefaultDriftTolerance     = 0.15
	DefaultSourceReadyTimeout = 1500 * time.Millisecond
	DefaultSeekTimeout        = 500 * time.Millisecond
)

// MediaHandle is an external, asynchronously seekable media player.
type MediaHandle interface {
	SetSource(ref string)
	Position() float64
	SetPosition(seconds float64)
	Play()
	Pause()
	SetVisible(visible bool)
	OnSourceReady(fn func())
	OnSeekCompleted(fn func())
}

// ActiveResolver finds the element active at a time.
type ActiveResolver interface {
	FirstActiveAt(t float64, k timeline.TrackKind) (timeline.Element, bool)
}

// SyncConfig tunes the Adapter.
type SyncConfig struct {
	// DriftTolerance is how far, in seconds, the handle may wander from the
	// clock before it is reseeked.
	DriftTolerance     float64
	SourceReadyTimeout time.Duration
	SeekTimeout        time.Duration
}

func (c SyncConfig) withDefaults() SyncConfig {
	if c.DriftTolerance <= 0 {
		c.DriftTolerance = DefaultDriftTolerance
	}
	if c.SourceReadyTimeout <= 0 {
		c.SourceReadyTimeout = DefaultSourceReadyTimeout
	}
	if c.SeekTimeout <= 0 {
		c.SeekTimeout = DefaultSeekTimeout
	}
	return c
}

// Adapter drives a MediaHandle so that it shows the active video element at
// the clock's time. It switches sources when the active element changes and
// reseeks only when the handle drifts or a reseek is forced.
//
// Handle callbacks must be delivered under the same lock as the clock.
type Adapter struct {
	resolver ActiveResolver
	clock    *Clock
	sched    Scheduler
	cfg      SyncConfig
	logger   *slog.Logger

	handle MediaHandle

	current    string
	loading    bool
	seeking    bool
	playing    bool
	visible    bool
	visibleSet bool

	cancelReady func()
	cancelSeek  func()
}

// NewAdapter returns an adapter with no handle attached.
func NewAdapter(resolver ActiveResolver, clock *Clock, sched Scheduler, cfg SyncConfig, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		resolver: resolver,
		clock:    clock,
		sched:    sched,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// Attach connects h, replacing any previous handle, and brings it up to
// date with the clock.
func (a *Adapter) Attach(h MediaHandle) {
	a.reset()
	a.handle = h
	h.OnSourceReady(a.sourceReady)
	h.OnSeekCompleted(a.seekCompleted)
	a.Sync(a.clock.Time(), true)
}

// Detach disconnects the current handle if it is h.
func (a *Adapter) Detach(h MediaHandle) {
	if a.handle != h {
		return
	}
	a.reset()
	a.handle = nil
}

// Attached reports whether a handle is connected.
func (a *Adapter) Attached() bool {
	return a.handle != nil
}

// Current returns the identity of the element whose source is loaded.
func (a *Adapter) Current() string {
	return a.current
}

func (a *Adapter) reset() {
	a.cancelTimers()
	a.current = ""
	a.loading = false
	a.seeking = false
	a.playing = false
	a.visibleSet = false
}

// Sync reconciles the handle with clock time t.
func (a *Adapter) Sync(t float64, force bool) {
	if a.handle == nil {
		return
	}

	el, ok := a.resolver.FirstActiveAt(t, timeline.TrackVideo)
	if !ok {
		a.setPlaying(false)
		a.setVisible(false)
		return
	}
	a.setVisible(true)

	if identity(el) != a.current {
		a.switchSource(el)
		return
	}
	if a.loading {
		return
	}

	target := el.SourceOffset(t)
	if force {
		a.seek(target)
	} else if !a.seeking && math.Abs(a.handle.Position()-target) > a.cfg.DriftTolerance {
		a.logger.Debug("drift reseek", "element", el.ID, "reported", a.handle.Position(), "target", target)
		a.seek(target)
	}
	a.reconcile()
}

func (a *Adapter) switchSource(el timeline.Element) {
	a.cancelTimers()
	a.current = identity(el)
	a.loading = true
	a.seeking = false
	a.playing = false

	a.logger.Debug("switching source", "element", el.ID, "ref", el.SourceRef)
	a.handle.SetSource(el.SourceRef)
	a.cancelReady = a.sched.AfterFunc(a.cfg.SourceReadyTimeout, func() {
		a.logger.Warn("source ready timed out, proceeding", "element", el.ID)
		a.sourceReady()
	})
}

func (a *Adapter) sourceReady() {
	if a.handle == nil || !a.loading {
		return
	}
	a.loading = false
	if a.cancelReady != nil {
		a.cancelReady()
		a.cancelReady = nil
	}

	t := a.clock.Time()
	el, ok := a.resolver.FirstActiveAt(t, timeline.TrackVideo)
	if !ok || identity(el) != a.current {
		// The timeline moved on while the source loaded.
		a.Sync(t, true)
		return
	}
	a.seek(el.SourceOffset(t))
	a.reconcile()
}

func (a *Adapter) seek(position float64) {
	if a.cancelSeek != nil {
		a.cancelSeek()
	}
	a.seeking = true
	a.handle.SetPosition(position)
	a.cancelSeek = a.sched.AfterFunc(a.cfg.SeekTimeout, a.seekCompleted)
}

func (a *Adapter) seekCompleted() {
	if a.handle == nil || !a.seeking {
		return
	}
	a.seeking = false
	if a.cancelSeek != nil {
		a.cancelSeek()
		a.cancelSeek = nil
	}
	a.reconcile()
}

// reconcile plays or pauses the handle to match the clock.
func (a *Adapter) reconcile() {
	a.setPlaying(a.clock.State() == Playing && !a.loading)
}

func (a *Adapter) setPlaying(playing bool) {
	if playing == a.playing {
		return
	}
	a.playing = playing
	if playing {
		a.handle.Play()
	} else {
		a.handle.Pause()
	}
}

func (a *Adapter) setVisible(visible bool) {
	if a.visibleSet && visible == a.visible {
		return
	}
	a.visible = visible
	a.visibleSet = true
	a.handle.SetVisible(visible)
}

func (a *Adapter) cancelTimers() {
	if a.cancelReady != nil {
		a.cancelReady()
		a.cancelReady = nil
	}
	if a.cancelSeek != nil {
		a.cancelSeek()
		a.cancelSeek = nil
	}
}

func identity(el timeline.Element) string {
	return el.ID + "\x00" + el.SourceRef
}
