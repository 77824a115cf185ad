// Package session binds a timeline, its edit engine, playback clock and
// media adapter into one project and serializes all access to them.
package session

import (
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/heimdex/heimdex-editor/internal/edit"
	"github.com/heimdex/heimdex-editor/internal/logging"
	"github.com/heimdex/heimdex-editor/internal/playback"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// Options configures new sessions.
type Options struct {
	IDs  timeline.IDGenerator
	Seed func() int64
	// Scheduler builds the frame scheduler for a session. Its callbacks must
	// run with lock held.
	Scheduler func(lock sync.Locker) playback.Scheduler
	TickRate  int
	Sync      playback.SyncConfig
	Logger    *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.IDs == nil {
		o.IDs = timeline.UUIDGenerator{}
	}
	if o.Seed == nil {
		o.Seed = rand.Int64
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Scheduler == nil {
		rate := o.TickRate
		o.Scheduler = func(lock sync.Locker) playback.Scheduler {
			return playback.NewTickerScheduler(rate, lock)
		}
	}
	return o
}

// Snapshot is a consistent view of a session.
type Snapshot struct {
	ID        string                   `json:"id"`
	Settings  timeline.ProjectSettings `json:"settings"`
	CreatedAt time.Time                `json:"created_at"`
	Duration  float64                  `json:"duration"`
	Time      float64                  `json:"time"`
	State     string                   `json:"state"`
	Loop      bool                     `json:"loop"`
	Zoom      float64                  `json:"zoom"`
	Magnet    bool                     `json:"magnet"`
	Dragging  bool                     `json:"dragging"`
	Elements  []timeline.Element       `json:"elements"`
}

// Session is one open project.
type Session struct {
	mu sync.Mutex

	id        string
	settings  timeline.ProjectSettings
	createdAt time.Time

	tl     *timeline.Timeline
	engine *edit.Engine
	clock  *playback.Clock
	sync   *playback.Adapter
	sched  playback.Scheduler
	logger *slog.Logger

	lastState   playback.State
	subscribers map[int]func(Snapshot)
	nextSub     int
	closed      bool
}

func newSession(id string, settings timeline.ProjectSettings, opts Options) *Session {
	s := &Session{
		id:          id,
		settings:    settings,
		createdAt:   time.Now().UTC(),
		tl:          timeline.New(),
		logger:      logging.WithProject(opts.Logger, id),
		subscribers: make(map[int]func(Snapshot)),
	}
	s.sched = opts.Scheduler(&s.mu)
	s.clock = playback.NewClock(s.sched, s.tl.Duration)
	s.engine = edit.NewEngine(s.tl,
		edit.WithIDGenerator(opts.IDs),
		edit.WithSeedSource(opts.Seed),
		edit.WithPlayhead(s.clock.Time),
		edit.WithLogger(s.logger),
	)
	s.sync = playback.NewAdapter(s.tl, s.clock, s.sched, opts.Sync, s.logger)
	s.clock.OnChange(s.clockChanged)
	return s
}

// ID returns the project id.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was opened.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Do runs fn with the session lock held. It is the entry point for media
// handle reports arriving from other goroutines.
func (s *Session) Do(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// Subscribe registers fn to receive a snapshot after every edit and
// playback state change. fn runs with the session lock held and must not
// call back into the session. The returned func unsubscribes.
func (s *Session) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Snapshot returns the current state of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		ID:        s.id,
		Settings:  s.settings,
		CreatedAt: s.createdAt,
		Duration:  s.tl.Duration(),
		Time:      s.clock.Time(),
		State:     s.clock.State().String(),
		Loop:      s.clock.Loop(),
		Zoom:      s.engine.Zoom(),
		Magnet:    s.engine.Magnet(),
		Dragging:  s.engine.ActiveDrag() != nil,
		Elements:  s.tl.All(),
	}
}

func (s *Session) publish() {
	if len(s.subscribers) == 0 {
		return
	}
	snap := s.snapshot()
	for _, fn := range s.subscribers {
		fn(snap)
	}
}

func (s *Session) clockChanged(t float64, force bool) {
	s.sync.Sync(t, force)
	if st := s.clock.State(); st != s.lastState {
		s.lastState = st
		s.publish()
	}
}

// edited resynchronizes playback after the timeline changed.
func (s *Session) edited() {
	s.clock.Reclamp()
	s.sync.Sync(s.clock.Time(), false)
	s.publish()
}

// Playhead returns the clock time and state name.
func (s *Session) Playhead() (float64, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.Time(), s.clock.State().String()
}

// Settings returns the project settings.
func (s *Session) Settings() timeline.ProjectSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// UpdateSettings replaces the project settings.
func (s *Session) UpdateSettings(settings timeline.ProjectSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	s.publish()
}

// Elements returns every element in collection order.
func (s *Session) Elements() []timeline.Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tl.All()
}

// Element returns one element.
func (s *Session) Element(id string) (timeline.Element, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tl.Get(id)
}

// ActiveAt returns the elements of kind k active at t.
func (s *Session) ActiveAt(t float64, k timeline.TrackKind) []timeline.Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tl.ActiveAt(t, k)
}

// AddElement appends a default element of kind k.
func (s *Session) AddElement(k timeline.TrackKind) (timeline.Element, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.engine.AddElement(k)
	if ok {
		s.edited()
	}
	return el, ok
}

// ImportAsset places imported media at the end of its track.
func (s *Session) ImportAsset(src edit.Source) (timeline.Element, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.engine.ImportAsset(src)
	if ok {
		s.edited()
	}
	return el, ok
}

// UpdateElement applies a direct field edit.
func (s *Session) UpdateElement(id string, p timeline.Patch) (timeline.Element, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.engine.Update(id, p)
	if ok {
		s.edited()
	}
	return el, ok
}

// ApplyFX sets the FX bundle of a video element.
func (s *Session) ApplyFX(id string, fx timeline.FX) (timeline.Element, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.engine.ApplyFX(id, fx)
	if ok {
		s.edited()
	}
	return el, ok
}

// DeleteElement removes an element, optionally rippling later ones.
func (s *Session) DeleteElement(id string, ripple bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.engine.Delete(id, ripple)
	if ok {
		s.edited()
	}
	return ok
}

// Split cuts every element spanning t.
func (s *Session) Split(t float64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	created := s.engine.Split(t)
	if len(created) > 0 {
		s.edited()
	}
	return created
}

// SplitAtPlayhead cuts every element spanning the clock time.
func (s *Session) SplitAtPlayhead() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	created := s.engine.Split(s.clock.Time())
	if len(created) > 0 {
		s.edited()
	}
	return created
}

// AutoArrange packs video elements from zero.
func (s *Session) AutoArrange() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.engine.AutoArrange()
	if n > 0 {
		s.edited()
	}
	return n
}

// SetView updates the zoom and magnet settings used by drags.
func (s *Session) SetView(pixelsPerSecond float64, magnet bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.SetZoom(pixelsPerSecond)
	s.engine.SetMagnet(magnet)
}

// BeginDrag starts a move or trim gesture and pauses playback. The caller
// owns the returned session until it passes it to EndDrag.
func (s *Session) BeginDrag(id string, mode edit.Mode, pointerX float64) (*edit.DragSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.engine.BeginDrag(id, mode, pointerX)
	if err != nil {
		return nil, err
	}
	if s.clock.State() == playback.Playing {
		s.clock.Pause()
	}
	return d, nil
}

// UpdateDrag applies pointer movement to a drag.
func (s *Session) UpdateDrag(d *edit.DragSession, pointerX float64) (timeline.Element, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := d.Update(pointerX)
	if ok {
		s.edited()
	}
	return el, ok
}

// EndDrag releases a drag. A nil session is ignored.
func (s *Session) EndDrag(d *edit.DragSession) {
	if d == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d.End()
	s.publish()
}

// Play starts playback. It is ignored while a drag is in progress.
func (s *Session) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine.ActiveDrag() != nil {
		return
	}
	s.clock.Play()
}

// Pause stops playback.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock.Pause()
}

// Toggle switches between playing and paused. While a drag is in
// progress the clock stays paused.
func (s *Session) Toggle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine.ActiveDrag() != nil {
		return
	}
	s.clock.Toggle()
}

// Seek moves the playhead.
func (s *Session) Seek(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock.Seek(t)
	s.publish()
}

// SetLoop turns looping on or off.
func (s *Session) SetLoop(loop bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock.SetLoop(loop)
	s.publish()
}

// StartScrub hands the playhead to the pointer.
func (s *Session) StartScrub() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock.StartScrub()
}

// ScrubTo moves the playhead during a scrub.
func (s *Session) ScrubTo(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock.ScrubTo(t)
}

// EndScrub finishes a scrub.
func (s *Session) EndScrub() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock.EndScrub()
}

// AttachHandle makes h the media handle kept in sync with this project.
func (s *Session) AttachHandle(h playback.MediaHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync.Attach(h)
}

// DetachHandle disconnects h if it is the current handle.
func (s *Session) DetachHandle(h playback.MediaHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync.Detach(h)
}

// Close stops playback and releases the scheduler.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.clock.Pause()
	s.sched.Cancel()
	s.engine.EndDrag()
	s.subscribers = map[int]func(Snapshot){}
}
