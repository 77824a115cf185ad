package session

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/heimdex/heimdex-editor/internal/edit"
	"github.com/heimdex/heimdex-editor/internal/playback"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestManager returns a manager whose sessions share one manual scheduler.
func newTestManager() (*Manager, *playback.ManualScheduler) {
	sched := playback.NewManualScheduler()
	m := NewManager(Options{
		IDs:       &timeline.CounterGenerator{},
		Seed:      func() int64 { return 42 },
		Scheduler: func(sync.Locker) playback.Scheduler { return sched },
		Logger:    testLogger(),
	})
	return m, sched
}

type recordingHandle struct {
	sources []string
	visible bool
	playing bool
	ready   func()
	seeked  func()
}

func (h *recordingHandle) SetSource(ref string)      { h.sources = append(h.sources, ref) }
func (h *recordingHandle) Position() float64         { return 0 }
func (h *recordingHandle) SetPosition(float64)       {}
func (h *recordingHandle) Play()                     { h.playing = true }
func (h *recordingHandle) Pause()                    { h.playing = false }
func (h *recordingHandle) SetVisible(v bool)         { h.visible = v }
func (h *recordingHandle) OnSourceReady(fn func())   { h.ready = fn }
func (h *recordingHandle) OnSeekCompleted(fn func()) { h.seeked = fn }

func TestManagerLifecycle(t *testing.T) {
	m, _ := newTestManager()

	a := m.Create(timeline.ProjectSettings{Name: "A"})
	b := m.Create(timeline.ProjectSettings{Name: "B"})
	if m.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", m.Count())
	}
	if got, ok := m.Get(a.ID()); !ok || got != a {
		t.Errorf("Get(a) = %v, %v", got, ok)
	}
	if list := m.List(); len(list) != 2 {
		t.Errorf("List() = %d sessions", len(list))
	}

	if !m.Close(b.ID()) {
		t.Error("Close(b) = false")
	}
	if m.Close(b.ID()) {
		t.Error("second Close(b) = true")
	}
	if _, ok := m.Get(b.ID()); ok {
		t.Error("closed session still present")
	}
	m.Shutdown()
	if m.Count() != 0 {
		t.Errorf("Count() after Shutdown = %d", m.Count())
	}
}

func TestSessionEditsAndPlayback(t *testing.T) {
	m, sched := newTestManager()
	s := m.Create(timeline.DefaultSettings())

	v, ok := s.ImportAsset(edit.Source{Ref: "clip-a", Kind: timeline.TrackVideo, Duration: 4})
	if !ok {
		t.Fatal("ImportAsset() = false")
	}
	if _, ok := s.AddElement(timeline.TrackText); !ok {
		t.Fatal("AddElement(text) = false")
	}

	s.Play()
	sched.Step(2, time.Second)
	snap := s.Snapshot()
	if snap.State != "playing" || snap.Time != 2 {
		t.Errorf("snapshot = %s at %v, want playing at 2", snap.State, snap.Time)
	}

	created := s.SplitAtPlayhead()
	if len(created) != 2 {
		t.Fatalf("SplitAtPlayhead() = %v, want video and text halves", created)
	}
	if left, _ := s.Element(v.ID); left.Duration != 2 {
		t.Errorf("left duration = %v, want 2", left.Duration)
	}

	sched.Step(3, time.Second)
	if snap := s.Snapshot(); snap.State != "paused" || snap.Time != 4 {
		t.Errorf("at end = %s at %v, want paused at 4", snap.State, snap.Time)
	}
}

func TestSessionDeleteReclampsPlayhead(t *testing.T) {
	m, _ := newTestManager()
	s := m.Create(timeline.DefaultSettings())

	a, _ := s.AddElement(timeline.TrackVideo)
	s.AddElement(timeline.TrackVideo)
	s.Seek(9)

	s.DeleteElement(a.ID, true)
	if snap := s.Snapshot(); snap.Time != 5 || snap.Duration != 5 {
		t.Errorf("after delete time = %v, duration = %v; want 5, 5", snap.Time, snap.Duration)
	}
}

func TestSessionDrag(t *testing.T) {
	m, _ := newTestManager()
	s := m.Create(timeline.DefaultSettings())
	el, _ := s.AddElement(timeline.TrackAudio)
	s.SetView(10, false)

	d, err := s.BeginDrag(el.ID, edit.ModeMove, 0)
	if err != nil {
		t.Fatalf("BeginDrag() error = %v", err)
	}
	if _, err := s.BeginDrag(el.ID, edit.ModeMove, 0); err == nil {
		t.Error("concurrent BeginDrag() succeeded")
	}
	got, ok := s.UpdateDrag(d, 30)
	if !ok || got.StartTime != 3 {
		t.Errorf("UpdateDrag() = %v, %v; want start 3", got.StartTime, ok)
	}
	s.EndDrag(d)
	s.EndDrag(nil)
	if s.Snapshot().Dragging {
		t.Error("Dragging = true after EndDrag")
	}
}

func TestSessionDragPausesPlayback(t *testing.T) {
	m, sched := newTestManager()
	s := m.Create(timeline.DefaultSettings())
	el, _ := s.AddElement(timeline.TrackVideo)

	s.Play()
	d, err := s.BeginDrag(el.ID, edit.ModeMove, 0)
	if err != nil {
		t.Fatalf("BeginDrag() error = %v", err)
	}
	sched.Advance(500 * time.Millisecond)
	if snap := s.Snapshot(); snap.State != "paused" || snap.Time != 0 {
		t.Errorf("during drag = %s at %v, want paused at 0", snap.State, snap.Time)
	}
	if sched.Ticking() {
		t.Error("clock still ticking during drag")
	}

	s.Play()
	s.Toggle()
	if snap := s.Snapshot(); snap.State != "paused" {
		t.Errorf("Play/Toggle during drag: state = %s, want paused", snap.State)
	}

	s.EndDrag(d)
	s.Play()
	if snap := s.Snapshot(); snap.State != "playing" {
		t.Errorf("after EndDrag state = %s, want playing", snap.State)
	}
}

func TestSessionPublishesSnapshots(t *testing.T) {
	m, _ := newTestManager()
	s := m.Create(timeline.DefaultSettings())

	var got []Snapshot
	unsubscribe := s.Subscribe(func(snap Snapshot) { got = append(got, snap) })

	s.AddElement(timeline.TrackVideo)
	s.Play()
	s.Pause()
	unsubscribe()
	s.AddElement(timeline.TrackVideo)

	if len(got) != 3 {
		t.Fatalf("received %d snapshots, want 3", len(got))
	}
	if len(got[0].Elements) != 1 || got[1].State != "playing" || got[2].State != "paused" {
		t.Errorf("snapshots = %+v", got)
	}
}

func TestSessionDrivesHandle(t *testing.T) {
	m, sched := newTestManager()
	s := m.Create(timeline.DefaultSettings())
	h := &recordingHandle{}
	s.AttachHandle(h)

	if h.visible {
		t.Error("handle visible on empty timeline")
	}
	s.ImportAsset(edit.Source{Ref: "clip-a", Kind: timeline.TrackVideo, Duration: 3})
	if len(h.sources) != 1 || h.sources[0] != "clip-a" || !h.visible {
		t.Fatalf("sources = %v, visible = %v", h.sources, h.visible)
	}

	s.Play()
	s.Do(h.ready)
	if !h.playing {
		t.Error("handle not playing after source ready")
	}

	s.Pause()
	if h.playing {
		t.Error("handle still playing after Pause")
	}

	s.DetachHandle(h)
	s.Seek(1)
	sched.Advance(time.Second)
	if len(h.sources) != 1 {
		t.Errorf("detached handle got sources %v", h.sources)
	}
}

func TestPauseAll(t *testing.T) {
	m, _ := newTestManager()
	a := m.Create(timeline.DefaultSettings())
	a.AddElement(timeline.TrackVideo)
	a.Play()
	m.PauseAll()
	if a.Snapshot().State != "paused" {
		t.Errorf("State = %s, want paused", a.Snapshot().State)
	}
}
