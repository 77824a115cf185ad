// Package edit implements the user-facing editing operations on a timeline:
// adding, splitting, deleting and arranging elements, plus interactive
// move and trim drags.
package edit

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// DefaultPixelsPerSecond is the zoom used until the client reports one.
const DefaultPixelsPerSecond = 50.0

type kindDefaults struct {
	duration float64
	label    string
	color    string
}

var defaults = map[timeline.TrackKind]kindDefaults{
	timeline.TrackVideo: {duration: 5, label: "Video", color: "#3b82f6"},
	timeline.TrackAudio: {duration: 5, label: "Audio", color: "#10b981"},
	timeline.TrackText:  {duration: 3, label: "Text", color: "#f59e0b"},
}

// Source describes imported media to be placed on the timeline. An
// Unbounded source has an estimated Duration that does not limit trimming.
type Source struct {
	Ref       string
	Name      string
	Kind      timeline.TrackKind
	Duration  float64
	Unbounded bool
}

// Engine mutates a timeline on behalf of the user. It owns at most one
// drag session at a time.
//
// Engine is not safe for concurrent use; callers serialize access.
type Engine struct {
	tl       *timeline.Timeline
	ids      timeline.IDGenerator
	seed     func() int64
	playhead func() float64
	logger   *slog.Logger

	pixelsPerSecond float64
	magnet          bool

	drag *DragSession
}

// Option configures an Engine.
type Option func(*Engine)

// WithIDGenerator sets the source of element ids.
func WithIDGenerator(g timeline.IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithSeedSource sets the source of FX random seeds.
func WithSeedSource(fn func() int64) Option {
	return func(e *Engine) { e.seed = fn }
}

// WithPlayhead sets the function reporting the current playhead time,
// which is always a snap target during drags.
func WithPlayhead(fn func() float64) Option {
	return func(e *Engine) { e.playhead = fn }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine returns an engine editing tl.
func NewEngine(tl *timeline.Timeline, opts ...Option) *Engine {
	e := &Engine{
		tl:              tl,
		ids:             timeline.UUIDGenerator{},
		seed:            rand.Int64,
		playhead:        func() float64 { return 0 },
		logger:          slog.Default(),
		pixelsPerSecond: DefaultPixelsPerSecond,
		magnet:          true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Timeline returns the timeline being edited.
func (e *Engine) Timeline() *timeline.Timeline {
	return e.tl
}

// SetZoom sets the time-to-pixel scale used for drag deltas and snapping.
// Non-positive values are ignored.
func (e *Engine) SetZoom(pixelsPerSecond float64) {
	if pixelsPerSecond > 0 {
		e.pixelsPerSecond = pixelsPerSecond
	}
}

// Zoom returns the current pixels-per-second scale.
func (e *Engine) Zoom() float64 {
	return e.pixelsPerSecond
}

// SetMagnet toggles snapping to other elements' boundaries.
func (e *Engine) SetMagnet(enabled bool) {
	e.magnet = enabled
}

// Magnet reports whether magnetic snapping is on.
func (e *Engine) Magnet() bool {
	return e.magnet
}

// AddElement appends a default element of kind k at the end of its track.
func (e *Engine) AddElement(k timeline.TrackKind) (timeline.Element, bool) {
	d, ok := defaults[k]
	if !ok {
		return timeline.Element{}, false
	}

	el := timeline.Element{
		ID:           e.ids.NewID(),
		TrackKind:    k,
		StartTime:    e.tl.TrackEnd(k),
		Duration:     d.duration,
		Name:         fmt.Sprintf("%s %d", d.label, e.tl.CountKind(k)+1),
		DisplayColor: d.color,
		Volume:       1,
	}
	if k == timeline.TrackText {
		el.AllowExtension = true
		el.Content = "New Text"
	}
	if !e.tl.Add(el) {
		return timeline.Element{}, false
	}
	return e.tl.Get(el.ID)
}

// ImportAsset places src at the end of its track, bounded by its source length.
func (e *Engine) ImportAsset(src Source) (timeline.Element, bool) {
	d, ok := defaults[src.Kind]
	if !ok || src.Kind == timeline.TrackText {
		return timeline.Element{}, false
	}
	duration := src.Duration
	if !(duration > 0) {
		duration = d.duration
	}
	sourceDuration := src.Duration
	if src.Unbounded {
		sourceDuration = 0
	}
	name := src.Name
	if name == "" {
		name = fmt.Sprintf("%s %d", d.label, e.tl.CountKind(src.Kind)+1)
	}

	el := timeline.Element{
		ID:             e.ids.NewID(),
		TrackKind:      src.Kind,
		StartTime:      e.tl.TrackEnd(src.Kind),
		Duration:       duration,
		SourceDuration: sourceDuration,
		Name:           name,
		SourceRef:      src.Ref,
		DisplayColor:   d.color,
		Volume:         1,
	}
	if !e.tl.Add(el) {
		return timeline.Element{}, false
	}
	return e.tl.Get(el.ID)
}

// Update applies a direct field edit to an element.
func (e *Engine) Update(id string, p timeline.Patch) (timeline.Element, bool) {
	return e.tl.Update(id, p)
}

// ApplyFX sets the FX bundle of a video element. The seed is kept from the
// preset so applying the same preset twice looks the same.
func (e *Engine) ApplyFX(id string, fx timeline.FX) (timeline.Element, bool) {
	el, ok := e.tl.Get(id)
	if !ok || el.TrackKind != timeline.TrackVideo {
		return timeline.Element{}, false
	}
	return e.tl.Update(id, timeline.Patch{FX: &fx})
}

// Delete removes the element with the given id. With ripple, later video
// and audio elements close the gap; text elements keep their positions.
func (e *Engine) Delete(id string, ripple bool) bool {
	removed, ok := e.tl.Remove(id)
	if !ok {
		return false
	}
	if e.drag != nil && e.drag.elementID == id {
		e.drag = nil
	}
	if !ripple {
		return true
	}

	for _, el := range e.tl.All() {
		if el.TrackKind == timeline.TrackText {
			continue
		}
		if el.StartTime > removed.StartTime {
			start := el.StartTime - removed.Duration
			if start < 0 {
				start = 0
			}
			e.tl.Update(el.ID, timeline.Patch{StartTime: timeline.Float(start)})
		}
	}
	e.logger.Debug("ripple delete", "id", id, "shift", removed.Duration)
	return true
}

// Split cuts every element strictly spanning t in two and returns the ids of
// the new right-hand halves. The right half follows its original in
// collection order.
func (e *Engine) Split(t float64) []string {
	var created []string
	for _, el := range e.tl.All() {
		if !(el.StartTime < t && t < el.End()) {
			continue
		}
		offset := t - el.StartTime

		right := el.Clone()
		right.ID = e.ids.NewID()
		right.StartTime = t
		right.Duration = el.Duration - offset
		right.TrimStart = el.TrimStart + offset
		if right.FX != nil {
			right.FX.RandomSeed = e.seed()
		}

		e.tl.Update(el.ID, timeline.Patch{Duration: timeline.Float(offset)})
		if e.tl.InsertAfter(el.ID, right) {
			created = append(created, right.ID)
		}
	}
	return created
}

// AutoArrange lays video elements out back to back from zero, ordered by
// their current start times. Other kinds are left where they are. It
// returns the number of video elements placed.
func (e *Engine) AutoArrange() int {
	videos := e.tl.OfKind(timeline.TrackVideo)
	sort.SliceStable(videos, func(i, j int) bool {
		return videos[i].StartTime < videos[j].StartTime
	})

	var cursor float64
	for _, el := range videos {
		e.tl.Update(el.ID, timeline.Patch{StartTime: timeline.Float(cursor)})
		cursor += el.Duration
	}
	return len(videos)
}
