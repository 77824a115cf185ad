package edit

import (
	"errors"
	"math"

	"github.com/heimdex/heimdex-editor/internal/snap"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

var (
	// ErrDragInProgress is returned when a drag is started while another is active.
	ErrDragInProgress = errors.New("drag already in progress")
	// ErrElementNotFound is returned when a drag targets a missing element.
	ErrElementNotFound = errors.New("element not found")
	// ErrInvalidMode is returned for an unknown drag mode.
	ErrInvalidMode = errors.New("invalid drag mode")
)

// Mode is the kind of drag gesture.
type Mode string

const (
	ModeMove      Mode = "move"
	ModeTrimStart Mode = "trim-start"
	ModeTrimEnd   Mode = "trim-end"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeMove, ModeTrimStart, ModeTrimEnd:
		return m, nil
	}
	return "", ErrInvalidMode
}

// DragSession is a single move or trim gesture. It records the element's
// geometry at gesture start; every update is computed from that snapshot
// and the total pointer travel, never accumulated.
//
// The session is owned by whoever began it and is released by End.
type DragSession struct {
	engine *Engine

	elementID     string
	mode          Mode
	pointerStartX float64
	startTime0    float64
	duration0     float64
	trimStart0    float64

	ended bool
}

// BeginDrag starts a gesture on element id at pointer position pointerX.
func (e *Engine) BeginDrag(id string, mode Mode, pointerX float64) (*DragSession, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	if e.drag != nil {
		return nil, ErrDragInProgress
	}
	el, ok := e.tl.Get(id)
	if !ok {
		return nil, ErrElementNotFound
	}

	s := &DragSession{
		engine:        e,
		elementID:     id,
		mode:          mode,
		pointerStartX: pointerX,
		startTime0:    el.StartTime,
		duration0:     el.Duration,
		trimStart0:    el.TrimStart,
	}
	e.drag = s
	return s, nil
}

// ActiveDrag returns the current drag session, or nil.
func (e *Engine) ActiveDrag() *DragSession {
	return e.drag
}

// EndDrag releases the active drag session, if any.
func (e *Engine) EndDrag() {
	if e.drag != nil {
		e.drag.End()
	}
}

// ElementID returns the id of the element being dragged.
func (s *DragSession) ElementID() string { return s.elementID }

// Mode returns the gesture mode.
func (s *DragSession) Mode() Mode { return s.mode }

// Active reports whether the session has not been ended.
func (s *DragSession) Active() bool { return !s.ended && s.engine.drag == s }

// End releases the session. Calling End more than once is harmless.
func (s *DragSession) End() {
	if s.ended {
		return
	}
	s.ended = true
	if s.engine.drag == s {
		s.engine.drag = nil
	}
}

// Update applies the gesture for the pointer now at pointerX and returns
// the element as stored. It returns false once the session has ended or
// the element no longer exists.
func (s *DragSession) Update(pointerX float64) (timeline.Element, bool) {
	if !s.Active() {
		return timeline.Element{}, false
	}
	e := s.engine
	el, ok := e.tl.Get(s.elementID)
	if !ok {
		return timeline.Element{}, false
	}

	pps := e.pixelsPerSecond
	if !(pps > 0) {
		pps = DefaultPixelsPerSecond
	}
	delta := (pointerX - s.pointerStartX) / pps
	threshold := snap.Threshold(pps)
	targets := e.snapTargets(s.elementID)

	var p timeline.Patch
	switch s.mode {
	case ModeMove:
		start := snapEdges(s.startTime0+delta, s.duration0, targets, threshold)
		p.StartTime = timeline.Float(math.Max(0, start))

	case ModeTrimEnd:
		end := snap.Resolve(s.startTime0+s.duration0+delta, targets, threshold)
		if el.TrackKind == timeline.TrackVideo && !el.AllowExtension && el.SourceDuration > 0 {
			end = math.Min(end, s.startTime0+(el.SourceDuration-s.trimStart0))
		}
		p.Duration = timeline.Float(math.Max(timeline.MinDuration, end-s.startTime0))

	case ModeTrimStart:
		fixedEnd := s.startTime0 + s.duration0
		start := snap.Resolve(s.startTime0+delta, targets, threshold)
		start = math.Min(start, fixedEnd-timeline.MinDuration)
		if el.TrackKind == timeline.TrackVideo {
			start = math.Max(start, s.startTime0-s.trimStart0)
		}
		start = math.Max(start, 0)
		p.StartTime = timeline.Float(start)
		p.Duration = timeline.Float(math.Max(fixedEnd-start, timeline.MinDuration))
		p.TrimStart = timeline.Float(s.trimStart0 + (start - s.startTime0))
	}

	return e.tl.Update(s.elementID, p)
}

func (e *Engine) snapTargets(exclude string) []float64 {
	targets := []float64{0, e.playhead()}
	if e.magnet {
		targets = append(targets, e.tl.Boundaries(exclude)...)
	}
	return targets
}

// snapEdges snaps a moving element by whichever of its edges lies closer to
// a target, returning the adjusted start time.
func snapEdges(start, duration float64, targets []float64, threshold float64) float64 {
	lead, leadDist, leadOK := snap.Nearest(start, targets)
	trail, trailDist, trailOK := snap.Nearest(start+duration, targets)
	leadIn := leadOK && leadDist < threshold
	trailIn := trailOK && trailDist < threshold

	switch {
	case leadIn && (!trailIn || leadDist <= trailDist):
		return lead
	case trailIn:
		return trail - duration
	}
	return start
}
