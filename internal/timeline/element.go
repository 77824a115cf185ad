// Package timeline holds the editor's time-addressable element model.
package timeline

import (
	"math"
	"strings"
	"time"
)

// MinDuration is the shortest duration an edit may produce, in seconds.
const MinDuration = 0.1

// TrackKind is the lane an element belongs to.
type TrackKind string

const (
	TrackVideo TrackKind = "video"
	TrackAudio TrackKind = "audio"
	TrackText  TrackKind = "text"
)

// Valid reports whether k is one of the known kinds.
func (k TrackKind) Valid() bool {
	switch k {
	case TrackVideo, TrackAudio, TrackText:
		return true
	}
	return false
}

// ParseTrackKind parses a kind name case-insensitively.
func ParseTrackKind(s string) (TrackKind, bool) {
	k := TrackKind(strings.ToLower(strings.TrimSpace(s)))
	return k, k.Valid()
}

// FX is the procedural effect configuration carried by video elements.
type FX struct {
	Enabled    bool    `json:"enabled"`
	Intensity  float64 `json:"intensity"`
	Frequency  float64 `json:"frequency"`
	ZoomFactor float64 `json:"zoom_factor"`
	RandomSeed int64   `json:"random_seed"`
}

// EffectPreset is a named, reusable FX configuration.
type EffectPreset struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	FX        FX        `json:"fx"`
	CreatedAt time.Time `json:"created_at"`
}

// ProjectSettings describes the output canvas of a project.
type ProjectSettings struct {
	Name      string  `json:"name"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	FrameRate float64 `json:"frame_rate"`
}

// DefaultSettings returns a 1080p 30fps canvas.
func DefaultSettings() ProjectSettings {
	return ProjectSettings{Name: "Untitled", Width: 1920, Height: 1080, FrameRate: 30}
}

// Element is a single item placed on the timeline. Times are in seconds.
//
// SourceDuration of zero means the source length is unknown, in which case
// trims are not bounded by it.
type Element struct {
	ID             string    `json:"id"`
	TrackKind      TrackKind `json:"track_kind"`
	StartTime      float64   `json:"start_time"`
	Duration       float64   `json:"duration"`
	TrimStart      float64   `json:"trim_start"`
	SourceDuration float64   `json:"source_duration,omitempty"`
	AllowExtension bool      `json:"allow_extension"`
	Name           string    `json:"name"`
	SourceRef      string    `json:"source_ref,omitempty"`
	Content        string    `json:"content,omitempty"`
	VisualEffect   string    `json:"visual_effect,omitempty"`
	DisplayColor   string    `json:"display_color,omitempty"`
	Volume         float64   `json:"volume"`
	Muted          bool      `json:"muted"`
	FX             *FX       `json:"fx,omitempty"`
}

// End returns StartTime + Duration.
func (e Element) End() float64 {
	return e.StartTime + e.Duration
}

// Contains reports whether t falls in [StartTime, End).
func (e Element) Contains(t float64) bool {
	return t >= e.StartTime && t < e.End()
}

// Bounded reports whether the element's trims are limited by a known source length.
func (e Element) Bounded() bool {
	return e.SourceDuration > 0 && !e.AllowExtension
}

// SourceOffset maps a timeline time to a position in the element's source.
func (e Element) SourceOffset(t float64) float64 {
	return (t - e.StartTime) + e.TrimStart
}

// Clone returns a deep copy.
func (e Element) Clone() Element {
	if e.FX != nil {
		fx := *e.FX
		e.FX = &fx
	}
	return e
}

// normalize clamps e so that it satisfies the model invariants. Edits are
// never rejected for out-of-range values; they are brought into range here.
func normalize(e *Element) {
	if !(e.StartTime >= 0) || math.IsInf(e.StartTime, 0) {
		e.StartTime = 0
	}
	if !(e.TrimStart >= 0) || math.IsInf(e.TrimStart, 0) {
		e.TrimStart = 0
	}
	if !(e.Duration > 0) || math.IsInf(e.Duration, 0) {
		e.Duration = MinDuration
	}
	if !(e.SourceDuration >= 0) || math.IsInf(e.SourceDuration, 0) {
		e.SourceDuration = 0
	}

	if e.Bounded() {
		if e.TrimStart >= e.SourceDuration {
			keep := math.Max(MinDuration, math.Min(e.Duration, e.SourceDuration))
			e.TrimStart = math.Max(0, e.SourceDuration-keep)
		}
		if e.TrimStart+e.Duration > e.SourceDuration {
			e.Duration = e.SourceDuration - e.TrimStart
		}
	}

	if !(e.Volume >= 0) {
		e.Volume = 0
	} else if e.Volume > 1 {
		e.Volume = 1
	}

	if e.TrackKind != TrackVideo {
		e.FX = nil
	}
}
