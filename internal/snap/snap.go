// Package snap pulls candidate times onto nearby snap targets.
package snap

import "math"

// Pixels is the on-screen snap distance. The threshold in seconds shrinks
// as the timeline is zoomed in.
const Pixels = 12.0

// Threshold converts the pixel snap distance to seconds at the given zoom.
func Threshold(pixelsPerSecond float64) float64 {
	if !(pixelsPerSecond > 0) {
		return 0
	}
	return Pixels / pixelsPerSecond
}

// Nearest returns the target closest to candidate and its distance.
// Ties keep the earlier target. ok is false when targets is empty.
func Nearest(candidate float64, targets []float64) (target, distance float64, ok bool) {
	distance = math.Inf(1)
	for _, t := range targets {
		if d := math.Abs(candidate - t); d < distance {
			target, distance, ok = t, d, true
		}
	}
	return target, distance, ok
}

// Resolve returns the nearest target strictly within threshold of
// candidate, or candidate unchanged.
func Resolve(candidate float64, targets []float64, threshold float64) float64 {
	t, d, ok := Nearest(candidate, targets)
	if ok && d < threshold {
		return t
	}
	return candidate
}
