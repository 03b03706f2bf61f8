// Package timing provides the pure settings math for GIF export: per-frame
// delay conversion, frame-skip subsampling, and output-size estimation.
package timing

import "math"

// MinDelayCs is the smallest per-frame delay in hundredths of a second.
// GIF viewers ignore delays below 20 ms, so the pipeline never emits less.
const MinDelayCs = 2

// FrameDelay converts source fps, playback speed, and frame skip into the
// GIF per-frame delay in hundredths of a second.
//
// baseMs = 1000/fps, adjusted = baseMs/speed*skip, rounded to the nearest
// centisecond and clamped to MinDelayCs.
func FrameDelay(fps, speed float64, skip int) int {
	if fps <= 0 {
		fps = 30
	}
	if speed <= 0 {
		speed = 1
	}
	if skip < 1 {
		skip = 1
	}

	baseMs := 1000.0 / fps
	adjustedMs := baseMs / speed * float64(skip)

	cs := int(math.Round(adjustedMs / 10.0))
	if cs < MinDelayCs {
		cs = MinDelayCs
	}
	return cs
}

// ApplyFrameSkip returns every skip-th frame starting at index 0, preserving
// order. A skip of 1 or less returns the input unchanged.
func ApplyFrameSkip[T any](frames []T, skip int) []T {
	if skip <= 1 || len(frames) == 0 {
		return frames
	}

	kept := make([]T, 0, (len(frames)+skip-1)/skip)
	for i := 0; i < len(frames); i += skip {
		kept = append(kept, frames[i])
	}
	return kept
}
