// Package segment plans and materializes size-bounded audio parts split at silence.
package segment

import (
	"math"
	"slices"
)

// DefaultAssumedBitrateBps is used to estimate duration when metadata is unusable.
const DefaultAssumedBitrateBps = 128_000

// Source describes the read-only input audio file.
type Source struct {
	Path     string
	Size     int64
	Duration float64
	// DurationEstimated is set when Duration was derived from Size instead of metadata.
	DurationEstimated bool
}

// Range is a half-open time interval in seconds.
type Range struct {
	Start float64
	End   float64
}

// Length returns the range duration in seconds.
func (r Range) Length() float64 {
	return r.End - r.Start
}

// Plan is an ordered partition of [0, Source.Duration].
type Plan struct {
	Source       Source
	MaxPartBytes int64
	Ranges       []Range
	// Passthrough marks a source small enough to be used whole.
	Passthrough bool
}

// EstimateDuration derives a duration from byte size at the given bitrate.
func EstimateDuration(size int64, bitrateBps int64) float64 {
	if bitrateBps <= 0 {
		bitrateBps = DefaultAssumedBitrateBps
	}
	return float64(size) * 8 / float64(bitrateBps)
}

// PartCount returns ceil(size/maxPartBytes), and 1 for sources at or under the limit.
func PartCount(size int64, maxPartBytes int64) int {
	if maxPartBytes <= 0 || size <= maxPartBytes {
		return 1
	}
	return int((size + maxPartBytes - 1) / maxPartBytes)
}

// BuildPlan computes split points for src.
//
// Each of the PartCount-1 ideal splits at k*ideal snaps to the nearest silence point
// only when that point lies strictly within tolerance*ideal of it. tolerance must be
// in [0, 0.5) for splits to stay strictly increasing; values outside are clamped.
func BuildPlan(src Source, maxPartBytes int64, silences []float64, tolerance float64) Plan {
	duration := src.Duration
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		duration = EstimateDuration(src.Size, DefaultAssumedBitrateBps)
		src.Duration = duration
		src.DurationEstimated = true
	}

	plan := Plan{Source: src, MaxPartBytes: maxPartBytes}
	parts := PartCount(src.Size, maxPartBytes)
	if parts == 1 {
		plan.Passthrough = true
		plan.Ranges = []Range{{Start: 0, End: duration}}
		return plan
	}

	tolerance = clampTolerance(tolerance)
	silences = slices.Sorted(slices.Values(silences))
	ideal := duration / float64(parts)

	points := make([]float64, 0, parts+1)
	points = append(points, 0)
	for k := 1; k < parts; k++ {
		target := float64(k) * ideal
		split := target
		if nearest, ok := nearestPoint(silences, target); ok && math.Abs(nearest-target) < tolerance*ideal {
			split = nearest
		}
		points = append(points, split)
	}
	slices.Sort(points[1:])
	points = append(points, duration)

	plan.Ranges = make([]Range, 0, parts)
	for i := 0; i+1 < len(points); i++ {
		plan.Ranges = append(plan.Ranges, Range{Start: points[i], End: points[i+1]})
	}
	return plan
}

// nearestPoint finds the closest value to target in an ascending slice.
func nearestPoint(sorted []float64, target float64) (float64, bool) {
	if len(sorted) == 0 {
		return 0, false
	}
	idx, _ := slices.BinarySearch(sorted, target)
	switch {
	case idx == 0:
		return sorted[0], true
	case idx == len(sorted):
		return sorted[len(sorted)-1], true
	}
	before, after := sorted[idx-1], sorted[idx]
	if target-before <= after-target {
		return before, true
	}
	return after, true
}

func clampTolerance(tolerance float64) float64 {
	const upper = 0.4999
	switch {
	case tolerance < 0 || math.IsNaN(tolerance):
		return 0
	case tolerance > upper:
		return upper
	default:
		return tolerance
	}
}
