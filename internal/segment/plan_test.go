package segment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

const mib = 1024 * 1024

func requirePartition(t *testing.T, plan Plan) {
	t.Helper()
	require.NotEmpty(t, plan.Ranges)
	require.Zero(t, plan.Ranges[0].Start)
	require.Equal(t, plan.Source.Duration, plan.Ranges[len(plan.Ranges)-1].End)
	for i, r := range plan.Ranges {
		require.Greater(t, r.End, r.Start, "range %d", i)
		if i > 0 {
			require.Equal(t, plan.Ranges[i-1].End, r.Start, "gap or overlap before range %d", i)
		}
	}
}

func TestBuildPlanSmallSourceIsPassthrough(t *testing.T) {
	src := Source{Path: "/in/talk.mp3", Size: 2 * mib, Duration: 90}

	plan := BuildPlan(src, 20*mib, []float64{10, 20}, 0.2)
	require.True(t, plan.Passthrough)
	require.Equal(t, []Range{{Start: 0, End: 90}}, plan.Ranges)

	plan = BuildPlan(Source{Size: 20 * mib, Duration: 90}, 20*mib, nil, 0.2)
	require.True(t, plan.Passthrough, "size equal to the limit must not split")
}

func TestBuildPlanWithoutSilenceSplitsEvenly(t *testing.T) {
	src := Source{Path: "/in/lecture.mp3", Size: 60 * mib, Duration: 1200}

	plan := BuildPlan(src, 20*mib, nil, 0.2)
	require.False(t, plan.Passthrough)
	require.Equal(t, []Range{
		{Start: 0, End: 400},
		{Start: 400, End: 800},
		{Start: 800, End: 1200},
	}, plan.Ranges)
	requirePartition(t, plan)
}

func TestBuildPlanPartCountIsCeiling(t *testing.T) {
	src := Source{Size: 60*mib + 1, Duration: 1300}
	plan := BuildPlan(src, 20*mib, nil, 0.2)
	require.Len(t, plan.Ranges, 4)
	requirePartition(t, plan)
}

func TestBuildPlanSnapsToNearbySilence(t *testing.T) {
	src := Source{Size: 60 * mib, Duration: 1200}
	// ideal splits 400 and 800; tolerance window is 80 seconds.
	silences := []float64{100, 379.5, 430, 885, 1100}

	plan := BuildPlan(src, 20*mib, silences, 0.2)
	require.Equal(t, 379.5, plan.Ranges[0].End)
	require.Equal(t, 800.0, plan.Ranges[1].End, "885 lies outside the window around 800")
	requirePartition(t, plan)
}

func TestBuildPlanRejectsSilenceAtToleranceBoundary(t *testing.T) {
	src := Source{Size: 40 * mib, Duration: 1000}
	// ideal split 500, tolerance window 100 seconds, exclusive.
	plan := BuildPlan(src, 20*mib, []float64{400}, 0.2)
	require.Equal(t, 500.0, plan.Ranges[0].End)

	plan = BuildPlan(src, 20*mib, []float64{400.01}, 0.2)
	require.Equal(t, 400.01, plan.Ranges[0].End)
}

func TestBuildPlanSnapBoundHoldsForDenseSilence(t *testing.T) {
	src := Source{Size: 95 * mib, Duration: 3333}
	silences := make([]float64, 0, 400)
	for ts := 3.7; ts < src.Duration; ts += 8.3 {
		silences = append(silences, ts)
	}

	plan := BuildPlan(src, 20*mib, silences, 0.2)
	require.Len(t, plan.Ranges, 5)
	ideal := src.Duration / 5
	for k := 1; k < len(plan.Ranges); k++ {
		split := plan.Ranges[k-1].End
		require.Less(t, math.Abs(split-float64(k)*ideal), 0.2*ideal)
	}
	requirePartition(t, plan)
}

func TestBuildPlanIsDeterministic(t *testing.T) {
	src := Source{Size: 70 * mib, Duration: 2100}
	silences := []float64{520, 1040, 1590}

	first := BuildPlan(src, 20*mib, silences, 0.2)
	for range 10 {
		require.Equal(t, first, BuildPlan(src, 20*mib, silences, 0.2))
	}
}

func TestBuildPlanAcceptsUnsortedSilences(t *testing.T) {
	src := Source{Size: 60 * mib, Duration: 1200}
	plan := BuildPlan(src, 20*mib, []float64{810, 395}, 0.2)
	require.Equal(t, 395.0, plan.Ranges[0].End)
	require.Equal(t, 810.0, plan.Ranges[1].End)
}

func TestBuildPlanEstimatesMissingDuration(t *testing.T) {
	src := Source{Size: 48_000_000}
	plan := BuildPlan(src, 16_000_000, nil, 0.2)

	require.True(t, plan.Source.DurationEstimated)
	require.InDelta(t, 3000.0, plan.Source.Duration, 1e-9)
	require.Len(t, plan.Ranges, 3)
	requirePartition(t, plan)
}

func TestNearestPoint(t *testing.T) {
	points := []float64{10, 20, 30}

	_, ok := nearestPoint(nil, 5)
	require.False(t, ok)

	for target, want := range map[float64]float64{0: 10, 14: 10, 15: 10, 16: 20, 29: 30, 99: 30} {
		got, ok := nearestPoint(points, target)
		require.True(t, ok)
		require.Equal(t, want, got, "target %v", target)
	}
}

func TestEstimateDurationAndPartCount(t *testing.T) {
	require.InDelta(t, 125.0, EstimateDuration(2_000_000, 128_000), 1e-9)
	require.InDelta(t, 125.0, EstimateDuration(2_000_000, 0), 1e-9)

	require.Equal(t, 1, PartCount(10, 10))
	require.Equal(t, 2, PartCount(11, 10))
	require.Equal(t, 3, PartCount(30, 10))
	require.Equal(t, 1, PartCount(30, 0))
}
