package media

import (
	"context"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"time"
)

var silenceEndPattern = regexp.MustCompile(`silence_end:\s*(-?[0-9]+(?:\.[0-9]+)?)`)

// SilenceDetector locates pauses with ffmpeg's silencedetect filter.
type SilenceDetector struct {
	Runner       Runner
	FFmpeg       []string
	NoiseFloorDB float64
	Timeout      time.Duration
	Logger       *slog.Logger
}

// Detect returns the ascending, deduplicated silence-end timestamps of path in seconds.
//
// Failures never surface as errors: an unusable analysis pass yields an empty slice so
// callers fall back to even splitting.
func (d SilenceDetector) Detect(ctx context.Context, path string, minSilenceSeconds float64) []float64 {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	filter := "silencedetect=noise=" + formatNumber(d.NoiseFloorDB) + "dB:d=" + formatNumber(minSilenceSeconds)
	argv := command(d.FFmpeg, "-hide_banner", "-nostats", "-i", path, "-af", filter, "-f", "null", "-")

	output, err := runnerOrDefault(d.Runner).CombinedOutput(ctx, argv)
	if err != nil {
		d.logger().Warn("silence detection failed; falling back to even splits",
			"path", path,
			"error", err.Error(),
		)
		return []float64{}
	}

	points := parseSilenceEnds(string(output))
	d.logger().Debug("silence detection complete", "path", path, "points", len(points))
	return points
}

func (d SilenceDetector) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// parseSilenceEnds extracts silence_end markers from ffmpeg diagnostics.
func parseSilenceEnds(output string) []float64 {
	matches := silenceEndPattern.FindAllStringSubmatch(output, -1)
	points := make([]float64, 0, len(matches))
	for _, match := range matches {
		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil || value < 0 {
			continue
		}
		points = append(points, value)
	}
	slices.Sort(points)
	return slices.Compact(points)
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
