package media

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrDurationUnavailable reports media whose container carries no usable duration.
var ErrDurationUnavailable = errors.New("duration unavailable")

// Prober reads container metadata with ffprobe.
type Prober struct {
	Runner  Runner
	FFprobe []string
	Timeout time.Duration
}

// Duration returns the container duration of path in seconds.
func (p Prober) Duration(ctx context.Context, path string) (float64, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	argv := command(p.FFprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	output, err := runnerOrDefault(p.Runner).CombinedOutput(ctx, argv)
	if err != nil {
		return 0, fmt.Errorf("probe duration of %s: %w", path, err)
	}
	return parseProbeDuration(string(output))
}

func parseProbeDuration(output string) (float64, error) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == "N/A" {
			continue
		}
		value, err := strconv.ParseFloat(line, 64)
		if err != nil {
			continue
		}
		if value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
			return 0, ErrDurationUnavailable
		}
		return value, nil
	}
	return 0, ErrDurationUnavailable
}
