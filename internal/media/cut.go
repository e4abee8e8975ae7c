package media

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const cutOutputExcerpt = 512

// SegmentCutRequest names one stream-copy extraction from a source file.
type SegmentCutRequest struct {
	Source string
	Output string
	// Start is the offset into Source, in seconds.
	Start float64
	// Length is the extracted duration, in seconds.
	Length float64
}

// Cutter extracts time ranges with ffmpeg stream copy; it never transcodes.
type Cutter struct {
	Runner  Runner
	FFmpeg  []string
	Timeout time.Duration
}

// Cut materializes req.Output. Existing output files are overwritten.
func (c Cutter) Cut(ctx context.Context, req SegmentCutRequest) error {
	if req.Length <= 0 {
		return fmt.Errorf("cut %s: non-positive length %.3f", req.Output, req.Length)
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	argv := command(c.FFmpeg,
		"-y",
		"-ss", formatSeconds(req.Start),
		"-t", formatSeconds(req.Length),
		"-i", req.Source,
		"-acodec", "copy",
		req.Output,
	)
	output, err := runnerOrDefault(c.Runner).CombinedOutput(ctx, argv)
	if err != nil {
		return fmt.Errorf("cut %s: %w: %s", req.Output, err, tail(string(output), cutOutputExcerpt))
	}
	return nil
}

func formatSeconds(value float64) string {
	return fmt.Sprintf("%.3f", value)
}

// tail keeps the last limit bytes of ffmpeg output, where the actual error lives.
func tail(output string, limit int) string {
	output = strings.TrimSpace(output)
	if len(output) <= limit {
		return output
	}
	return output[len(output)-limit:]
}
