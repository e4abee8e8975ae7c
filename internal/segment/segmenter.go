package segment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/auditlog/ytdown/internal/media"
)

// SilenceFinder reports ascending silence timestamps for an audio file.
type SilenceFinder interface {
	Detect(ctx context.Context, path string, minSilenceSeconds float64) []float64
}

// DurationProber reads a file's duration from its own metadata.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// RangeCutter materializes one time range of a source into its own file.
type RangeCutter interface {
	Cut(ctx context.Context, req media.SegmentCutRequest) error
}

// Segment is one materialized part, numbered from 1.
type Segment struct {
	Ordinal int
	Path    string
	Size    int64
	Range   Range
}

// Open stats path and resolves its duration, estimating from size when probing fails.
func Open(ctx context.Context, path string, prober DurationProber, assumedBitrateBps int64) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Source{}, fmt.Errorf("stat source: %w", err)
	}
	if info.IsDir() {
		return Source{}, fmt.Errorf("source %s is a directory", path)
	}

	src := Source{Path: path, Size: info.Size()}
	if prober != nil {
		if duration, probeErr := prober.Duration(ctx, path); probeErr == nil && duration > 0 {
			src.Duration = duration
			return src, nil
		}
	}
	src.Duration = EstimateDuration(src.Size, assumedBitrateBps)
	src.DurationEstimated = true
	return src, nil
}

// Segmenter turns a source into ordered part files.
type Segmenter struct {
	Detector          SilenceFinder
	Cutter            RangeCutter
	MaxPartBytes      int64
	MinSilenceSeconds float64
	SnapTolerance     float64
	Logger            *slog.Logger
}

// Plan runs silence analysis only when the source actually needs splitting.
func (s Segmenter) Plan(ctx context.Context, src Source) Plan {
	if PartCount(src.Size, s.MaxPartBytes) == 1 {
		return BuildPlan(src, s.MaxPartBytes, nil, s.SnapTolerance)
	}

	var silences []float64
	if s.Detector != nil {
		silences = s.Detector.Detect(ctx, src.Path, s.MinSilenceSeconds)
	}
	plan := BuildPlan(src, s.MaxPartBytes, silences, s.SnapTolerance)
	s.logger().Info("segment plan built",
		"source", src.Path,
		"size_bytes", src.Size,
		"duration_s", plan.Source.Duration,
		"duration_estimated", plan.Source.DurationEstimated,
		"silence_points", len(silences),
		"parts", len(plan.Ranges),
	)
	return plan
}

// Materialize writes plan's parts into outputDir.
//
// The result holds only parts that exist and are non-empty, so it may be shorter
// than the plan. Per-part failures are logged, not returned. A cancelled ctx stops
// further cuts and is returned alongside the parts already written.
func (s Segmenter) Materialize(ctx context.Context, plan Plan, outputDir string) ([]Segment, error) {
	if err := os.MkdirAll(outputDir, 0o700); err != nil {
		return nil, fmt.Errorf("create segment dir: %w", err)
	}

	if plan.Passthrough {
		dst := filepath.Join(outputDir, filepath.Base(plan.Source.Path))
		if err := copyFile(plan.Source.Path, dst); err != nil {
			s.logger().Error("copy source failed", "source", plan.Source.Path, "error", err.Error())
			return []Segment{}, nil
		}
		return s.collect([]Segment{{Ordinal: 1, Path: dst, Range: plan.Ranges[0]}}), nil
	}

	base, ext := splitName(plan.Source.Path)
	candidates := make([]Segment, 0, len(plan.Ranges))
	for i, r := range plan.Ranges {
		if err := ctx.Err(); err != nil {
			return s.collect(candidates), err
		}

		ordinal := i + 1
		out := filepath.Join(outputDir, PartFileName(base, ordinal, ext))
		err := s.Cutter.Cut(ctx, media.SegmentCutRequest{
			Source: plan.Source.Path,
			Output: out,
			Start:  r.Start,
			Length: r.Length(),
		})
		if err != nil {
			s.logger().Error("segment cut failed",
				"ordinal", ordinal,
				"start_s", r.Start,
				"end_s", r.End,
				"error", err.Error(),
			)
			continue
		}
		candidates = append(candidates, Segment{Ordinal: ordinal, Path: out, Range: r})
	}
	return s.collect(candidates), nil
}

// collect keeps segments whose files exist with content and records their sizes.
func (s Segmenter) collect(candidates []Segment) []Segment {
	segments := make([]Segment, 0, len(candidates))
	for _, seg := range candidates {
		info, err := os.Stat(seg.Path)
		if err != nil || info.Size() == 0 {
			s.logger().Warn("segment missing or empty; skipping", "ordinal", seg.Ordinal, "path", seg.Path)
			continue
		}
		seg.Size = info.Size()
		if s.MaxPartBytes > 0 && seg.Size > s.MaxPartBytes {
			s.logger().Warn("segment exceeds max part size",
				"ordinal", seg.Ordinal,
				"size_bytes", seg.Size,
				"max_part_bytes", s.MaxPartBytes,
			)
		}
		segments = append(segments, seg)
	}
	return segments
}

func (s Segmenter) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// PartFileName renders <base>_part<N><ext>.
func PartFileName(base string, ordinal int, ext string) string {
	return fmt.Sprintf("%s_part%d%s", base, ordinal, ext)
}

// BaseName strips directory and extension from a source path.
func BaseName(path string) string {
	base, _ := splitName(path)
	return base
}

func splitName(path string) (string, string) {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}

func copyFile(src string, dst string) (err error) {
	if sameFile(src, dst) {
		return errors.New("source and destination are the same file")
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}

func sameFile(a string, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}
