// Package pipeline runs one audio file through segmentation, transcription, and post-processing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/auditlog/ytdown/internal/budget"
	"github.com/auditlog/ytdown/internal/config"
	"github.com/auditlog/ytdown/internal/fsm"
	"github.com/auditlog/ytdown/internal/fsutil"
	"github.com/auditlog/ytdown/internal/llm"
	"github.com/auditlog/ytdown/internal/manifest"
	"github.com/auditlog/ytdown/internal/media"
	"github.com/auditlog/ytdown/internal/postprocess"
	"github.com/auditlog/ytdown/internal/resilience"
	"github.com/auditlog/ytdown/internal/segment"
	"github.com/auditlog/ytdown/internal/stt"
	"github.com/auditlog/ytdown/internal/transcript"
)

var (
	// ErrSourceMissing reports an input path that does not name a readable file.
	ErrSourceMissing = errors.New("source audio file not found")
	// ErrMissingCredentials reports a run that needs an API key that is not configured.
	ErrMissingCredentials = errors.New("missing service credentials")
)

// Request describes one run.
type Request struct {
	Source string
	// OutputDir overrides config.Output.Dir when set.
	OutputDir string
	Correct   bool
	// Summary selects a summary style; empty skips summarization.
	Summary  budget.Style
	Progress ProgressFunc
	// Observe receives lifecycle events as the run advances.
	Observe func(fsm.Event)
}

// Report is the outcome of a run. It is populated as far as the run got.
type Report struct {
	RunID          string
	Source         segment.Source
	Plan           segment.Plan
	Transcript     transcript.Transcript
	TranscriptPath string
	Correction     *postprocess.Result
	CorrectedPath  string
	Summary        *postprocess.Result
	SummaryStyle   budget.Style
	SummaryPath    string
	ManifestPath   string
	Cancelled      bool
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Pipeline wires the run's collaborators. It holds no per-run state.
type Pipeline struct {
	Config   config.Config
	Logger   *slog.Logger
	Prober   segment.DurationProber
	Detector segment.SilenceFinder
	Cutter   segment.RangeCutter
	STT      Transcriber
	LLM      postprocess.Completer

	now func() time.Time
}

// New builds a Pipeline backed by ffmpeg and the configured HTTP services.
func New(cfg config.Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	runner := media.ExecRunner{}
	return &Pipeline{
		Config: cfg,
		Logger: logger,
		Prober: media.Prober{
			Runner:  runner,
			FFprobe: cfg.Tools.FFprobe.Argv,
			Timeout: seconds(cfg.Segment.AnalysisTimeoutSeconds),
		},
		Detector: media.SilenceDetector{
			Runner:       runner,
			FFmpeg:       cfg.Tools.FFmpeg.Argv,
			NoiseFloorDB: cfg.Segment.NoiseFloorDB,
			Timeout:      seconds(cfg.Segment.AnalysisTimeoutSeconds),
			Logger:       logger.With("component", "silence"),
		},
		Cutter: media.Cutter{
			Runner:  runner,
			FFmpeg:  cfg.Tools.FFmpeg.Argv,
			Timeout: seconds(cfg.Segment.CutTimeoutSeconds),
		},
		STT: stt.Client{
			Endpoint:       cfg.STT.Endpoint,
			APIKey:         cfg.STT.APIKey,
			Model:          cfg.STT.Model,
			MaxUploadBytes: cfg.STT.MaxUploadBytes,
			Timeout:        seconds(cfg.STT.TimeoutSeconds),
		},
		LLM: llm.Client{
			Endpoint: cfg.LLM.Endpoint,
			APIKey:   cfg.LLM.APIKey,
			Model:    cfg.LLM.Model,
			Version:  cfg.LLM.Version,
			Timeout:  seconds(cfg.LLM.TimeoutSeconds),
		},
	}
}

// Preflight checks the two fatal preconditions before any work starts.
func (p *Pipeline) Preflight(req Request) error {
	info, err := os.Stat(req.Source)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s", ErrSourceMissing, req.Source)
	}
	if strings.TrimSpace(p.Config.STT.APIKey) == "" {
		return fmt.Errorf("%w: speech-to-text api key is not set", ErrMissingCredentials)
	}
	if (req.Correct || req.Summary != "") && strings.TrimSpace(p.Config.LLM.APIKey) == "" {
		return fmt.Errorf("%w: text-generation api key is not set", ErrMissingCredentials)
	}
	return nil
}

// Run executes one full transcription run.
//
// Only preflight and output-directory failures are returned as errors; everything
// else is recorded in the Report. On cancellation the Report covers the parts that
// completed and ctx's error is returned with it.
func (p *Pipeline) Run(ctx context.Context, req Request) (Report, error) {
	if err := p.Preflight(req); err != nil {
		return Report{}, err
	}

	now := p.clock()
	report := Report{RunID: uuid.NewString(), StartedAt: now()}
	logger := p.logger().With("run_id", report.RunID)
	observe := req.Observe
	if observe == nil {
		observe = func(fsm.Event) {}
	}

	outDir := req.OutputDir
	if strings.TrimSpace(outDir) == "" {
		outDir = p.Config.Output.Dir
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Report{}, fmt.Errorf("create output dir: %w", err)
	}
	workDir := filepath.Join(outDir, ".ytdown-"+report.RunID)
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn("remove work dir failed", "path", workDir, "error", err.Error())
		}
	}()

	paths := transcript.Paths{Dir: outDir, Base: segment.BaseName(req.Source)}
	logger.Info("run started", "source", req.Source, "output_dir", outDir)
	observe(fsm.EventStart)

	src, err := segment.Open(ctx, req.Source, p.Prober, p.Config.Segment.AssumedBitrateBps)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrSourceMissing, err)
	}
	report.Source = src

	segmenter := segment.Segmenter{
		Detector:          p.Detector,
		Cutter:            p.Cutter,
		MaxPartBytes:      p.Config.Segment.MaxPartBytes,
		MinSilenceSeconds: p.Config.Segment.MinSilenceSeconds,
		SnapTolerance:     p.Config.Segment.SnapTolerance,
		Logger:            logger.With("component", "segment"),
	}
	report.Plan = segmenter.Plan(ctx, src)
	segments, err := segmenter.Materialize(ctx, report.Plan, workDir)
	if err != nil && ctx.Err() == nil {
		return report, err
	}
	// Planned parts without a segment file were interrupted or could not be cut.
	missing := transcript.Part{Status: transcript.StatusCutFailed, Err: "segment cut failed"}
	if err != nil {
		missing = transcript.Part{Status: transcript.StatusCancelled}
	}
	observe(fsm.EventSegmented)

	retry := resilience.DefaultRetryConfig()
	retry.Attempts = p.Config.STT.Attempts
	orchestrator := Orchestrator{
		STT:            p.STT,
		MaxUploadBytes: p.Config.STT.MaxUploadBytes,
		Retry:          retry,
		InFlight:       p.Config.STT.InFlight,
		Language:       p.Config.STT.Language,
		Paths:          paths,
		Logger:         logger.With("component", "transcribe"),
		now:            p.now,
	}
	result, err := orchestrator.Transcribe(ctx, segments, req.Progress)
	report.Transcript = withMissingParts(result, report.Plan, missing)
	report.Cancelled = err != nil

	if report.Cancelled && report.Transcript.Diagnostic {
		// Nothing finished; an earlier transcript of the same source stays in place.
		logger.Info("cancelled before any part completed; transcript not written")
	} else {
		report.TranscriptPath = paths.Transcript()
		if writeErr := fsutil.WriteFileAtomic(report.TranscriptPath, []byte(transcript.Render(report.Transcript)), 0o644); writeErr != nil {
			logger.Error("write transcript failed", "path", report.TranscriptPath, "error", writeErr.Error())
			report.TranscriptPath = ""
		}
	}
	observe(fsm.EventTranscribed)

	if !report.Cancelled && !report.Transcript.Diagnostic {
		p.postprocess(ctx, logger, req, paths, &report)
	}
	report.Cancelled = report.Cancelled || ctx.Err() != nil

	report.FinishedAt = now()
	report.ManifestPath = paths.Manifest()
	if writeErr := manifest.Write(report.ManifestPath, buildManifest(report)); writeErr != nil {
		logger.Error("write manifest failed", "path", report.ManifestPath, "error", writeErr.Error())
		report.ManifestPath = ""
	}

	logger.Info("run finished",
		"cancelled", report.Cancelled,
		"diagnostic", report.Transcript.Diagnostic,
		"characters", report.Transcript.Characters(),
		"elapsed", report.FinishedAt.Sub(report.StartedAt).String(),
	)
	if report.Cancelled {
		return report, ctx.Err()
	}
	observe(fsm.EventFinish)
	return report, nil
}

func (p *Pipeline) postprocess(ctx context.Context, logger *slog.Logger, req Request, paths transcript.Paths, report *Report) {
	guard := budget.NewGuard(p.Config.Budget)
	text := report.Transcript.Body

	if req.Correct {
		corrector := postprocess.Corrector{Client: p.LLM, Guard: guard, Logger: logger.With("component", "postprocess")}
		result := corrector.Correct(ctx, postprocess.CorrectionRequest{Text: text})
		report.Correction = &result
		if result.OK() {
			path := paths.Corrected()
			if err := fsutil.WriteFileAtomic(path, []byte(transcript.RenderCorrected(paths.Base, result.Text)), 0o644); err != nil {
				logger.Error("write corrected transcript failed", "path", path, "error", err.Error())
			} else {
				report.CorrectedPath = path
			}
			text = result.Text
		}
	}

	if req.Summary == "" || ctx.Err() != nil {
		return
	}
	if report.Correction == nil || !report.Correction.OK() {
		text = summaryInput(logger, report.TranscriptPath, text)
	}

	summarizer := postprocess.Summarizer{Client: p.LLM, Guard: guard, Logger: logger.With("component", "postprocess")}
	result := summarizer.Summarize(ctx, postprocess.SummaryRequest{Text: text, Style: req.Summary})
	report.Summary = &result
	report.SummaryStyle = req.Summary
	if result.OK() {
		path := paths.Summary()
		if err := fsutil.WriteFileAtomic(path, []byte(transcript.RenderSummary(paths.Base, req.Summary.Title(), result.Text)), 0o644); err != nil {
			logger.Error("write summary failed", "path", path, "error", err.Error())
			return
		}
		report.SummaryPath = path
	}
}

// summaryInput reads the transcript document back and drops its title line,
// falling back to the in-memory body.
func summaryInput(logger *slog.Logger, path string, fallback string) string {
	if path == "" {
		return fallback
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("read transcript for summary failed; using in-memory text", "path", path, "error", err.Error())
		return fallback
	}
	return strings.TrimSpace(transcript.StripHeader(string(data)))
}

// withMissingParts adds a copy of missing for every planned ordinal the
// orchestrator never saw.
func withMissingParts(t transcript.Transcript, plan segment.Plan, missing transcript.Part) transcript.Transcript {
	seen := make(map[int]struct{}, len(t.Parts))
	for _, part := range t.Parts {
		seen[part.Ordinal] = struct{}{}
	}
	parts := t.Parts
	for i := range plan.Ranges {
		if _, ok := seen[i+1]; !ok {
			part := missing
			part.Ordinal = i + 1
			parts = append(parts, part)
		}
	}
	if len(parts) == len(t.Parts) {
		return t
	}
	return transcript.Assemble(t.Title, parts)
}

func buildManifest(r Report) manifest.Manifest {
	m := manifest.Manifest{
		RunID:      r.RunID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Source: manifest.Source{
			Path:              r.Source.Path,
			SizeBytes:         r.Source.Size,
			DurationSeconds:   r.Source.Duration,
			DurationEstimated: r.Source.DurationEstimated,
		},
		Transcript: r.TranscriptPath,
		Diagnostic: r.Transcript.Diagnostic && !r.Cancelled,
		Cancelled:  r.Cancelled,
	}
	for i, rng := range r.Plan.Ranges {
		m.Plan = append(m.Plan, manifest.Range{Ordinal: i + 1, Start: rng.Start, End: rng.End})
	}
	for _, part := range r.Transcript.Parts {
		m.Parts = append(m.Parts, manifest.Part{
			Ordinal:    part.Ordinal,
			Status:     string(part.Status),
			Bytes:      part.Bytes,
			Characters: len([]rune(strings.TrimSpace(part.Text))),
			Error:      part.Err,
		})
	}
	if r.Correction != nil {
		m.Correction = manifestStep(*r.Correction, "", r.CorrectedPath)
	}
	if r.Summary != nil {
		m.Summary = manifestStep(*r.Summary, string(r.SummaryStyle), r.SummaryPath)
	}
	return m
}

func manifestStep(result postprocess.Result, style string, path string) *manifest.Step {
	return &manifest.Step{
		Status:      string(result.Status),
		Style:       style,
		InputTokens: result.InputTokens,
		MaxTokens:   result.MaxTokens,
		Path:        path,
	}
}

func (p *Pipeline) clock() func() time.Time {
	if p.now == nil {
		return time.Now
	}
	return p.now
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
