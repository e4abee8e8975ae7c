package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/auditlog/ytdown/internal/fsutil"
	"github.com/auditlog/ytdown/internal/resilience"
	"github.com/auditlog/ytdown/internal/segment"
	"github.com/auditlog/ytdown/internal/stt"
	"github.com/auditlog/ytdown/internal/transcript"
)

// MaxInFlight caps concurrent transcription calls.
const MaxInFlight = 4

// Transcriber performs one speech-to-text call.
type Transcriber interface {
	Transcribe(ctx context.Context, req stt.TranscriptionRequest) (string, error)
}

// Orchestrator transcribes segments and assembles them in ordinal order.
type Orchestrator struct {
	STT            Transcriber
	MaxUploadBytes int64
	Retry          resilience.RetryConfig
	// InFlight bounds concurrent calls; 1 is strictly sequential.
	InFlight int
	// Language is sent with every call; empty lets the service detect it.
	Language string
	// Paths locates per-part artifacts; Paths.Base is also the transcript title.
	Paths  transcript.Paths
	Logger *slog.Logger

	now func() time.Time
}

type outcome struct {
	index int
	part  transcript.Part
}

// Transcribe runs every segment through the STT service and returns the assembled
// transcript. Failed parts are absorbed. When ctx is cancelled, no further calls
// are issued, in-flight calls are aborted, and the transcript of the parts that
// completed is returned together with ctx's error.
func (o Orchestrator) Transcribe(ctx context.Context, segments []segment.Segment, progress ProgressFunc) (transcript.Transcript, error) {
	logger := o.logger()
	now := o.clock()
	started := now()

	ordered := slices.Clone(segments)
	slices.SortStableFunc(ordered, func(a, b segment.Segment) int { return a.Ordinal - b.Ordinal })
	total := len(ordered)

	parts := make([]transcript.Part, total)
	released := make([]bool, total)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan outcome, total)
	sem := make(chan struct{}, o.window())
	var wg sync.WaitGroup

	go func() {
		defer func() {
			wg.Wait()
			close(results)
		}()
		for i, seg := range ordered {
			select {
			case sem <- struct{}{}:
			case <-runCtx.Done():
				return
			}
			if runCtx.Err() != nil {
				return
			}
			wg.Add(1)
			go func(i int, seg segment.Segment) {
				defer wg.Done()
				defer func() { <-sem }()
				results <- outcome{index: i, part: o.transcribeOne(runCtx, seg)}
			}(i, seg)
		}
	}()

	pending := make(map[int]transcript.Part)
	next := 0
	characters := 0
	for out := range results {
		pending[out.index] = out.part
		for {
			part, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			parts[next] = part
			released[next] = true
			next++

			if part.Status == transcript.StatusCancelled {
				continue
			}
			o.persist(part)
			characters += len([]rune(part.Text))
			if progress != nil {
				eta, known := estimateETA(now().Sub(started), next, total)
				progress(Progress{
					Ordinal:      part.Ordinal,
					Total:        total,
					SegmentBytes: part.Bytes,
					Characters:   characters,
					Completed:    next,
					Status:       part.Status,
					ETA:          eta,
					ETAKnown:     known,
				})
			}
		}
	}

	for i, seg := range ordered {
		if !released[i] {
			parts[i] = transcript.Part{Ordinal: seg.Ordinal, Status: transcript.StatusCancelled, Bytes: seg.Size}
		}
	}

	result := transcript.Assemble(o.Paths.Base, parts)
	counts := result.Counts()
	logger.Info("transcription finished",
		"parts", total,
		"transcribed", counts[transcript.StatusTranscribed],
		"empty", counts[transcript.StatusEmpty],
		"failed", counts[transcript.StatusFailed],
		"rejected", counts[transcript.StatusRejected],
		"cancelled", counts[transcript.StatusCancelled],
		"characters", result.Characters(),
		"elapsed", now().Sub(started).String(),
	)
	if result.Diagnostic {
		logger.Error("no part produced any text")
	}
	return result, ctx.Err()
}

// transcribeOne never returns an error: every failure becomes a part status.
func (o Orchestrator) transcribeOne(ctx context.Context, seg segment.Segment) transcript.Part {
	logger := o.logger().With("ordinal", seg.Ordinal)
	part := transcript.Part{Ordinal: seg.Ordinal, Bytes: seg.Size}

	info, err := os.Stat(seg.Path)
	if err != nil {
		logger.Error("segment file unavailable", "path", seg.Path, "error", err.Error())
		part.Status = transcript.StatusRejected
		part.Err = fmt.Sprintf("segment file unavailable: %v", err)
		return part
	}
	part.Bytes = info.Size()
	if o.MaxUploadBytes > 0 && info.Size() > o.MaxUploadBytes {
		logger.Error("segment exceeds upload limit; not sending",
			"size_bytes", info.Size(),
			"max_upload_bytes", o.MaxUploadBytes,
		)
		part.Status = transcript.StatusRejected
		part.Err = fmt.Sprintf("%v: %d > %d bytes", stt.ErrTooLarge, info.Size(), o.MaxUploadBytes)
		return part
	}

	retry := o.Retry
	retry.IsRetryable = stt.IsRetryable
	retry.Logger = logger

	var text string
	err = resilience.Retry(ctx, retry, func(attempt int) error {
		var callErr error
		text, callErr = o.STT.Transcribe(ctx, stt.TranscriptionRequest{Path: seg.Path, Language: o.Language})
		if callErr != nil {
			logger.Warn("transcription attempt failed", "attempt", attempt, "error", callErr.Error())
		}
		return callErr
	})

	switch {
	case err != nil && ctx.Err() != nil:
		part.Status = transcript.StatusCancelled
		part.Err = ctx.Err().Error()
	case err != nil:
		var statusErr *stt.StatusError
		if errors.As(err, &statusErr) {
			logger.Error("transcription failed", "status", statusErr.Code, "body_excerpt", statusErr.Body)
		} else {
			logger.Error("transcription failed", "error", err.Error())
		}
		part.Status = transcript.StatusFailed
		part.Err = err.Error()
	case text == "":
		logger.Warn("transcription returned no text")
		part.Status = transcript.StatusEmpty
	default:
		logger.Info("part transcribed", "characters", len([]rune(text)))
		part.Status = transcript.StatusTranscribed
		part.Text = text
	}
	return part
}

// persist writes the part artifact as soon as the part is released.
func (o Orchestrator) persist(part transcript.Part) {
	if o.Paths.Dir == "" {
		return
	}
	path := o.Paths.Part(part.Ordinal)
	if err := fsutil.WriteFileAtomic(path, []byte(transcript.PartArtifact(part)), 0o644); err != nil {
		o.logger().Error("persist part transcript failed", "ordinal", part.Ordinal, "path", path, "error", err.Error())
	}
}

func (o Orchestrator) window() int {
	return min(max(o.InFlight, 1), MaxInFlight)
}

func (o Orchestrator) clock() func() time.Time {
	if o.now == nil {
		return time.Now
	}
	return o.now
}

func (o Orchestrator) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}
