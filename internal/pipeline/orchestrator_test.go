package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/auditlog/ytdown/internal/logging"
	"github.com/auditlog/ytdown/internal/resilience"
	"github.com/auditlog/ytdown/internal/segment"
	"github.com/auditlog/ytdown/internal/stt"
	"github.com/auditlog/ytdown/internal/transcript"
)

func newOrchestrator(t *testing.T, speech Transcriber, inFlight int) Orchestrator {
	t.Helper()
	return Orchestrator{
		STT:            speech,
		MaxUploadBytes: 1 << 20,
		Retry:          resilience.RetryConfig{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
		InFlight:       inFlight,
		Paths:          transcript.Paths{Dir: t.TempDir(), Base: "talk"},
		Logger:         logging.Discard(),
	}
}

type progressLog struct {
	mu      sync.Mutex
	records []Progress
}

func (p *progressLog) record(pr Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, pr)
}

func (p *progressLog) ordinals() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, 0, len(p.records))
	for _, r := range p.records {
		out = append(out, r.Ordinal)
	}
	return out
}

func TestTranscribeSequentialJoinsPartsInOrder(t *testing.T) {
	segments := writeSegments(t, t.TempDir(), 10, 20, 30)
	speech := &fakeSpeech{text: map[string]string{"_part1": "one", "_part2": "two", "_part3": "three"}}
	orch := newOrchestrator(t, speech, 1)
	progress := &progressLog{}

	result, err := orch.Transcribe(context.Background(), segments, progress.record)
	require.NoError(t, err)
	require.Equal(t, "one\n\ntwo\n\nthree", result.Body)
	require.Equal(t, "talk", result.Title)
	require.False(t, result.Diagnostic)
	require.Equal(t, []string{"talk_part1.mp3", "talk_part2.mp3", "talk_part3.mp3"}, speech.Calls())
	require.Equal(t, []int{1, 2, 3}, progress.ordinals())

	last := progress.records[2]
	require.Equal(t, 3, last.Completed)
	require.Equal(t, 3, last.Total)
	require.Equal(t, len("one")+len("two")+len("three"), last.Characters)
	require.Equal(t, int64(30), last.SegmentBytes)
	require.True(t, last.ETAKnown)

	artifact, err := os.ReadFile(orch.Paths.Part(2))
	require.NoError(t, err)
	require.Equal(t, "two", string(artifact))
}

func TestTranscribeWindowPreservesOrdinalOrder(t *testing.T) {
	segments := writeSegments(t, t.TempDir(), 10, 10, 10, 10)
	speech := &fakeSpeech{
		text: map[string]string{"_part1": "a", "_part2": "b", "_part3": "c", "_part4": "d"},
		delay: map[string]time.Duration{
			"_part1": 80 * time.Millisecond,
			"_part2": 40 * time.Millisecond,
		},
	}
	orch := newOrchestrator(t, speech, 4)
	progress := &progressLog{}

	// Shuffled input still comes back ordered by ordinal.
	input := []segment.Segment{segments[2], segments[0], segments[3], segments[1]}

	result, err := orch.Transcribe(context.Background(), input, progress.record)
	require.NoError(t, err)
	require.Equal(t, "a\n\nb\n\nc\n\nd", result.Body)
	require.Equal(t, []int{1, 2, 3, 4}, progress.ordinals())
	require.Len(t, speech.Calls(), 4)
}

func TestTranscribeWindowIsClamped(t *testing.T) {
	require.Equal(t, 1, Orchestrator{}.window())
	require.Equal(t, 1, Orchestrator{InFlight: -2}.window())
	require.Equal(t, 3, Orchestrator{InFlight: 3}.window())
	require.Equal(t, MaxInFlight, Orchestrator{InFlight: 32}.window())
}

func TestTranscribeAbsorbsFailedPart(t *testing.T) {
	segments := writeSegments(t, t.TempDir(), 10, 10, 10)
	speech := &fakeSpeech{
		text: map[string]string{"_part1": "first", "_part3": "third"},
		errs: map[string][]error{"_part2": {&stt.StatusError{Code: 400, Body: "bad audio"}}},
	}
	orch := newOrchestrator(t, speech, 1)

	result, err := orch.Transcribe(context.Background(), segments, nil)
	require.NoError(t, err)
	require.Equal(t, "first\n\nthird", result.Body)
	require.Equal(t, transcript.StatusFailed, result.Parts[1].Status)
	require.Contains(t, result.Parts[1].Err, "bad audio")
	require.Len(t, speech.Calls(), 3, "client errors are not retried")

	artifact, err := os.ReadFile(orch.Paths.Part(2))
	require.NoError(t, err)
	require.Equal(t, transcript.PartPlaceholder, string(artifact))
}

func TestTranscribeRetriesTransientErrors(t *testing.T) {
	segments := writeSegments(t, t.TempDir(), 10)
	speech := &fakeSpeech{
		fallback: "recovered",
		errs: map[string][]error{"_part1": {
			&stt.StatusError{Code: 503, Body: "busy"},
			&stt.StatusError{Code: 429, Body: "slow down"},
		}},
	}
	orch := newOrchestrator(t, speech, 1)

	result, err := orch.Transcribe(context.Background(), segments, nil)
	require.NoError(t, err)
	require.Equal(t, "recovered", result.Body)
	require.Len(t, speech.Calls(), 3)
}

func TestTranscribeGivesUpAfterAttempts(t *testing.T) {
	segments := writeSegments(t, t.TempDir(), 10)
	speech := &fakeSpeech{
		errs: map[string][]error{"_part1": {
			&stt.StatusError{Code: 500},
			&stt.StatusError{Code: 502},
			&stt.StatusError{Code: 503},
			&stt.StatusError{Code: 504},
		}},
	}
	orch := newOrchestrator(t, speech, 1)

	result, err := orch.Transcribe(context.Background(), segments, nil)
	require.NoError(t, err)
	require.True(t, result.Diagnostic)
	require.Equal(t, transcript.StatusFailed, result.Parts[0].Status)
	require.Len(t, speech.Calls(), 3)
}

func TestTranscribeRejectsOversizedAndMissingParts(t *testing.T) {
	dir := t.TempDir()
	segments := writeSegments(t, dir, 10, 5000, 10)
	segments[2].Path = filepath.Join(dir, "gone.mp3")
	speech := &fakeSpeech{fallback: "ok"}
	orch := newOrchestrator(t, speech, 1)
	orch.MaxUploadBytes = 1000

	result, err := orch.Transcribe(context.Background(), segments, nil)
	require.NoError(t, err)
	require.Equal(t, "ok", result.Body)
	require.Equal(t, transcript.StatusRejected, result.Parts[1].Status)
	require.Contains(t, result.Parts[1].Err, stt.ErrTooLarge.Error())
	require.Equal(t, transcript.StatusRejected, result.Parts[2].Status)
	require.Equal(t, []string{"talk_part1.mp3"}, speech.Calls())
}

func TestTranscribeEmptyPartsYieldDiagnostic(t *testing.T) {
	segments := writeSegments(t, t.TempDir(), 10, 10)
	orch := newOrchestrator(t, &fakeSpeech{}, 2)

	result, err := orch.Transcribe(context.Background(), segments, nil)
	require.NoError(t, err)
	require.True(t, result.Diagnostic)
	require.Empty(t, result.Body)
	require.Equal(t, 2, result.Counts()[transcript.StatusEmpty])
}

func TestTranscribeCancellationKeepsCompletedParts(t *testing.T) {
	segments := writeSegments(t, t.TempDir(), 10, 10, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	speech := &fakeSpeech{
		text: map[string]string{"_part1": "kept"},
		block: func(callCtx context.Context, name string) error {
			if name != "talk_part2.mp3" {
				return nil
			}
			cancel()
			<-callCtx.Done()
			return callCtx.Err()
		},
	}
	orch := newOrchestrator(t, speech, 1)
	progress := &progressLog{}

	result, err := orch.Transcribe(ctx, segments, progress.record)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, "kept", result.Body)
	require.Len(t, result.Parts, 3)
	require.Equal(t, transcript.StatusTranscribed, result.Parts[0].Status)
	require.Equal(t, transcript.StatusCancelled, result.Parts[1].Status)
	require.Equal(t, transcript.StatusCancelled, result.Parts[2].Status)
	require.Equal(t, []string{"talk_part1.mp3", "talk_part2.mp3"}, speech.Calls())
	require.Equal(t, []int{1}, progress.ordinals())

	_, statErr := os.Stat(orch.Paths.Part(1))
	require.NoError(t, statErr)
	_, statErr = os.Stat(orch.Paths.Part(2))
	require.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestTranscribeNoSegments(t *testing.T) {
	orch := newOrchestrator(t, &fakeSpeech{}, 1)

	result, err := orch.Transcribe(context.Background(), nil, nil)
	require.NoError(t, err)
	require.True(t, result.Diagnostic)
	require.Empty(t, result.Parts)
}
