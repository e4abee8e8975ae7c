package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/auditlog/ytdown/internal/llm"
	"github.com/auditlog/ytdown/internal/manifest"
	"github.com/auditlog/ytdown/internal/media"
	"github.com/auditlog/ytdown/internal/segment"
	"github.com/auditlog/ytdown/internal/stt"
)

// fakeSpeech answers by segment file name; ordinals match "_part<N>".
type fakeSpeech struct {
	mu       sync.Mutex
	text     map[string]string
	errs     map[string][]error
	delay    map[string]time.Duration
	fallback string
	calls    []string
	langs    []string
	block    func(ctx context.Context, name string) error
}

func (f *fakeSpeech) Transcribe(ctx context.Context, req stt.TranscriptionRequest) (string, error) {
	name := filepath.Base(req.Path)

	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.langs = append(f.langs, req.Language)
	var err error
	for key, queue := range f.errs {
		if strings.Contains(name, key) && len(queue) > 0 {
			err = queue[0]
			f.errs[key] = queue[1:]
		}
	}
	var delay time.Duration
	for key, d := range f.delay {
		if strings.Contains(name, key) {
			delay = d
		}
	}
	text := f.fallback
	for key, value := range f.text {
		if strings.Contains(name, key) {
			text = value
		}
	}
	block := f.block
	f.mu.Unlock()

	if block != nil {
		if blockErr := block(ctx, name); blockErr != nil {
			return "", blockErr
		}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return text, nil
}

func (f *fakeSpeech) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeWriter struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []string
	budgets []int
}

func (f *fakeWriter) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, req.Prompt)
	f.budgets = append(f.budgets, req.MaxTokens)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

type fakeProber struct {
	duration float64
}

func (f fakeProber) Duration(context.Context, string) (float64, error) {
	if f.duration <= 0 {
		return 0, media.ErrDurationUnavailable
	}
	return f.duration, nil
}

type fakeDetector struct {
	silences []float64
}

func (f fakeDetector) Detect(context.Context, string, float64) []float64 {
	return f.silences
}

// fakeCutter writes partBytes bytes to every requested output.
type fakeCutter struct {
	mu        sync.Mutex
	partBytes int
	// fail names an output file substring whose cut errors.
	fail     string
	requests []media.SegmentCutRequest
}

func (f *fakeCutter) Cut(_ context.Context, req media.SegmentCutRequest) error {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.partBytes <= 0 || (f.fail != "" && strings.Contains(filepath.Base(req.Output), f.fail)) {
		return errors.New("cut failed")
	}
	return os.WriteFile(req.Output, make([]byte, f.partBytes), 0o644)
}

func readManifest(t *testing.T, path string) manifest.Manifest {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var m manifest.Manifest
	require.NoError(t, yaml.Unmarshal(data, &m))
	return m
}

func writeFile(t *testing.T, dir string, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return path
}

func writeSegments(t *testing.T, dir string, sizes ...int) []segment.Segment {
	t.Helper()
	segments := make([]segment.Segment, 0, len(sizes))
	for i, size := range sizes {
		ordinal := i + 1
		path := writeFile(t, dir, segment.PartFileName("talk", ordinal, ".mp3"), size)
		segments = append(segments, segment.Segment{Ordinal: ordinal, Path: path, Size: int64(size)})
	}
	return segments
}
