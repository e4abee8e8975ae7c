// Package manifest records the outcome of one transcription run as YAML.
package manifest

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/auditlog/ytdown/internal/fsutil"
)

// Manifest is the persisted summary of a run.
type Manifest struct {
	RunID      string    `yaml:"run_id"`
	StartedAt  time.Time `yaml:"started_at"`
	FinishedAt time.Time `yaml:"finished_at"`
	Source     Source    `yaml:"source"`
	Plan       []Range   `yaml:"plan"`
	Parts      []Part    `yaml:"parts"`
	Transcript string    `yaml:"transcript,omitempty"`
	Diagnostic bool      `yaml:"diagnostic"`
	Cancelled  bool      `yaml:"cancelled"`
	Correction *Step     `yaml:"correction,omitempty"`
	Summary    *Step     `yaml:"summary,omitempty"`
}

// Source describes the input audio.
type Source struct {
	Path              string  `yaml:"path"`
	SizeBytes         int64   `yaml:"size_bytes"`
	DurationSeconds   float64 `yaml:"duration_seconds"`
	DurationEstimated bool    `yaml:"duration_estimated,omitempty"`
}

// Range is one planned segment.
type Range struct {
	Ordinal int     `yaml:"ordinal"`
	Start   float64 `yaml:"start"`
	End     float64 `yaml:"end"`
}

// Part is one transcription outcome.
type Part struct {
	Ordinal    int    `yaml:"ordinal"`
	Status     string `yaml:"status"`
	Bytes      int64  `yaml:"bytes"`
	Characters int    `yaml:"characters"`
	Error      string `yaml:"error,omitempty"`
}

// Step is one post-processing outcome.
type Step struct {
	Status      string `yaml:"status"`
	Style       string `yaml:"style,omitempty"`
	InputTokens int    `yaml:"input_tokens"`
	MaxTokens   int    `yaml:"max_tokens,omitempty"`
	Path        string `yaml:"path,omitempty"`
}

// Write encodes m to path atomically.
func Write(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
