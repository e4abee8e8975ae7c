package config

import (
	"fmt"
	"net/url"
	"strings"
)

// maxInFlight bounds the transcription window; larger windows only burn API quota.
const maxInFlight = 4

var validLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.Output.Dir) == "" {
		return nil, fmt.Errorf("output.dir must not be empty")
	}

	if cfg.Segment.MaxPartBytes <= 0 {
		return nil, fmt.Errorf("segment.max_part_bytes must be > 0")
	}
	if cfg.Segment.MinSilenceSeconds <= 0 {
		return nil, fmt.Errorf("segment.min_silence_seconds must be > 0")
	}
	if cfg.Segment.NoiseFloorDB >= 0 {
		return nil, fmt.Errorf("segment.noise_floor_db must be < 0")
	}
	if cfg.Segment.SnapTolerance < 0 || cfg.Segment.SnapTolerance >= 0.5 {
		return nil, fmt.Errorf("segment.snap_tolerance must be in [0, 0.5)")
	}
	if cfg.Segment.AssumedBitrateBps <= 0 {
		return nil, fmt.Errorf("segment.assumed_bitrate_bps must be > 0")
	}
	if cfg.Segment.CutTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("segment.cut_timeout_seconds must be > 0")
	}
	if cfg.Segment.AnalysisTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("segment.analysis_timeout_seconds must be > 0")
	}

	if err := validateEndpoint("stt.endpoint", cfg.STT.Endpoint); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.STT.Model) == "" {
		return nil, fmt.Errorf("stt.model must not be empty")
	}
	if cfg.STT.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("stt.max_upload_bytes must be > 0")
	}
	if cfg.STT.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("stt.timeout_seconds must be > 0")
	}
	if cfg.STT.Attempts <= 0 {
		return nil, fmt.Errorf("stt.attempts must be > 0")
	}
	if cfg.STT.InFlight <= 0 || cfg.STT.InFlight > maxInFlight {
		return nil, fmt.Errorf("stt.in_flight must be between 1 and %d", maxInFlight)
	}
	if !validLanguage(cfg.STT.Language) {
		return nil, fmt.Errorf("stt.language must be a two-letter ISO-639-1 code, got %q", cfg.STT.Language)
	}
	if cfg.Segment.MaxPartBytes > cfg.STT.MaxUploadBytes {
		warnings = append(warnings, Warning{Message: fmt.Sprintf(
			"segment.max_part_bytes (%d) exceeds stt.max_upload_bytes (%d); oversized parts will be rejected",
			cfg.Segment.MaxPartBytes, cfg.STT.MaxUploadBytes,
		)})
	}

	if err := validateEndpoint("llm.endpoint", cfg.LLM.Endpoint); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.LLM.Model) == "" {
		return nil, fmt.Errorf("llm.model must not be empty")
	}
	if strings.TrimSpace(cfg.LLM.Version) == "" {
		return nil, fmt.Errorf("llm.version must not be empty")
	}
	if cfg.LLM.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("llm.timeout_seconds must be > 0")
	}

	budget := cfg.Budget
	if budget.CorrectionCeiling <= 0 || budget.SummaryCeiling <= 0 {
		return nil, fmt.Errorf("budget ceilings must be > 0")
	}
	if budget.CorrectionOverhead < 0 {
		return nil, fmt.Errorf("budget.correction_overhead must be >= 0")
	}
	if budget.CorrectionCap <= 0 {
		return nil, fmt.Errorf("budget.correction_cap must be > 0")
	}
	for name, value := range map[string]int{
		"budget.summary_brief":    budget.SummaryBrief,
		"budget.summary_detailed": budget.SummaryDetailed,
		"budget.summary_bullets":  budget.SummaryBullets,
		"budget.summary_tasks":    budget.SummaryTasks,
	} {
		if value <= 0 {
			return nil, fmt.Errorf("%s must be > 0", name)
		}
	}
	if budget.SummaryCeiling < budget.CorrectionCeiling {
		warnings = append(warnings, Warning{Message: "budget.summary_ceiling is below budget.correction_ceiling"})
	}

	if len(cfg.Tools.FFmpeg.Argv) == 0 {
		return nil, fmt.Errorf("tools.ffmpeg must not be empty")
	}
	if len(cfg.Tools.FFprobe.Argv) == 0 {
		return nil, fmt.Errorf("tools.ffprobe must not be empty")
	}

	if _, ok := validLogLevels[strings.ToLower(strings.TrimSpace(cfg.Log.Level))]; !ok {
		return nil, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	return warnings, nil
}

func validateEndpoint(name string, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%s must not be empty", name)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", name)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", name)
	}
	return nil
}

// validLanguage accepts an empty hint or two lowercase ASCII letters.
func validLanguage(code string) bool {
	if code == "" {
		return true
	}
	return len(code) == 2 && code[0] >= 'a' && code[0] <= 'z' && code[1] >= 'a' && code[1] <= 'z'
}
