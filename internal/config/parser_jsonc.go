package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Output  *jsoncOutput  `json:"output"`
	Segment *jsoncSegment `json:"segment"`
	STT     *jsoncSTT     `json:"stt"`
	LLM     *jsoncLLM     `json:"llm"`
	Budget  *jsoncBudget  `json:"budget"`
	Tools   *jsoncTools   `json:"tools"`
	Log     *jsoncLog     `json:"log"`
}

type jsoncOutput struct {
	Dir *string `json:"dir"`
}

type jsoncSegment struct {
	MaxPartBytes           *int64   `json:"max_part_bytes"`
	MinSilenceSeconds      *float64 `json:"min_silence_seconds"`
	NoiseFloorDB           *float64 `json:"noise_floor_db"`
	SnapTolerance          *float64 `json:"snap_tolerance"`
	AssumedBitrateBps      *int64   `json:"assumed_bitrate_bps"`
	CutTimeoutSeconds      *int     `json:"cut_timeout_seconds"`
	AnalysisTimeoutSeconds *int     `json:"analysis_timeout_seconds"`
}

type jsoncSTT struct {
	Endpoint       *string `json:"endpoint"`
	Model          *string `json:"model"`
	APIKey         *string `json:"api_key"`
	MaxUploadBytes *int64  `json:"max_upload_bytes"`
	TimeoutSeconds *int    `json:"timeout_seconds"`
	Attempts       *int    `json:"attempts"`
	InFlight       *int    `json:"in_flight"`
	HealthGRPC     *string `json:"health_grpc"`
	Language       *string `json:"language"`
}

type jsoncLLM struct {
	Endpoint       *string `json:"endpoint"`
	Model          *string `json:"model"`
	APIKey         *string `json:"api_key"`
	Version        *string `json:"version"`
	TimeoutSeconds *int    `json:"timeout_seconds"`
}

type jsoncBudget struct {
	CorrectionCeiling  *int `json:"correction_ceiling"`
	SummaryCeiling     *int `json:"summary_ceiling"`
	CorrectionOverhead *int `json:"correction_overhead"`
	CorrectionCap      *int `json:"correction_cap"`
	SummaryBrief       *int `json:"summary_brief"`
	SummaryDetailed    *int `json:"summary_detailed"`
	SummaryBullets     *int `json:"summary_bullets"`
	SummaryTasks       *int `json:"summary_tasks"`
}

type jsoncTools struct {
	FFmpeg  *string `json:"ffmpeg"`
	FFprobe *string `json:"ffprobe"`
}

type jsoncLog struct {
	Level *string `json:"level"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if payload.Output != nil && payload.Output.Dir != nil {
		cfg.Output.Dir = strings.TrimSpace(*payload.Output.Dir)
	}

	if s := payload.Segment; s != nil {
		setIfPresent(&cfg.Segment.MaxPartBytes, s.MaxPartBytes)
		setIfPresent(&cfg.Segment.MinSilenceSeconds, s.MinSilenceSeconds)
		setIfPresent(&cfg.Segment.NoiseFloorDB, s.NoiseFloorDB)
		setIfPresent(&cfg.Segment.SnapTolerance, s.SnapTolerance)
		setIfPresent(&cfg.Segment.AssumedBitrateBps, s.AssumedBitrateBps)
		setIfPresent(&cfg.Segment.CutTimeoutSeconds, s.CutTimeoutSeconds)
		setIfPresent(&cfg.Segment.AnalysisTimeoutSeconds, s.AnalysisTimeoutSeconds)
	}

	if s := payload.STT; s != nil {
		setTrimmed(&cfg.STT.Endpoint, s.Endpoint)
		setTrimmed(&cfg.STT.Model, s.Model)
		setTrimmed(&cfg.STT.HealthGRPC, s.HealthGRPC)
		setTrimmed(&cfg.STT.Language, s.Language)
		setIfPresent(&cfg.STT.MaxUploadBytes, s.MaxUploadBytes)
		setIfPresent(&cfg.STT.TimeoutSeconds, s.TimeoutSeconds)
		setIfPresent(&cfg.STT.Attempts, s.Attempts)
		setIfPresent(&cfg.STT.InFlight, s.InFlight)
		if s.APIKey != nil {
			cfg.STT.APIKey = strings.TrimSpace(*s.APIKey)
			warnings = append(warnings, Warning{Message: "stt.api_key stored in config file; prefer YTDOWN_STT_API_KEY"})
		}
	}

	if l := payload.LLM; l != nil {
		setTrimmed(&cfg.LLM.Endpoint, l.Endpoint)
		setTrimmed(&cfg.LLM.Model, l.Model)
		setTrimmed(&cfg.LLM.Version, l.Version)
		setIfPresent(&cfg.LLM.TimeoutSeconds, l.TimeoutSeconds)
		if l.APIKey != nil {
			cfg.LLM.APIKey = strings.TrimSpace(*l.APIKey)
			warnings = append(warnings, Warning{Message: "llm.api_key stored in config file; prefer YTDOWN_LLM_API_KEY"})
		}
	}

	if b := payload.Budget; b != nil {
		setIfPresent(&cfg.Budget.CorrectionCeiling, b.CorrectionCeiling)
		setIfPresent(&cfg.Budget.SummaryCeiling, b.SummaryCeiling)
		setIfPresent(&cfg.Budget.CorrectionOverhead, b.CorrectionOverhead)
		setIfPresent(&cfg.Budget.CorrectionCap, b.CorrectionCap)
		setIfPresent(&cfg.Budget.SummaryBrief, b.SummaryBrief)
		setIfPresent(&cfg.Budget.SummaryDetailed, b.SummaryDetailed)
		setIfPresent(&cfg.Budget.SummaryBullets, b.SummaryBullets)
		setIfPresent(&cfg.Budget.SummaryTasks, b.SummaryTasks)
	}

	if t := payload.Tools; t != nil {
		if t.FFmpeg != nil {
			command, err := parseCommand("tools.ffmpeg", *t.FFmpeg)
			if err != nil {
				return nil, err
			}
			cfg.Tools.FFmpeg = command
		}
		if t.FFprobe != nil {
			command, err := parseCommand("tools.ffprobe", *t.FFprobe)
			if err != nil {
				return nil, err
			}
			cfg.Tools.FFprobe = command
		}
	}

	if payload.Log != nil && payload.Log.Level != nil {
		cfg.Log.Level = strings.ToLower(strings.TrimSpace(*payload.Log.Level))
	}

	return warnings, nil
}

func setIfPresent[T any](target *T, value *T) {
	if value != nil {
		*target = *value
	}
}

func setTrimmed(target *string, value *string) {
	if value != nil {
		*target = strings.TrimSpace(*value)
	}
}

func parseCommand(name string, raw string) (CommandConfig, error) {
	argv, err := splitCommand(raw)
	if err != nil {
		return CommandConfig{}, fmt.Errorf("invalid %s: %w", name, err)
	}
	return CommandConfig{Raw: raw, Argv: argv}, nil
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
