// Package config resolves, parses, validates, and defaults ytdown configuration.
package config

// Config is the fully materialized runtime configuration used by ytdown.
type Config struct {
	Output  OutputConfig
	Segment SegmentConfig
	STT     STTConfig
	LLM     LLMConfig
	Budget  BudgetConfig
	Tools   ToolsConfig
	Log     LogConfig
}

// OutputConfig controls where transcript artifacts are written.
type OutputConfig struct {
	Dir string
}

// SegmentConfig controls silence analysis and part sizing.
type SegmentConfig struct {
	MaxPartBytes           int64
	MinSilenceSeconds      float64
	NoiseFloorDB           float64
	SnapTolerance          float64
	AssumedBitrateBps      int64
	CutTimeoutSeconds      int
	AnalysisTimeoutSeconds int
}

// STTConfig controls the speech-to-text service and per-segment retry policy.
type STTConfig struct {
	Endpoint       string
	Model          string
	APIKey         string
	MaxUploadBytes int64
	TimeoutSeconds int
	Attempts       int
	InFlight       int
	HealthGRPC     string
	// Language is an optional ISO-639-1 hint sent with every part.
	Language string
}

// LLMConfig controls the text-generation service used for correction and summaries.
type LLMConfig struct {
	Endpoint       string
	Model          string
	APIKey         string
	Version        string
	TimeoutSeconds int
}

// BudgetConfig holds token ceilings and output allowances.
type BudgetConfig struct {
	CorrectionCeiling  int
	SummaryCeiling     int
	CorrectionOverhead int
	CorrectionCap      int
	SummaryBrief       int
	SummaryDetailed    int
	SummaryBullets     int
	SummaryTasks       int
}

// ToolsConfig stores the external media commands.
type ToolsConfig struct {
	FFmpeg  CommandConfig
	FFprobe CommandConfig
}

// LogConfig controls runtime log verbosity.
type LogConfig struct {
	Level string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
