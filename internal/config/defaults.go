package config

const (
	mebibyte = 1024 * 1024

	// DefaultSTTEndpoint is an OpenAI-compatible transcription endpoint (Groq Whisper).
	DefaultSTTEndpoint = "https://api.groq.com/openai/v1/audio/transcriptions"
	// DefaultLLMEndpoint is an Anthropic-compatible messages endpoint.
	DefaultLLMEndpoint = "https://api.anthropic.com/v1/messages"
)

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	ffmpeg := "ffmpeg"
	ffprobe := "ffprobe"

	return Config{
		Output: OutputConfig{Dir: "./downloads"},
		Segment: SegmentConfig{
			MaxPartBytes:           20 * mebibyte,
			MinSilenceSeconds:      0.5,
			NoiseFloorDB:           -30,
			SnapTolerance:          0.2,
			AssumedBitrateBps:      128_000,
			CutTimeoutSeconds:      60,
			AnalysisTimeoutSeconds: 60,
		},
		STT: STTConfig{
			Endpoint:       DefaultSTTEndpoint,
			Model:          "whisper-large-v3",
			MaxUploadBytes: 25 * mebibyte,
			TimeoutSeconds: 300,
			Attempts:       3,
			InFlight:       1,
		},
		LLM: LLMConfig{
			Endpoint:       DefaultLLMEndpoint,
			Model:          "claude-haiku-4-5",
			Version:        "2023-06-01",
			TimeoutSeconds: 120,
		},
		Budget: BudgetConfig{
			CorrectionCeiling:  50_000,
			SummaryCeiling:     175_000,
			CorrectionOverhead: 2_000,
			CorrectionCap:      64_000,
			SummaryBrief:       4_096,
			SummaryDetailed:    16_384,
			SummaryBullets:     8_192,
			SummaryTasks:       8_192,
		},
		Tools: ToolsConfig{
			FFmpeg:  CommandConfig{Raw: ffmpeg, Argv: mustSplitCommand(ffmpeg)},
			FFprobe: CommandConfig{Raw: ffprobe, Argv: mustSplitCommand(ffprobe)},
		},
		Log: LogConfig{Level: "info"},
	}
}
