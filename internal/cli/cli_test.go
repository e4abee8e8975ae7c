package cli

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/auditlog/ytdown/internal/budget"
)

func TestParseDefaultsToHelp(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.True(t, parsed.ShowHelp)
	require.Equal(t, CommandHelp, parsed.Command)
}

func TestParseCommandWithConfig(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/ytdown.jsonc", "doctor"})
	require.NoError(t, err)
	require.Equal(t, CommandDoctor, parsed.Command)
	require.Equal(t, "/tmp/ytdown.jsonc", parsed.ConfigPath)
	require.False(t, parsed.ShowHelp)
}

func TestParseTranscribeOptions(t *testing.T) {
	parsed, err := Parse([]string{"transcribe", "--correct", "--summary", "3", "--output", "/tmp/out", "talk.mp3"})
	require.NoError(t, err)
	require.Equal(t, CommandTranscribe, parsed.Command)
	require.Equal(t, "talk.mp3", parsed.Source)
	require.Equal(t, "/tmp/out", parsed.OutputDir)
	require.True(t, parsed.Correct)
	require.Equal(t, budget.StyleBullets, parsed.Summary)
	require.False(t, parsed.ShowHelp)
}

func TestParseTranscribeFileFirst(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/cfg", "transcribe", "talk.m4a", "--summary", "tasks"})
	require.NoError(t, err)
	require.Equal(t, "talk.m4a", parsed.Source)
	require.Equal(t, budget.StyleTasks, parsed.Summary)
	require.False(t, parsed.Correct)
	require.Equal(t, "/tmp/cfg", parsed.ConfigPath)
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  string
		wantCmd  Command
		wantHelp bool
		wantPath string
	}{
		{
			name:     "help short flag",
			args:     []string{"-h"},
			wantCmd:  CommandHelp,
			wantHelp: true,
		},
		{
			name:     "help long flag",
			args:     []string{"--help"},
			wantCmd:  CommandHelp,
			wantHelp: true,
		},
		{
			name:     "version flag",
			args:     []string{"--version"},
			wantCmd:  CommandVersion,
			wantHelp: false,
		},
		{
			name:     "config after command",
			args:     []string{"status", "--config", "/tmp/cfg"},
			wantCmd:  CommandStatus,
			wantPath: "/tmp/cfg",
		},
		{
			name:    "missing config path",
			args:    []string{"--config"},
			wantErr: "requires a path",
		},
		{
			name:    "unknown flag",
			args:    []string{"--bogus"},
			wantErr: "unknown flag",
		},
		{
			name:    "unknown command",
			args:    []string{"bogus"},
			wantErr: "unknown command",
		},
		{
			name:    "extra args after command",
			args:    []string{"doctor", "extra"},
			wantErr: "unexpected arguments",
		},
		{
			name:    "transcribe without file",
			args:    []string{"transcribe", "--correct"},
			wantErr: "requires an audio file path",
		},
		{
			name:    "transcribe two files",
			args:    []string{"transcribe", "a.mp3", "b.mp3"},
			wantErr: "accepts one file",
		},
		{
			name:    "transcribe unknown summary style",
			args:    []string{"transcribe", "--summary", "haiku", "a.mp3"},
			wantErr: "unknown summary style",
		},
		{
			name:    "transcribe summary without value",
			args:    []string{"transcribe", "a.mp3", "--summary"},
			wantErr: "--summary requires a value",
		},
		{
			name:    "transcribe unknown flag",
			args:    []string{"transcribe", "--fast", "a.mp3"},
			wantErr: "unknown flag",
		},
		{
			name:     "valid cancel command",
			args:     []string{"cancel"},
			wantCmd:  CommandCancel,
			wantHelp: false,
		},
		{
			name:     "valid status with config",
			args:     []string{"--config", "/tmp/cfg", "status"},
			wantCmd:  CommandStatus,
			wantHelp: false,
			wantPath: "/tmp/cfg",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.wantCmd, parsed.Command)
			require.Equal(t, tc.wantHelp, parsed.ShowHelp)
			require.Equal(t, tc.wantPath, parsed.ConfigPath)
		})
	}
}

func TestHelpTextIncludesCoreCommands(t *testing.T) {
	text := HelpText("ytdown")
	require.Contains(t, text, "transcribe")
	require.Contains(t, text, "--summary STYLE")
	require.Contains(t, text, "cancel")
	require.Contains(t, text, "doctor")
	require.Contains(t, text, "--config PATH")
}
