// Package cli parses ytdown command-line arguments.
package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/auditlog/ytdown/internal/budget"
)

type Command string

const (
	CommandTranscribe Command = "transcribe"
	CommandStatus     Command = "status"
	CommandCancel     Command = "cancel"
	CommandDoctor     Command = "doctor"
	CommandVersion    Command = "version"
	CommandHelp       Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandTranscribe: {},
	CommandStatus:     {},
	CommandCancel:     {},
	CommandDoctor:     {},
	CommandVersion:    {},
	CommandHelp:       {},
}

// Parsed is the result of one argument parse.
type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool

	// Transcribe options.
	Source    string
	OutputDir string
	Correct   bool
	Summary   budget.Style
}

// Parse reads global flags, one command, and the transcribe options.
// Only transcribe accepts arguments after the command.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}
	haveCommand := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
			continue
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
			continue
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
			continue
		}

		if haveCommand {
			if parsed.Command != CommandTranscribe {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", parsed.Command)
			}
			next, err := parseTranscribeArg(args, i, &parsed)
			if err != nil {
				return Parsed{}, err
			}
			i = next
			continue
		}

		if strings.HasPrefix(arg, "-") {
			return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
		}
		cmd := Command(arg)
		if _, ok := validCommands[cmd]; !ok {
			return Parsed{}, fmt.Errorf("unknown command: %s", arg)
		}
		parsed.Command = cmd
		parsed.ShowHelp = cmd == CommandHelp
		haveCommand = true
	}

	if parsed.Command == CommandTranscribe && strings.TrimSpace(parsed.Source) == "" {
		return Parsed{}, errors.New("transcribe requires an audio file path")
	}

	return parsed, nil
}

// parseTranscribeArg consumes args[i] (and its value) and returns the last index used.
func parseTranscribeArg(args []string, i int, parsed *Parsed) (int, error) {
	arg := args[i]
	switch arg {
	case "--correct":
		parsed.Correct = true
		return i, nil
	case "--summary", "--output":
		if i+1 >= len(args) {
			return i, fmt.Errorf("%s requires a value", arg)
		}
		value := args[i+1]
		if arg == "--output" {
			parsed.OutputDir = value
			return i + 1, nil
		}
		style, err := budget.ParseStyle(value)
		if err != nil {
			return i, err
		}
		parsed.Summary = style
		return i + 1, nil
	}

	if strings.HasPrefix(arg, "-") {
		return i, fmt.Errorf("unknown flag: %s", arg)
	}
	if parsed.Source != "" {
		return i, fmt.Errorf("transcribe accepts one file, got %q and %q", parsed.Source, arg)
	}
	parsed.Source = arg
	return i, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command>
  %[1]s [--config PATH] transcribe [--correct] [--summary STYLE] [--output DIR] FILE

Commands:
  transcribe  Split FILE at silences, transcribe every part, and write the transcript
  status      Print the state and progress of the running transcription
  cancel      Cancel the running transcription, keeping finished parts
  doctor      Run configuration and environment checks
  version     Print version information
  help        Show this help

Transcribe flags:
  --correct         Run a grammar and punctuation pass over the transcript
  --summary STYLE   Summarize the transcript: brief, detailed, bullets, tasks (or 1-4)
  --output DIR      Output directory (default: output.dir from config)

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/ytdown/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
