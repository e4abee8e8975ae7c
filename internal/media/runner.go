// Package media wraps the ffmpeg and ffprobe invocations used to analyze and cut audio.
package media

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ErrEmptyCommand reports a tool configured without an executable.
var ErrEmptyCommand = errors.New("command argv cannot be empty")

// Runner executes an external command and returns its combined stdout/stderr.
type Runner interface {
	CombinedOutput(ctx context.Context, argv []string) ([]byte, error)
}

// ExecRunner runs commands through os/exec.
type ExecRunner struct{}

// CombinedOutput runs argv to completion, killing the process when ctx ends.
func (ExecRunner) CombinedOutput(ctx context.Context, argv []string) ([]byte, error) {
	if len(argv) == 0 {
		return nil, ErrEmptyCommand
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return output, fmt.Errorf("%s: %w", argv[0], ctxErr)
		}
		return output, fmt.Errorf("%s: %w", argv[0], err)
	}
	return output, nil
}

// command joins a configured tool prefix with per-call arguments without aliasing the prefix.
func command(tool []string, args ...string) []string {
	argv := make([]string, 0, len(tool)+len(args))
	argv = append(argv, tool...)
	return append(argv, args...)
}

func runnerOrDefault(r Runner) Runner {
	if r == nil {
		return ExecRunner{}
	}
	return r
}
