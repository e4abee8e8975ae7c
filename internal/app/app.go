// Package app dispatches parsed commands onto the ytdown runtime.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/auditlog/ytdown/internal/cli"
	"github.com/auditlog/ytdown/internal/config"
	"github.com/auditlog/ytdown/internal/doctor"
	"github.com/auditlog/ytdown/internal/ipc"
	"github.com/auditlog/ytdown/internal/logging"
	"github.com/auditlog/ytdown/internal/pipeline"
	"github.com/auditlog/ytdown/internal/postprocess"
	"github.com/auditlog/ytdown/internal/transcript"
	"github.com/auditlog/ytdown/internal/version"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	// NewPipeline builds the run pipeline; nil uses pipeline.New.
	NewPipeline func(config.Config, *slog.Logger) *pipeline.Pipeline
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("ytdown"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("ytdown"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(cfgLoaded.Config.Log.Level)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandCancel:
		return r.forwardOrFail(ctx, ipc.CommandCancel)
	case cli.CommandTranscribe:
		return r.commandTranscribe(ctx, cfgLoaded.Config, parsed, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandStatus)
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.State == "" {
			resp.State = "idle"
		}
		fmt.Fprintln(r.Stdout, resp.State)
		if p := resp.Progress; p != nil {
			fmt.Fprintf(r.Stdout, "part %d/%d, %d characters, ETA ~%s\n", p.Ordinal, p.Total, p.Characters, p.ETA)
		}
		return 0
	}

	fmt.Fprintln(r.Stdout, "idle")
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no active ytdown run\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func (r Runner) commandTranscribe(ctx context.Context, cfg config.Config, parsed cli.Parsed, logger *slog.Logger) int {
	newPipeline := r.NewPipeline
	if newPipeline == nil {
		newPipeline = pipeline.New
	}
	p := newPipeline(cfg, logger)

	req := pipeline.Request{
		Source:    parsed.Source,
		OutputDir: parsed.OutputDir,
		Correct:   parsed.Correct,
		Summary:   parsed.Summary,
		Progress: func(pr pipeline.Progress) {
			fmt.Fprintln(r.Stdout, pr.String())
		},
	}
	if err := p.Preflight(req); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("preflight failed", "error", err.Error())
		return 1
	}

	job := pipeline.Start(ctx, p, req)

	listener, socketPath := r.acquireControlSocket(ctx, logger)
	if listener != nil {
		defer func() {
			_ = listener.Close()
			_ = os.Remove(socketPath)
		}()

		serverCtx, serverCancel := context.WithCancel(ctx)
		serverErrCh := make(chan error, 1)
		go func() {
			serverErrCh <- ipc.Serve(serverCtx, listener, job)
		}()
		defer func() {
			serverCancel()
			if serverErr := <-serverErrCh; serverErr != nil {
				logger.Error("ipc server failed", "error", serverErr.Error())
			}
		}()
	}

	report, err := job.Wait()
	logReport(logger, report, err)
	return r.printReport(report, err)
}

// acquireControlSocket returns nil when the socket is unavailable; the run proceeds without it.
func (r Runner) acquireControlSocket(ctx context.Context, logger *slog.Logger) (net.Listener, string) {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		logger.Warn("control socket unavailable", "error", err.Error())
		return nil, ""
	}
	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "warning: another ytdown run owns the control socket; status and cancel will reach that run")
		}
		logger.Warn("control socket unavailable", "path", socketPath, "error", err.Error())
		return nil, ""
	}
	return listener, socketPath
}

func (r Runner) printReport(report pipeline.Report, err error) int {
	if report.Cancelled {
		kept := report.Transcript.Counts()[transcript.StatusTranscribed]
		fmt.Fprintf(r.Stdout, "cancelled: kept %d of %d parts\n", kept, len(report.Transcript.Parts))
		if report.TranscriptPath != "" {
			fmt.Fprintf(r.Stdout, "partial transcript: %s\n", report.TranscriptPath)
		} else {
			fmt.Fprintln(r.Stdout, "no transcript written")
		}
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	if report.Transcript.Diagnostic {
		fmt.Fprintln(r.Stderr, "error: nothing could be transcribed; the audio may be corrupted or silent, or the speech-to-text service failed")
		if report.TranscriptPath != "" {
			fmt.Fprintf(r.Stderr, "details: %s\n", report.TranscriptPath)
		}
		return 1
	}

	fmt.Fprintf(r.Stdout, "transcript: %s\n", report.TranscriptPath)
	if failed := report.Transcript.Untranscribed(); failed > 0 {
		fmt.Fprintf(r.Stderr, "warning: %d of %d parts could not be transcribed\n", failed, len(report.Transcript.Parts))
	}

	r.printStep("correction", report.Correction, report.CorrectedPath)
	r.printStep("summary", report.Summary, report.SummaryPath)
	return 0
}

func (r Runner) printStep(name string, result *postprocess.Result, path string) {
	if result == nil {
		return
	}
	switch result.Status {
	case postprocess.StatusOK:
		fmt.Fprintf(r.Stdout, "%s: %s\n", name, path)
	case postprocess.StatusSkippedSize:
		fmt.Fprintf(r.Stderr, "%s skipped: transcript too long (~%d tokens)\n", name, result.InputTokens)
	case postprocess.StatusFailed:
		fmt.Fprintf(r.Stderr, "%s failed: %v\n", name, result.Err)
	}
}

func logReport(logger *slog.Logger, report pipeline.Report, err error) {
	if logger == nil {
		return
	}
	counts := report.Transcript.Counts()
	fields := []any{
		"run_id", report.RunID,
		"source", report.Source.Path,
		"cancelled", report.Cancelled,
		"diagnostic", report.Transcript.Diagnostic,
		"parts", len(report.Transcript.Parts),
		"transcribed", counts[transcript.StatusTranscribed],
		"characters", report.Transcript.Characters(),
		"duration_ms", report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	}
	if report.Correction != nil {
		fields = append(fields, "correction", string(report.Correction.Status))
	}
	if report.Summary != nil {
		fields = append(fields, "summary", string(report.Summary.Status))
	}

	if err != nil && !report.Cancelled {
		logger.Error("run failed", append(fields, "error", err.Error())...)
		return
	}
	logger.Info("run complete", fields...)
}

func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, 220*time.Millisecond)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) {
		return ipc.Response{}, false, nil
	}
	if isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
