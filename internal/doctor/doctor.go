// Package doctor runs runtime readiness diagnostics for config, media tools, credentials, and output.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/auditlog/ytdown/internal/config"
)

// healthTimeout bounds the optional gRPC health probe.
const healthTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
// ctx bounds the network probes.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{}

	configMessage := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		configMessage = fmt.Sprintf("%q not found; using defaults", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: configMessage})

	checks = append(checks, checkCommand(cfg.Config.Tools.FFmpeg.Argv, "tools.ffmpeg"))
	checks = append(checks, checkCommand(cfg.Config.Tools.FFprobe.Argv, "tools.ffprobe"))

	checks = append(checks, checkCredential("stt.api_key", cfg.Config.STT.APIKey, true))
	checks = append(checks, checkCredential("llm.api_key", cfg.Config.LLM.APIKey, false))

	checks = append(checks, checkOutputDir(cfg.Config.Output.Dir))

	if target := strings.TrimSpace(cfg.Config.STT.HealthGRPC); target != "" {
		probeCtx, cancel := context.WithTimeout(ctx, healthTimeout)
		checks = append(checks, checkGRPCHealth(probeCtx, target))
		cancel()
	}

	return Report{Checks: checks}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkCredential reports whether a key is configured. Optional keys pass either way.
func checkCredential(name string, value string, required bool) Check {
	if strings.TrimSpace(value) != "" {
		return Check{Name: name, Pass: true, Message: "configured"}
	}
	if required {
		return Check{Name: name, Pass: false, Message: "not set (config or environment)"}
	}
	return Check{Name: name, Pass: true, Message: "not set; correction and summaries are unavailable"}
}

// checkOutputDir creates dir if needed and proves it accepts new files.
func checkOutputDir(dir string) Check {
	const name = "output.dir"
	if strings.TrimSpace(dir) == "" {
		return Check{Name: name, Pass: false, Message: "output.dir is empty"}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("create %s: %v", dir, err)}
	}
	probe, err := os.CreateTemp(dir, ".ytdown-doctor-*")
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s is not writable: %v", dir, err)}
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("%s is writable", dir)}
}
