package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// credentialEnv lists the environment variables consulted for each API key, highest priority first.
var credentialEnv = struct {
	STT []string
	LLM []string
}{
	STT: []string{"YTDOWN_STT_API_KEY", "GROQ_API_KEY"},
	LLM: []string{"YTDOWN_LLM_API_KEY", "ANTHROPIC_API_KEY", "CLAUDE_API_KEY"},
}

// Load resolves, reads, parses, and validates the runtime configuration.
func Load(explicitPath string) (Loaded, error) {
	return Loader{}.Load(explicitPath)
}

// Loader reads configuration files and applies environment overrides. Tests can
// override Lookup to inject deterministic environments.
type Loader struct {
	Lookup func(string) (string, bool)
}

// Load resolves, reads, parses, and validates the runtime configuration.
func (l Loader) Load(explicitPath string) (Loaded, error) {
	if l.Lookup == nil {
		l.Lookup = os.LookupEnv
	}

	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	base := Default()
	content, err := os.ReadFile(resolvedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(l.Lookup, &base)
			return Loaded{
				Path:   resolvedPath,
				Config: base,
				Warnings: []Warning{{
					Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
				}},
				Exists: false,
			}, nil
		}
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	}

	cfg, warnings, err := Parse(string(content), base)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
	}
	applyEnv(l.Lookup, &cfg)

	return Loaded{
		Path:     resolvedPath,
		Config:   cfg,
		Warnings: warnings,
		Exists:   true,
	}, nil
}

// applyEnv overrides credentials from the environment.
func applyEnv(lookup func(string) (string, bool), cfg *Config) {
	overrideFirst(lookup, credentialEnv.STT, &cfg.STT.APIKey)
	overrideFirst(lookup, credentialEnv.LLM, &cfg.LLM.APIKey)
}

func overrideFirst(lookup func(string) (string, bool), keys []string, target *string) {
	for _, key := range keys {
		if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
			*target = strings.TrimSpace(value)
			return
		}
	}
}
