// Package postprocess runs budget-gated correction and summarization passes.
package postprocess

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/auditlog/ytdown/internal/budget"
	"github.com/auditlog/ytdown/internal/llm"
)

// Status is the outcome of a post-processing step.
type Status string

// Step outcomes.
const (
	StatusOK Status = "ok"
	// StatusSkippedSize means the input exceeded the token ceiling; no call was made.
	StatusSkippedSize Status = "skipped_size"
	// StatusFailed means the single service call did not produce text.
	StatusFailed Status = "failed"
)

// Result is the outcome of one correction or summary request. Text is set only for StatusOK.
type Result struct {
	Status Status
	Text   string
	// InputTokens is the estimate used for admission.
	InputTokens int
	// MaxTokens is the output budget sent, zero when skipped.
	MaxTokens int
	Err       error
}

// OK reports whether the step produced text.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// Completer performs one non-streaming text-generation call.
type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (string, error)
}

// CorrectionRequest asks for a grammar and punctuation pass over Text.
type CorrectionRequest struct {
	Text string
}

// SummaryRequest asks for a summary of Text in Style.
type SummaryRequest struct {
	Text  string
	Style budget.Style
}

// Corrector sends transcripts through the correction template.
type Corrector struct {
	Client Completer
	Guard  budget.Guard
	Logger *slog.Logger
}

// Correct returns corrected text, or a skipped/failed result. It never retries.
func (c Corrector) Correct(ctx context.Context, req CorrectionRequest) Result {
	logger := loggerOrDefault(c.Logger).With("step", "correction")
	tokens := budget.EstimateTokens(req.Text)

	if !c.Guard.FitsForCorrection(req.Text) {
		logger.Warn("correction skipped: transcript exceeds token ceiling",
			"input_tokens", tokens,
			"ceiling", c.Guard.CorrectionCeiling,
		)
		return Result{Status: StatusSkippedSize, InputTokens: tokens}
	}

	maxTokens := c.Guard.OutputBudgetForCorrection(tokens)
	return complete(ctx, logger, c.Client, llm.CompletionRequest{
		Prompt:    buildPrompt(correctionPrompt, req.Text),
		MaxTokens: maxTokens,
	}, tokens)
}

// Summarizer sends transcripts through one of the summary templates.
type Summarizer struct {
	Client Completer
	Guard  budget.Guard
	Logger *slog.Logger
}

// Summarize returns summary text, or a skipped/failed result. It never retries.
func (s Summarizer) Summarize(ctx context.Context, req SummaryRequest) Result {
	logger := loggerOrDefault(s.Logger).With("step", "summary", "style", string(req.Style))
	tokens := budget.EstimateTokens(req.Text)

	if !s.Guard.FitsForSummary(req.Text) {
		logger.Warn("summary skipped: transcript exceeds token ceiling",
			"input_tokens", tokens,
			"ceiling", s.Guard.SummaryCeiling,
		)
		return Result{Status: StatusSkippedSize, InputTokens: tokens}
	}

	return complete(ctx, logger, s.Client, llm.CompletionRequest{
		Prompt:    buildPrompt(summaryPrompt(req.Style), req.Text),
		MaxTokens: s.Guard.OutputBudgetForSummary(req.Style),
	}, tokens)
}

func complete(ctx context.Context, logger *slog.Logger, client Completer, req llm.CompletionRequest, tokens int) Result {
	result := Result{InputTokens: tokens, MaxTokens: req.MaxTokens}

	text, err := client.Complete(ctx, req)
	if err == nil && strings.TrimSpace(text) == "" {
		err = llm.ErrEmptyResponse
	}
	if err != nil {
		var statusErr *llm.StatusError
		if errors.As(err, &statusErr) {
			logger.Error("text generation returned an error status",
				"status", statusErr.Code,
				"body_excerpt", statusErr.Body,
			)
		} else {
			logger.Error("text generation failed", "error", err.Error())
		}
		result.Status = StatusFailed
		result.Err = err
		return result
	}

	logger.Info("text generation complete",
		"input_tokens", tokens,
		"max_tokens", req.MaxTokens,
		"output_chars", len([]rune(text)),
	)
	result.Status = StatusOK
	result.Text = strings.TrimSpace(text)
	return result
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
