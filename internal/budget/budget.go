// Package budget estimates token counts and gates text-generation calls by size.
package budget

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/auditlog/ytdown/internal/config"
)

// charsPerToken is the rough character-to-token ratio used for admission control.
const charsPerToken = 4

// Style selects one of the fixed summary templates.
type Style string

// Summary styles.
const (
	StyleBrief    Style = "brief"
	StyleDetailed Style = "detailed"
	StyleBullets  Style = "bullets"
	StyleTasks    Style = "tasks"
)

// Styles lists every summary style in menu order.
var Styles = []Style{StyleBrief, StyleDetailed, StyleBullets, StyleTasks}

// ParseStyle accepts a style name or its 1-based menu number.
func ParseStyle(raw string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "brief", "short", "1":
		return StyleBrief, nil
	case "detailed", "2":
		return StyleDetailed, nil
	case "bullets", "bullet-points", "3":
		return StyleBullets, nil
	case "tasks", "task-assignment", "4":
		return StyleTasks, nil
	default:
		return "", fmt.Errorf("unknown summary style %q (want brief, detailed, bullets, or tasks)", raw)
	}
}

// Title is the human-facing heading for a summary document.
func (s Style) Title() string {
	switch s {
	case StyleBrief:
		return "Krótkie podsumowanie"
	case StyleDetailed:
		return "Szczegółowe podsumowanie"
	case StyleBullets:
		return "Podsumowanie w punktach"
	case StyleTasks:
		return "Podział zadań na osoby"
	default:
		return "Podsumowanie"
	}
}

// EstimateTokens returns ceil(runes/4), and 0 for empty text.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + charsPerToken - 1) / charsPerToken
}

// Guard holds the ceilings and output allowances of the text-generation service.
type Guard struct {
	CorrectionCeiling  int
	SummaryCeiling     int
	CorrectionOverhead int
	CorrectionCap      int
	SummaryOutput      map[Style]int
}

// NewGuard builds a Guard from configured budgets.
func NewGuard(cfg config.BudgetConfig) Guard {
	return Guard{
		CorrectionCeiling:  cfg.CorrectionCeiling,
		SummaryCeiling:     cfg.SummaryCeiling,
		CorrectionOverhead: cfg.CorrectionOverhead,
		CorrectionCap:      cfg.CorrectionCap,
		SummaryOutput: map[Style]int{
			StyleBrief:    cfg.SummaryBrief,
			StyleDetailed: cfg.SummaryDetailed,
			StyleBullets:  cfg.SummaryBullets,
			StyleTasks:    cfg.SummaryTasks,
		},
	}
}

// FitsForCorrection reports whether text is at or under the correction ceiling.
func (g Guard) FitsForCorrection(text string) bool {
	return EstimateTokens(text) <= g.CorrectionCeiling
}

// FitsForSummary reports whether text is at or under the summary ceiling.
func (g Guard) FitsForSummary(text string) bool {
	return EstimateTokens(text) <= g.SummaryCeiling
}

// OutputBudgetForCorrection scales the correction allowance with input size.
func (g Guard) OutputBudgetForCorrection(inputTokens int) int {
	if inputTokens < 0 {
		inputTokens = 0
	}
	return min(inputTokens+g.CorrectionOverhead, g.CorrectionCap)
}

// OutputBudgetForSummary returns the fixed allowance for style; unknown styles get the brief one.
func (g Guard) OutputBudgetForSummary(style Style) int {
	if budget, ok := g.SummaryOutput[style]; ok {
		return budget
	}
	return g.SummaryOutput[StyleBrief]
}
