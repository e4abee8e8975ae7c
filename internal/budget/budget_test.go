package budget

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/auditlog/ytdown/internal/config"
)

func defaultGuard() Guard {
	return NewGuard(config.Default().Budget)
}

func TestEstimateTokens(t *testing.T) {
	require.Zero(t, EstimateTokens(""))
	require.Equal(t, 1, EstimateTokens("a"))
	require.Equal(t, 1, EstimateTokens("abcd"))
	require.Equal(t, 2, EstimateTokens("abcde"))
	require.Equal(t, 25, EstimateTokens(strings.Repeat("x", 100)))
	require.Equal(t, 1, EstimateTokens("żółw"), "counts runes, not bytes")
}

func TestEstimateTokensIsNonDecreasing(t *testing.T) {
	previous := 0
	var text strings.Builder
	for i := 0; i < 200; i++ {
		text.WriteString("ą")
		current := EstimateTokens(text.String())
		require.GreaterOrEqual(t, current, previous)
		previous = current
	}
}

func TestCorrectionCeilingBoundary(t *testing.T) {
	guard := defaultGuard()
	ceiling := guard.CorrectionCeiling

	require.True(t, guard.FitsForCorrection(strings.Repeat("x", 4*ceiling)))
	require.False(t, guard.FitsForCorrection(strings.Repeat("x", 4*ceiling+1)))
	require.True(t, guard.FitsForCorrection(""))
}

func TestSummaryCeilingBoundary(t *testing.T) {
	guard := defaultGuard()
	ceiling := guard.SummaryCeiling

	require.True(t, guard.FitsForSummary(strings.Repeat("x", 4*ceiling)))
	require.False(t, guard.FitsForSummary(strings.Repeat("x", 4*ceiling+1)))
	require.True(t, guard.FitsForSummary(strings.Repeat("x", 4*guard.CorrectionCeiling+1)),
		"summary accepts inputs the correction pass rejects")
}

func TestOutputBudgetForCorrectionIsProportionalAndCapped(t *testing.T) {
	guard := defaultGuard()

	short := guard.OutputBudgetForCorrection(EstimateTokens(strings.Repeat("a", 4000)))
	long := guard.OutputBudgetForCorrection(EstimateTokens(strings.Repeat("a", 40000)))
	require.Equal(t, 1000+2000, short)
	require.Equal(t, 10000+2000, long)
	require.Less(t, short, guard.CorrectionCap)
	require.Less(t, long, guard.CorrectionCap)

	require.Equal(t, guard.CorrectionCap, guard.OutputBudgetForCorrection(guard.CorrectionCap))
	require.Equal(t, guard.CorrectionOverhead, guard.OutputBudgetForCorrection(-5))
}

func TestOutputBudgetForSummaryIsFixedPerStyle(t *testing.T) {
	guard := defaultGuard()
	want := map[Style]int{
		StyleBrief:    4096,
		StyleDetailed: 16384,
		StyleBullets:  8192,
		StyleTasks:    8192,
	}
	for _, style := range Styles {
		require.Equal(t, want[style], guard.OutputBudgetForSummary(style), "style %s", style)
	}
	require.Equal(t, 4096, guard.OutputBudgetForSummary(Style("unknown")))
}

func TestParseStyle(t *testing.T) {
	tests := map[string]Style{
		"brief":    StyleBrief,
		" 1 ":      StyleBrief,
		"DETAILED": StyleDetailed,
		"2":        StyleDetailed,
		"bullets":  StyleBullets,
		"3":        StyleBullets,
		"tasks":    StyleTasks,
		"4":        StyleTasks,
	}
	for raw, want := range tests {
		got, err := ParseStyle(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got)
	}

	_, err := ParseStyle("haiku")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown summary style")
}

func TestStyleTitles(t *testing.T) {
	require.Equal(t, "Krótkie podsumowanie", StyleBrief.Title())
	require.Equal(t, "Podział zadań na osoby", StyleTasks.Title())
	require.Equal(t, "Podsumowanie", Style("x").Title())
}
