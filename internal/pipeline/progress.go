package pipeline

import (
	"fmt"
	"time"

	"github.com/auditlog/ytdown/internal/transcript"
)

// ETAUnknown is shown before any segment has completed.
const ETAUnknown = "calculating…"

// Progress is reported once per released segment, in ordinal order.
type Progress struct {
	Ordinal      int
	Total        int
	SegmentBytes int64
	// Characters is the running count of transcribed characters.
	Characters int
	// Completed counts segments released so far, including this one.
	Completed int
	Status    transcript.Status
	ETA       time.Duration
	ETAKnown  bool
}

// ProgressFunc receives progress records.
type ProgressFunc func(Progress)

// ETAString renders the ETA as "1m 5s", "42s", or the unknown marker.
func (p Progress) ETAString() string {
	if !p.ETAKnown {
		return ETAUnknown
	}
	return formatETA(p.ETA)
}

// String renders the progress line shown to users.
func (p Progress) String() string {
	return fmt.Sprintf("part %d/%d (%.1f MB), %d characters, ETA ~%s",
		p.Ordinal, p.Total, float64(p.SegmentBytes)/(1024*1024), p.Characters, p.ETAString())
}

func formatETA(d time.Duration) string {
	seconds := int(d.Round(time.Second) / time.Second)
	if seconds >= 60 {
		return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
	}
	return fmt.Sprintf("%ds", seconds)
}

// estimateETA projects the average time per completed segment over the remainder.
func estimateETA(elapsed time.Duration, completed int, total int) (time.Duration, bool) {
	if completed <= 0 {
		return 0, false
	}
	remaining := max(total-completed, 0)
	return elapsed / time.Duration(completed) * time.Duration(remaining), true
}
