// Package transcript assembles ordered part results into transcript documents.
package transcript

import (
	"slices"
	"strings"
)

// Status records how a part's text was obtained.
type Status string

// Part statuses.
const (
	StatusTranscribed Status = "transcribed"
	// StatusEmpty is a successful call that returned no text.
	StatusEmpty Status = "empty"
	// StatusFailed is a call that errored after retries.
	StatusFailed Status = "failed"
	// StatusRejected is a part never sent because it was missing or over the upload limit.
	StatusRejected Status = "rejected"
	// StatusCancelled is a part not completed before cancellation.
	StatusCancelled Status = "cancelled"
	// StatusCutFailed is a planned part whose audio could not be extracted.
	StatusCutFailed Status = "cut_failed"
)

// ParagraphSeparator joins part texts in the transcript body.
const ParagraphSeparator = "\n\n"

// Part is the result for one segment ordinal.
type Part struct {
	Ordinal int
	Text    string
	Status  Status
	Bytes   int64
	// Err is the final error message for failed or rejected parts.
	Err string
}

// HasText reports whether the part contributes a paragraph.
func (p Part) HasText() bool {
	return strings.TrimSpace(p.Text) != ""
}

// Transcript is the ordered concatenation of part texts.
type Transcript struct {
	Title string
	Body  string
	Parts []Part
	// Diagnostic is set when no part produced text.
	Diagnostic bool
}

// Assemble orders parts by ordinal and joins the non-empty ones.
// Parts without text contribute nothing, not even a blank paragraph.
func Assemble(title string, parts []Part) Transcript {
	ordered := slices.Clone(parts)
	slices.SortStableFunc(ordered, func(a, b Part) int { return a.Ordinal - b.Ordinal })

	paragraphs := make([]string, 0, len(ordered))
	for _, part := range ordered {
		if part.HasText() {
			paragraphs = append(paragraphs, strings.TrimSpace(part.Text))
		}
	}

	return Transcript{
		Title:      title,
		Body:       strings.Join(paragraphs, ParagraphSeparator),
		Parts:      ordered,
		Diagnostic: len(paragraphs) == 0,
	}
}

// Untranscribed counts parts that should have produced text but could not:
// failed calls, rejected uploads, and failed cuts.
func (t Transcript) Untranscribed() int {
	counts := t.Counts()
	return counts[StatusFailed] + counts[StatusRejected] + counts[StatusCutFailed]
}

// Characters returns the body length in runes.
func (t Transcript) Characters() int {
	return len([]rune(t.Body))
}

// Counts tallies parts by status.
func (t Transcript) Counts() map[Status]int {
	counts := make(map[Status]int, 6)
	for _, part := range t.Parts {
		counts[part.Status]++
	}
	return counts
}
