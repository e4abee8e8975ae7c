package transcript

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PartPlaceholder is persisted for a part that produced no text.
const PartPlaceholder = "[no transcription for this part]"

// Render returns the transcript document, or the diagnostic document when no part had text.
func Render(t Transcript) string {
	if t.Diagnostic {
		return RenderDiagnostic(t.Title)
	}
	return fmt.Sprintf("# %s Transcript\n\n%s", t.Title, t.Body)
}

// RenderDiagnostic explains a run in which nothing could be transcribed.
func RenderDiagnostic(title string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s Transcript\n\n", title)
	b.WriteString("**Transcription failed**\n\n")
	b.WriteString("No part of this audio file produced any text.\n")
	b.WriteString("Likely causes:\n")
	b.WriteString("- the audio file is corrupted or in an incompatible format\n")
	b.WriteString("- the speech-to-text service returned errors\n")
	b.WriteString("- the recording contains no intelligible speech\n\n")
	b.WriteString("Per-part results are listed in the run manifest and log.\n")
	return b.String()
}

// RenderCorrected wraps corrected transcript text.
func RenderCorrected(title string, text string) string {
	return fmt.Sprintf("# %s Transcript (corrected)\n\n%s", title, strings.TrimSpace(text))
}

// RenderSummary wraps summary text under a heading naming the style.
func RenderSummary(title string, styleTitle string, text string) string {
	return fmt.Sprintf("# %s - %s\n\n%s", title, styleTitle, strings.TrimSpace(text))
}

// PartArtifact returns the persisted content for a part.
func PartArtifact(p Part) string {
	if !p.HasText() {
		return PartPlaceholder
	}
	return strings.TrimSpace(p.Text)
}

// StripHeader removes a leading "# " title line and the blank lines after it.
// A document holding nothing but a header is returned unchanged.
func StripHeader(doc string) string {
	if !strings.HasPrefix(doc, "# ") {
		return doc
	}
	lines := strings.Split(doc, "\n")
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "" {
			return strings.Join(lines[i:], "\n")
		}
	}
	return doc
}

// Paths names every artifact a run writes for one source.
type Paths struct {
	Dir  string
	Base string
}

// Part returns <dir>/<base>_part<N>_transcript.txt.
func (p Paths) Part(ordinal int) string {
	return filepath.Join(p.Dir, fmt.Sprintf("%s_part%d_transcript.txt", p.Base, ordinal))
}

// Transcript returns <dir>/<base>_transcript.md.
func (p Paths) Transcript() string {
	return filepath.Join(p.Dir, p.Base+"_transcript.md")
}

// Corrected returns <dir>/<base>_corrected.md.
func (p Paths) Corrected() string {
	return filepath.Join(p.Dir, p.Base+"_corrected.md")
}

// Summary returns <dir>/<base>_summary.md.
func (p Paths) Summary() string {
	return filepath.Join(p.Dir, p.Base+"_summary.md")
}

// Manifest returns <dir>/<base>_manifest.yaml.
func (p Paths) Manifest() string {
	return filepath.Join(p.Dir, p.Base+"_manifest.yaml")
}
