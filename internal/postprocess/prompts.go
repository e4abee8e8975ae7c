package postprocess

import "github.com/auditlog/ytdown/internal/budget"

const correctionPrompt = "Popraw interpunkcję, wielkie litery i oczywiste błędy rozpoznawania mowy w poniższej transkrypcji. " +
	"Nie streszczaj, nie skracaj i nie dodawaj treści. Zachowaj podział na akapity i język oryginału. " +
	"Zwróć wyłącznie poprawiony tekst:"

var summaryPrompts = map[budget.Style]string{
	budget.StyleBrief:    "Napisz krótkie podsumowanie następującego tekstu:",
	budget.StyleDetailed: "Napisz szczegółowe i rozbudowane podsumowanie następującego tekstu:",
	budget.StyleBullets:  "Przygotuj podsumowanie w formie punktów (bullet points) następującego tekstu:",
	budget.StyleTasks:    "Przygotuj podział zadań na osoby na podstawie następującego tekstu:",
}

// buildPrompt places the template above the transcript, separated by a blank line.
func buildPrompt(template string, text string) string {
	return template + "\n\n" + text
}

func summaryPrompt(style budget.Style) string {
	if prompt, ok := summaryPrompts[style]; ok {
		return prompt
	}
	return summaryPrompts[budget.StyleBrief]
}
