// README: Reply formatter: renders the final user-facing message.
package chat

import (
	"fmt"
	"strings"
)

const sectionPlaceholder = "—"

// FormatReply renders an assistant reply. A structured answer is rendered
// verbatim after leak filtering; without an answer, the three booking
// sections are rendered as bullet lists with neutral placeholders. A tariff
// block is appended whenever quotes exist and the reply does not already
// quote them.
func FormatReply(rep AssistantReply, quotes []VehicleQuote) string {
	var text string
	switch {
	case rep.Structured != nil && strings.TrimSpace(rep.Structured.Answer) != "":
		text = FilterLeaks(strings.TrimSpace(rep.Structured.Answer))
	case rep.Structured != nil:
		text = renderSections(rep.Structured)
	default:
		text = FilterLeaks(strings.TrimSpace(rep.Text))
	}

	if len(quotes) > 0 && !quotesEchoed(text, quotes) {
		text = strings.TrimRight(text, "\n") + "\n\n" + TariffBlock(quotes)
	}
	return text
}

func renderSections(sr *StructuredReply) string {
	var b strings.Builder
	b.WriteString("Questions manquantes :\n")
	writeBullets(&b, sr.Missing)
	b.WriteString("\nRécap :\n")
	writeBullets(&b, sr.Recap)
	b.WriteString("\nProchaine étape :\n")
	if next := strings.TrimSpace(sr.NextStep); next != "" {
		b.WriteString("- " + FilterLeaks(next) + "\n")
	} else {
		b.WriteString("- " + sectionPlaceholder + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeBullets(b *strings.Builder, items []string) {
	wrote := false
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			b.WriteString("- " + FilterLeaks(it) + "\n")
			wrote = true
		}
	}
	if !wrote {
		b.WriteString("- " + sectionPlaceholder + "\n")
	}
}

// TariffBlock renders one line per quote: "label : 36 €" or "label : sur devis".
func TariffBlock(quotes []VehicleQuote) string {
	lines := make([]string, 0, len(quotes))
	for _, q := range quotes {
		switch {
		case q.IsQuote:
			lines = append(lines, q.Label+" : sur devis")
		case q.Total != nil:
			lines = append(lines, q.Label+" : "+Euro(*q.Total))
		}
	}
	return strings.Join(lines, "\n")
}

// quotesEchoed reports whether the reply already carries every displayable
// quote, in which case appending the tariff block would duplicate it.
func quotesEchoed(text string, quotes []VehicleQuote) bool {
	shown := 0
	for _, q := range quotes {
		switch {
		case q.IsQuote:
			if !strings.Contains(text, "sur devis") {
				return false
			}
			shown++
		case q.Total != nil:
			if !strings.Contains(text, Euro(*q.Total)) {
				return false
			}
			shown++
		}
	}
	return shown > 0
}

// Euro renders an amount the French way: whole euros bare, cents with a
// decimal comma.
func Euro(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d €", int64(v))
	}
	return strings.Replace(fmt.Sprintf("%.2f €", v), ".", ",", 1)
}
