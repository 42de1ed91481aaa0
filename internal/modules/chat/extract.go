// README: Count extractor: French free text -> passenger and bag counts.
package chat

import (
	"regexp"
	"strconv"
	"strings"
)

// Counts is the outcome of reading a user message for passenger and bag
// numbers. A nil field means the message did not state it.
type Counts struct {
	Passengers *int
	Bags       *int
}

const numberWordPattern = `un|une|deux|trois|quatre|cinq|six|sept|huit|neuf|dix`

var numberWords = map[string]int{
	"un": 1, "une": 1, "deux": 2, "trois": 3, "quatre": 4,
	"cinq": 5, "six": 6, "sept": 7, "huit": 8, "neuf": 9, "dix": 10,
}

var (
	paxRe  = regexp.MustCompile(`(?i)\b(\d{1,2}|` + numberWordPattern + `)\s*(?:pax|passagers?|personnes?|adultes?|enfants?)\b`)
	bagRe  = regexp.MustCompile(`(?i)\b(\d{1,2}|` + numberWordPattern + `)\s*(?:valises?|bagages?|sacs?)\b`)
	pairRe = regexp.MustCompile(`\b(\d{1,2})\s*/\s*(\d{1,2})\b`)
	bareRe = regexp.MustCompile(`(?i)\b(\d{1,2}|` + numberWordPattern + `)\b`)

	monthRe    = regexp.MustCompile(`(?i)\b(?:janvier|f[ée]vrier|mars|avril|mai|juin|juillet|ao[ûu]t|septembre|octobre|novembre|d[ée]cembre)\b`)
	clockishRe = regexp.MustCompile(`(?i)\b\d{1,2}[:h]\d{2}\b|\b\d{1,2}\s*h\b`)
	ordinalRe  = regexp.MustCompile(`(?i)\ble\s+\d{1,2}\b`)
)

// ExtractCounts reads passenger and bag counts from the latest user message.
// Keyword-anchored matches ("2 pax", "trois valises") always win. When both
// are still missing and the assistant's previous turn asked for counts, two
// looser readings are tried: an "N/M" shorthand, then the first two bare
// numbers. Neither loose reading runs on a message carrying a date or time
// cue, so "le 20 à 14h30" and "le 20/12" never read as counts while a bare
// "2/3" still does.
func ExtractCounts(message string, history []Turn) Counts {
	var out Counts

	if m := paxRe.FindStringSubmatch(message); m != nil {
		out.Passengers = parseCount(m[1])
	}
	if m := bagRe.FindStringSubmatch(message); m != nil {
		out.Bags = parseCount(m[1])
	}
	if out.Passengers != nil || out.Bags != nil {
		return out
	}
	if !assistantAskedCounts(history) {
		return out
	}
	if hasDateCue(message) {
		return out
	}

	if m := pairRe.FindStringSubmatch(message); m != nil {
		out.Passengers = parseCount(m[1])
		out.Bags = parseCount(m[2])
		return out
	}

	if nums := bareRe.FindAllStringSubmatch(message, 2); len(nums) == 2 {
		out.Passengers = parseCount(nums[0][1])
		out.Bags = parseCount(nums[1][1])
	}
	return out
}

// hasDateCue reports whether a message visibly states a date or time: month
// names, HH:mm / HHhMM clocks, or the ordinal "le N". A bare DD/MM slash pair
// is deliberately not a cue here, since the counts shorthand uses the same
// shape.
func hasDateCue(message string) bool {
	return monthRe.MatchString(message) ||
		clockishRe.MatchString(message) ||
		ordinalRe.MatchString(message)
}

// assistantAskedCounts reports whether the most recent assistant turn was the
// passengers/bags question; only then may loose numbers be read as counts.
func assistantAskedCounts(history []Turn) bool {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != RoleAssistant {
			continue
		}
		content := strings.ToLower(history[i].Content)
		return strings.Contains(content, "passager") && strings.Contains(content, "bagage")
	}
	return false
}

func parseCount(token string) *int {
	token = strings.ToLower(strings.TrimSpace(token))
	if n, ok := numberWords[token]; ok {
		return &n
	}
	n, err := strconv.Atoi(token)
	if err != nil || n < 0 || n > maxCount {
		return nil
	}
	return &n
}
