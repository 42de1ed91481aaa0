// README: Model output decoding: the single trust boundary for LLM replies.
package ai

import (
	"encoding/json"
	"regexp"
	"strings"

	"berline/internal/modules/chat"
)

var fencedRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// Decode turns raw model output into a tagged reply. Attempts, in order:
// strict JSON parse of the whole text, a fenced-code-block extraction, the
// widest {...} substring. When none parses, the raw text is a plain-text
// reply. Downstream code only ever branches on the tag, never probes fields.
func Decode(raw string) chat.AssistantReply {
	raw = strings.TrimSpace(raw)

	if sr, ok := parseStructured(raw); ok {
		return chat.AssistantReply{Structured: sr}
	}
	if m := fencedRe.FindStringSubmatch(raw); m != nil {
		if sr, ok := parseStructured(strings.TrimSpace(m[1])); ok {
			return chat.AssistantReply{Structured: sr}
		}
	}
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		if sr, ok := parseStructured(raw[start : end+1]); ok {
			return chat.AssistantReply{Structured: sr}
		}
	}
	return chat.AssistantReply{Text: raw}
}

func parseStructured(s string) (*chat.StructuredReply, bool) {
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var sr chat.StructuredReply
	if err := json.Unmarshal([]byte(s), &sr); err != nil {
		return nil, false
	}
	return &sr, true
}
