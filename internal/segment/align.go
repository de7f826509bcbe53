package segment

import (
	"fmt"

	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/transcript"
)

// alignWord resolves the word occupying [start, end] within its context item
// list. It selects the highest-confidence recognition alternative, falling
// back to the confidence nested under the first redaction when no alternative
// carries one, and appends a directly-following punctuation item to the text.
// A word that cannot be resolved is a data-integrity fault in the upstream
// output: offsets downstream depend on every word being present, so this is
// an error rather than a silent skip.
func alignWord(items []transcript.Item, start, end transcript.Number) (string, float64, error) {
	matchIdx := -1
	for i, item := range items {
		if item.Type != "pronunciation" {
			continue
		}
		if item.StartTime == start && item.EndTime == end {
			matchIdx = i
		}
	}
	if matchIdx == -1 {
		return "", 0, fmt.Errorf("no pronunciation item at %.3f-%.3f", float64(start), float64(end))
	}

	alts := items[matchIdx].Alternatives
	if len(alts) == 0 {
		return "", 0, fmt.Errorf("pronunciation item at %.3f has no alternatives", float64(start))
	}

	best := alts[0]
	found := false
	for _, alt := range alts {
		if alt.Confidence == nil {
			continue
		}
		if !found || float64(*alt.Confidence) > float64(*best.Confidence) {
			best = alt
			found = true
		}
	}

	var confidence float64
	if found {
		confidence = float64(*best.Confidence)
	} else {
		// Redacted words bury their confidence under the redaction block.
		best = alts[0]
		if len(best.Redactions) == 0 {
			return "", 0, fmt.Errorf("pronunciation item at %.3f has neither confidence nor redaction", float64(start))
		}
		confidence = float64(best.Redactions[0].Confidence)
	}

	text := best.Content
	if next := matchIdx + 1; next < len(items) && items[next].Type == "punctuation" && len(items[next].Alternatives) > 0 {
		text += items[next].Alternatives[0].Content
	}

	return text, confidence, nil
}
