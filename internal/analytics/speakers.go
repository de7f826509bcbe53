package analytics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/segment"
)

// StandardSpeakerLabels names every speaker index seen during a
// speaker/channel-mode build. Configured display names run out first; the
// remainder fall back to Unknown-N.
func StandardSpeakerLabels(maxSpeakerIndex int, names []string) []SpeakerLabel {
	labels := make([]SpeakerLabel, 0, maxSpeakerIndex+1)
	for i := 0; i <= maxSpeakerIndex; i++ {
		display := fmt.Sprintf("Unknown-%d", i)
		if i < len(names) {
			display = names[i]
		}
		labels = append(labels, SpeakerLabel{
			Speaker:     fmt.Sprintf("spk_%d", i),
			DisplayText: display,
		})
	}
	return labels
}

// AnalyticsSpeakerLabels names speakers from the channel-role definition
// table produced by an analytics-mode build. Roles arrive upper-cased on the
// wire and are title-cased for display (AGENT becomes Agent).
func AnalyticsSpeakerLabels(channelMap map[string]int) []SpeakerLabel {
	labels := make([]SpeakerLabel, 0, len(channelMap))
	for role, channel := range channelMap {
		labels = append(labels, SpeakerLabel{
			Speaker:     fmt.Sprintf("spk_%d", channel),
			DisplayText: titleCase(role),
		})
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i].Speaker < labels[j].Speaker })
	return labels
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// Trends computes the per-speaker sentiment trend over the ordered segments.
// Positive and negative turns are rebased into a signed [-1, 1] range around
// their classification threshold; other turns contribute zero but still
// count toward the turn total.
func Trends(segments []*segment.Segment, speakers []SpeakerLabel, minPositive, minNegative float64) []SentimentTrend {
	trends := make([]SentimentTrend, 0, len(speakers))
	for _, speaker := range speakers {
		var turns int
		var sum, first, last float64
		for _, seg := range segments {
			if seg.Speaker != speaker.Speaker {
				continue
			}
			turns++
			var rebased float64
			if seg.IsPositive {
				rebased = (seg.SentimentScore - minPositive) / (1 - minPositive)
			} else if seg.IsNegative {
				rebased = -(seg.SentimentScore - minNegative) / (1 - minNegative)
			}
			if turns == 1 {
				first = rebased
			}
			last = rebased
			sum += rebased
		}
		divisor := turns
		if divisor < 1 {
			divisor = 1
		}
		trends = append(trends, SentimentTrend{
			Speaker:          speaker.Speaker,
			AverageSentiment: sum / float64(divisor),
			SentimentChange:  last - first,
		})
	}
	return trends
}
