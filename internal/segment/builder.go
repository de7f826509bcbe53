package segment

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/transcript"
)

const (
	// A same-speaker pause of this length or more always starts a new turn.
	speakerGapSeconds = 3.0
	// Within one channel there is no speaker-change signal, so a much
	// tighter gap splits raw segments; the merge pass reconstitutes turns.
	channelGapSeconds = 0.1
)

// Builder turns ASR result documents into ordered speech segments. It owns
// all per-conversation running state: the word/accuracy counters behind the
// overall accuracy metric and the raw-label to spk_N speaker map.
type Builder struct {
	wordsParsed        int
	cumulativeAccuracy float64
	maxSpeakerIndex    int
	channelMap         map[string]int
}

// NewBuilder returns a builder with fresh per-conversation state.
func NewBuilder() *Builder {
	return &Builder{channelMap: make(map[string]int)}
}

// SpeakerLabel normalizes a raw ASR speaker or channel identifier (spk_N or
// ch_N) into the stable output label spk_N, tracking the highest index seen.
func (b *Builder) SpeakerLabel(raw string) (string, error) {
	sep := strings.LastIndex(raw, "_")
	if sep == -1 {
		return "", fmt.Errorf("malformed speaker label %q", raw)
	}
	index, err := strconv.Atoi(raw[sep+1:])
	if err != nil {
		return "", fmt.Errorf("malformed speaker label %q: %w", raw, err)
	}
	if index > b.maxSpeakerIndex {
		b.maxSpeakerIndex = index
	}
	return "spk_" + strconv.Itoa(index), nil
}

// AnalyticsLabel maps an analytics participant role to its stable speaker
// label via the channel definition table.
func (b *Builder) AnalyticsLabel(role string) (string, error) {
	index, ok := b.channelMap[role]
	if !ok {
		return "", fmt.Errorf("participant role %q not in channel definitions", role)
	}
	if index > b.maxSpeakerIndex {
		b.maxSpeakerIndex = index
	}
	return "spk_" + strconv.Itoa(index), nil
}

// MaxSpeakerIndex is the highest speaker index assigned so far.
func (b *Builder) MaxSpeakerIndex() int { return b.maxSpeakerIndex }

// ChannelMap is the analytics participant-role to channel-index table,
// populated by BuildAnalytics.
func (b *Builder) ChannelMap() map[string]int { return b.channelMap }

// WordsParsed is the total number of word tokens consumed.
func (b *Builder) WordsParsed() int { return b.wordsParsed }

// AverageAccuracy is the mean word confidence across the conversation.
func (b *Builder) AverageAccuracy() float64 {
	n := b.wordsParsed
	if n < 1 {
		n = 1
	}
	return b.cumulativeAccuracy / float64(n)
}

func (b *Builder) recordWord(seg *Segment, w Word) {
	seg.appendWord(w)
	b.wordsParsed++
	b.cumulativeAccuracy += w.Confidence
}

// BuildSpeaker consumes a speaker-diarized result. Blocks are already in
// conversation order; a speaker change or a pause of three seconds or more
// starts a new segment, so no merge pass is needed afterwards.
func (b *Builder) BuildSpeaker(res *transcript.StandardResult) ([]*Segment, error) {
	var segments []*Segment
	var current *Segment
	lastSpeaker := ""
	lastEnd := 0.0

	for _, block := range res.Results.SpeakerLabels.Segments {
		if len(block.Items) == 0 {
			continue
		}

		start := float64(block.StartTime)
		speaker, err := b.SpeakerLabel(block.SpeakerLabel)
		if err != nil {
			return nil, err
		}

		if current == nil || speaker != lastSpeaker || start-lastEnd >= speakerGapSeconds {
			current = New()
			current.StartTime = start
			current.Speaker = speaker
			segments = append(segments, current)
		}
		current.EndTime = float64(block.EndTime)
		lastSpeaker = speaker
		lastEnd = float64(block.EndTime)

		for _, item := range block.Items {
			text, confidence, err := alignWord(res.Results.Items, item.StartTime, item.EndTime)
			if err != nil {
				return nil, fmt.Errorf("speaker block at %.3fs: %w", start, err)
			}
			if len(current.Words) > 0 {
				text = " " + text
			}
			b.recordWord(current, Word{
				Text:       text,
				Confidence: confidence,
				StartTime:  float64(item.StartTime),
				EndTime:    float64(item.EndTime),
			})
		}
	}

	return segments, nil
}

// BuildChannel consumes a channel-separated result. Each channel belongs to
// one speaker; tiny pauses split raw segments per channel, then the combined
// list is sorted by start time and merged back into conversational turns so
// overlapping speech stays interleaved across channels.
func (b *Builder) BuildChannel(res *transcript.StandardResult) ([]*Segment, error) {
	segments, err := b.buildChannelRaw(res)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].StartTime < segments[j].StartTime
	})

	return Merge(segments), nil
}

func (b *Builder) buildChannelRaw(res *transcript.StandardResult) ([]*Segment, error) {
	var segments []*Segment
	var current *Segment
	lastSpeaker := ""
	lastEnd := 0.0

	for _, channel := range res.Results.ChannelLabels.Channels {
		if len(channel.Items) == 0 {
			continue
		}

		speaker, err := b.SpeakerLabel(channel.ChannelLabel)
		if err != nil {
			return nil, err
		}

		for _, item := range channel.Items {
			if item.Type != "pronunciation" {
				continue
			}
			start := float64(item.StartTime)

			if current == nil || speaker != lastSpeaker || start-lastEnd > channelGapSeconds {
				current = New()
				current.StartTime = start
				current.Speaker = speaker
				segments = append(segments, current)
			}
			current.EndTime = float64(item.EndTime)
			lastSpeaker = speaker
			lastEnd = float64(item.EndTime)

			text, confidence, err := alignWord(channel.Items, item.StartTime, item.EndTime)
			if err != nil {
				return nil, fmt.Errorf("channel %s: %w", channel.ChannelLabel, err)
			}
			if len(current.Words) > 0 {
				text = " " + text
			}
			b.recordWord(current, Word{
				Text:       text,
				Confidence: confidence,
				StartTime:  start,
				EndTime:    float64(item.EndTime),
			})
		}
	}

	return segments, nil
}

// BuildAnalytics consumes pre-segmented turns from an analytics-mode result.
// Turn boundaries, sentiment labels and loudness come straight from the
// document; offsets are converted from milliseconds to seconds.
func (b *Builder) BuildAnalytics(res *transcript.AnalyticsResult, defs []transcript.ChannelDefinition) ([]*Segment, error) {
	for _, def := range defs {
		b.channelMap[def.ParticipantRole] = def.ChannelID
	}

	interrupts := res.ConversationCharacteristics.Interruptions.ByInterrupter

	var segments []*Segment
	for i, turn := range res.Transcript {
		speaker, err := b.AnalyticsLabel(turn.ParticipantRole)
		if err != nil {
			return nil, fmt.Errorf("turn %d: %w", i, err)
		}

		seg := New()
		seg.StartTime = float64(turn.BeginOffsetMillis) / 1000.0
		seg.EndTime = float64(turn.EndOffsetMillis) / 1000.0
		seg.Speaker = speaker
		seg.Text = turn.Content
		seg.LoudnessScores = turn.LoudnessScores

		for _, entry := range interrupts[turn.ParticipantRole] {
			if entry.BeginOffsetMillis == turn.BeginOffsetMillis {
				seg.Interruption = true
			}
		}
		for _, issue := range turn.IssuesDetected {
			seg.IssuesDetected = append(seg.IssuesDetected, IssueRange{
				Begin: issue.CharacterOffsets.Begin,
				End:   issue.CharacterOffsets.End,
			})
		}

		for _, item := range turn.Items {
			if item.Type != "pronunciation" {
				// Punctuation attaches to the preceding word.
				if n := len(seg.Words); n > 0 {
					seg.Words[n-1].Text += item.Content
				}
				continue
			}

			var confidence float64
			switch {
			case item.Confidence != nil:
				confidence = float64(*item.Confidence)
			case len(item.Redaction) > 0:
				confidence = float64(item.Redaction[0].Confidence)
			default:
				return nil, fmt.Errorf("turn %d: word %q has neither confidence nor redaction", i, item.Content)
			}

			text := item.Content
			if len(seg.Words) > 0 {
				text = " " + text
			}
			seg.Words = append(seg.Words, Word{
				Text:       text,
				Confidence: confidence,
				StartTime:  float64(item.BeginOffsetMillis) / 1000.0,
				EndTime:    float64(item.EndOffsetMillis) / 1000.0,
			})
			b.wordsParsed++
			b.cumulativeAccuracy += confidence
		}

		// Analytics sentiment is categorical; flags map directly and the
		// score is pinned to 1.0. The detection service is never called.
		switch turn.Sentiment {
		case "POSITIVE":
			seg.IsPositive = true
			seg.SentimentScore = 1.0
		case "NEGATIVE":
			seg.IsNegative = true
			seg.SentimentScore = 1.0
		}

		segments = append(segments, seg)
	}

	return segments, nil
}
