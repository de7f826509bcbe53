package transcript

import (
	"fmt"
	"strconv"
	"strings"
)

// APIMode identifies which ASR API produced a job's result document.
type APIMode string

const (
	ModeStandard  APIMode = "standard"
	ModeAnalytics APIMode = "analytics"
)

// Number decodes JSON values that the ASR service emits inconsistently as
// either a bare number or a quoted numeric string.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse number %q: %w", s, err)
	}
	*n = Number(f)
	return nil
}

// JobInfo is the metadata block returned by the job-status collaborator.
type JobInfo struct {
	JobName             string  `json:"JobName"`
	APIMode             APIMode `json:"ApiMode"`
	Status              string  `json:"Status"`
	LanguageCode        string  `json:"LanguageCode"`
	CompletionTime      string  `json:"CompletionTime"`
	MediaFormat         string  `json:"MediaFormat"`
	MediaSampleRateHz   int     `json:"MediaSampleRateHertz"`
	MediaFileURI        string  `json:"MediaFileUri"`
	MediaPlaybackURI    string  `json:"MediaPlaybackUri,omitempty"`
	TranscriptURI       string  `json:"TranscriptFileUri"`
	ContentRedacted     bool    `json:"ContentRedacted"`
	Settings            JobSettings
	ChannelDefinitions  []ChannelDefinition `json:"ChannelDefinitions,omitempty"`
}

// JobSettings carries the optional per-job ASR settings.
type JobSettings struct {
	ChannelIdentification  bool   `json:"ChannelIdentification"`
	VocabularyName         string `json:"VocabularyName,omitempty"`
	VocabularyFilterName   string `json:"VocabularyFilterName,omitempty"`
	VocabularyFilterMethod string `json:"VocabularyFilterMethod,omitempty"`
}

// ChannelDefinition maps an analytics participant role to its audio channel.
type ChannelDefinition struct {
	ChannelID       int    `json:"ChannelId"`
	ParticipantRole string `json:"ParticipantRole"`
}

// Alternative is one candidate recognition for a word, with an optional
// nested redaction block that carries the confidence when the word itself
// was redacted.
type Alternative struct {
	Content    string      `json:"content"`
	Confidence *Number     `json:"confidence"`
	Redactions []Redaction `json:"redactions,omitempty"`
}

// Redaction holds the confidence of a redacted word.
type Redaction struct {
	Confidence Number `json:"confidence"`
}

// Item is one word or punctuation mark in a standard-mode result.
type Item struct {
	Type         string        `json:"type"` // "pronunciation" or "punctuation"
	StartTime    Number        `json:"start_time"`
	EndTime      Number        `json:"end_time"`
	Alternatives []Alternative `json:"alternatives"`
}

// SpeakerBlock is one speaker-attributed time block in a diarized result.
type SpeakerBlock struct {
	SpeakerLabel string        `json:"speaker_label"`
	StartTime    Number        `json:"start_time"`
	EndTime      Number        `json:"end_time"`
	Items        []SpeakerItem `json:"items"`
}

// SpeakerItem references a word in a speaker block by its time span.
type SpeakerItem struct {
	StartTime Number `json:"start_time"`
	EndTime   Number `json:"end_time"`
}

// Channel is one side of a channel-separated result; every item in a
// channel belongs to the same speaker.
type Channel struct {
	ChannelLabel string `json:"channel_label"`
	Items        []Item `json:"items"`
}

// StandardResult is the result document for speaker- and channel-mode jobs.
type StandardResult struct {
	Results struct {
		LanguageCode  string `json:"language_code"`
		Items         []Item `json:"items"`
		SpeakerLabels struct {
			Segments []SpeakerBlock `json:"segments"`
		} `json:"speaker_labels"`
		ChannelLabels struct {
			Channels []Channel `json:"channels"`
		} `json:"channel_labels"`
	} `json:"results"`
}

// TurnItem is one word or punctuation mark inside an analytics turn.
// Offsets are in milliseconds.
type TurnItem struct {
	Type              string      `json:"Type"`
	Content           string      `json:"Content"`
	Confidence        *Number     `json:"Confidence"`
	BeginOffsetMillis Number      `json:"BeginOffsetMillis"`
	EndOffsetMillis   Number      `json:"EndOffsetMillis"`
	Redaction         []Redaction `json:"Redaction,omitempty"`
}

// CharacterOffsets is a begin/end character range within a turn's content.
type CharacterOffsets struct {
	Begin int `json:"Begin"`
	End   int `json:"End"`
}

// Issue is a detected issue annotation on an analytics turn.
type Issue struct {
	CharacterOffsets CharacterOffsets `json:"CharacterOffsets"`
}

// Turn is one pre-segmented conversational turn from an analytics-mode job.
type Turn struct {
	ParticipantRole   string     `json:"ParticipantRole"`
	BeginOffsetMillis Number     `json:"BeginOffsetMillis"`
	EndOffsetMillis   Number     `json:"EndOffsetMillis"`
	Content           string     `json:"Content"`
	Sentiment         string     `json:"Sentiment"`
	LoudnessScores    []float64  `json:"LoudnessScores"`
	Items             []TurnItem `json:"Items"`
	IssuesDetected    []Issue    `json:"IssuesDetected,omitempty"`
}

// Interruption is one entry in the interruption table, keyed by the
// interrupting participant's role.
type Interruption struct {
	BeginOffsetMillis Number `json:"BeginOffsetMillis"`
	EndOffsetMillis   Number `json:"EndOffsetMillis"`
	DurationMillis    Number `json:"DurationMillis"`
}

// AnalyticsResult is the result document for analytics-mode jobs.
type AnalyticsResult struct {
	Transcript                  []Turn `json:"Transcript"`
	ConversationCharacteristics struct {
		Interruptions struct {
			ByInterrupter map[string][]Interruption `json:"InterruptionsByInterrupter"`
		} `json:"Interruptions"`
	} `json:"ConversationCharacteristics"`
}

// Result wraps whichever of the two document shapes a job produced.
type Result struct {
	Mode      APIMode
	Standard  *StandardResult
	Analytics *AnalyticsResult
}
