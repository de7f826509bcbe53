package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/config"
	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/segment"
	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/transcript"
)

type fakeStore struct {
	job    transcript.JobInfo
	result *transcript.Result
}

func (f *fakeStore) GetJobInfo(_ context.Context, _ string) (transcript.JobInfo, error) {
	return f.job, nil
}

func (f *fakeStore) FetchResult(_ context.Context, _ transcript.JobInfo) (*transcript.Result, error) {
	return f.result, nil
}

type fixedSentiment struct {
	scores segment.SentimentScores
}

func (f *fixedSentiment) DetectSentiment(_ context.Context, _ string, _ string) (segment.SentimentScores, error) {
	return f.scores, nil
}

func num(v float64) transcript.Number { return transcript.Number(v) }

func numPtr(v float64) *transcript.Number {
	n := transcript.Number(v)
	return &n
}

func pronunciation(content string, start, end, confidence float64) transcript.Item {
	return transcript.Item{
		Type:      "pronunciation",
		StartTime: num(start),
		EndTime:   num(end),
		Alternatives: []transcript.Alternative{
			{Content: content, Confidence: numPtr(confidence)},
		},
	}
}

func punctuation(content string) transcript.Item {
	return transcript.Item{
		Type:         "punctuation",
		Alternatives: []transcript.Alternative{{Content: content}},
	}
}

func speakerResult() *transcript.StandardResult {
	res := &transcript.StandardResult{}
	res.Results.Items = []transcript.Item{
		pronunciation("Everything", 1.0, 1.5, 0.99),
		pronunciation("went", 1.6, 1.9, 0.98),
		pronunciation("great", 2.0, 2.4, 0.97),
		punctuation("."),
	}
	res.Results.SpeakerLabels.Segments = []transcript.SpeakerBlock{
		{
			SpeakerLabel: "spk_0",
			StartTime:    num(1.0),
			EndTime:      num(2.4),
			Items: []transcript.SpeakerItem{
				{StartTime: num(1.0), EndTime: num(1.5)},
				{StartTime: num(1.6), EndTime: num(1.9)},
				{StartTime: num(2.0), EndTime: num(2.4)},
			},
		},
	}
	return res
}

func testConfig() config.Config {
	return config.Config{
		MinSentimentPositive: 0.4,
		MinSentimentNegative: 0.4,
		EntityConfidence:     0.5,
		SpeakerNames:         []string{"Agent", "Caller"},
		NLPLanguages:         []string{"en", "es"},
		NLPWorkers:           1,
	}
}

func TestProcessSpeakerMode(t *testing.T) {
	store := &fakeStore{
		job: transcript.JobInfo{
			JobName:      "call-001",
			APIMode:      transcript.ModeStandard,
			Status:       "COMPLETED",
			LanguageCode: "en-US",
			MediaFormat:  "wav",
		},
		result: &transcript.Result{Mode: transcript.ModeStandard, Standard: speakerResult()},
	}
	sentiment := &fixedSentiment{scores: segment.SentimentScores{Positive: 0.9, Neutral: 0.1}}

	p := New(store, sentiment, nil, testConfig(), testLogger())
	fixed := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }
	p.filenames.now = p.now

	doc, err := p.Process(context.Background(), "call-001")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	header := doc.ConversationAnalytics
	if header.GUID != "None" || header.Agent != "None" {
		t.Errorf("identifiers = (%q, %q), want None defaults", header.GUID, header.Agent)
	}
	if header.ConversationTime != header.ProcessTime {
		t.Errorf("ConversationTime %q should default to ProcessTime %q", header.ConversationTime, header.ProcessTime)
	}
	if header.LanguageCode != "en-US" {
		t.Errorf("LanguageCode = %q", header.LanguageCode)
	}
	if header.Duration != "2.4" {
		t.Errorf("Duration = %q, want 2.4", header.Duration)
	}
	if len(header.SpeakerLabels) != 1 || header.SpeakerLabels[0].DisplayText != "Agent" {
		t.Errorf("SpeakerLabels = %+v", header.SpeakerLabels)
	}
	if len(header.SentimentTrends) != 1 {
		t.Fatalf("SentimentTrends = %+v", header.SentimentTrends)
	}

	if len(doc.SpeechSegments) != 1 {
		t.Fatalf("got %d speech segments, want 1", len(doc.SpeechSegments))
	}
	seg := doc.SpeechSegments[0]
	if seg.DisplayText != "Everything went great." {
		t.Errorf("DisplayText = %q", seg.DisplayText)
	}
	if seg.SentimentIsPositive != 1 {
		t.Errorf("SentimentIsPositive = %d, want 1", seg.SentimentIsPositive)
	}
	if seg.SentimentScore != 0.9 {
		t.Errorf("SentimentScore = %v, want 0.9", seg.SentimentScore)
	}
	if len(seg.WordConfidence) != 3 {
		t.Errorf("WordConfidence = %d entries, want 3", len(seg.WordConfidence))
	}

	info := header.SourceInformation[0].TranscribeJobInfo
	if info.TranscriptionJobName != "call-001" || info.TranscribeAPIType != "standard" {
		t.Errorf("job info = %+v", info)
	}
	wantAccuracy := (0.99 + 0.98 + 0.97) / 3
	if diff := info.AverageAccuracy - wantAccuracy; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("AverageAccuracy = %v, want %v", info.AverageAccuracy, wantAccuracy)
	}
}

func TestProcessAnalyticsMode(t *testing.T) {
	analyticsRes := &transcript.AnalyticsResult{
		Transcript: []transcript.Turn{
			{
				ParticipantRole:   "AGENT",
				BeginOffsetMillis: num(0),
				EndOffsetMillis:   num(2500),
				Content:           "How can I help you today",
				Sentiment:         "POSITIVE",
				LoudnessScores:    []float64{70.1, 68.2},
				Items: []transcript.TurnItem{
					{Type: "pronunciation", Content: "How", Confidence: numPtr(0.99), BeginOffsetMillis: num(0), EndOffsetMillis: num(400)},
				},
			},
			{
				ParticipantRole:   "CUSTOMER",
				BeginOffsetMillis: num(2600),
				EndOffsetMillis:   num(5000),
				Content:           "My card was charged twice",
				Sentiment:         "NEGATIVE",
				Items: []transcript.TurnItem{
					{Type: "pronunciation", Content: "My", Confidence: numPtr(0.97), BeginOffsetMillis: num(2600), EndOffsetMillis: num(2800)},
				},
			},
		},
	}
	store := &fakeStore{
		job: transcript.JobInfo{
			JobName:      "call-002",
			APIMode:      transcript.ModeAnalytics,
			Status:       "COMPLETED",
			LanguageCode: "en-US",
			ChannelDefinitions: []transcript.ChannelDefinition{
				{ChannelID: 0, ParticipantRole: "AGENT"},
				{ChannelID: 1, ParticipantRole: "CUSTOMER"},
			},
		},
		result: &transcript.Result{Mode: transcript.ModeAnalytics, Analytics: analyticsRes},
	}

	p := New(store, nil, nil, testConfig(), testLogger())
	doc, err := p.Process(context.Background(), "call-002")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	labels := doc.ConversationAnalytics.SpeakerLabels
	if len(labels) != 2 || labels[0].DisplayText != "Agent" || labels[1].DisplayText != "Customer" {
		t.Errorf("SpeakerLabels = %+v", labels)
	}

	if len(doc.SpeechSegments) != 2 {
		t.Fatalf("got %d speech segments, want 2", len(doc.SpeechSegments))
	}
	if doc.SpeechSegments[0].SentimentIsPositive != 1 || doc.SpeechSegments[0].SentimentScore != 1.0 {
		t.Errorf("first segment sentiment = %+v", doc.SpeechSegments[0])
	}
	if doc.SpeechSegments[1].SentimentIsNegative != 1 {
		t.Errorf("second segment sentiment = %+v", doc.SpeechSegments[1])
	}
	if doc.SpeechSegments[0].BaseSentimentScores.Positive != 1.0 {
		t.Errorf("analytics distribution = %+v", doc.SpeechSegments[0].BaseSentimentScores)
	}
	if doc.SpeechSegments[0].SegmentStartTime != 0 || doc.SpeechSegments[0].SegmentEndTime != 2.5 {
		t.Errorf("offsets = (%v, %v), want seconds", doc.SpeechSegments[0].SegmentStartTime, doc.SpeechSegments[0].SegmentEndTime)
	}
}

func TestProcessChannelModeSelection(t *testing.T) {
	res := &transcript.StandardResult{}
	res.Results.ChannelLabels.Channels = []transcript.Channel{
		{ChannelLabel: "ch_0", Items: []transcript.Item{
			pronunciation("Hello", 0.5, 1.0, 0.99),
			punctuation("."),
		}},
	}
	store := &fakeStore{
		job: transcript.JobInfo{
			JobName:      "call-003",
			APIMode:      transcript.ModeStandard,
			Status:       "COMPLETED",
			LanguageCode: "ja-JP",
			Settings:     transcript.JobSettings{ChannelIdentification: true},
		},
		result: &transcript.Result{Mode: transcript.ModeStandard, Standard: res},
	}

	p := New(store, nil, nil, testConfig(), testLogger())
	doc, err := p.Process(context.Background(), "call-003")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(doc.SpeechSegments) != 1 || doc.SpeechSegments[0].DisplayText != "Hello." {
		t.Errorf("SpeechSegments = %+v", doc.SpeechSegments)
	}
	// ja-JP resolves to no NLP model; sentiment stays unclassified.
	if doc.SpeechSegments[0].SentimentIsPositive != 0 && doc.SpeechSegments[0].SentimentIsNegative != 0 {
		t.Errorf("unexpected sentiment flags: %+v", doc.SpeechSegments[0])
	}
	info := doc.ConversationAnalytics.SourceInformation[0].TranscribeJobInfo
	if info.ChannelIdentification != 1 {
		t.Errorf("ChannelIdentification = %d, want 1", info.ChannelIdentification)
	}
}
