package analytics

import (
	"strconv"

	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/enrich"
	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/segment"
	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/transcript"
)

// Document is the enriched conversation output. Field names and value kinds
// follow the established wire format: boolean-ish fields are serialized as
// 0/1 integers and Duration as a string, so documents stay interchangeable
// with those produced by earlier versions of the pipeline.
type Document struct {
	ConversationAnalytics ConversationAnalytics `json:"ConversationAnalytics"`
	SpeechSegments        []SpeechSegment       `json:"SpeechSegments"`
}

// ConversationAnalytics is the conversation-level header.
type ConversationAnalytics struct {
	GUID                 string              `json:"GUID"`
	Agent                string              `json:"Agent"`
	ConversationTime     string              `json:"ConversationTime"`
	ConversationLocation string              `json:"ConversationLocation"`
	ProcessTime          string              `json:"ProcessTime"`
	LanguageCode         string              `json:"LanguageCode"`
	Duration             string              `json:"Duration"`
	SpeakerLabels        []SpeakerLabel      `json:"SpeakerLabels"`
	SentimentTrends      []SentimentTrend    `json:"SentimentTrends"`
	CustomEntities       []EntitySummary     `json:"CustomEntities"`
	EntityRecognizerName string              `json:"EntityRecognizerName,omitempty"`
	SourceInformation    []SourceInformation `json:"SourceInformation"`
}

// SpeakerLabel pairs a stable speaker identifier with its display name.
type SpeakerLabel struct {
	Speaker     string `json:"Speaker"`
	DisplayText string `json:"DisplayText"`
}

// SentimentTrend is the per-speaker rebased sentiment summary.
type SentimentTrend struct {
	Speaker          string  `json:"Speaker"`
	AverageSentiment float64 `json:"AverageSentiment"`
	SentimentChange  float64 `json:"SentimentChange"`
}

// EntitySummary is one entity type with its distinct values across the
// conversation.
type EntitySummary struct {
	Name   string   `json:"Name"`
	Count  int      `json:"Count"`
	Values []string `json:"Values"`
}

// SourceInformation wraps the job metadata block.
type SourceInformation struct {
	TranscribeJobInfo TranscribeJobInfo `json:"TranscribeJobInfo"`
}

// TranscribeJobInfo records how the source ASR job was run.
type TranscribeJobInfo struct {
	TranscribeAPIType     string  `json:"TranscribeApiType"`
	CompletionTime        string  `json:"CompletionTime"`
	MediaFormat           string  `json:"MediaFormat"`
	MediaSampleRateHertz  int     `json:"MediaSampleRateHertz"`
	MediaOriginalURI      string  `json:"MediaOriginalUri"`
	MediaFileURI          string  `json:"MediaFileUri"`
	TranscriptionJobName  string  `json:"TranscriptionJobName"`
	RedactedTranscript    bool    `json:"RedactedTranscript"`
	ChannelIdentification int     `json:"ChannelIdentification"`
	AverageAccuracy       float64 `json:"AverageAccuracy"`
	VocabularyName        string  `json:"VocabularyName,omitempty"`
	VocabularyFilter      string  `json:"VocabularyFilter,omitempty"`
}

// SpeechSegment is one enriched turn on the wire.
type SpeechSegment struct {
	SegmentStartTime    float64             `json:"SegmentStartTime"`
	SegmentEndTime      float64             `json:"SegmentEndTime"`
	SegmentSpeaker      string              `json:"SegmentSpeaker"`
	SegmentInterruption bool                `json:"SegmentInterruption"`
	OriginalText        string              `json:"OriginalText"`
	DisplayText         string              `json:"DisplayText"`
	TextEdited          int                 `json:"TextEdited"`
	LoudnessScores      []float64           `json:"LoudnessScores,omitempty"`
	SentimentIsPositive int                 `json:"SentimentIsPositive"`
	SentimentIsNegative int                 `json:"SentimentIsNegative"`
	SentimentScore      float64             `json:"SentimentScore"`
	BaseSentimentScores BaseSentimentScores `json:"BaseSentimentScores"`
	EntitiesDetected    []EntityOccurrence  `json:"EntitiesDetected"`
	IssuesDetected      []IssueOffsets      `json:"IssuesDetected,omitempty"`
	WordConfidence      []WordConfidence    `json:"WordConfidence"`
}

// BaseSentimentScores is the full four-way distribution for a segment.
type BaseSentimentScores struct {
	Positive float64 `json:"Positive"`
	Negative float64 `json:"Negative"`
	Neutral  float64 `json:"Neutral"`
	Mixed    float64 `json:"Mixed"`
}

// EntityOccurrence is one detected entity occurrence with its offsets.
type EntityOccurrence struct {
	Type        string  `json:"Type"`
	Text        string  `json:"Text"`
	BeginOffset int     `json:"BeginOffset"`
	EndOffset   int     `json:"EndOffset"`
	Score       float64 `json:"Score"`
}

// IssueOffsets is a detected-issue character range within the segment text.
type IssueOffsets struct {
	Begin int `json:"BeginOffset"`
	End   int `json:"EndOffset"`
}

// WordConfidence is one aligned word with its timing and confidence.
type WordConfidence struct {
	Text       string  `json:"Text"`
	Confidence float64 `json:"Confidence"`
	StartTime  float64 `json:"StartTime"`
	EndTime    float64 `json:"EndTime"`
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// FromSegments converts built segments into their wire representation.
func FromSegments(segments []*segment.Segment) []SpeechSegment {
	out := make([]SpeechSegment, 0, len(segments))
	for _, seg := range segments {
		s := SpeechSegment{
			SegmentStartTime:    seg.StartTime,
			SegmentEndTime:      seg.EndTime,
			SegmentSpeaker:      seg.Speaker,
			SegmentInterruption: seg.Interruption,
			OriginalText:        seg.Text,
			DisplayText:         seg.Text,
			SentimentIsPositive: boolToInt(seg.IsPositive),
			SentimentIsNegative: boolToInt(seg.IsNegative),
			SentimentScore:      seg.SentimentScore,
			LoudnessScores:      seg.LoudnessScores,
			EntitiesDetected:    []EntityOccurrence{},
			WordConfidence:      []WordConfidence{},
		}
		if seg.Sentiments != nil {
			s.BaseSentimentScores = BaseSentimentScores{
				Positive: seg.Sentiments.Positive,
				Negative: seg.Sentiments.Negative,
				Neutral:  seg.Sentiments.Neutral,
				Mixed:    seg.Sentiments.Mixed,
			}
		}
		for _, entity := range seg.Entities {
			s.EntitiesDetected = append(s.EntitiesDetected, EntityOccurrence{
				Type:        entity.Type,
				Text:        entity.Text,
				BeginOffset: entity.BeginOffset,
				EndOffset:   entity.EndOffset,
				Score:       entity.Score,
			})
		}
		for _, issue := range seg.IssuesDetected {
			s.IssuesDetected = append(s.IssuesDetected, IssueOffsets{
				Begin: issue.Begin,
				End:   issue.End,
			})
		}
		for _, word := range seg.Words {
			s.WordConfidence = append(s.WordConfidence, WordConfidence{
				Text:       word.Text,
				Confidence: word.Confidence,
				StartTime:  word.StartTime,
				EndTime:    word.EndTime,
			})
		}
		out = append(out, s)
	}
	return out
}

// EntitySummaries converts the header roll-up into the wire summary list.
func EntitySummaries(header *enrich.HeaderEntities) []EntitySummary {
	groups := header.Groups()
	out := make([]EntitySummary, 0, len(groups))
	for _, group := range groups {
		out = append(out, EntitySummary{
			Name:   group.Name,
			Count:  len(group.Values),
			Values: group.Values,
		})
	}
	return out
}

// Duration returns the conversation length: the end time of the final word
// in the last segment, as the wire format's string.
func Duration(segments []*segment.Segment) string {
	var end float64
	if len(segments) > 0 {
		last := segments[len(segments)-1]
		if len(last.Words) > 0 {
			end = last.Words[len(last.Words)-1].EndTime
		} else {
			end = last.EndTime
		}
	}
	return strconv.FormatFloat(end, 'f', -1, 64)
}

// JobInfoBlock assembles the SourceInformation entry from job metadata and
// the run's average word accuracy.
func JobInfoBlock(job transcript.JobInfo, averageAccuracy float64) SourceInformation {
	info := TranscribeJobInfo{
		TranscribeAPIType:     string(job.APIMode),
		CompletionTime:        job.CompletionTime,
		MediaFormat:           job.MediaFormat,
		MediaSampleRateHertz:  job.MediaSampleRateHz,
		MediaOriginalURI:      job.MediaFileURI,
		MediaFileURI:          job.MediaPlaybackURI,
		TranscriptionJobName:  job.JobName,
		RedactedTranscript:    job.ContentRedacted,
		ChannelIdentification: boolToInt(job.Settings.ChannelIdentification),
		AverageAccuracy:       averageAccuracy,
		VocabularyName:        job.Settings.VocabularyName,
	}
	if info.MediaFileURI == "" {
		info.MediaFileURI = job.MediaFileURI
	}
	if job.Settings.VocabularyFilterName != "" {
		info.VocabularyFilter = job.Settings.VocabularyFilterName + " [" + job.Settings.VocabularyFilterMethod + "]"
	}
	return SourceInformation{TranscribeJobInfo: info}
}
