package enrich

import (
	"context"
	"strings"
	"sync"

	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/nlp"
	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/segment"
	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/transcript"
)

// MinSentimentLength is the shortest segment text worth classifying;
// anything shorter keeps its neutral/unset sentiment.
const MinSentimentLength = 8

// PII placeholders are masked to a same-width marker before entity
// detection so the placeholder syntax cannot leak into entity matching.
const piiPlaceholder = "[PII]"

var piiMask = strings.Repeat("*", len(piiPlaceholder))

var (
	neutralScores  = segment.SentimentScores{Neutral: 1.0}
	positiveScores = segment.SentimentScores{Positive: 1.0}
	negativeScores = segment.SentimentScores{Negative: 1.0}
)

// ResolveLanguage maps the conversation language (e.g. en-US) to the
// best-match base language the NLP service has models for. Empty means no
// usable model and disables detection.
func ResolveLanguage(conversationLang string, supported []string) string {
	for _, code := range supported {
		if strings.HasPrefix(conversationLang, code) {
			return code
		}
	}
	return ""
}

// HeaderEntities is the conversation-level entity roll-up: per entity type,
// the distinct surface texts seen anywhere in the conversation, in first-seen
// order.
type HeaderEntities struct {
	order  []string
	values map[string][]string
}

// NewHeaderEntities returns an empty roll-up.
func NewHeaderEntities() *HeaderEntities {
	return &HeaderEntities{values: make(map[string][]string)}
}

// Add records one (type, text) pair, ignoring duplicates.
func (h *HeaderEntities) Add(entityType, text string) {
	existing, ok := h.values[entityType]
	if !ok {
		h.order = append(h.order, entityType)
	}
	for _, v := range existing {
		if v == text {
			return
		}
	}
	h.values[entityType] = append(existing, text)
}

// Group is one entity type with its distinct values.
type Group struct {
	Name   string
	Values []string
}

// Groups lists the roll-up in first-seen type order.
func (h *HeaderEntities) Groups() []Group {
	groups := make([]Group, 0, len(h.order))
	for _, name := range h.order {
		groups = append(groups, Group{Name: name, Values: h.values[name]})
	}
	return groups
}

// Enricher injects sentiment and entities into built segments.
type Enricher struct {
	Sentiment nlp.SentimentDetector
	Entities  nlp.EntityDetector

	MinPositive      float64
	MinNegative      float64
	EntityConfidence float64
	EntityTypes      []string
	CustomEndpoint   string

	// Resolved NLP language code; empty disables detection entirely.
	Language string

	// Workers bounds the concurrent detection calls; 1 keeps them
	// strictly sequential.
	Workers int
}

type detection struct {
	scores   segment.SentimentScores
	hasScore bool
	standard []segment.Entity
	custom   []segment.Entity
	err      error
}

// Enrich classifies sentiment and attaches entities for every eligible
// segment. Detection calls may fan out across the worker pool, but results
// are applied strictly in segment order: the header roll-up and the trend
// calculation both depend on turn order.
func (e *Enricher) Enrich(ctx context.Context, mode transcript.APIMode, segments []*segment.Segment, header *HeaderEntities) error {
	results := e.detectAll(ctx, mode, segments)

	for i, seg := range segments {
		if len(seg.Text) < MinSentimentLength {
			continue
		}

		if mode == transcript.ModeAnalytics {
			// Turns arrive pre-classified; pin a matching distribution.
			switch {
			case seg.IsPositive:
				scores := positiveScores
				seg.Sentiments = &scores
			case seg.IsNegative:
				scores := negativeScores
				seg.Sentiments = &scores
			default:
				scores := neutralScores
				seg.Sentiments = &scores
			}
		} else if e.Language == "" {
			scores := neutralScores
			seg.Sentiments = &scores
		} else {
			res := results[i]
			if res.err != nil {
				return res.err
			}
			if res.hasScore {
				e.classify(seg, res.scores)
			} else {
				scores := neutralScores
				seg.Sentiments = &scores
			}
		}

		if e.Language != "" {
			res := results[i]
			if res.err != nil {
				return res.err
			}
			for _, entity := range res.standard {
				e.applyEntity(seg, header, entity, e.EntityTypes)
			}
			for _, entity := range res.custom {
				e.applyEntity(seg, header, entity, nil)
			}
		}
	}

	return nil
}

// classify applies the score thresholds. Negative is checked first: a turn
// that clears both thresholds counts as negative.
func (e *Enricher) classify(seg *segment.Segment, scores segment.SentimentScores) {
	if scores.Negative >= e.MinNegative {
		seg.IsNegative = true
		seg.SentimentScore = scores.Negative
	} else if scores.Positive >= e.MinPositive {
		seg.IsPositive = true
		seg.SentimentScore = scores.Positive
	}
	stored := scores
	seg.Sentiments = &stored
}

// applyEntity keeps every occurrence on the segment but adds each distinct
// (type, text) pair to the header only once.
func (e *Enricher) applyEntity(seg *segment.Segment, header *HeaderEntities, entity segment.Entity, typeFilter []string) {
	if entity.Score < e.EntityConfidence {
		return
	}
	if len(typeFilter) > 0 {
		matched := false
		for _, t := range typeFilter {
			if t == entity.Type {
				matched = true
				break
			}
		}
		if !matched {
			return
		}
	}

	header.Add(entity.Type, entity.Text)
	seg.Entities = append(seg.Entities, entity)
}

func (e *Enricher) detectAll(ctx context.Context, mode transcript.APIMode, segments []*segment.Segment) []detection {
	results := make([]detection, len(segments))
	if e.Language == "" {
		return results
	}

	workers := e.Workers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i := range segments {
		if len(segments[i].Text) < MinSentimentLength {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = e.detectOne(ctx, mode, segments[i].Text)
		}(i)
	}
	wg.Wait()

	return results
}

func (e *Enricher) detectOne(ctx context.Context, mode transcript.APIMode, text string) detection {
	var res detection

	if mode != transcript.ModeAnalytics && e.Sentiment != nil {
		scores, err := e.Sentiment.DetectSentiment(ctx, text, e.Language)
		if err != nil {
			res.err = err
			return res
		}
		res.scores = scores
		res.hasScore = true
	}

	if e.Entities == nil {
		return res
	}

	masked := strings.ReplaceAll(text, piiPlaceholder, piiMask)

	standard, err := e.Entities.DetectEntities(ctx, masked, e.Language)
	if err != nil {
		res.err = err
		return res
	}
	res.standard = standard

	// Custom entity models are English-only.
	if e.CustomEndpoint != "" && e.Language == "en" {
		custom, err := e.Entities.DetectCustomEntities(ctx, masked, e.CustomEndpoint)
		if err != nil {
			res.err = err
			return res
		}
		res.custom = custom
	}

	return res
}
