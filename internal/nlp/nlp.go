package nlp

import (
	"context"
	"errors"

	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/segment"
)

// ErrThrottled marks a transient rejection from a detection service.
// Wrapped errors are matched with errors.Is.
var ErrThrottled = errors.New("nlp request throttled")

// SentimentDetector scores a piece of text in the given language.
type SentimentDetector interface {
	DetectSentiment(ctx context.Context, text, languageCode string) (segment.SentimentScores, error)
}

// EntityDetector finds entities in text, either with a stock language model
// or with a custom domain-specific model addressed by endpoint name.
type EntityDetector interface {
	DetectEntities(ctx context.Context, text, languageCode string) ([]segment.Entity, error)
	DetectCustomEntities(ctx context.Context, text, endpoint string) ([]segment.Entity, error)
}

// IsThrottled reports whether err is a throttling rejection.
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}
