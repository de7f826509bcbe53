package nlp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/segment"
)

type scriptedSentiment struct {
	errs  []error
	calls int
}

func (s *scriptedSentiment) DetectSentiment(context.Context, string, string) (segment.SentimentScores, error) {
	var err error
	if s.calls < len(s.errs) {
		err = s.errs[s.calls]
	}
	s.calls++
	if err != nil {
		return segment.SentimentScores{}, err
	}
	return segment.SentimentScores{Positive: 0.9, Neutral: 0.1}, nil
}

func TestRetrySentimentRecoversFromOneThrottle(t *testing.T) {
	inner := &scriptedSentiment{errs: []error{fmt.Errorf("slow down: %w", ErrThrottled)}}
	det := RetrySentiment{Inner: inner, Delay: time.Millisecond}

	scores, err := det.DetectSentiment(context.Background(), "hello there friend", "en")
	if err != nil {
		t.Fatalf("expected recovery after one throttle, got %v", err)
	}
	if scores.Positive != 0.9 {
		t.Errorf("unexpected scores: %+v", scores)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 calls, got %d", inner.calls)
	}
}

func TestRetrySentimentSecondThrottleIsFatal(t *testing.T) {
	throttle := fmt.Errorf("slow down: %w", ErrThrottled)
	inner := &scriptedSentiment{errs: []error{throttle, throttle}}
	det := RetrySentiment{Inner: inner, Delay: time.Millisecond}

	if _, err := det.DetectSentiment(context.Background(), "hello", "en"); !IsThrottled(err) {
		t.Fatalf("expected throttle error after exhausted retries, got %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("expected exactly 2 calls, got %d", inner.calls)
	}
}

func TestRetrySentimentDoesNotRetryPermanentErrors(t *testing.T) {
	boom := errors.New("bad request")
	inner := &scriptedSentiment{errs: []error{boom, boom}}
	det := RetrySentiment{Inner: inner, Delay: time.Millisecond}

	if _, err := det.DetectSentiment(context.Background(), "hello", "en"); !errors.Is(err, boom) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("permanent errors must not be retried, got %d calls", inner.calls)
	}
}

type scriptedEntities struct {
	errs  []error
	calls int
}

func (s *scriptedEntities) DetectEntities(context.Context, string, string) ([]segment.Entity, error) {
	var err error
	if s.calls < len(s.errs) {
		err = s.errs[s.calls]
	}
	s.calls++
	if err != nil {
		return nil, err
	}
	return []segment.Entity{{Type: "LOCATION", Text: "Boston", Score: 0.9}}, nil
}

func (s *scriptedEntities) DetectCustomEntities(ctx context.Context, text, endpoint string) ([]segment.Entity, error) {
	return s.DetectEntities(ctx, text, "")
}

func TestRetryEntitiesRecoversFromOneThrottle(t *testing.T) {
	inner := &scriptedEntities{errs: []error{fmt.Errorf("slow down: %w", ErrThrottled)}}
	det := RetryEntities{Inner: inner, Delay: time.Millisecond}

	entities, err := det.DetectEntities(context.Background(), "I live in Boston", "en")
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if len(entities) != 1 || entities[0].Text != "Boston" {
		t.Errorf("unexpected entities: %+v", entities)
	}
}
