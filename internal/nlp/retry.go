package nlp

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/segment"
)

const (
	// One retry after a fixed delay absorbs short throttling bursts; it is
	// not a substitute for service limit increases.
	throttleRetries = 1
	throttleDelay   = 3 * time.Second
)

func retryPolicy(ctx context.Context, delay time.Duration) backoff.BackOff {
	if delay <= 0 {
		delay = throttleDelay
	}
	return backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), throttleRetries), ctx)
}

func retry[T any](ctx context.Context, delay time.Duration, fn func() (T, error)) (T, error) {
	var out T
	op := func() error {
		v, err := fn()
		if err != nil {
			if IsThrottled(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		out = v
		return nil
	}
	err := backoff.Retry(op, retryPolicy(ctx, delay))
	return out, err
}

// RetrySentiment decorates a SentimentDetector with the bounded throttle
// retry. A second consecutive throttle propagates as a fatal error.
type RetrySentiment struct {
	Inner SentimentDetector
	Delay time.Duration // zero means the default 3s
}

func (r RetrySentiment) DetectSentiment(ctx context.Context, text, languageCode string) (segment.SentimentScores, error) {
	return retry(ctx, r.Delay, func() (segment.SentimentScores, error) {
		return r.Inner.DetectSentiment(ctx, text, languageCode)
	})
}

// RetryEntities decorates an EntityDetector the same way.
type RetryEntities struct {
	Inner EntityDetector
	Delay time.Duration
}

func (r RetryEntities) DetectEntities(ctx context.Context, text, languageCode string) ([]segment.Entity, error) {
	return retry(ctx, r.Delay, func() ([]segment.Entity, error) {
		return r.Inner.DetectEntities(ctx, text, languageCode)
	})
}

func (r RetryEntities) DetectCustomEntities(ctx context.Context, text, endpoint string) ([]segment.Entity, error) {
	return retry(ctx, r.Delay, func() ([]segment.Entity, error) {
		return r.Inner.DetectCustomEntities(ctx, text, endpoint)
	})
}
