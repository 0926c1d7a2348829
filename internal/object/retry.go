package object

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy 范围读取的重试策略：指数退避，无抖动
type RetryPolicy struct {
	InitialInterval time.Duration
	Multiplier      float64
	MaxAttempts     int
}

// DefaultRetryPolicy waits 2s, 4s, 8s, ... and gives up after 10 attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 2 * time.Second,
		Multiplier:      2,
		MaxAttempts:     10,
	}
}

// newBackOff returns a fresh schedule, so every successful call starts over
// from InitialInterval.
func (p RetryPolicy) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxInterval = time.Hour
	b.MaxElapsedTime = 0
	b.Reset()

	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}
