package indexer

import (
	"context"
	"time"
)

// RetryPolicy is an explicit bounded-retry schedule: max attempts and an
// exponentially increasing backoff. It is injected into the Indexer rather
// than baked into the write path, so the schedule is testable on its own
// and independent of any particular sleep mechanism.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Multiplier     float64
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy retries three times, backing off 100ms, 200ms, 400ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		Multiplier:     2.0,
		MaxBackoff:     5 * time.Second,
	}
}

// Backoff returns the delay before retry number attempt (1-based: the delay
// after the first failure is Backoff(1)).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.InitialBackoff
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * p.Multiplier)
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// Do runs fn up to MaxAttempts times, sleeping the backoff schedule between
// attempts. Context cancellation cuts the wait short and returns the
// context error. The last attempt's error is returned after exhaustion.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Backoff(attempt)):
		}
	}
	return err
}
