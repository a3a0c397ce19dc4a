package retry

import (
	"context"
	"fmt"
	"time"
)

// Action tells the engine what to do with a failed attempt.
type Action int

const (
	Stop        Action = iota // permanent error, abort immediately
	Retry                     // transient error, back off and try again
	RateLimited               // quota hit, back off and try again (callers usually rotate credentials first)
)

// Policy controls attempt count and backoff shape. Backoff doubles after
// every failed attempt but is clamped to [MinBackoff, MaxBackoff].
type Policy struct {
	MaxAttempts int
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
	OnRetry     func(attempt int, err error, backoff time.Duration)
}

// Classify maps an error to the Action the engine should take.
type Classify func(err error) Action

// Operation is a retryable unit of work.
type Operation[T any] func() (T, error)

// Do runs op up to p.MaxAttempts times, backing off between attempts.
// A Stop classification wraps the error in PermanentError and returns it
// unretried. Waits respect ctx cancellation.
func Do[T any](ctx context.Context, p Policy, classify Classify, op Operation[T]) (T, error) {
	backoff := p.MinBackoff

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		val, err := op()
		if err == nil {
			return val, nil
		}

		action := classify(err)
		if action == Stop {
			var zero T
			return zero, &PermanentError{Err: err}
		}

		if attempt == p.MaxAttempts {
			var zero T
			return zero, fmt.Errorf("failed after %d attempts: %w", p.MaxAttempts, err)
		}

		if action == RateLimited && p.MaxBackoff > 0 {
			backoff = p.MaxBackoff
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err, backoff)
		}

		select {
		case <-time.After(backoff):
			backoff *= 2
			if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
				backoff = p.MaxBackoff
			}
		case <-ctx.Done():
			var zero T
			return zero, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}

	panic("unreachable: MaxAttempts must be >= 1")
}

// PermanentError marks an error the engine refused to retry.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }
