// Package retry runs an operation with bounded exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// Policy bounds a retry loop. Delay before attempt n+1 is BaseDelay*2^(n-1),
// with no jitter.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration

	// Retryable reports whether err is worth another attempt. A nil
	// Retryable retries every error.
	Retryable func(err error) bool

	// OnRetry is called before each wait with the attempt that just failed.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultPolicy is 3 attempts with 1s, 2s waits.
func DefaultPolicy(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Retryable:   retryable,
	}
}

// Do calls op until it succeeds, returns a non-retryable error, the attempts
// run out, or ctx is done. The last error from op is returned unchanged.
func Do(ctx context.Context, p Policy, op func(ctx context.Context, attempt int) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.BaseDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = p.BaseDelay << p.MaxAttempts
	exp.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.MaxAttempts-1)), ctx)

	attempt := 0
	operation := func() error {
		attempt++
		err := op(ctx, attempt)
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}
	}

	return backoff.RetryNotify(operation, b, notify)
}
