package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy describes how many times an operation is attempted and how long
// to wait in between. The wait before retry n (0-based) is
// BaseDelay * Multiplier^n, capped at MaxDelay when MaxDelay > 0.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
}

var (
	// DefaultBlockhashPolicy is used for getLatestBlockhash.
	DefaultBlockhashPolicy = RetryPolicy{MaxAttempts: 3, BaseDelay: 250 * time.Millisecond, Multiplier: 2}

	// DefaultConfirmPolicy polls signature status for roughly one blockhash lifetime.
	DefaultConfirmPolicy = RetryPolicy{MaxAttempts: 30, BaseDelay: 400 * time.Millisecond, Multiplier: 1.2, MaxDelay: 2 * time.Second}
)

// Validate checks the policy for values the helper cannot honour.
func (p RetryPolicy) Validate() error {
	switch {
	case p.MaxAttempts < 1:
		return fmt.Errorf("max attempts must be at least 1, got %d", p.MaxAttempts)
	case p.BaseDelay < 0:
		return fmt.Errorf("base delay must not be negative, got %s", p.BaseDelay)
	case p.MaxDelay < 0:
		return fmt.Errorf("max delay must not be negative, got %s", p.MaxDelay)
	case p.Multiplier < 1:
		return fmt.Errorf("backoff multiplier must be >= 1, got %v", p.Multiplier)
	}
	return nil
}

func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxInterval = p.MaxDelay
	if b.MaxInterval <= 0 {
		// ExponentialBackOff always caps; make the cap unreachable.
		b.MaxInterval = time.Duration(1<<62 - 1)
	}
	b.Reset()
	return b
}

// RetryWithBackoff runs op until it succeeds or the policy's attempts are used
// up. The last raw error is returned unclassified. An op may stop the loop
// early by returning backoff.Permanent(err); err is then returned as is.
func RetryWithBackoff[T any](
	ctx context.Context,
	op func(context.Context) (T, error),
	policy RetryPolicy,
	notify ...func(err error, next time.Duration),
) (T, error) {
	if err := policy.Validate(); err != nil {
		var zero T
		return zero, fmt.Errorf("invalid retry policy: %w", err)
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(policy.backOff()),
		backoff.WithMaxTries(uint(policy.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
	}
	if len(notify) > 0 && notify[0] != nil {
		opts = append(opts, backoff.WithNotify(notify[0]))
	}

	res, err := backoff.Retry(ctx, func() (T, error) {
		return op(ctx)
	}, opts...)

	// Retry hands back the wrapper untouched when the last try was permanent.
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	return res, err
}
