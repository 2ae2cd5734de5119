package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/sethvargo/go-retry"
)

// Default retry settings.
const (
	DefaultMaxRetries        = 3
	DefaultInitialDelay      = time.Second
	DefaultMaxDelay          = 30 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// RetryPolicy controls how transient provider failures are retried.
// The delay before retry n (1-based) is
// min(InitialDelay * BackoffMultiplier^(n-1), MaxDelay).
type RetryPolicy struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	// RetryableKinds lists the kinds that are retried. Nil means the
	// default set; an empty non-nil slice retries nothing.
	RetryableKinds []ErrorKind
}

// DefaultRetryPolicy retries rate limits, timeouts and network failures
// three times, starting at one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        DefaultMaxRetries,
		InitialDelay:      DefaultInitialDelay,
		MaxDelay:          DefaultMaxDelay,
		BackoffMultiplier: DefaultBackoffMultiplier,
		RetryableKinds:    []ErrorKind{ErrorKindRateLimit, ErrorKindTimeout, ErrorKindNetwork},
	}
}

// Validate checks the policy's numeric bounds.
func (p RetryPolicy) Validate() error {
	switch {
	case p.MaxRetries < 0:
		return fmt.Errorf("%w: max retries cannot be negative", ErrInvalidConfig)
	case p.InitialDelay <= 0:
		return fmt.Errorf("%w: initial delay must be positive", ErrInvalidConfig)
	case p.MaxDelay < p.InitialDelay:
		return fmt.Errorf("%w: max delay must be at least the initial delay", ErrInvalidConfig)
	case p.BackoffMultiplier <= 1:
		return fmt.Errorf("%w: backoff multiplier must be greater than 1", ErrInvalidConfig)
	}
	return nil
}

// IsRetryable reports whether failures of the given kind are retried.
func (p RetryPolicy) IsRetryable(kind ErrorKind) bool {
	return slices.Contains(p.RetryableKinds, kind)
}

// Delay returns the wait before the given retry (1-based).
func (p RetryPolicy) Delay(retryNumber int) time.Duration {
	d := p.InitialDelay
	for i := 1; i < retryNumber; i++ {
		d = time.Duration(float64(d) * p.BackoffMultiplier)
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return min(d, p.MaxDelay)
}

// normalized replaces out-of-range fields with defaults.
func (p RetryPolicy) normalized() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = def.InitialDelay
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = max(def.MaxDelay, p.InitialDelay)
	}
	if p.BackoffMultiplier <= 1 {
		p.BackoffMultiplier = def.BackoffMultiplier
	}
	if p.RetryableKinds == nil {
		p.RetryableKinds = def.RetryableKinds
	}
	return p
}

// backoff yields the policy's delays in order, capped at MaxDelay and
// limited to MaxRetries retries.
func (p RetryPolicy) backoff() retry.Backoff {
	next := p.InitialDelay
	b := retry.BackoffFunc(func() (time.Duration, bool) {
		d := next
		if next < p.MaxDelay {
			next = time.Duration(float64(next) * p.BackoffMultiplier)
		}
		return d, false
	})
	return retry.WithMaxRetries(uint64(p.MaxRetries), retry.WithCappedDuration(p.MaxDelay, b))
}

// RetryHook is invoked before each backoff sleep.
type RetryHook func(retryNumber int, delay time.Duration, kind ErrorKind, err error)

// Outcome summarizes a call made through ExecuteWithRetry.
type Outcome struct {
	Attempts int
	Kind     ErrorKind
}

// ExecuteWithRetry runs op until it succeeds, fails with a kind the policy
// does not retry, or MaxRetries retries have been made. The last error is
// returned unchanged; when ctx ends during a backoff wait the context error
// is returned wrapped around the last failure's message.
func ExecuteWithRetry[T any](
	ctx context.Context,
	policy RetryPolicy,
	classify Classifier,
	op func(ctx context.Context) (T, error),
	hook RetryHook,
) (T, Outcome, error) {
	policy = policy.normalized()

	var (
		out     Outcome
		lastErr error
		retries int
	)

	b := observeBackoff(policy.backoff(), func(delay time.Duration) {
		retries++
		if hook != nil {
			hook(retries, delay, out.Kind, lastErr)
		}
	})

	result, err := retry.DoValue(ctx, b, func(ctx context.Context) (T, error) {
		out.Attempts++
		r, err := op(ctx)
		if err == nil {
			out.Kind = ""
			return r, nil
		}

		lastErr = err
		out.Kind = classify(err)
		if policy.IsRetryable(out.Kind) {
			return r, retry.RetryableError(err)
		}
		return r, err
	})
	if err == nil {
		return result, out, nil
	}

	if lastErr != nil && !errors.Is(lastErr, err) && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		out.Kind = ErrorKindTimeout
		err = fmt.Errorf("%w after %d attempt(s), last error: %v", err, out.Attempts, lastErr)
	} else if lastErr == nil {
		// ctx was done before the first attempt
		out.Kind = classify(err)
	}

	return result, out, err
}

// observeBackoff calls fn with every delay b actually yields.
func observeBackoff(b retry.Backoff, fn func(time.Duration)) retry.Backoff {
	return retry.BackoffFunc(func() (time.Duration, bool) {
		d, stop := b.Next()
		if !stop {
			fn(d)
		}
		return d, stop
	})
}

// LogRetries returns a RetryHook that logs each scheduled retry.
func LogRetries(ctx context.Context, logger *slog.Logger, provider string) RetryHook {
	return func(retryNumber int, delay time.Duration, kind ErrorKind, err error) {
		logger.WarnContext(ctx, "retrying provider call",
			"provider", provider,
			"retry", retryNumber,
			"delay_ms", delay.Milliseconds(),
			"error_kind", kind,
			"error", err)
	}
}
