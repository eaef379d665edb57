package remote

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy controls how FetchPage retries failed requests
type RetryPolicy struct {
	// MaxAttempts includes the first try.
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// RateLimitWait is the pause after a rate-limit response, shortened to
	// the server's reset time when that comes sooner.
	RateLimitWait time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		RateLimitWait:   60 * time.Second,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = def.InitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = def.MaxInterval
	}
	if p.RateLimitWait <= 0 {
		p.RateLimitWait = def.RateLimitWait
	}
	return p
}

// resetPassedWait is the pause when the reported rate-limit reset is
// already in the past.
const resetPassedWait = time.Second

// rateLimitDelay picks the wait before retrying a rate-limited request
func (p RetryPolicy) rateLimitDelay(e *Error) time.Duration {
	wait := p.RateLimitWait
	switch {
	case e.RetryAfter < 0:
		wait = min(wait, resetPassedWait)
	case e.RetryAfter > 0 && e.RetryAfter < wait:
		wait = e.RetryAfter
	}
	return wait
}

func withRetry[T any](ctx context.Context, policy RetryPolicy, logger *slog.Logger, fn func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval
	b.MaxInterval = policy.MaxInterval

	var last *Error
	attempt := 0
	op := func() (T, error) {
		attempt++
		res, err := fn()
		if err == nil {
			return res, nil
		}

		last = Classify(err)
		switch {
		case last.Category == CategoryRateLimited:
			return res, &backoff.RetryAfterError{Duration: policy.rateLimitDelay(last)}
		case last.Category.Retryable():
			return res, last
		default:
			return res, backoff.Permanent(last)
		}
	}

	notify := func(err error, next time.Duration) {
		logger.Warn("retrying GitHub request",
			"attempt", attempt,
			"category", last.Category,
			"wait", next,
			"error", last.Err)
	}

	res, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(policy.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	if err == nil {
		return res, nil
	}

	var retryAfter *backoff.RetryAfterError
	if errors.As(err, &retryAfter) && last != nil {
		return res, last
	}
	return res, Classify(err)
}
