package pagetran

import (
	"context"
	"errors"
	"time"
)

// RetryConfig holds configuration for retry behavior. Attempt counts
// include the first call.
type RetryConfig struct {
	MaxAttempts       int           // Attempts for network and malformed-response failures
	RateLimitAttempts int           // Attempts for rate-limited failures
	BaseDelay         time.Duration // Initial delay between retries
	MaxDelay          time.Duration // Maximum delay between retries
}

// DefaultRetryConfig returns sensible defaults for retry behavior.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		RateLimitAttempts: 6,
		BaseDelay:         1 * time.Second,
		MaxDelay:          30 * time.Second,
	}
}

// attemptsFor returns the attempt budget for the given failure.
func (c RetryConfig) attemptsFor(err error) int {
	n := c.MaxAttempts
	if ErrorKindOf(err) == KindRateLimited {
		n = c.RateLimitAttempts
	}
	if n < 1 {
		n = 1
	}
	return n
}

const (
	// maxBackoffDoublings bounds the exponential growth of the delay.
	maxBackoffDoublings = 16
	// retryAfterFactor caps a server's Retry-After at this multiple of MaxDelay.
	retryAfterFactor = 4
	// maxRetryAfter caps Retry-After when MaxDelay is unset.
	maxRetryAfter = 5 * time.Minute
)

// backoff returns the delay before the attempt following attempt (0-based).
// A Retry-After hint raises the delay, up to retryAfterFactor times MaxDelay.
func (c RetryConfig) backoff(attempt int, err error) time.Duration {
	delay := c.BaseDelay
	for i := 0; i < attempt && i < maxBackoffDoublings; i++ {
		if c.MaxDelay > 0 && delay >= c.MaxDelay {
			break
		}
		delay *= 2
	}
	if c.MaxDelay > 0 && delay > c.MaxDelay {
		delay = c.MaxDelay
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) && providerErr.RetryAfter > delay {
		limit := maxRetryAfter
		if c.MaxDelay > 0 {
			limit = retryAfterFactor * c.MaxDelay
		}
		delay = min(providerErr.RetryAfter, limit)
	}
	return delay
}

// RetryFunc is a function that can be retried.
type RetryFunc[T any] func(attempt int) (T, error)

// WithRetry executes a function with exponential backoff retry. Only
// retryable provider errors are retried; the budget depends on the error kind.
func WithRetry[T any](ctx context.Context, cfg RetryConfig, fn RetryFunc[T]) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		// Check context before each attempt
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(attempt)
		if err == nil {
			return result, nil
		}

		if !IsRetryable(err) || attempt+1 >= cfg.attemptsFor(err) {
			return zero, err
		}

		timer := time.NewTimer(cfg.backoff(attempt, err))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context errors are not retryable
	if errors.Is(err, context.Canceled) {
		return false
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Retryable()
	}

	return false
}
