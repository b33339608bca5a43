package common

import (
	"context"
	"math/rand"
	"time"
)

const (
	defaultBaseDelay  = time.Second
	defaultMaxDelay   = 30 * time.Second
	defaultMaxRetries = 3
)

// RateLimiter retries throttled AWS calls with capped exponential backoff.
// It tracks one call sequence at a time and is not safe for concurrent use.
type RateLimiter struct {
	baseDelay  time.Duration
	maxDelay   time.Duration
	maxRetries int

	attempt int
}

// NewRateLimiter creates a limiter with a 1s base delay, 30s cap and 3 retries
func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithOptions(defaultBaseDelay, defaultMaxDelay, defaultMaxRetries)
}

// NewRateLimiterWithOptions creates a limiter with custom delays and retry budget
func NewRateLimiterWithOptions(baseDelay, maxDelay time.Duration, maxRetries int) *RateLimiter {
	return &RateLimiter{
		baseDelay:  baseDelay,
		maxDelay:   maxDelay,
		maxRetries: maxRetries,
	}
}

// backoff is base * 2^(attempt-1), capped at maxDelay, plus up to 20% jitter
func (r *RateLimiter) backoff() time.Duration {
	if r.attempt == 0 {
		return 0
	}
	d := r.baseDelay << (r.attempt - 1)
	if d <= 0 || d > r.maxDelay {
		d = r.maxDelay
	}
	if jitter := int64(d) / 5; jitter > 0 {
		d += time.Duration(rand.Int63n(jitter))
	}
	return d
}

// Wait sleeps for the current backoff. The first attempt does not wait.
func (r *RateLimiter) Wait(ctx context.Context) error {
	d := r.backoff()
	if d == 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ShouldRetry records the outcome of an attempt. Only throttling errors are
// retried, and only while the retry budget lasts. A nil error resets the limiter.
func (r *RateLimiter) ShouldRetry(err error) bool {
	switch {
	case err == nil:
		r.Reset()
		return false
	case r.attempt >= r.maxRetries, !IsThrottlingError(err):
		return false
	}
	r.attempt++
	return true
}

// Reset starts a new call sequence
func (r *RateLimiter) Reset() {
	r.attempt = 0
}

// GetRetryCount returns the retries made in the current sequence
func (r *RateLimiter) GetRetryCount() int {
	return r.attempt
}

// Do runs fn until it succeeds, fails with a non-throttling error, or runs out of retries
func (r *RateLimiter) Do(ctx context.Context, fn func() error) error {
	r.Reset()
	for {
		if err := r.Wait(ctx); err != nil {
			return err
		}
		err := fn()
		if !r.ShouldRetry(err) {
			return err
		}
		AppLogger.Debugf("throttled, retry %d/%d: %v", r.attempt, r.maxRetries, err)
	}
}
