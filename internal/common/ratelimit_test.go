package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_ShouldRetry(t *testing.T) {
	r := NewRateLimiterWithOptions(time.Millisecond, time.Millisecond, 2)

	assert.False(t, r.ShouldRetry(nil))
	assert.False(t, r.ShouldRetry(errors.New("boom")))
	assert.Equal(t, 0, r.GetRetryCount())

	assert.True(t, r.ShouldRetry(apiError("Throttling")))
	assert.True(t, r.ShouldRetry(apiError("Throttling")))
	assert.False(t, r.ShouldRetry(apiError("Throttling")))
	assert.Equal(t, 2, r.GetRetryCount())

	r.Reset()
	assert.Equal(t, 0, r.GetRetryCount())
}

func TestRateLimiter_Do(t *testing.T) {
	DisableLoggingForTesting()
	defer EnableLogging()

	tests := []struct {
		name          string
		errs          []error
		expectedCalls int
		expectErr     bool
	}{
		{"success first try", []error{nil}, 1, false},
		{"throttled then success", []error{apiError("Throttling"), nil}, 2, false},
		{"non-throttling error is not retried", []error{apiError("AccessDenied")}, 1, true},
		{"gives up after max retries", []error{
			apiError("Throttling"), apiError("Throttling"), apiError("Throttling"), apiError("Throttling"),
		}, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRateLimiterWithOptions(time.Millisecond, 2*time.Millisecond, 2)
			calls := 0
			err := r.Do(context.Background(), func() error {
				err := tt.errs[calls]
				calls++
				return err
			})
			assert.Equal(t, tt.expectedCalls, calls)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRateLimiter_DoCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRateLimiterWithOptions(time.Hour, time.Hour, 3)
	calls := 0
	err := r.Do(ctx, func() error {
		calls++
		return apiError("Throttling")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRateLimiter_Backoff(t *testing.T) {
	r := NewRateLimiterWithOptions(time.Millisecond, 10*time.Millisecond, 20)
	assert.Zero(t, r.backoff())

	r.attempt = 3
	d := r.backoff()
	assert.GreaterOrEqual(t, d, 4*time.Millisecond)
	assert.Less(t, d, 5*time.Millisecond)

	r.attempt = 12
	d = r.backoff()
	assert.GreaterOrEqual(t, d, 10*time.Millisecond)
	assert.Less(t, d, 12*time.Millisecond)
}
