package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		price float64
		want  string
	}{
		{1234.5, "1,234.50"},
		{1234567.891, "1,234,567.89"},
		{-1234.5, "-1,234.50"},
		{182.456, "182.46"},
		{1, "1.00"},
		{0.05, "0.0500"},
		{0.001, "0.001000"},
		{0, "0.000000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPrice(tt.price), "FormatPrice(%v)", tt.price)
	}
}

func TestFormatPercentAndCompact(t *testing.T) {
	assert.Equal(t, "+1.50%", FormatPercent(1.5))
	assert.Equal(t, "-2.00%", FormatPercent(-2))
	assert.Equal(t, "0.00%", FormatPercent(0))

	assert.Equal(t, "999", FormatCompact(999))
	assert.Equal(t, "2.50K", FormatCompact(2500))
	assert.Equal(t, "1.50M", FormatCompact(1_500_000))
	assert.Equal(t, "-3.20B", FormatCompact(-3.2e9))
}

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond}, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryReturnsLastError(t *testing.T) {
	calls := 0
	last := errors.New("still failing")
	_, err := RetryWithResult(context.Background(), RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond}, func() (int, error) {
		calls++
		return 0, last
	})
	assert.Same(t, last, err)
	assert.Equal(t, 3, calls)
}

func TestRetryShouldRetry(t *testing.T) {
	permanent := errors.New("not found")
	calls := 0
	cfg := RetryConfig{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		ShouldRetry:  func(err error) bool { return !errors.Is(err, permanent) },
	}
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour}, func() error {
		calls++
		cancel()
		return errors.New("transient")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestProperty_BackoffBounded(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("backoff grows monotonically and never exceeds the cap", prop.ForAll(
		func(attempt int, factor float64) bool {
			initial, maxDelay := 10*time.Millisecond, time.Second
			d := CalculateBackoff(attempt, initial, maxDelay, factor)
			next := CalculateBackoff(attempt+1, initial, maxDelay, factor)
			return d >= initial && d <= maxDelay && next >= d
		},
		gen.IntRange(0, 20),
		gen.Float64Range(1, 4),
	))

	properties.TestingRun(t)
}
