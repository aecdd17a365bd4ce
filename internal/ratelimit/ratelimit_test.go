package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJitteredLimiterWait(t *testing.T) {
	limiter := NewJitteredLimiter(20*time.Millisecond, 40*time.Millisecond)
	ctx := context.Background()

	// First wait establishes the baseline.
	require.NoError(t, limiter.Wait(ctx))

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
	assert.Less(t, elapsed, 200*time.Millisecond)
}

func TestJitteredLimiterCancellation(t *testing.T) {
	limiter := NewJitteredLimiter(5*time.Second, 10*time.Second)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestJitteredLimiterSetDelay(t *testing.T) {
	limiter := NewJitteredLimiter(5*time.Second, 10*time.Second)
	limiter.SetDelay(time.Millisecond, 2*time.Millisecond)
	require.NoError(t, limiter.Wait(context.Background()))

	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleepCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Sleep(ctx, time.Second, 2*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleepEqualBounds(t *testing.T) {
	err := Sleep(context.Background(), time.Millisecond, time.Millisecond)
	assert.NoError(t, err)
}
