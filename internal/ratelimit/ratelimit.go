package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Limiter paces actions against the target site.
type Limiter interface {
	Wait(ctx context.Context) error
	SetDelay(min, max time.Duration)
}

// JitteredLimiter waits a uniformly random duration between a minimum and
// maximum, measured from the previous action. The jitter keeps the request
// cadence from forming a detectable fixed pattern.
type JitteredLimiter struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
	mu         sync.Mutex
}

func NewJitteredLimiter(minDelay, maxDelay time.Duration) *JitteredLimiter {
	return &JitteredLimiter{
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

func (l *JitteredLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	elapsed := time.Since(l.lastAction)
	delay := l.nextDelay()

	if elapsed < delay {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay - elapsed):
		}
	}

	l.lastAction = time.Now()
	return nil
}

func (l *JitteredLimiter) SetDelay(min, max time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.minDelay = min
	l.maxDelay = max
}

func (l *JitteredLimiter) nextDelay() time.Duration {
	if l.maxDelay <= l.minDelay {
		return l.minDelay
	}
	jitter := time.Duration(rand.Int63n(int64(l.maxDelay - l.minDelay)))
	return l.minDelay + jitter
}

// Sleep blocks for a uniformly random duration in [min, max], or until the
// context is cancelled. Used for the short settle waits inside pagination.
func Sleep(ctx context.Context, min, max time.Duration) error {
	d := min
	if max > min {
		d += time.Duration(rand.Int63n(int64(max - min)))
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
