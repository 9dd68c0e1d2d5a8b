package validation

import (
	"context"
	"math"
	"time"
)

// BackoffPolicy controls the waits between job status observations
type BackoffPolicy struct {
	// RetryInterval is the wait after an unreadable status
	RetryInterval time.Duration
	// RefreshInterval is the wait while the job is still running
	RefreshInterval time.Duration
	// MaxInterval caps a grown wait
	MaxInterval time.Duration
	// Multiplier grows the wait on consecutive waits of the same kind
	Multiplier float64
	// MaxAttempts bounds the number of observations
	MaxAttempts int
}

// DefaultBackoffPolicy matches the cadence of the remote dashboard
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		RetryInterval:   4 * time.Second,
		RefreshInterval: 6 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      1,
		MaxAttempts:     50,
	}
}

// Delay returns the wait before the next observation. consecutive counts
// the earlier waits of the same kind in a row, starting at 0.
func (p BackoffPolicy) Delay(base time.Duration, consecutive int) time.Duration {
	if p.Multiplier <= 1 || consecutive <= 0 {
		return p.capped(base)
	}
	grown := float64(base) * math.Pow(p.Multiplier, float64(consecutive))
	if grown > math.MaxInt64 {
		return p.capped(time.Duration(math.MaxInt64))
	}
	return p.capped(time.Duration(grown))
}

func (p BackoffPolicy) capped(d time.Duration) time.Duration {
	if p.MaxInterval > 0 && d > p.MaxInterval {
		return p.MaxInterval
	}
	return d
}

func (p BackoffPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// TimerSleeper sleeps on a real timer
type TimerSleeper struct{}

// Sleep waits for d or returns ctx.Err() when ctx ends first
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
