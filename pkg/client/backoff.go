package client

import (
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy returns the wait before retry number attempt (0-based).
type BackoffStrategy interface {
	Next(attempt int) time.Duration
}

// ExponentialBackoff waits Base*Factor^attempt, capped at Max, then spreads
// the result by up to Jitter in either direction.
type ExponentialBackoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
	Jitter float64 // fraction in [0, 1]
}

// DefaultBackoff waits 100ms, doubling up to 5s, with 20% jitter.
func DefaultBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		Base:   100 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2,
		Jitter: 0.2,
	}
}

func (b *ExponentialBackoff) Next(attempt int) time.Duration {
	wait := float64(b.Base)
	if attempt > 0 {
		// Pow overflows to +Inf for large attempts, which the cap absorbs.
		wait = math.Min(wait*math.Pow(b.Factor, float64(attempt)), float64(b.Max))
	}
	if b.Jitter > 0 {
		wait *= 1 + b.Jitter*(2*rand.Float64()-1)
	}
	return time.Duration(math.Max(wait, 0))
}
