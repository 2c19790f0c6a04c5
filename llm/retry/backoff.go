package retry

import (
	"math"
	"time"
)

// Policy defines the exponential backoff schedule for one query.
type Policy struct {
	Count   int           // Maximum attempts (1 = no retry)
	Delay   time.Duration // Base delay before the second attempt
	Backoff float64       // Exponential multiplier, >= 1
}

// DefaultPolicy returns the default schedule: 3 attempts, 1s base delay,
// factor 2.
func DefaultPolicy() Policy {
	return Policy{Count: 3, Delay: time.Second, Backoff: 2.0}
}

// Normalize fills invalid fields with defaults and returns the result.
func (p Policy) Normalize() Policy {
	if p.Count < 1 {
		p.Count = 1
	}
	if p.Delay <= 0 {
		p.Delay = time.Second
	}
	if p.Backoff < 1.0 {
		p.Backoff = 2.0
	}
	return p
}

// DelayFor returns the suspend duration after the given failed attempt
// (1-based): Delay * Backoff^(attempt-1), bounded above by
// Delay * Backoff^(Count-1).
func (p Policy) DelayFor(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.Delay) * math.Pow(p.Backoff, float64(attempt-1))
	max := float64(p.Delay) * math.Pow(p.Backoff, float64(p.Count-1))
	if d > max {
		d = max
	}
	return time.Duration(d)
}
