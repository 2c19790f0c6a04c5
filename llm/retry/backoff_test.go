package retry

import (
	"testing"
	"time"
)

func TestDelayForExponentialSchedule(t *testing.T) {
	p := Policy{Count: 4, Delay: time.Second, Backoff: 2.0}

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	for i, w := range want {
		if got := p.DelayFor(i + 1); got != w {
			t.Errorf("DelayFor(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestDelayForCappedAtBudget(t *testing.T) {
	p := Policy{Count: 3, Delay: time.Second, Backoff: 2.0}

	// Cap is Delay * Backoff^(Count-1) = 4s even for later attempts.
	if got := p.DelayFor(10); got != 4*time.Second {
		t.Errorf("DelayFor(10) = %v, want 4s cap", got)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	p := Policy{Count: -1, Delay: 0, Backoff: 0.5}.Normalize()

	if p.Count != 1 {
		t.Errorf("Count = %d, want 1", p.Count)
	}
	if p.Delay != time.Second {
		t.Errorf("Delay = %v, want 1s", p.Delay)
	}
	if p.Backoff != 2.0 {
		t.Errorf("Backoff = %v, want 2.0", p.Backoff)
	}
}
