package session

import (
	"math"
	"math/rand"
	"time"
)

// NextBackoffDelay returns the delay before retry attempt n, counting from 1.
// Jitter scales the delay by a factor in [0.5, 1.5); without rng the factor
// is 0.5.
func NextBackoffDelay(cfg BackoffConfig, attempt int, rng *rand.Rand) time.Duration {
	if cfg.InitialDelay <= 0 {
		return 0
	}
	delay := float64(cfg.InitialDelay)
	if attempt > 1 {
		delay *= math.Pow(math.Max(cfg.Multiplier, 1), float64(attempt-1))
	}
	if cfg.MaxDelay > 0 {
		delay = math.Min(delay, float64(cfg.MaxDelay))
	}
	if cfg.Jitter {
		f := 0.5
		if rng != nil {
			f += rng.Float64()
		}
		delay *= f
	}
	return time.Duration(delay)
}

// ReadBackoff paces retries after consecutive link read failures. A
// successful read resets it.
type ReadBackoff struct {
	cfg      BackoffConfig
	rng      *rand.Rand
	failures int
}

func NewReadBackoff(cfg BackoffConfig, rng *rand.Rand) *ReadBackoff {
	return &ReadBackoff{cfg: cfg, rng: rng}
}

// Fail records a failure and returns how long to wait before reading again.
func (b *ReadBackoff) Fail() time.Duration {
	b.failures++
	return NextBackoffDelay(b.cfg, b.failures, b.rng)
}

func (b *ReadBackoff) Reset() {
	b.failures = 0
}

// Failures is the number of consecutive failures since the last Reset.
func (b *ReadBackoff) Failures() int {
	return b.failures
}
