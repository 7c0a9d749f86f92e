package fetch

import (
	"crypto/rand"
	"math"
	"math/big"
	"time"
)

// Backoff decides how long the orchestrator sleeps between strategies and
// between rounds. Implementations must be safe for concurrent use.
type Backoff interface {
	// StrategyDelay is slept after the strategy at index within round.
	StrategyDelay(round, index int) time.Duration
	// RoundDelay is slept after a fully failed round.
	RoundDelay(round int) time.Duration
}

// ConstantBackoff sleeps fixed durations, mirroring the polite fixed-delay
// behavior expected by third-party relay services.
type ConstantBackoff struct {
	Strategy time.Duration
	Round    time.Duration
}

// StrategyDelay returns the fixed inter-strategy delay.
func (b ConstantBackoff) StrategyDelay(int, int) time.Duration { return b.Strategy }

// RoundDelay returns the fixed inter-round delay.
func (b ConstantBackoff) RoundDelay(int) time.Duration { return b.Round }

// ExponentialBackoff grows the round delay with jitter while keeping a
// fixed inter-strategy delay.
type ExponentialBackoff struct {
	Strategy  time.Duration
	BaseRound time.Duration
	MaxRound  time.Duration
	Jitter    bool
}

// NewExponentialBackoff builds a backoff with sane defaults.
func NewExponentialBackoff() ExponentialBackoff {
	return ExponentialBackoff{
		Strategy:  500 * time.Millisecond,
		BaseRound: 2 * time.Second,
		MaxRound:  60 * time.Second,
		Jitter:    true,
	}
}

// StrategyDelay returns the fixed inter-strategy delay.
func (b ExponentialBackoff) StrategyDelay(int, int) time.Duration { return b.Strategy }

// RoundDelay doubles per round, clamped to MaxRound, with optional jitter
// in [delay/2, delay).
func (b ExponentialBackoff) RoundDelay(round int) time.Duration {
	if round < 0 {
		round = 0
	}
	delay := float64(b.BaseRound) * math.Pow(2, float64(round))
	if delay > float64(b.MaxRound) {
		delay = float64(b.MaxRound)
	}
	d := time.Duration(delay)
	if !b.Jitter {
		return d
	}
	return d/2 + randomJitter(d/2)
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
