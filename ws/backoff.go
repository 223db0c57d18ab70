package ws

import (
	"math"
	"math/rand"
	"time"
)

// backoffPolicy computes reconnect delays: exponential growth from Initial,
// capped at Max, with +/-Jitter randomization to avoid herding on the
// gateway after an outage.
type backoffPolicy struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// Delay returns the delay before attempt number `retry` (1-indexed: the
// first retry waits Initial).
func (p backoffPolicy) Delay(retry int) time.Duration {
	if retry < 1 {
		return 0
	}

	delay := float64(p.Initial) * math.Pow(p.Multiplier, float64(retry-1))
	if p.Max > 0 && delay > float64(p.Max) {
		delay = float64(p.Max)
	}

	if p.Jitter > 0 {
		delay += delay * p.Jitter * (rand.Float64()*2 - 1)
	}

	return time.Duration(delay)
}
