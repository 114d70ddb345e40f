package capture

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RestartPolicy spaces out restarts with exponential backoff and gives up
// after a fixed number of consecutive attempts. Zero max means no limit.
type RestartPolicy struct {
	backoff  *backoff.ExponentialBackOff
	max      int
	attempts int
}

// NewRestartPolicy returns a policy starting at initial and doubling up to
// maxInterval.
func NewRestartPolicy(maxAttempts int, initial, maxInterval time.Duration) *RestartPolicy {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = maxInterval
	b.Multiplier = 2.0
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	return &RestartPolicy{backoff: b, max: maxAttempts}
}

// Next returns the delay before the next attempt, or false once the attempt
// budget is spent.
func (p *RestartPolicy) Next() (time.Duration, bool) {
	if p.max > 0 && p.attempts >= p.max {
		return 0, false
	}
	p.attempts++
	return p.backoff.NextBackOff(), true
}

// Attempts returns how many attempts were granted since the last Reset.
func (p *RestartPolicy) Attempts() int {
	return p.attempts
}

// Reset is called after a success so the next failure starts over.
func (p *RestartPolicy) Reset() {
	p.attempts = 0
	p.backoff.Reset()
}
