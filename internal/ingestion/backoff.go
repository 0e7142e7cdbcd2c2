package ingestion

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Reconnect policy defaults.
const (
	DefaultBaseDelay  = 5 * time.Second
	DefaultMaxDelay   = 60 * time.Second
	BackoffMultiplier = 2.0
)

// newReconnectBackOff returns a jitter-free exponential policy:
// base, base*2, base*4, ... capped at max, never giving up.
func newReconnectBackOff(base, max time.Duration) *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     base,
		RandomizationFactor: 0,
		Multiplier:          BackoffMultiplier,
		MaxInterval:         max,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}
