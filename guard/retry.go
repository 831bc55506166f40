package guard

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds retries of transient failures. Delays double from
// BaseDelay on each attempt, capped at MaxDelay. MaxAttempts counts the
// initial call.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (p RetryPolicy) schedule() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = p.MaxDelay
	b.MaxElapsedTime = 0
	b.Reset()

	return b
}

// Default policies. These are configuration inputs; see support.Config.
var (
	StoreRetryPolicy      = RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 8 * time.Second}
	ProjectionRetryPolicy = RetryPolicy{MaxAttempts: 2, BaseDelay: 2 * time.Second, MaxDelay: 8 * time.Second}
	QueryRetryPolicy      = RetryPolicy{MaxAttempts: 2, BaseDelay: 2 * time.Second, MaxDelay: 8 * time.Second}
)

var (
	StoreBreakerSettings = BreakerSettings{FailureThreshold: 5, Window: time.Minute, OpenDuration: time.Minute}
	QueryBreakerSettings = BreakerSettings{FailureThreshold: 3, Window: time.Minute, OpenDuration: 30 * time.Second}
)

const (
	StoreCallTimeout   = 10 * time.Second
	QueryCallTimeout   = 15 * time.Second
	CommandCallTimeout = 45 * time.Second
)
