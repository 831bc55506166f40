package guard

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Sleeper func(ctx context.Context, delay time.Duration) error

func defaultSleeper(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type Option func(executor *Executor)

func WithRetry(policy RetryPolicy) Option {
	return func(e *Executor) {
		e.retry = policy
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(e *Executor) {
		e.timeout = timeout
	}
}

func WithBreakerSettings(settings BreakerSettings) Option {
	return func(e *Executor) {
		e.breakerSettings = settings
	}
}

func WithStateStore(store StateStore) Option {
	return func(e *Executor) {
		e.store = store
	}
}

func WithClock(clock Clock) Option {
	return func(e *Executor) {
		e.clock = clock
	}
}

func WithSleeper(sleeper Sleeper) Option {
	return func(e *Executor) {
		e.sleep = sleeper
	}
}

func WithLogger(logger *zerolog.Logger) Option {
	return func(e *Executor) {
		e.log = logger
	}
}

// Executor wraps every outbound call to one dependency with the composed
// resilience pipeline: timeout guard, retry policy, circuit breaker. Fallback
// handling stays with the caller; the write path has none.
type Executor struct {
	name            string
	retry           RetryPolicy
	timeout         time.Duration
	breakerSettings BreakerSettings
	store           StateStore
	clock           Clock
	sleep           Sleeper
	log             *zerolog.Logger

	breaker *Breaker
	metrics Metrics
}

func New(name string, options ...Option) *Executor {
	executor := &Executor{
		name:            name,
		retry:           StoreRetryPolicy,
		timeout:         StoreCallTimeout,
		breakerSettings: StoreBreakerSettings,
		sleep:           defaultSleeper,
	}

	for _, option := range options {
		option(executor)
	}

	if executor.clock == nil {
		executor.clock = systemClock{}
	}
	if executor.log == nil {
		executor.log = &log.Logger
	}

	executor.breaker = NewBreaker(name, executor.breakerSettings, executor.store, executor.clock)

	return executor
}

// Do runs op through the pipeline. Transient failures are retried with
// exponential backoff up to the policy's attempt limit and counted against
// the breaker; everything else returns unchanged on the first failure. While
// the breaker is open the dependency is never called.
func (e *Executor) Do(ctx context.Context, op func(ctx context.Context) error) error {
	schedule := e.retry.schedule()

	var last error
	for attempt := 1; attempt <= e.retry.MaxAttempts; attempt++ {
		if err := e.breaker.Allow(); err != nil {
			atomic.AddInt64(&e.metrics.rejected, 1)
			return err
		}

		err := e.attempt(ctx, op)
		if err == nil {
			e.breaker.Success()
			atomic.AddInt64(&e.metrics.successes, 1)
			return nil
		}

		if !IsTransient(err) {
			if ctx.Err() != nil {
				// The caller abandoned the call; nothing was learned
				// about the dependency, so an in-flight probe goes
				// back to open for the next caller.
				e.breaker.Release()
			} else {
				// The dependency answered. A terminal error resolves a
				// half-open probe and clears the failure window.
				e.breaker.Success()
			}
			return err
		}

		e.breaker.Failure()
		atomic.AddInt64(&e.metrics.failures, 1)
		last = err

		if ctx.Err() != nil {
			return err
		}
		if attempt == e.retry.MaxAttempts {
			break
		}

		delay := schedule.NextBackOff()
		e.log.Warn().
			Str("dependency", e.name).
			Int("attempt", attempt).
			Dur("delay", delay).
			Err(err).
			Msg("transient failure, retrying")

		atomic.AddInt64(&e.metrics.retries, 1)
		if err := e.sleep(ctx, delay); err != nil {
			return err
		}
	}

	return &DependencyExhaustedError{
		Dependency: e.name,
		Attempts:   e.retry.MaxAttempts,
		Err:        last,
	}
}

func (e *Executor) attempt(ctx context.Context, op func(ctx context.Context) error) error {
	attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	err := op(attemptCtx)
	if err != nil && attemptCtx.Err() == context.DeadlineExceeded {
		atomic.AddInt64(&e.metrics.timeouts, 1)
		return Transient(err)
	}

	return err
}

func (e *Executor) Name() string {
	return e.name
}

func (e *Executor) Breaker() *Breaker {
	return e.breaker
}

func (e *Executor) Metrics() *Metrics {
	return &e.metrics
}

// Do runs an operation with a result through an executor.
func Do[T any](ctx context.Context, executor *Executor, op func(ctx context.Context) (T, error)) (T, error) {
	var result T

	err := executor.Do(ctx, func(ctx context.Context) error {
		value, err := op(ctx)
		if err != nil {
			return err
		}

		result = value
		return nil
	})

	return result, err
}
