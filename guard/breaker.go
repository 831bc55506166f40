package guard

import "time"

type State int32

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Snapshot is the persisted breaker state for one dependency.
type Snapshot struct {
	State       State
	Failures    int
	OpenedAt    time.Time
	LastFailure time.Time
}

// StateStore holds breaker snapshots keyed by dependency name. Get returns
// the snapshot with a fencing token; CompareAndSwap applies a transition only
// if the token is still current. The CAS is the atomicity primitive that
// keeps transitions single-writer, and the seam for a shared backend in a
// multi-instance deployment.
type StateStore interface {
	Get(name string) (Snapshot, uint64)
	CompareAndSwap(name string, token uint64, next Snapshot) bool
}

type BreakerSettings struct {
	FailureThreshold int
	Window           time.Duration
	OpenDuration     time.Duration
}

// Breaker is a closed/open/half-open circuit breaker. State lives in a
// StateStore shared by all callers of the same dependency.
type Breaker struct {
	name     string
	settings BreakerSettings
	store    StateStore
	clock    Clock
}

func NewBreaker(name string, settings BreakerSettings, store StateStore, clock Clock) *Breaker {
	if store == nil {
		store = NewMemoryStateStore()
	}
	if clock == nil {
		clock = systemClock{}
	}

	return &Breaker{
		name:     name,
		settings: settings,
		store:    store,
		clock:    clock,
	}
}

// Allow reports whether a call may proceed. While open, every caller fails
// fast until the open duration elapses; then exactly one caller wins the
// transition to half-open and probes, the rest keep failing fast.
func (b *Breaker) Allow() error {
	for {
		snapshot, token := b.store.Get(b.name)

		switch snapshot.State {
		case Closed:
			return nil
		case HalfOpen:
			return &CircuitOpenError{Dependency: b.name}
		case Open:
			if b.clock.Now().Sub(snapshot.OpenedAt) < b.settings.OpenDuration {
				return &CircuitOpenError{Dependency: b.name}
			}

			next := snapshot
			next.State = HalfOpen
			if b.store.CompareAndSwap(b.name, token, next) {
				return nil
			}
		}
	}
}

// Success records a successful call, closing the breaker and zeroing the
// failure count.
func (b *Breaker) Success() {
	for {
		snapshot, token := b.store.Get(b.name)
		if snapshot.State == Closed && snapshot.Failures == 0 {
			return
		}

		if b.store.CompareAndSwap(b.name, token, Snapshot{State: Closed}) {
			return
		}
	}
}

// Release returns an undecided half-open probe, reopening the breaker
// without restarting the open period so the next caller may probe again
// immediately. No-op in any other state.
func (b *Breaker) Release() {
	for {
		snapshot, token := b.store.Get(b.name)
		if snapshot.State != HalfOpen {
			return
		}

		next := snapshot
		next.State = Open
		if b.store.CompareAndSwap(b.name, token, next) {
			return
		}
	}
}

// Failure records a failed call. Failures outside the observation window
// restart the count; reaching the threshold opens the breaker; a failed
// half-open probe re-opens it.
func (b *Breaker) Failure() {
	for {
		snapshot, token := b.store.Get(b.name)
		now := b.clock.Now()

		next := snapshot
		switch snapshot.State {
		case Open:
			return
		case HalfOpen:
			next.State = Open
			next.OpenedAt = now
		case Closed:
			if b.settings.Window > 0 && !snapshot.LastFailure.IsZero() && now.Sub(snapshot.LastFailure) > b.settings.Window {
				next.Failures = 0
			}
			next.Failures++
			next.LastFailure = now
			if next.Failures >= b.settings.FailureThreshold {
				next.State = Open
				next.OpenedAt = now
			}
		}

		if b.store.CompareAndSwap(b.name, token, next) {
			return
		}
	}
}

func (b *Breaker) Name() string {
	return b.name
}

func (b *Breaker) State() Snapshot {
	snapshot, _ := b.store.Get(b.name)
	return snapshot
}
