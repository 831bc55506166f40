package guard

import "sync/atomic"

// Metrics counts executor outcomes for an external collector.
type Metrics struct {
	successes int64
	failures  int64
	retries   int64
	timeouts  int64
	rejected  int64
	fallbacks int64
}

type MetricsSnapshot struct {
	Successes int64 `json:"successes"`
	Failures  int64 `json:"failures"`
	Retries   int64 `json:"retries"`
	Timeouts  int64 `json:"timeouts"`
	Rejected  int64 `json:"rejected"`
	Fallbacks int64 `json:"fallbacks"`
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Successes: atomic.LoadInt64(&m.successes),
		Failures:  atomic.LoadInt64(&m.failures),
		Retries:   atomic.LoadInt64(&m.retries),
		Timeouts:  atomic.LoadInt64(&m.timeouts),
		Rejected:  atomic.LoadInt64(&m.rejected),
		Fallbacks: atomic.LoadInt64(&m.fallbacks),
	}
}

func (m *Metrics) RecordFallback() {
	atomic.AddInt64(&m.fallbacks, 1)
}
