package eghttp

import (
	"github.com/kestrelworks/eventguard-go/guard"
)

type DependencyHealth struct {
	Breaker  guard.MetricsSnapshot `json:"metrics"`
	State    string                `json:"state"`
	Failures int                   `json:"failures"`
}

type HealthReport struct {
	Status       string                      `json:"status"`
	Dependencies map[string]DependencyHealth `json:"dependencies"`
}

// Health reports per-dependency breaker state: ok when every breaker is
// closed, degraded while any is open and fallbacks are serving.
type Health struct {
	executors []*guard.Executor
}

func NewHealth(executors ...*guard.Executor) *Health {
	return &Health{executors: executors}
}

// Check reads in-memory breaker snapshots only; it never calls a dependency
// and cannot block.
func (h *Health) Check() HealthReport {
	report := HealthReport{
		Status:       "ok",
		Dependencies: make(map[string]DependencyHealth),
	}

	for _, executor := range h.executors {
		snapshot := executor.Breaker().State()
		if snapshot.State != guard.Closed {
			report.Status = "degraded"
		}

		report.Dependencies[executor.Name()] = DependencyHealth{
			Breaker:  executor.Metrics().Snapshot(),
			State:    snapshot.State.String(),
			Failures: snapshot.Failures,
		}
	}

	return report
}
