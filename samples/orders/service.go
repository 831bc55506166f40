package orders

import (
	"github.com/kestrelworks/eventguard-go/eg"
	"github.com/kestrelworks/eventguard-go/guard"
)

// NewService wires the order command pipeline: snapshot-cached repository,
// command handlers, and the store guard.
func NewService(store eg.EventStore, executor *guard.Executor) *eg.Service[Order] {
	repository := eg.NewRepository(
		store,
		Reducers(),
		executor,
		eg.WithSnapshots[Order](eg.NewMemorySnapshotCache[Order]()),
	)

	return eg.NewService(store, repository, Handlers(), executor)
}
