package eg

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/kestrelworks/eventguard-go/guard"
)

// SnapshotCache bounds replay cost by remembering a rendered entity at a
// known version; the repository folds only the stream's tail on top of it.
// Cached states are copied by value, so snapshot-cached state types should
// not share references between instances.
type SnapshotCache[T any] interface {
	Get(ctx context.Context, stream StreamID) (Entity[T], bool)
	Put(ctx context.Context, entity Entity[T])
}

type MemorySnapshotCache[T any] struct {
	mu      sync.RWMutex
	entries map[EncodedStreamID]Entity[T]
}

func NewMemorySnapshotCache[T any]() *MemorySnapshotCache[T] {
	return &MemorySnapshotCache[T]{
		entries: make(map[EncodedStreamID]Entity[T]),
	}
}

func (c *MemorySnapshotCache[T]) Get(_ context.Context, stream StreamID) (Entity[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entity, ok := c.entries[stream.Encode()]
	if !ok {
		return Entity[T]{}, false
	}

	state := *entity.State
	entity.State = &state

	return entity, true
}

func (c *MemorySnapshotCache[T]) Put(_ context.Context, entity Entity[T]) {
	state := *entity.State
	entity.State = &state

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[entity.Stream.Encode()] = entity
}

type RepositoryOption[T any] func(repository *Repository[T])

func WithSnapshots[T any](cache SnapshotCache[T]) RepositoryOption[T] {
	return func(r *Repository[T]) {
		r.snapshots = cache
	}
}

// Repository reconstructs aggregate state by replaying a stream through the
// registered reducers. It holds no state of its own; writes happen through
// EventStore.Append using the version obtained at load time.
type Repository[T any] struct {
	store     EventStore
	renderer  *Renderer[T]
	guard     *guard.Executor
	snapshots SnapshotCache[T]
}

func NewRepository[T any](store EventStore, reducers Reducers[T], executor *guard.Executor, options ...RepositoryOption[T]) *Repository[T] {
	repository := &Repository[T]{
		store:    store,
		renderer: &Renderer[T]{Reducers: reducers},
		guard:    executor,
	}

	for _, option := range options {
		option(repository)
	}

	return repository
}

// Load renders the stream's current state. A stream with no events yields an
// uninitialized entity at InitialVersion for creation flows.
func (r *Repository[T]) Load(ctx context.Context, stream StreamID) (Entity[T], error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "load entity")
	defer span.End()

	base := Entity[T]{Stream: stream, Version: InitialVersion}
	if r.snapshots != nil {
		if cached, ok := r.snapshots.Get(ctx, stream); ok {
			base = cached
		}
	}

	events, err := guard.Do(ctx, r.guard, func(ctx context.Context) ([]RecordedEvent, error) {
		return r.store.ReadStream(ctx, stream, base.Version)
	})
	if err != nil {
		return Entity[T]{}, err
	}

	var entity Entity[T]
	if base.State == nil {
		entity, err = r.renderer.Render(ctx, stream, events)
	} else {
		var version Version
		version, err = r.renderer.Apply(base.State, stream, base.Version, events)
		entity = Entity[T]{Stream: stream, Version: version, Type: base.Type, State: base.State}
	}
	if err != nil {
		return Entity[T]{}, err
	}

	if r.snapshots != nil && entity.Initialized() {
		r.snapshots.Put(ctx, entity)
	}

	return entity, nil
}

// Require loads an aggregate that must already exist.
func (r *Repository[T]) Require(ctx context.Context, stream StreamID) (Entity[T], error) {
	entity, err := r.Load(ctx, stream)
	if err != nil {
		return Entity[T]{}, err
	}

	if !entity.Initialized() {
		return Entity[T]{}, errors.Wrap(ErrAggregateNotFound, stream.Encode().String())
	}

	return entity, nil
}
