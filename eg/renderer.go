package eg

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
)

// StreamCorruptionError signals that a replayed stream was not a gap-free
// version sequence. It is never retried; the store needs operator attention.
type StreamCorruptionError struct {
	Stream   StreamID
	Expected Version
	Actual   Version
}

func (e StreamCorruptionError) Error() string {
	return fmt.Sprintf("stream %s corrupt: expected version %s, read %s", e.Stream.Encode(), e.Expected, e.Actual)
}

type Renderer[T any] struct {
	Reducers Reducers[T]
}

// Render folds the events of a stream over a zero-value state. Events with
// no registered reducer still advance the version; the reconstructed version
// must equal the count of replayed events.
func (r *Renderer[T]) Render(ctx context.Context, stream StreamID, events []RecordedEvent) (Entity[T], error) {
	var state T

	_, span := otel.Tracer(tracerName).Start(ctx, fmt.Sprintf("render %s", NameOf(state)))
	defer span.End()

	version, err := r.Apply(&state, stream, InitialVersion, events)
	if err != nil {
		return Entity[T]{}, err
	}

	return Entity[T]{
		Stream:  stream,
		Version: version,
		Type:    EntityTypeOf(state),
		State:   &state,
	}, nil
}

// Apply continues a fold from a known version, e.g. on top of a snapshot.
func (r *Renderer[T]) Apply(state *T, stream StreamID, at Version, events []RecordedEvent) (Version, error) {
	version := at
	for _, event := range events {
		if event.Version != version.Next() {
			return version, StreamCorruptionError{Stream: stream, Expected: version.Next(), Actual: event.Version}
		}

		if reducer := r.Reducers[event.EventType]; reducer != nil {
			evt := event
			if err := reducer.Reduce(state, &evt); err != nil {
				return version, errors.Wrap(err, fmt.Sprintf("failed to reduce %s", event.EventType))
			}
		}

		version = event.Version
	}

	return version, nil
}
