package eg

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
)

type Dispatcher[T any] interface {
	Dispatch(ctx context.Context, entity Entity[T], command Command) ([]DomainEvent, error)
}

// RoutedDispatcher routes commands to handlers by command name.
type RoutedDispatcher[T any] struct {
	Handlers CommandHandlers[T]
}

func (d *RoutedDispatcher[T]) Dispatch(ctx context.Context, entity Entity[T], command Command) ([]DomainEvent, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, fmt.Sprintf("dispatch %s", CommandNameOf(command)))
	defer span.End()

	commandName := CommandNameOf(command)
	handler := d.Handlers[commandName]
	if handler == nil {
		return nil, UnknownCommandError{Command: commandName}
	}

	switch cmd := command.(type) {
	case RemoteCommand:
		return handler.HandleRemoteCommand(ctx, cmd, entity)
	default:
		return handler.HandleCommand(ctx, cmd, entity)
	}
}
