package eg

import (
	"context"

	"github.com/goccy/go-json"
)

type CommandName string
type Command any

// RemoteCommand is a command arriving over the wire with a serialized
// payload, dispatched by name instead of static type.
type RemoteCommand struct {
	CommandName CommandName `json:"command"`
	Payload     Data        `json:"payload"`
}

func CommandNameOf(command Command) CommandName {
	var name CommandName
	switch cmd := command.(type) {
	case RemoteCommand:
		name = cmd.CommandName
	default:
		name = CommandName(NameOf(command))
	}

	return name
}

// CommandHandler executes the business decision for one command type. It
// must be deterministic and side-effect free: its only output is the list of
// events to append.
type CommandHandler[T any] interface {
	HandleCommand(ctx context.Context, cmd Command, entity Entity[T]) ([]DomainEvent, error)
	HandleRemoteCommand(ctx context.Context, cmd RemoteCommand, entity Entity[T]) ([]DomainEvent, error)
}

type CommandHandlerFunction[T any, C any] func(ctx context.Context, cmd C, entity Entity[T]) ([]DomainEvent, error)

func (f CommandHandlerFunction[T, C]) HandleCommand(ctx context.Context, cmd Command, entity Entity[T]) ([]DomainEvent, error) {
	command, ok := cmd.(C)
	if !ok {
		return nil, UnexpectedCommand(cmd)
	}

	return f(ctx, command, entity)
}

func (f CommandHandlerFunction[T, C]) HandleRemoteCommand(ctx context.Context, cmd RemoteCommand, entity Entity[T]) ([]DomainEvent, error) {
	var command C

	if cmd.Payload.Encoding != JSONEncoding {
		return nil, InvalidEncoding(JSONEncoding, cmd.Payload.Encoding)
	}

	if err := json.UnmarshalContext(ctx, cmd.Payload.Data, &command); err != nil {
		return nil, Invalid("malformed %s payload: %v", cmd.CommandName, err)
	}

	return f(ctx, command, entity)
}

type CommandHandlers[T any] map[CommandName]CommandHandler[T]

func UnexpectedCommand(command Command) error {
	return Invalid("unexpected command %s", CommandNameOf(command))
}
