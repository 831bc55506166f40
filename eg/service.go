package eg

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/kestrelworks/eventguard-go/guard"
)

const tracerName = "eventguard"

// DefaultConflictAttempts bounds the optimistic-concurrency retry loop. This
// is distinct from the guard's transient-fault retry: conflicts re-run the
// whole load-execute-append cycle, they are not I/O retries.
const DefaultConflictAttempts = 3

// Result reports a successfully executed command.
type Result struct {
	Version  Version   `json:"new_version"`
	EventIDs []EventID `json:"event_ids"`
}

// CommandExecutor is the non-generic face of a Service, used by transport
// connectors to route wire commands by aggregate type.
type CommandExecutor interface {
	ExecuteRemote(ctx context.Context, stream StreamID, expected *Version, command RemoteCommand) (Result, error)
}

type ServiceOption[T any] func(service *Service[T])

func WithConflictAttempts[T any](attempts int) ServiceOption[T] {
	return func(s *Service[T]) {
		s.attempts = attempts
	}
}

// Service is the command pipeline for one aggregate type: validate, load,
// execute, append, acknowledge, with a bounded retry of the whole cycle on
// concurrency conflicts.
type Service[T any] struct {
	store      EventStore
	repository *Repository[T]
	dispatcher *RoutedDispatcher[T]
	guard      *guard.Executor
	attempts   int
}

func NewService[T any](
	store EventStore,
	repository *Repository[T],
	handlers CommandHandlers[T],
	executor *guard.Executor,
	options ...ServiceOption[T],
) *Service[T] {
	service := &Service[T]{
		store:      store,
		repository: repository,
		dispatcher: &RoutedDispatcher[T]{Handlers: handlers},
		guard:      executor,
		attempts:   DefaultConflictAttempts,
	}

	for _, option := range options {
		option(service)
	}

	return service
}

func (s *Service[T]) Load(ctx context.Context, stream StreamID) (Entity[T], error) {
	return s.repository.Load(ctx, stream)
}

func (s *Service[T]) Execute(ctx context.Context, stream StreamID, command Command) (Result, error) {
	return s.execute(ctx, stream, nil, command)
}

// ExecuteRemote additionally checks a caller-pinned expected version against
// the loaded head on the first attempt; a mismatch counts as a conflict and
// re-enters the loop at the current version.
func (s *Service[T]) ExecuteRemote(ctx context.Context, stream StreamID, expected *Version, command RemoteCommand) (Result, error) {
	return s.execute(ctx, stream, expected, command)
}

func (s *Service[T]) execute(ctx context.Context, stream StreamID, pinned *Version, command Command) (Result, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "execute command")
	defer span.End()

	if err := validateStream(stream); err != nil {
		return Result{}, err
	}
	if s.dispatcher.Handlers[CommandNameOf(command)] == nil {
		return Result{}, UnknownCommandError{Command: CommandNameOf(command)}
	}

	for attempt := 1; attempt <= s.attempts; attempt++ {
		entity, err := s.repository.Load(ctx, stream)
		if err != nil {
			return Result{}, err
		}

		if pinned != nil && attempt == 1 && *pinned != entity.Version {
			continue
		}

		events, err := s.dispatcher.Dispatch(ctx, entity, command)
		if err != nil {
			return Result{}, err
		}

		if len(events) == 0 {
			return Result{Version: entity.Version}, nil
		}

		appended, err := guard.Do(ctx, s.guard, func(ctx context.Context) (AppendResult, error) {
			return s.store.Append(ctx, stream, entity.Version, Options(), events...)
		})
		if err == nil {
			return Result{Version: appended.Version, EventIDs: appended.EventIDs}, nil
		}
		if !errors.Is(err, ErrConcurrencyConflict) {
			return Result{}, err
		}
	}

	return Result{}, CommandConflictError{Stream: stream, Attempts: s.attempts}
}

func validateStream(stream StreamID) error {
	switch {
	case stream.Tenant == "":
		return Invalid("tenant is required")
	case stream.Type == "":
		return Invalid("aggregate type is required")
	case stream.Key == "":
		return Invalid("aggregate id is required")
	default:
		return nil
	}
}
