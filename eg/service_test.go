package eg

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelworks/eventguard-go/guard"
)

type bump struct {
	By int `json:"by"`
}

func (bump) TypeName() string {
	return "tally:bump"
}

func tallyHandlers() CommandHandlers[tally] {
	var handler CommandHandlerFunction[tally, bump] = func(ctx context.Context, cmd bump, entity Entity[tally]) ([]DomainEvent, error) {
		if cmd.By == 0 {
			return nil, nil
		}
		if cmd.By < 0 {
			return nil, Rejected("tallies only go up")
		}

		return []DomainEvent{bumped{By: cmd.By}}, nil
	}

	return CommandHandlers[tally]{"tally:bump": handler}
}

// stubStore is an in-process event log with a programmable number of injected
// conflicts. Each injected conflict also lands a competing event, so a reload
// observes a new head version.
type stubStore struct {
	mu        sync.Mutex
	events    []RecordedEvent
	conflicts int
	appends   int
}

func (s *stubStore) headLocked(stream StreamID) Version {
	head := InitialVersion
	for _, event := range s.events {
		if event.Stream == stream && event.Version > head {
			head = event.Version
		}
	}

	return head
}

func (s *stubStore) Append(_ context.Context, stream StreamID, expected Version, _ AppendOptions, events ...DomainEvent) (AppendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.appends++

	if s.conflicts > 0 {
		s.conflicts--
		s.events = append(s.events, recordedBump(stream, s.headLocked(stream).Next(), 1))
		return AppendResult{}, ErrConcurrencyConflict
	}

	if expected != s.headLocked(stream) {
		return AppendResult{}, ErrConcurrencyConflict
	}

	version := expected
	var ids []EventID
	for _, event := range events {
		data, err := MarshalToData(event)
		if err != nil {
			return AppendResult{}, err
		}

		version = version.Next()
		recorded := RecordedEvent{
			Stream:    stream,
			EventID:   EventID(fmt.Sprintf("evt-%d", len(s.events)+1)),
			EventType: EventTypeOf(event),
			Version:   version,
			Position:  Position(len(s.events) + 1),
			Data:      data,
		}
		s.events = append(s.events, recorded)
		ids = append(ids, recorded.EventID)
	}

	return AppendResult{Version: version, EventIDs: ids}, nil
}

func (s *stubStore) ReadStream(_ context.Context, stream StreamID, from Version) ([]RecordedEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []RecordedEvent
	for _, event := range s.events {
		if event.Stream == stream && event.Version > from {
			events = append(events, event)
		}
	}

	return events, nil
}

func (s *stubStore) ReadAll(_ context.Context, tenant TenantID, from Position, limit int) ([]RecordedEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []RecordedEvent
	for _, event := range s.events {
		if event.Stream.Tenant == tenant && event.Position > from {
			events = append(events, event)
			if len(events) == limit {
				break
			}
		}
	}

	return events, nil
}

func instantSleeper(_ context.Context, _ time.Duration) error {
	return nil
}

func testGuard(name string) *guard.Executor {
	return guard.New(name,
		guard.WithRetry(guard.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}),
		guard.WithSleeper(instantSleeper),
	)
}

func tallyService(store EventStore, options ...ServiceOption[tally]) *Service[tally] {
	executor := testGuard("event-store")
	repository := NewRepository[tally](store, tallyReducers(), executor)

	return NewService[tally](store, repository, tallyHandlers(), executor, options...)
}

func TestServiceAppendsAndAcknowledges(t *testing.T) {
	store := &stubStore{}
	service := tallyService(store)
	stream := StreamID{Tenant: "t1", Type: "tally", Key: "a"}

	result, err := service.Execute(context.Background(), stream, bump{By: 2})

	require.NoError(t, err)
	assert.Equal(t, Version(1), result.Version)
	assert.Len(t, result.EventIDs, 1)

	entity, err := service.Load(context.Background(), stream)
	require.NoError(t, err)
	assert.Equal(t, 2, entity.State.Count)
}

func TestServiceRetriesConcurrencyConflicts(t *testing.T) {
	store := &stubStore{conflicts: 1}
	service := tallyService(store)
	stream := StreamID{Tenant: "t1", Type: "tally", Key: "a"}

	result, err := service.Execute(context.Background(), stream, bump{By: 2})

	require.NoError(t, err)
	assert.Equal(t, Version(2), result.Version, "command lands after the competing write")
	assert.Equal(t, 2, store.appends)
}

func TestServiceExhaustsConflictAttempts(t *testing.T) {
	store := &stubStore{conflicts: 10}
	service := tallyService(store, WithConflictAttempts[tally](2))
	stream := StreamID{Tenant: "t1", Type: "tally", Key: "a"}

	_, err := service.Execute(context.Background(), stream, bump{By: 2})

	var conflict CommandConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 2, conflict.Attempts)
	assert.Equal(t, CodeCommandConflict, CodeOf(err))
}

func TestServiceAcknowledgesWithoutAppendWhenNoEvents(t *testing.T) {
	store := &stubStore{}
	service := tallyService(store)
	stream := StreamID{Tenant: "t1", Type: "tally", Key: "a"}

	_, err := service.Execute(context.Background(), stream, bump{By: 3})
	require.NoError(t, err)

	result, err := service.Execute(context.Background(), stream, bump{By: 0})
	require.NoError(t, err)
	assert.Equal(t, Version(1), result.Version, "no-op commands acknowledge at the current version")
	assert.Equal(t, 1, store.appends)
}

func TestServiceReturnsDomainRejections(t *testing.T) {
	store := &stubStore{}
	service := tallyService(store)
	stream := StreamID{Tenant: "t1", Type: "tally", Key: "a"}

	_, err := service.Execute(context.Background(), stream, bump{By: -1})

	var domain DomainError
	require.ErrorAs(t, err, &domain)
	assert.Equal(t, 0, store.appends)
}

func TestServiceValidatesStream(t *testing.T) {
	service := tallyService(&stubStore{})

	_, err := service.Execute(context.Background(), StreamID{Type: "tally", Key: "a"}, bump{By: 1})

	var validation ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestServiceRejectsUnknownCommands(t *testing.T) {
	service := tallyService(&stubStore{})
	stream := StreamID{Tenant: "t1", Type: "tally", Key: "a"}

	_, err := service.Execute(context.Background(), stream, TestCommand{})

	var unknown UnknownCommandError
	require.ErrorAs(t, err, &unknown)
}

func TestServiceRemoteCommandReconcilesStaleExpectedVersion(t *testing.T) {
	store := &stubStore{}
	service := tallyService(store)
	stream := StreamID{Tenant: "t1", Type: "tally", Key: "a"}

	for i := 0; i < 4; i++ {
		_, err := service.Execute(context.Background(), stream, bump{By: 1})
		require.NoError(t, err)
	}

	payload, err := MarshalToData(bump{By: 5})
	require.NoError(t, err)

	pinned := Version(3)
	result, err := service.ExecuteRemote(context.Background(), stream, &pinned, RemoteCommand{
		CommandName: "tally:bump",
		Payload:     payload,
	})

	require.NoError(t, err)
	assert.Equal(t, Version(5), result.Version, "stale pin is treated as a conflict and retried at the head")
}
