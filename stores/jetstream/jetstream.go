// Package jetstream persists event streams in NATS JetStream: one subject
// per stream, one message per atomic change set. Optimistic concurrency maps
// onto the broker's expected-last-sequence-per-subject check, so conflicting
// appends race at the broker, not in this process.
package jetstream

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/kestrelworks/eventguard-go/eg"
	"github.com/kestrelworks/eventguard-go/internal"
)

type EventStoreOption func(*EventStore)

const prefix = "events."

func WithIDGenerator(generator eg.IDGenerator) EventStoreOption {
	return func(store *EventStore) {
		store.ids = generator
	}
}

func WithClock(clock eg.Clock) EventStoreOption {
	return func(store *EventStore) {
		store.clock = clock
	}
}

func NewEventStore(name string, connection *nats.Conn, options ...EventStoreOption) (*EventStore, error) {
	stream, err := connection.JetStream()
	if err != nil {
		return nil, err
	}

	_, err = stream.AddStream(&nats.StreamConfig{
		Name:        name,
		Description: "event streams for " + name,
		Subjects:    []string{prefix + ">"},
	})
	if err != nil {
		return nil, err
	}

	store := &EventStore{
		name:    name,
		manager: stream,
		stream:  stream,
	}

	for _, option := range options {
		option(store)
	}

	if store.clock == nil {
		store.clock = eg.SystemClock{}
	}
	if store.ids == nil {
		store.ids = eg.NewIDGenerator(store.clock)
	}
	if store.marshaller == nil {
		store.marshaller = jsonMarshaller{}
	}

	return store, nil
}

type EventStore struct {
	name       string
	manager    nats.JetStreamManager
	stream     nats.JetStream
	clock      eg.Clock
	ids        eg.IDGenerator
	marshaller Marshaller
}

func subject(stream eg.StreamID) string {
	return prefix + stream.Encode().String()
}

func tenantSubject(tenant eg.TenantID) string {
	return prefix + tenant.String() + ".>"
}

func (es *EventStore) Append(ctx context.Context, stream eg.StreamID, expected eg.Version, options eg.AppendOptions, events ...eg.DomainEvent) (eg.AppendResult, error) {
	if len(events) == 0 {
		return eg.AppendResult{}, errors.New("append requires at least one event")
	}
	if len(events) > internal.MaxChangeSetSize {
		return eg.AppendResult{}, errors.Errorf("change set exceeds %d events", internal.MaxChangeSetSize)
	}

	head, sequence, err := es.head(ctx, subject(stream))
	if err != nil {
		return eg.AppendResult{}, err
	}
	if head != expected {
		return eg.AppendResult{}, errors.Wrap(eg.ErrConcurrencyConflict, stream.Encode().String())
	}

	ids := make([]eg.EventID, len(events))
	records := make([]EventRecord, len(events))
	for index, event := range events {
		data, err := eg.MarshalToData(event)
		if err != nil {
			return eg.AppendResult{}, err
		}

		ids[index] = es.ids.Create()
		records[index] = EventRecord{
			EventID:   ids[index],
			EventType: eg.EventTypeOf(event),
			Data:      data,
			Metadata:  options.Metadata,
		}
	}

	changeSet := ChangeSet{
		Stream:       stream,
		FirstVersion: expected.Next(),
		LastVersion:  expected + eg.Version(len(events)),
		Events:       records,
	}
	payload, err := es.marshaller.Marshal(changeSet)
	if err != nil {
		return eg.AppendResult{}, err
	}

	opts := []nats.PubOpt{
		nats.Context(ctx),
		nats.ExpectLastSequencePerSubject(sequence),
	}

	_, err = es.stream.Publish(subject(stream), payload, opts...)
	if err != nil {
		if api, ok := err.(*nats.APIError); ok {
			if api.ErrorCode == nats.JSErrCodeStreamWrongLastSequence {
				return eg.AppendResult{}, errors.Wrap(eg.ErrConcurrencyConflict, stream.Encode().String())
			}
		}
		return eg.AppendResult{}, err
	}

	return eg.AppendResult{Version: changeSet.LastVersion, EventIDs: ids}, nil
}

func (es *EventStore) ReadStream(ctx context.Context, stream eg.StreamID, from eg.Version) ([]eg.RecordedEvent, error) {
	var events []eg.RecordedEvent

	err := es.read(ctx, subject(stream), nats.DeliverAll(), func(recorded eg.RecordedEvent) bool {
		if recorded.Version > from {
			events = append(events, recorded)
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	return events, nil
}

func (es *EventStore) ReadAll(ctx context.Context, tenant eg.TenantID, from eg.Position, limit int) ([]eg.RecordedEvent, error) {
	start := nats.DeliverAll()
	if from > eg.InitialPosition {
		start = nats.StartSequence(internal.DecodeSequence(from))
	}

	var events []eg.RecordedEvent
	err := es.read(ctx, tenantSubject(tenant), start, func(recorded eg.RecordedEvent) bool {
		if recorded.Position <= from {
			return true
		}

		events = append(events, recorded)
		return limit <= 0 || len(events) < limit
	})
	if err != nil {
		return nil, err
	}

	return events, nil
}

// head returns the stream's current version and the sequence of the message
// holding it.
func (es *EventStore) head(ctx context.Context, subject string) (eg.Version, uint64, error) {
	msg, err := es.latest(ctx, subject)
	if err != nil {
		return eg.InitialVersion, 0, err
	}
	if msg == nil {
		return eg.InitialVersion, 0, nil
	}

	changeSet := &ChangeSet{}
	if err := es.marshaller.Unmarshal(msg.Data, changeSet); err != nil {
		return eg.InitialVersion, 0, err
	}

	return changeSet.LastVersion, msg.Sequence, nil
}

func (es *EventStore) latest(_ context.Context, subject string) (*nats.RawStreamMsg, error) {
	msg, err := es.manager.GetLastMsg(es.name, subject)
	if err != nil {
		if errors.Is(err, nats.ErrMsgNotFound) {
			return nil, nil
		}

		return nil, err
	}

	return msg, nil
}

// read walks a subject's messages in order, invoking visit for each recorded
// event until the subject's current head or until visit returns false.
func (es *EventStore) read(ctx context.Context, subject string, start nats.SubOpt, visit func(eg.RecordedEvent) bool) error {
	last, err := es.latest(ctx, subject)
	if err != nil {
		return err
	}
	if last == nil {
		return nil
	}

	subscription, err := es.stream.SubscribeSync(subject, start, nats.OrderedConsumer())
	if err != nil {
		return err
	}
	defer func(subscription *nats.Subscription) {
		if err := subscription.Unsubscribe(); err != nil {
			log.Err(err).Msg("ephemeral stream subscription failed to unsubscribe cleanly")
		}
	}(subscription)

	for {
		msg, err := subscription.NextMsgWithContext(ctx)
		if err != nil {
			return err
		}

		metadata, err := msg.Metadata()
		if err != nil {
			return err
		}

		recorded, err := es.decodeChangeSet(msg.Data, metadata)
		if err != nil {
			return err
		}

		for _, event := range recorded {
			if !visit(event) {
				return nil
			}
		}

		if metadata.Sequence.Stream >= last.Sequence {
			return nil
		}
	}
}

func (es *EventStore) decodeChangeSet(data []byte, metadata *nats.MsgMetadata) ([]eg.RecordedEvent, error) {
	changeSet := &ChangeSet{}
	if err := es.marshaller.Unmarshal(data, changeSet); err != nil {
		return nil, err
	}

	timestamp := eg.TimestampFromTime(metadata.Timestamp)

	result := make([]eg.RecordedEvent, len(changeSet.Events))
	for i, event := range changeSet.Events {
		position, err := internal.EncodePosition(metadata.Sequence.Stream, i)
		if err != nil {
			return nil, err
		}

		result[i] = eg.RecordedEvent{
			Stream:    changeSet.Stream,
			EventID:   event.EventID,
			EventType: event.EventType,
			Version:   changeSet.FirstVersion + eg.Version(i),
			Position:  position,
			Timestamp: timestamp,
			Metadata:  event.Metadata,
			Data:      event.Data,
		}
	}

	return result, nil
}
