// Package memory provides the reference EventStore: a mutex-guarded,
// tenant-partitioned, append-only log. It backs tests and single-process
// deployments.
package memory

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/kestrelworks/eventguard-go/eg"
)

type StoreOption func(store *Store)

func WithIDGenerator(generator eg.IDGenerator) StoreOption {
	return func(store *Store) {
		store.ids = generator
	}
}

func WithClock(clock eg.Clock) StoreOption {
	return func(store *Store) {
		store.clock = clock
	}
}

func NewStore(options ...StoreOption) *Store {
	store := &Store{
		tenants: make(map[eg.TenantID]*tenantLog),
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

	return store
}

type Store struct {
	mu      sync.RWMutex
	tenants map[eg.TenantID]*tenantLog
	ids     eg.IDGenerator
	clock   eg.Clock
}

type tenantLog struct {
	events   []eg.RecordedEvent
	heads    map[eg.EncodedStreamID]eg.Version
	position eg.Position
}

func (s *Store) Append(ctx context.Context, stream eg.StreamID, expected eg.Version, options eg.AppendOptions, events ...eg.DomainEvent) (eg.AppendResult, error) {
	if err := ctx.Err(); err != nil {
		return eg.AppendResult{}, err
	}
	if len(events) == 0 {
		return eg.AppendResult{}, errors.New("append requires at least one event")
	}

	// Encode before taking the write lock so a marshalling failure leaves
	// the log untouched.
	encoded := make([]eg.Data, len(events))
	types := make([]eg.EventType, len(events))
	for i, event := range events {
		data, err := eg.MarshalToData(event)
		if err != nil {
			return eg.AppendResult{}, err
		}
		encoded[i] = data
		types[i] = eg.EventTypeOf(event)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.tenant(stream.Tenant)
	head := log.heads[stream.Encode()]
	if head != expected {
		return eg.AppendResult{}, errors.Wrap(eg.ErrConcurrencyConflict, stream.Encode().String())
	}

	timestamp := eg.TimestampFromTime(s.clock.Now())
	ids := make([]eg.EventID, len(events))
	version := expected
	for i := range events {
		version = version.Next()
		log.position++
		ids[i] = s.ids.Create()

		log.events = append(log.events, eg.RecordedEvent{
			Stream:    stream,
			EventID:   ids[i],
			EventType: types[i],
			Version:   version,
			Position:  log.position,
			Timestamp: timestamp,
			Metadata:  options.Metadata,
			Data:      encoded[i],
		})
	}
	log.heads[stream.Encode()] = version

	return eg.AppendResult{Version: version, EventIDs: ids}, nil
}

func (s *Store) ReadStream(ctx context.Context, stream eg.StreamID, from eg.Version) ([]eg.RecordedEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.tenants[stream.Tenant]
	if !ok {
		return nil, nil
	}

	var events []eg.RecordedEvent
	for _, event := range log.events {
		if event.Stream == stream && event.Version > from {
			events = append(events, event)
		}
	}

	return events, nil
}

func (s *Store) ReadAll(ctx context.Context, tenant eg.TenantID, from eg.Position, limit int) ([]eg.RecordedEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.tenants[tenant]
	if !ok {
		return nil, nil
	}

	var events []eg.RecordedEvent
	for _, event := range log.events {
		if event.Position <= from {
			continue
		}

		events = append(events, event)
		if limit > 0 && len(events) == limit {
			break
		}
	}

	return events, nil
}

func (s *Store) tenant(id eg.TenantID) *tenantLog {
	log, ok := s.tenants[id]
	if !ok {
		log = &tenantLog{heads: make(map[eg.EncodedStreamID]eg.Version)}
		s.tenants[id] = log
	}

	return log
}
