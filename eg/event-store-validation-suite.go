package eg

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/jaswdr/faker"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)

// NewEventStoreValidationSuite builds the contract test every EventStore
// driver must pass.
func NewEventStoreValidationSuite(ctx context.Context, store EventStore) *EventStoreValidationSuite {
	return &EventStoreValidationSuite{
		store: store,
		ctx:   ctx,
		faker: faker.New(),
	}
}

type EventStoreValidationSuite struct {
	store EventStore
	ctx   context.Context
	faker faker.Faker
}

type StoreValidationEvent struct {
	TestStringValue string `json:"test_string_value"`
	TestIntValue    int    `json:"test_int_value"`
}

func (s *EventStoreValidationSuite) Run(t *testing.T) {
	t.Run("reads an empty stream", s.ReadsEmptyStream)
	t.Run("appends a single event", s.AppendsSingleEvent)
	t.Run("appends multiple events atomically", s.AppendsMultipleEvents)
	t.Run("assigns consecutive versions", s.AssignsConsecutiveVersions)
	t.Run("conflicts on a stale initial version", s.ConflictOnInitialVersion)
	t.Run("conflicts on a stale subsequent version", s.ConflictOnSubsequentVersion)
	t.Run("rejects partial appends on conflict", s.NoPartialAppendOnConflict)
	t.Run("reads the stream from a version", s.ReadsFromVersion)
	t.Run("feeds a tenant in append order", s.FeedsTenantInAppendOrder)
	t.Run("resumes the tenant feed from a position", s.ResumesFeedFromPosition)
	t.Run("isolates tenants", s.IsolatesTenants)
	t.Run("records causation metadata", s.RecordsCausation)
}

func (s *EventStoreValidationSuite) MakeTestStreamID(tenant TenantID) StreamID {
	return StreamID{
		Tenant: tenant,
		Type:   "go-test",
		Key:    ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String(),
	}
}

func (s *EventStoreValidationSuite) MakeTestTenant() TenantID {
	return TenantID("tenant-" + ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String())
}

func (s *EventStoreValidationSuite) MakeTestEvent() StoreValidationEvent {
	return StoreValidationEvent{
		TestStringValue: s.faker.Lorem().Sentence(10),
		TestIntValue:    s.faker.Int(),
	}
}

func (s *EventStoreValidationSuite) MakeTestEvents(count int) []DomainEvent {
	events := make([]DomainEvent, count)
	for i := 0; i < count; i++ {
		events[i] = s.MakeTestEvent()
	}

	return events
}

func (s *EventStoreValidationSuite) ReadsEmptyStream(t *testing.T) {
	stream := s.MakeTestStreamID(s.MakeTestTenant())

	events, err := s.store.ReadStream(s.ctx, stream, InitialVersion)

	require.NoError(t, err)
	assert.Empty(t, events)
}

func (s *EventStoreValidationSuite) AppendsSingleEvent(t *testing.T) {
	stream := s.MakeTestStreamID(s.MakeTestTenant())

	result, err := s.store.Append(s.ctx, stream, InitialVersion, Options(), s.MakeTestEvent())

	require.NoError(t, err)
	assert.Equal(t, Version(1), result.Version)
	assert.Len(t, result.EventIDs, 1)
}

func (s *EventStoreValidationSuite) AppendsMultipleEvents(t *testing.T) {
	stream := s.MakeTestStreamID(s.MakeTestTenant())
	events := s.MakeTestEvents(17)

	result, err := s.store.Append(s.ctx, stream, InitialVersion, Options(), events...)

	require.NoError(t, err)
	assert.Equal(t, Version(17), result.Version)
	assert.Len(t, result.EventIDs, 17)

	recorded, err := s.store.ReadStream(s.ctx, stream, InitialVersion)
	require.NoError(t, err)
	assert.Len(t, recorded, 17)
}

func (s *EventStoreValidationSuite) AssignsConsecutiveVersions(t *testing.T) {
	stream := s.MakeTestStreamID(s.MakeTestTenant())

	first, err := s.store.Append(s.ctx, stream, InitialVersion, Options(), s.MakeTestEvents(3)...)
	require.NoError(t, err)

	second, err := s.store.Append(s.ctx, stream, first.Version, Options(), s.MakeTestEvents(2)...)
	require.NoError(t, err)
	assert.Equal(t, Version(5), second.Version)

	recorded, err := s.store.ReadStream(s.ctx, stream, InitialVersion)
	require.NoError(t, err)
	require.Len(t, recorded, 5)
	for i, event := range recorded {
		assert.Equal(t, Version(i+1), event.Version)
		assert.Equal(t, stream, event.Stream)
	}
}

func (s *EventStoreValidationSuite) ConflictOnInitialVersion(t *testing.T) {
	stream := s.MakeTestStreamID(s.MakeTestTenant())

	_, err := s.store.Append(s.ctx, stream, InitialVersion, Options(), s.MakeTestEvent())
	require.NoError(t, err)

	_, err = s.store.Append(s.ctx, stream, InitialVersion, Options(), s.MakeTestEvent())
	assert.True(t, errors.Is(err, ErrConcurrencyConflict))
}

func (s *EventStoreValidationSuite) ConflictOnSubsequentVersion(t *testing.T) {
	stream := s.MakeTestStreamID(s.MakeTestTenant())

	first, err := s.store.Append(s.ctx, stream, InitialVersion, Options(), s.MakeTestEvent())
	require.NoError(t, err)

	_, err = s.store.Append(s.ctx, stream, first.Version, Options(), s.MakeTestEvent())
	require.NoError(t, err)

	_, err = s.store.Append(s.ctx, stream, first.Version, Options(), s.MakeTestEvent())
	assert.True(t, errors.Is(err, ErrConcurrencyConflict))
}

func (s *EventStoreValidationSuite) NoPartialAppendOnConflict(t *testing.T) {
	stream := s.MakeTestStreamID(s.MakeTestTenant())

	_, err := s.store.Append(s.ctx, stream, InitialVersion, Options(), s.MakeTestEvent())
	require.NoError(t, err)

	_, err = s.store.Append(s.ctx, stream, InitialVersion, Options(), s.MakeTestEvents(5)...)
	require.True(t, errors.Is(err, ErrConcurrencyConflict))

	recorded, err := s.store.ReadStream(s.ctx, stream, InitialVersion)
	require.NoError(t, err)
	assert.Len(t, recorded, 1)
}

func (s *EventStoreValidationSuite) ReadsFromVersion(t *testing.T) {
	stream := s.MakeTestStreamID(s.MakeTestTenant())

	_, err := s.store.Append(s.ctx, stream, InitialVersion, Options(), s.MakeTestEvents(4)...)
	require.NoError(t, err)

	recorded, err := s.store.ReadStream(s.ctx, stream, Version(2))
	require.NoError(t, err)
	require.Len(t, recorded, 2)
	assert.Equal(t, Version(3), recorded[0].Version)
	assert.Equal(t, Version(4), recorded[1].Version)
}

func (s *EventStoreValidationSuite) FeedsTenantInAppendOrder(t *testing.T) {
	tenant := s.MakeTestTenant()
	first := s.MakeTestStreamID(tenant)
	second := s.MakeTestStreamID(tenant)

	_, err := s.store.Append(s.ctx, first, InitialVersion, Options(), s.MakeTestEvents(2)...)
	require.NoError(t, err)
	_, err = s.store.Append(s.ctx, second, InitialVersion, Options(), s.MakeTestEvent())
	require.NoError(t, err)
	_, err = s.store.Append(s.ctx, first, Version(2), Options(), s.MakeTestEvent())
	require.NoError(t, err)

	feed, err := s.store.ReadAll(s.ctx, tenant, InitialPosition, 100)
	require.NoError(t, err)
	require.Len(t, feed, 4)

	for i := 1; i < len(feed); i++ {
		assert.Greater(t, feed[i].Position, feed[i-1].Position)
	}
	assert.Equal(t, first, feed[0].Stream)
	assert.Equal(t, second, feed[2].Stream)
	assert.Equal(t, first, feed[3].Stream)
}

func (s *EventStoreValidationSuite) ResumesFeedFromPosition(t *testing.T) {
	tenant := s.MakeTestTenant()
	stream := s.MakeTestStreamID(tenant)

	_, err := s.store.Append(s.ctx, stream, InitialVersion, Options(), s.MakeTestEvents(5)...)
	require.NoError(t, err)

	head, err := s.store.ReadAll(s.ctx, tenant, InitialPosition, 2)
	require.NoError(t, err)
	require.Len(t, head, 2)

	tail, err := s.store.ReadAll(s.ctx, tenant, head[1].Position, 100)
	require.NoError(t, err)
	require.Len(t, tail, 3)
	assert.Greater(t, tail[0].Position, head[1].Position)

	caughtUp, err := s.store.ReadAll(s.ctx, tenant, tail[2].Position, 100)
	require.NoError(t, err)
	assert.Empty(t, caughtUp)
}

func (s *EventStoreValidationSuite) IsolatesTenants(t *testing.T) {
	one := s.MakeTestTenant()
	two := s.MakeTestTenant()

	_, err := s.store.Append(s.ctx, s.MakeTestStreamID(one), InitialVersion, Options(), s.MakeTestEvent())
	require.NoError(t, err)

	feed, err := s.store.ReadAll(s.ctx, two, InitialPosition, 100)
	require.NoError(t, err)
	assert.Empty(t, feed)
}

func (s *EventStoreValidationSuite) RecordsCausation(t *testing.T) {
	stream := s.MakeTestStreamID(s.MakeTestTenant())
	cause := EventID(ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String())

	_, err := s.store.Append(s.ctx, stream, InitialVersion,
		Options(WithCausation(cause), WithCorrelation("validation")),
		s.MakeTestEvent(),
	)
	require.NoError(t, err)

	recorded, err := s.store.ReadStream(s.ctx, stream, InitialVersion)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, cause, recorded[0].Metadata.CausationID)
	assert.Equal(t, CorrelationID("validation"), recorded[0].Metadata.CorrelationID)
}
