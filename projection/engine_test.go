package projection

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelworks/eventguard-go/eg"
	"github.com/kestrelworks/eventguard-go/guard"
	"github.com/kestrelworks/eventguard-go/stores/memory"
)

type ticked struct {
	N int `json:"n"`
}

func (ticked) TypeName() string {
	return "clock:ticked"
}

type recordingProjection struct {
	mu       sync.Mutex
	applied  []eg.RecordedEvent
	attempts map[eg.EventID]int
	failOnce map[eg.EventID]bool
}

func newRecordingProjection() *recordingProjection {
	return &recordingProjection{
		attempts: make(map[eg.EventID]int),
		failOnce: make(map[eg.EventID]bool),
	}
}

func (p *recordingProjection) Name() string {
	return "recording"
}

func (p *recordingProjection) Apply(_ context.Context, event eg.RecordedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.attempts[event.EventID]++
	if p.failOnce[event.EventID] {
		p.failOnce[event.EventID] = false
		return errors.New("read model write failed")
	}

	p.applied = append(p.applied, event)
	return nil
}

func (p *recordingProjection) appliedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.applied)
}

func (p *recordingProjection) attemptsFor(id eg.EventID) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.attempts[id]
}

func projectionGuard() *guard.Executor {
	return guard.New("projection",
		guard.WithRetry(guard.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}),
		guard.WithSleeper(func(_ context.Context, _ time.Duration) error { return nil }),
	)
}

func appendTicks(t *testing.T, store *memory.Store, stream eg.StreamID, count int) []eg.EventID {
	t.Helper()

	var ids []eg.EventID
	version := eg.InitialVersion
	for i := 0; i < count; i++ {
		result, err := store.Append(context.Background(), stream, version, eg.Options(), ticked{N: i + 1})
		require.NoError(t, err)

		version = result.Version
		ids = append(ids, result.EventIDs...)
	}

	return ids
}

func runEngine(t *testing.T, engine *Engine) context.CancelFunc {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = engine.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})

	return cancel
}

func TestEngineAppliesTenantFeedInOrder(t *testing.T) {
	store := memory.NewStore()
	first := eg.StreamID{Tenant: "t1", Type: "clock", Key: "a"}
	second := eg.StreamID{Tenant: "t1", Type: "clock", Key: "b"}

	appendTicks(t, store, first, 2)
	appendTicks(t, store, second, 1)

	recording := newRecordingProjection()
	engine := NewEngine(store, NewMemoryCursorStore(), projectionGuard(),
		WithPollInterval(5*time.Millisecond),
	)
	engine.Subscribe(recording, "t1")

	runEngine(t, engine)

	require.Eventually(t, func() bool { return recording.appliedCount() == 3 }, time.Second, 5*time.Millisecond)

	recording.mu.Lock()
	defer recording.mu.Unlock()
	for i := 1; i < len(recording.applied); i++ {
		assert.Greater(t, recording.applied[i].Position, recording.applied[i-1].Position)
	}
}

func TestEngineResumesFromSavedCursor(t *testing.T) {
	store := memory.NewStore()
	stream := eg.StreamID{Tenant: "t1", Type: "clock", Key: "a"}
	appendTicks(t, store, stream, 3)

	events, err := store.ReadAll(context.Background(), "t1", eg.InitialPosition, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)

	cursors := NewMemoryCursorStore()
	recording := newRecordingProjection()
	require.NoError(t, cursors.Save(context.Background(), recording.Name(), "t1", events[0].Position))

	engine := NewEngine(store, cursors, projectionGuard(), WithPollInterval(5*time.Millisecond))
	engine.Subscribe(recording, "t1")

	runEngine(t, engine)

	require.Eventually(t, func() bool { return recording.appliedCount() == 2 }, time.Second, 5*time.Millisecond)

	recording.mu.Lock()
	defer recording.mu.Unlock()
	assert.Equal(t, events[1].EventID, recording.applied[0].EventID)
	assert.Equal(t, events[2].EventID, recording.applied[1].EventID)
}

func TestEngineRedeliversFailedEvents(t *testing.T) {
	store := memory.NewStore()
	stream := eg.StreamID{Tenant: "t1", Type: "clock", Key: "a"}
	ids := appendTicks(t, store, stream, 3)

	recording := newRecordingProjection()
	recording.failOnce[ids[1]] = true

	engine := NewEngine(store, NewMemoryCursorStore(), projectionGuard(),
		WithPollInterval(5*time.Millisecond),
	)
	engine.Subscribe(recording, "t1")

	runEngine(t, engine)

	require.Eventually(t, func() bool { return recording.appliedCount() == 3 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, recording.attemptsFor(ids[0]), "events before the failure are not replayed")
	assert.Equal(t, 2, recording.attemptsFor(ids[1]), "the failed event is redelivered")
	assert.Equal(t, 1, recording.attemptsFor(ids[2]))
}

func TestEngineIsolatesTenantFeeds(t *testing.T) {
	store := memory.NewStore()
	appendTicks(t, store, eg.StreamID{Tenant: "t1", Type: "clock", Key: "a"}, 2)
	appendTicks(t, store, eg.StreamID{Tenant: "t2", Type: "clock", Key: "a"}, 1)

	recording := newRecordingProjection()
	engine := NewEngine(store, NewMemoryCursorStore(), projectionGuard(),
		WithPollInterval(5*time.Millisecond),
	)
	engine.Subscribe(recording, "t1")

	runEngine(t, engine)

	require.Eventually(t, func() bool { return recording.appliedCount() == 2 }, time.Second, 5*time.Millisecond)

	recording.mu.Lock()
	defer recording.mu.Unlock()
	for _, event := range recording.applied {
		assert.Equal(t, eg.TenantID("t1"), event.Stream.Tenant)
	}
}

func TestDeduplicateAbsorbsRedelivery(t *testing.T) {
	recording := newRecordingProjection()
	deduplicated := Deduplicate(recording, 16)

	event := eg.RecordedEvent{
		Stream:   eg.StreamID{Tenant: "t1", Type: "clock", Key: "a"},
		EventID:  "evt-1",
		Version:  1,
		Position: 1,
	}

	require.NoError(t, deduplicated.Apply(context.Background(), event))
	require.NoError(t, deduplicated.Apply(context.Background(), event))

	assert.Equal(t, 1, recording.appliedCount())
	assert.Equal(t, "recording", deduplicated.Name())
}
