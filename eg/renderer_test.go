package eg

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tally struct {
	Count int
}

type bumped struct {
	By int `json:"by"`
}

func (bumped) TypeName() string {
	return "tally:bumped"
}

func tallyReducers() Reducers[tally] {
	var reducer ReducerFunction[tally, bumped] = func(state *tally, evt *bumped) error {
		state.Count += evt.By
		return nil
	}

	return Reducers[tally]{"tally:bumped": reducer}
}

func recordedBump(stream StreamID, version Version, by int) RecordedEvent {
	data, err := MarshalToData(bumped{By: by})
	if err != nil {
		panic(err)
	}

	return RecordedEvent{
		Stream:    stream,
		EventID:   EventID(version.String()),
		EventType: "tally:bumped",
		Version:   version,
		Position:  Position(version),
		Data:      data,
	}
}

func TestRendererFoldsInVersionOrder(t *testing.T) {
	stream := StreamID{Tenant: "t1", Type: "tally", Key: "a"}
	renderer := &Renderer[tally]{Reducers: tallyReducers()}

	entity, err := renderer.Render(context.Background(), stream, []RecordedEvent{
		recordedBump(stream, 1, 2),
		recordedBump(stream, 2, 3),
		recordedBump(stream, 3, 5),
	})

	require.NoError(t, err)
	assert.Equal(t, Version(3), entity.Version)
	assert.Equal(t, 10, entity.State.Count)
	assert.True(t, entity.Initialized())
}

func TestRendererSkipsUnknownEventsButCountsThem(t *testing.T) {
	stream := StreamID{Tenant: "t1", Type: "tally", Key: "a"}
	renderer := &Renderer[tally]{Reducers: tallyReducers()}

	unknown := recordedBump(stream, 2, 100)
	unknown.EventType = "tally:ignored"

	entity, err := renderer.Render(context.Background(), stream, []RecordedEvent{
		recordedBump(stream, 1, 2),
		unknown,
	})

	require.NoError(t, err)
	assert.Equal(t, Version(2), entity.Version)
	assert.Equal(t, 2, entity.State.Count)
}

func TestRendererDetectsVersionGaps(t *testing.T) {
	stream := StreamID{Tenant: "t1", Type: "tally", Key: "a"}
	renderer := &Renderer[tally]{Reducers: tallyReducers()}

	_, err := renderer.Render(context.Background(), stream, []RecordedEvent{
		recordedBump(stream, 1, 2),
		recordedBump(stream, 3, 5),
	})

	var corrupt StreamCorruptionError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, Version(2), corrupt.Expected)
	assert.Equal(t, Version(3), corrupt.Actual)
}

func TestRendererRendersEmptyStream(t *testing.T) {
	stream := StreamID{Tenant: "t1", Type: "tally", Key: "missing"}
	renderer := &Renderer[tally]{Reducers: tallyReducers()}

	entity, err := renderer.Render(context.Background(), stream, nil)

	require.NoError(t, err)
	assert.Equal(t, InitialVersion, entity.Version)
	assert.False(t, entity.Initialized())
	assert.Zero(t, entity.State.Count)
}
