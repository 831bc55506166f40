package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelworks/eventguard-go/eg"
)

func TestPositionsAreMonotonic(t *testing.T) {
	first, err := EncodePosition(7, MaxChangeSetSize-1)
	require.NoError(t, err)

	second, err := EncodePosition(8, 0)
	require.NoError(t, err)

	assert.Greater(t, second, first, "a later message outranks the last index of the previous one")
}

func TestEncodePositionAcceptsFullChangeSet(t *testing.T) {
	position, err := EncodePosition(3, MaxChangeSetSize-1)

	require.NoError(t, err)
	assert.Equal(t, uint64(3), DecodeSequence(position))
}

func TestEncodePositionRejectsOutOfRangeIndexes(t *testing.T) {
	_, err := EncodePosition(3, MaxChangeSetSize)
	assert.Error(t, err)

	_, err = EncodePosition(3, -1)
	assert.Error(t, err)
}

func TestDecodeSequenceRoundTrips(t *testing.T) {
	for _, sequence := range []uint64{1, 42, 1 << 40} {
		position, err := EncodePosition(sequence, 5)
		require.NoError(t, err)
		assert.Equal(t, sequence, DecodeSequence(position))
		assert.Greater(t, position, eg.InitialPosition)
	}
}
