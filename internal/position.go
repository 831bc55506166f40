package internal

import (
	"github.com/pkg/errors"

	"github.com/kestrelworks/eventguard-go/eg"
)

// Positions pack a JetStream stream sequence and an index into a change set:
// the sequence in the high bits, the index in the low PositionIndexBits.
// Positions stay monotonic because sequences are monotonic and indexes are
// ordered within a message.
const PositionIndexBits = 12

// MaxChangeSetSize bounds events per append so the index always fits.
const MaxChangeSetSize = 1 << PositionIndexBits

func EncodePosition(sequence uint64, index int) (eg.Position, error) {
	if index < 0 || index >= MaxChangeSetSize {
		return 0, errors.Errorf("change set index %d out of range", index)
	}

	return eg.Position(sequence<<PositionIndexBits | uint64(index)), nil
}

func DecodeSequence(position eg.Position) uint64 {
	return uint64(position) >> PositionIndexBits
}
