package eg

import (
	"time"

	"github.com/oklog/ulid/v2"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

type IDGenerator interface {
	Create() EventID
}

func NewIDGenerator(clock Clock) IDGenerator {
	if clock == nil {
		clock = SystemClock{}
	}

	return &ulidGenerator{clock: clock}
}

type ulidGenerator struct {
	clock Clock
}

func (g *ulidGenerator) Create() EventID {
	v := ulid.MustNew(ulid.Timestamp(g.clock.Now()), ulid.DefaultEntropy()).String()
	return EventID(v)
}
