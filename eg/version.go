package eg

import "strconv"

// Version is the monotonic, per-stream event sequence. A stream with no
// events is at InitialVersion; the first event is version 1.
type Version int64

const InitialVersion = Version(0)

func (v Version) Next() Version {
	return v + 1
}

func (v Version) String() string {
	return strconv.FormatInt(int64(v), 10)
}

// Position orders events across streams within a tenant. Positions are
// strictly increasing in append order; gaps are permitted.
type Position int64

const InitialPosition = Position(0)

func (p Position) String() string {
	return strconv.FormatInt(int64(p), 10)
}
