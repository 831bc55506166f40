package eg

import (
	"strings"

	"github.com/pkg/errors"
)

type TenantID string

func (t TenantID) String() string {
	return string(t)
}

type EventID string

func (id EventID) String() string {
	return string(id)
}

type EventType string

func (et EventType) String() string {
	return string(et)
}

type CorrelationID string

func (id CorrelationID) String() string {
	return string(id)
}

// StreamID identifies an aggregate's event stream. Streams are partitioned
// by tenant; Type names the aggregate type and Key the aggregate instance.
type StreamID struct {
	Tenant TenantID `json:"tenant"`
	Type   string   `json:"type"`
	Key    string   `json:"key"`
}

type EncodedStreamID string

func (id StreamID) Encode() EncodedStreamID {
	return EncodedStreamID(strings.Join([]string{id.Tenant.String(), id.Type, id.Key}, "."))
}

func (id EncodedStreamID) String() string {
	return string(id)
}

func (id EncodedStreamID) Decode() (*StreamID, error) {
	separated := strings.Split(string(id), ".")
	if len(separated) < 3 {
		return nil, errors.New("expected tenant.type.key in stream id")
	}

	return &StreamID{
		Tenant: TenantID(separated[0]),
		Type:   separated[1],
		Key:    strings.Join(separated[2:], "."),
	}, nil
}

type DomainEvent any

func EventTypeOf(event DomainEvent) EventType {
	return EventType(NameOf(event))
}

type RecordedEventMetadata struct {
	CausationID   EventID       `json:"causationId,omitempty"`
	CorrelationID CorrelationID `json:"correlationId,omitempty"`
}

// RecordedEvent is an event as persisted: immutable, versioned within its
// stream and positioned within its tenant's global append order.
type RecordedEvent struct {
	Stream    StreamID              `json:"stream"`
	EventID   EventID               `json:"id"`
	EventType EventType             `json:"type"`
	Version   Version               `json:"version"`
	Position  Position              `json:"position"`
	Timestamp Timestamp             `json:"timestamp"`
	Metadata  RecordedEventMetadata `json:"metadata"`
	Data      Data                  `json:"data"`
}
