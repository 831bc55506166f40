package jetstream

import "github.com/goccy/go-json"

// Marshaller controls how change sets are encoded on the wire. The default
// is JSON, matching the event payload envelope.
type Marshaller interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

func WithMarshaller(marshaller Marshaller) EventStoreOption {
	return func(store *EventStore) {
		store.marshaller = marshaller
	}
}

type jsonMarshaller struct{}

func (jsonMarshaller) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonMarshaller) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
