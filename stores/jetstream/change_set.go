package jetstream

import (
	"github.com/kestrelworks/eventguard-go/eg"
)

type EventRecord struct {
	EventID   eg.EventID               `json:"id"`
	EventType eg.EventType             `json:"type"`
	Data      eg.Data                  `json:"data"`
	Metadata  eg.RecordedEventMetadata `json:"metadata"`
}

// ChangeSet is one atomic append, stored as a single message. Versions are
// consecutive: the record at index i has version FirstVersion + i.
type ChangeSet struct {
	Stream       eg.StreamID   `json:"stream"`
	FirstVersion eg.Version    `json:"first_version"`
	LastVersion  eg.Version    `json:"last_version"`
	Events       []EventRecord `json:"events"`
}
