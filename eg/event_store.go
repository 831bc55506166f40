package eg

import "context"

// AppendOptions carries the non-essential append inputs: causation and
// correlation metadata recorded on every event in the change set.
type AppendOptions struct {
	Metadata RecordedEventMetadata
}

type AppendOption func(options *AppendOptions)

func Options(options ...AppendOption) AppendOptions {
	result := AppendOptions{}
	for _, option := range options {
		option(&result)
	}

	return result
}

func WithCausation(id EventID) AppendOption {
	return func(options *AppendOptions) {
		options.Metadata.CausationID = id
	}
}

func WithCorrelation(id CorrelationID) AppendOption {
	return func(options *AppendOptions) {
		options.Metadata.CorrelationID = id
	}
}

// AppendResult reports a successful append: the stream's new head version
// and the identifiers assigned to the appended events, in order.
type AppendResult struct {
	Version  Version
	EventIDs []EventID
}

// EventStore is the append-only, tenant-partitioned system of record.
//
// Append is atomic: either every supplied event is persisted with
// consecutive versions starting at expected+1, or none are. When the
// stream's stored head differs from expected the call fails with
// ErrConcurrencyConflict; that check is the sole concurrency-control
// mechanism, no locks are held across command execution.
//
// ReadStream returns the stream's events with versions greater than from, in
// strictly increasing, gap-free order. ReadAll returns a batch of a tenant's
// events with positions greater than from, ordered by global append order;
// an empty batch means the reader is caught up.
type EventStore interface {
	Append(ctx context.Context, stream StreamID, expected Version, options AppendOptions, events ...DomainEvent) (AppendResult, error)
	ReadStream(ctx context.Context, stream StreamID, from Version) ([]RecordedEvent, error)
	ReadAll(ctx context.Context, tenant TenantID, from Position, limit int) ([]RecordedEvent, error)
}
