// Package projection maintains denormalized read models by consuming tenant
// event feeds asynchronously. Delivery is at-least-once: a projection's Apply
// must be idempotent, either naturally (upsert by key) or via Deduplicate.
package projection

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kestrelworks/eventguard-go/eg"
)

// Projection is a named read model updated incrementally by applying events
// in per-tenant append order.
type Projection interface {
	Name() string
	Apply(ctx context.Context, event eg.RecordedEvent) error
}

// CursorStore persists the last processed position per projection and
// tenant. A cursor is owned exclusively by its consumer loop.
type CursorStore interface {
	Load(ctx context.Context, projection string, tenant eg.TenantID) (eg.Position, error)
	Save(ctx context.Context, projection string, tenant eg.TenantID, position eg.Position) error
}

// Deduplicate wraps a projection whose mutation is not naturally idempotent
// with an applied-event-id window, absorbing at-least-once redelivery.
func Deduplicate(p Projection, capacity int) Projection {
	seen, err := lru.New[eg.EventID, struct{}](capacity)
	if err != nil {
		panic(err)
	}

	return &deduplicated{inner: p, seen: seen}
}

type deduplicated struct {
	inner Projection
	seen  *lru.Cache[eg.EventID, struct{}]
}

func (d *deduplicated) Name() string {
	return d.inner.Name()
}

func (d *deduplicated) Apply(ctx context.Context, event eg.RecordedEvent) error {
	if _, ok := d.seen.Get(event.EventID); ok {
		return nil
	}

	if err := d.inner.Apply(ctx, event); err != nil {
		return err
	}

	d.seen.Add(event.EventID, struct{}{})
	return nil
}
