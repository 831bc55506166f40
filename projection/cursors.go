package projection

import (
	"context"
	"sync"

	"github.com/kestrelworks/eventguard-go/eg"
)

type cursorKey struct {
	projection string
	tenant     eg.TenantID
}

// MemoryCursorStore keeps cursors for the process lifetime. Restarted
// processes replay from the start; projections tolerate that because Apply
// is idempotent.
type MemoryCursorStore struct {
	mu      sync.RWMutex
	cursors map[cursorKey]eg.Position
}

func NewMemoryCursorStore() *MemoryCursorStore {
	return &MemoryCursorStore{
		cursors: make(map[cursorKey]eg.Position),
	}
}

func (s *MemoryCursorStore) Load(_ context.Context, projection string, tenant eg.TenantID) (eg.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cursors[cursorKey{projection: projection, tenant: tenant}], nil
}

func (s *MemoryCursorStore) Save(_ context.Context, projection string, tenant eg.TenantID, position eg.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursors[cursorKey{projection: projection, tenant: tenant}] = position
	return nil
}
