package guard

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

type versioned struct {
	snapshot Snapshot
	token    uint64
}

// MemoryStateStore is the single-process StateStore. Entries are created
// lazily on first use and live for the process lifetime.
type MemoryStateStore struct {
	mu      sync.Mutex
	entries map[string]versioned
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		entries: make(map[string]versioned),
	}
}

func (s *MemoryStateStore) Get(name string) (Snapshot, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.entries[name]
	return entry.snapshot, entry.token
}

func (s *MemoryStateStore) CompareAndSwap(name string, token uint64, next Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.entries[name]
	if entry.token != token {
		return false
	}

	s.entries[name] = versioned{snapshot: next, token: token + 1}
	return true
}
