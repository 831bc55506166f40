package guard

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedResult is a last-known-good value held for degraded serving.
type CachedResult struct {
	Value    any
	StoredAt time.Time
}

// FallbackCache keeps recent successful results keyed by call signature.
// It backs the query path only; durability-critical writes have no fallback.
type FallbackCache struct {
	lru *expirable.LRU[string, CachedResult]
}

func NewFallbackCache(size int, ttl time.Duration) *FallbackCache {
	return &FallbackCache{
		lru: expirable.NewLRU[string, CachedResult](size, nil, ttl),
	}
}

func (c *FallbackCache) Put(key string, value any) {
	c.lru.Add(key, CachedResult{Value: value, StoredAt: time.Now()})
}

func (c *FallbackCache) Get(key string) (CachedResult, bool) {
	return c.lru.Get(key)
}
