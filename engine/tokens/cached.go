package tokens

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
)

// Cached decorates an expensive counter (in practice the BPE-backed one)
// with an in-process ristretto cache keyed by the text itself. Counting the
// same span twice is common: bounds enforcement and assembly both measure
// segments that overlap injection barely changes.
type Cached struct {
	inner Counter
	cache *ristretto.Cache[string, int]
}

// NewCached wraps inner with a cache holding up to maxEntries counts.
func NewCached(inner Counter, maxEntries int64) (*Cached, error) {
	if inner == nil {
		return nil, fmt.Errorf("tokens: cached counter requires an inner counter")
	}
	if maxEntries <= 0 {
		maxEntries = 4096
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, int]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("tokens: failed to create count cache: %w", err)
	}
	return &Cached{inner: inner, cache: cache}, nil
}

func (c *Cached) Count(text string) int {
	if n, ok := c.cache.Get(text); ok {
		return n
	}
	n := c.inner.Count(text)
	c.cache.Set(text, n, 1)
	return n
}

// Close releases the cache's internal goroutines.
func (c *Cached) Close() {
	c.cache.Close()
}
