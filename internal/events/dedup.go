package events

import (
	"sync"

	"github.com/golang/groupcache/lru"
)

// DefaultDedupSize is the number of recent event ids a Dedup remembers.
const DefaultDedupSize = 100

// Dedup is a bounded recency set of event ids. A listener that must not
// process the same logical change twice checks Seen before acting.
type Dedup struct {
	mu    sync.Mutex
	cache *lru.Cache
}

// NewDedup returns a recency set holding up to size ids.
func NewDedup(size int) *Dedup {
	if size <= 0 {
		size = DefaultDedupSize
	}
	return &Dedup{cache: lru.New(size)}
}

// Seen records id and reports whether it had been recorded before. Empty ids
// are never considered seen.
func (d *Dedup) Seen(id string) bool {
	if id == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.cache.Get(id); ok {
		return true
	}
	d.cache.Add(id, struct{}{})
	return false
}

// Len returns the number of remembered ids.
func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cache.Len()
}

// Clear forgets every id.
func (d *Dedup) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache.Clear()
}
