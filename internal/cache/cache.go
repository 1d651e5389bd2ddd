package cache

import "sync"

const (
	// DefaultMaxSize is the entry count above which Compact truncates
	DefaultMaxSize = 100

	// DefaultKeep is how many of the newest entries Compact retains
	DefaultKeep = 50
)

// Cache memoizes converted descriptions keyed by their exact location.
// Entries are never invalidated by content change, only truncated in bulk
// by Compact, which keeps the most recently inserted entries.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]V
	order   []string // insertion order, oldest first
}

// New creates an empty cache
func New[V any]() *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]V),
	}
}

// Get returns the value cached for location
func (c *Cache[V]) Get(location string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.entries[location]
	return v, ok
}

// Put stores value under location. Overwriting an existing key keeps the
// key's original insertion position.
func (c *Cache[V]) Put(location string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[location]; !exists {
		c.order = append(c.order, location)
	}
	c.entries[location] = value
}

// Len returns the number of cached entries
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys returns the cached locations in insertion order
func (c *Cache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, len(c.order))
	copy(keys, c.order)
	return keys
}

// Compact retains only the keep most recently inserted entries when the
// cache holds more than maxSize entries. It returns how many were evicted.
func (c *Cache[V]) Compact(maxSize, keep int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.order) <= maxSize {
		return 0
	}
	if keep < 0 {
		keep = 0
	}
	if keep > len(c.order) {
		keep = len(c.order)
	}

	cut := len(c.order) - keep
	for _, key := range c.order[:cut] {
		delete(c.entries, key)
	}

	kept := make([]string, keep)
	copy(kept, c.order[cut:])
	c.order = kept

	return cut
}
