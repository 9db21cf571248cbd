package bindgroup

// Cache holds realized Providers keyed by a caller-supplied comparable
// identifier. Each pipeline in this engine has its own Cache keyed by a
// single gpu.TextureID rather than by a label, so two distinct textures
// that happen to share a debug label never alias the same cache entry.
type Cache[K comparable] struct {
	entries map[K]Provider
}

// NewCache creates an empty Cache.
func NewCache[K comparable]() *Cache[K] {
	return &Cache[K]{entries: make(map[K]Provider)}
}

// Get returns the cached Provider for key, if any.
func (c *Cache[K]) Get(key K) (Provider, bool) {
	p, ok := c.entries[key]
	return p, ok
}

// Put stores p under key, replacing and releasing any previous entry.
func (c *Cache[K]) Put(key K, p Provider) {
	if old, ok := c.entries[key]; ok && old != p {
		old.Release()
	}
	c.entries[key] = p
}

// Evict releases and removes the entry at key, if present.
func (c *Cache[K]) Evict(key K) {
	if p, ok := c.entries[key]; ok {
		p.Release()
		delete(c.entries, key)
	}
}

// Len returns the number of cached entries.
func (c *Cache[K]) Len() int {
	return len(c.entries)
}

// Clear releases and removes every cached entry.
func (c *Cache[K]) Clear() {
	for k, p := range c.entries {
		p.Release()
		delete(c.entries, k)
	}
}

// BufferWrite describes a single GPU buffer write targeting a specific
// binding on a Provider at a given byte offset.
type BufferWrite struct {
	Provider Provider
	Binding  int
	Offset   uint64
	Data     []byte
}
