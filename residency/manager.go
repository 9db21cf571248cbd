// Package residency implements the LRU byte-budgeted registry described in
// spec.md §3/§4 ("Residency entry") and §8 ("LRU residency bound"): the sum
// of tracked byte sizes never exceeds the configured budget, and when it
// would, the least-recently-touched entries are evicted first.
//
// Grounded on gogpu-gg's internal/gpu/memory.go MemoryManager, generalized
// from *GPUTexture-specific tracking to an arbitrary comparable key with a
// caller-supplied eviction callback (spec.md requires a callback per entry;
// the teacher file just calls tex.Close() directly on the one type it knows
// about).
package residency

import (
	"container/list"
	"errors"
	"sync"
	"time"
)

// ErrBudgetExceeded is returned when a single entry's size alone exceeds the
// configured budget — no amount of eviction can make room for it.
var ErrBudgetExceeded = errors.New("residency: entry size exceeds total budget")

type entry[K comparable] struct {
	key       K
	size      uint64
	lastUsed  time.Time
	onEvict   func()
	element   *list.Element
}

// Manager tracks byte-sized resources keyed by K (e.g. a tile coordinate, a
// texture atlas fingerprint) and evicts least-recently-touched entries to
// stay within budget. Safe for concurrent use.
type Manager[K comparable] struct {
	mu sync.Mutex

	budgetBytes uint64
	usedBytes   uint64

	entries map[K]*entry[K]
	lru     *list.List // front = most recently used

	evictionCount uint64
}

// NewManager creates a Manager with the given byte budget.
func NewManager[K comparable](budgetBytes uint64) *Manager[K] {
	return &Manager[K]{
		budgetBytes: budgetBytes,
		entries:     make(map[K]*entry[K]),
		lru:         list.New(),
	}
}

// Register adds a new resident entry of the given byte size, evicting
// least-recently-used entries first if needed to stay within budget.
// onEvict is invoked exactly once, when this entry is evicted or explicitly
// released — never on Register itself.
func (m *Manager[K]) Register(key K, size uint64, onEvict func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if size > m.budgetBytes {
		return ErrBudgetExceeded
	}

	if old, ok := m.entries[key]; ok {
		m.removeLocked(old)
	}

	m.evictForSpaceLocked(size)

	e := &entry[K]{key: key, size: size, lastUsed: time.Now(), onEvict: onEvict}
	e.element = m.lru.PushFront(e)
	m.entries[key] = e
	m.usedBytes += size
	return nil
}

// Touch marks key as most-recently-used. No-op if key isn't registered.
func (m *Manager[K]) Touch(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return
	}
	e.lastUsed = time.Now()
	m.lru.MoveToFront(e.element)
}

// Release explicitly evicts key, invoking its eviction callback.
func (m *Manager[K]) Release(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return
	}
	m.removeLocked(e)
	m.evictionCount++
	if e.onEvict != nil {
		e.onEvict()
	}
}

// SetBudget updates the byte budget, evicting entries immediately if the new
// budget is lower than current usage.
func (m *Manager[K]) SetBudget(budgetBytes uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.budgetBytes = budgetBytes
	m.evictForSpaceLocked(0)
}

// UsedBytes returns the current tracked byte total.
func (m *Manager[K]) UsedBytes() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usedBytes
}

// BudgetBytes returns the current byte budget.
func (m *Manager[K]) BudgetBytes() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.budgetBytes
}

// EvictionCount returns the total number of entries evicted over this
// Manager's lifetime (LRU pressure evictions and explicit Release calls).
func (m *Manager[K]) EvictionCount() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evictionCount
}

// Len returns the number of currently resident entries.
func (m *Manager[K]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// evictForSpaceLocked evicts from the back of the LRU list (least recently
// used first) until usedBytes+pending fits within budgetBytes.
func (m *Manager[K]) evictForSpaceLocked(pending uint64) {
	for m.usedBytes+pending > m.budgetBytes && m.lru.Len() > 0 {
		back := m.lru.Back()
		e, ok := back.Value.(*entry[K])
		if !ok {
			m.lru.Remove(back)
			continue
		}
		m.removeLocked(e)
		m.evictionCount++
		if e.onEvict != nil {
			e.onEvict()
		}
	}
}

// removeLocked detaches e from tracking. Caller must hold mu.
func (m *Manager[K]) removeLocked(e *entry[K]) {
	m.lru.Remove(e.element)
	delete(m.entries, e.key)
	m.usedBytes -= e.size
}
