package sharded

import "sync"

type mapShard[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

// Map is a concurrent map keyed by string and split into independently
// locked shards.
type Map[V any] struct {
	shards []*mapShard[V]
}

// NewMap creates a map with numShards shards. numShards must be a power of 2;
// zero or a negative value selects the default.
func NewMap[V any](numShards int) *Map[V] {
	numShards = normalizeShards(numShards)
	m := &Map[V]{shards: make([]*mapShard[V], numShards)}
	for i := range numShards {
		m.shards[i] = &mapShard[V]{items: make(map[string]V)}
	}
	return m
}

func (m *Map[V]) shard(key string) *mapShard[V] {
	return m.shards[shardIndex(key, len(m.shards))]
}

// Store sets the value for key.
func (m *Map[V]) Store(key string, value V) {
	sh := m.shard(key)
	sh.mu.Lock()
	sh.items[key] = value
	sh.mu.Unlock()
}

// Load returns the value for key and whether it was present.
func (m *Map[V]) Load(key string) (V, bool) {
	sh := m.shard(key)
	sh.mu.RLock()
	v, ok := sh.items[key]
	sh.mu.RUnlock()
	return v, ok
}

// Update replaces the value for key with fn(old, ok) while holding the shard
// lock, so read-modify-write sequences on one key are atomic.
func (m *Map[V]) Update(key string, fn func(old V, ok bool) V) {
	sh := m.shard(key)
	sh.mu.Lock()
	old, ok := sh.items[key]
	sh.items[key] = fn(old, ok)
	sh.mu.Unlock()
}

// Len returns the total number of keys.
func (m *Map[V]) Len() int {
	n := 0
	for _, sh := range m.shards {
		sh.mu.RLock()
		n += len(sh.items)
		sh.mu.RUnlock()
	}
	return n
}

// Items returns a copy of the map's contents. The order of iteration over
// the result is not defined.
func (m *Map[V]) Items() map[string]V {
	out := make(map[string]V, m.Len())
	for _, sh := range m.shards {
		sh.mu.RLock()
		for k, v := range sh.items {
			out[k] = v
		}
		sh.mu.RUnlock()
	}
	return out
}
