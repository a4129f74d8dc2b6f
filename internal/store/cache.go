// Package store provides bounded payload caching using Bloom filters and LRU eviction.
package store

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// PayloadCache is a thread-safe bounded cache for resolved provider payloads.
// A Bloom filter front rejects most unseen keys without touching the LRU, and
// a separate exact set remembers keys that are known to resolve to nothing.
type PayloadCache[V any] struct {
	entries           *lru.Cache[string, V]
	misses            *lru.Cache[string, struct{}]
	bloom             *bloom.BloomFilter
	mutex             sync.RWMutex
	capacity          int
	falsePositiveRate float64
}

// NewPayloadCache creates a payload cache holding at most capacity entries.
func NewPayloadCache[V any](capacity int, falsePositiveRate float64) *PayloadCache[V] {
	if capacity <= 0 || capacity > int(^uint(0)>>1) {
		panic("capacity value out of range")
	}

	entries, _ := lru.New[string, V](capacity)
	misses, _ := lru.New[string, struct{}](capacity)

	return &PayloadCache[V]{
		entries:           entries,
		misses:            misses,
		bloom:             bloom.NewWithEstimates(uint(capacity), falsePositiveRate),
		capacity:          capacity,
		falsePositiveRate: falsePositiveRate,
	}
}

// Get returns the cached payload for key.
func (pc *PayloadCache[V]) Get(key string) (V, bool) {
	pc.mutex.RLock()
	defer pc.mutex.RUnlock()

	if !pc.bloom.TestString(key) {
		var zero V
		return zero, false
	}

	return pc.entries.Get(key)
}

// Put stores a payload under key and clears any recorded miss for it.
func (pc *PayloadCache[V]) Put(key string, value V) {
	pc.mutex.Lock()
	defer pc.mutex.Unlock()

	pc.bloom.AddString(key)
	pc.entries.Add(key, value)
	pc.misses.Remove(key)
}

// MarkMiss records that key is known to resolve to nothing.
func (pc *PayloadCache[V]) MarkMiss(key string) {
	pc.mutex.Lock()
	defer pc.mutex.Unlock()

	pc.misses.Add(key, struct{}{})
}

// KnownMiss reports whether key previously resolved to nothing. Unlike the
// Bloom front this set is exact, so a hit may safely skip a refetch.
func (pc *PayloadCache[V]) KnownMiss(key string) bool {
	pc.mutex.RLock()
	defer pc.mutex.RUnlock()

	return pc.misses.Contains(key)
}

// Size returns the number of cached payloads.
func (pc *PayloadCache[V]) Size() int {
	pc.mutex.RLock()
	defer pc.mutex.RUnlock()

	return pc.entries.Len()
}

// Purge drops all cached payloads and recorded misses.
func (pc *PayloadCache[V]) Purge() {
	pc.mutex.Lock()
	defer pc.mutex.Unlock()

	pc.entries.Purge()
	pc.misses.Purge()
	// The Bloom filter does not support removal, so rebuild it.
	pc.bloom = bloom.NewWithEstimates(uint(pc.capacity), pc.falsePositiveRate)
}
