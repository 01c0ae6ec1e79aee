// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

import (
	"sync"
	"sync/atomic"

	"github.com/saferwall/uadetect/metrics"
)

// generationCache implements the two-generation approximate-LRU of
// §4.E: two maps, active and background. A hit in active returns
// directly; a hit in background promotes the entry to active; a miss
// fetches from fetch and inserts into active. When active reaches
// capacity, background is discarded, active becomes the new
// background, and active starts empty.
//
// Readers may look up concurrently (sync.RWMutex.RLock); insert and
// switch take the exclusive lock, matching §4.E's "short exclusive
// lock on the cache".
type generationCache[K comparable, V any] struct {
	mu         sync.RWMutex
	capacity   int
	active     map[K]V
	background map[K]V

	fetch func(K) (V, error)

	counters *metrics.CacheCounters

	requests, misses, switches int64
}

// newGenerationCache builds a cache of the given capacity, fetching
// on miss via fetch.
func newGenerationCache[K comparable, V any](capacity int, name string, fetch func(K) (V, error)) *generationCache[K, V] {
	return &generationCache[K, V]{
		capacity:   capacity,
		active:     make(map[K]V, capacity),
		background: make(map[K]V),
		fetch:      fetch,
		counters:   metrics.NewCacheCounters(name),
	}
}

// Get returns the value for key, populating the cache on miss.
func (c *generationCache[K, V]) Get(key K) (V, error) {
	c.counters.Requests.Inc()
	atomic.AddInt64(&c.requests, 1)

	c.mu.RLock()
	if v, ok := c.active[key]; ok {
		c.mu.RUnlock()
		return v, nil
	}
	v, ok := c.background[key]
	c.mu.RUnlock()
	if ok {
		c.promote(key, v)
		return v, nil
	}

	c.counters.Misses.Inc()
	atomic.AddInt64(&c.misses, 1)
	fetched, err := c.fetch(key)
	if err != nil {
		var zero V
		return zero, err
	}
	c.insert(key, fetched)
	return fetched, nil
}

// promote moves key from background to active, switching generations
// first if active is already at capacity.
func (c *generationCache[K, V]) promote(key K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.active[key]; ok {
		return
	}
	if len(c.active) >= c.capacity {
		c.switchGenerationLocked()
	}
	c.active[key] = v
}

// insert adds a freshly-fetched value to active, switching
// generations first if active is already at capacity.
func (c *generationCache[K, V]) insert(key K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.active) >= c.capacity {
		c.switchGenerationLocked()
	}
	c.active[key] = v
}

// switchGenerationLocked discards background, promotes active to
// background, and starts a fresh active. Caller must hold c.mu.
func (c *generationCache[K, V]) switchGenerationLocked() {
	c.background = c.active
	c.active = make(map[K]V, c.capacity)
	c.counters.Switches.Inc()
	atomic.AddInt64(&c.switches, 1)
}

// Requests returns the total number of Get calls.
func (c *generationCache[K, V]) Requests() int64 { return atomic.LoadInt64(&c.requests) }

// Misses returns the number of Get calls that missed both
// generations.
func (c *generationCache[K, V]) Misses() int64 { return atomic.LoadInt64(&c.misses) }

// Switches returns the number of generation-switch events.
func (c *generationCache[K, V]) Switches() int64 { return atomic.LoadInt64(&c.switches) }
