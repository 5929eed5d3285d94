// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

// Package dupcache implements the bounded FIFO+set used to suppress gossip
// duplicates by message hash.
package dupcache

import (
	"container/list"
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// foldWidth bounds the bitset used for the fast-reject membership probe; it
// is intentionally much larger than the cache capacity to keep the false
// positive rate (which only ever costs an extra map lookup) low.
const foldWidth = 1 << 20

// Cache is a bounded, insertion-ordered set of uint64 hashes. Eviction
// happens in insertion order once the cache is full.
type Cache struct {
	mu      sync.Mutex
	maxsize int
	order   *list.List
	present map[uint64]*list.Element
	probe   *bitset.BitSet
}

// New creates a Cache holding at most maxsize entries. maxsize must be > 0.
func New(maxsize int) *Cache {
	if maxsize <= 0 {
		panic("dupcache: maxsize must be > 0")
	}
	return &Cache{
		maxsize: maxsize,
		order:   list.New(),
		present: make(map[uint64]*list.Element, maxsize),
		probe:   bitset.New(foldWidth),
	}
}

// Contains reports whether x is currently cached.
func (c *Cache) Contains(x uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contains(x)
}

func (c *Cache) contains(x uint64) bool {
	if !c.probe.Test(fold(x)) {
		return false
	}
	_, ok := c.present[x]
	return ok
}

// Insert adds x to the cache, evicting the oldest entry if the cache is
// full. It returns true if x was newly inserted and false if x was already
// present (a duplicate).
func (c *Cache) Insert(x uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.contains(x) {
		return false
	}

	if c.order.Len() >= c.maxsize {
		oldest := c.order.Front()
		if oldest != nil {
			evicted := oldest.Value.(uint64)
			c.order.Remove(oldest)
			delete(c.present, evicted)
			// the bitset bit for evicted is left set; it is a probabilistic
			// fast-reject only, never the source of truth.
		}
	}

	elem := c.order.PushBack(x)
	c.present[x] = elem
	c.probe.Set(fold(x))
	return true
}

// Len returns the number of entries currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func fold(x uint64) uint {
	return uint((x ^ (x >> 32)) % foldWidth)
}
