// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

package ktable

import (
	"math/rand"
	"sync"

	"github.com/stan3984/peas-rf-cp/pkg/peerid"
)

// bucketCount matches the 64 bits of an ID: bucket i holds entries whose id
// shares exactly i leading bits with the table's owner.
const bucketCount = 64

// Table is a Kademlia routing table keyed by common-prefix length with an
// owner id. All exported methods are safe for concurrent use: Table is
// shared by the Kademlia handler, the broadcast manager, and every live
// IdLookup, each holding the lock only for the duration of one call.
type Table struct {
	mu      sync.Mutex
	k       int
	owner   peerid.ID
	buckets [bucketCount][]Entry
}

// New creates an empty Table for owner with bucket capacity k.
func New(k int, owner peerid.ID) *Table {
	if k <= 0 {
		panic("ktable: k must be > 0")
	}
	return &Table{k: k, owner: owner}
}

// Owner returns the table's own id.
func (t *Table) Owner() peerid.ID {
	return t.owner
}

// K returns the configured bucket capacity.
func (t *Table) K() int {
	return t.k
}

// Offer inserts entry if its bucket has room and it is not already present.
// Offering the owner's own id is a no-op.
func (t *Table) Offer(entry Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.offerLocked(entry)
}

func (t *Table) offerLocked(entry Entry) {
	if entry.ID == t.owner {
		return
	}
	bucket, pos, found := t.locate(entry.ID)
	if found {
		return
	}
	if len(t.buckets[bucket]) < t.k {
		t.buckets[bucket] = insertAt(t.buckets[bucket], pos, entry)
	}
}

// OfferReplace inserts entry like Offer, but if the bucket is already full
// it evicts the farthest entry (the tail, since buckets are kept sorted
// ascending by distance from owner) to make room.
func (t *Table) OfferReplace(entry Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entry.ID == t.owner {
		return
	}
	bucket, pos, found := t.locate(entry.ID)
	if found {
		return
	}
	t.buckets[bucket] = insertAt(t.buckets[bucket], pos, entry)
	if len(t.buckets[bucket]) > t.k {
		b := t.buckets[bucket]
		t.buckets[bucket] = b[:len(b)-1]
	}
}

// DeleteID removes the entry with the given id, if any.
func (t *Table) DeleteID(id peerid.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id == t.owner {
		return
	}
	bucket, pos, found := t.locate(id)
	if found {
		t.buckets[bucket] = append(t.buckets[bucket][:pos], t.buckets[bucket][pos+1:]...)
	}
}

// DeleteEntry removes entry by its id.
func (t *Table) DeleteEntry(entry Entry) {
	t.DeleteID(entry.ID)
}

// Get returns up to n entries, scanning buckets in descending prefix order
// (from bucket 63, the entries nearest the owner, down to bucket 0), so that
// the most specific buckets are exhausted first.
func (t *Table) Get(n int) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	result := make([]Entry, 0, n)
	for i := bucketCount - 1; i >= 0; i-- {
		for _, e := range t.buckets[i] {
			result = append(result, e)
			if len(result) == n {
				return result
			}
		}
	}
	return result
}

// ClosestTo returns up to n entries sorted ascending by XOR distance to
// target.
func (t *Table) ClosestTo(n int, target peerid.ID) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	result := make([]Entry, 0, n)
	for _, bucket := range t.buckets {
		for _, e := range bucket {
			pos := 0
			dist := e.ID.Distance(target)
			for pos < len(result) && result[pos].ID.Distance(target) <= dist {
				pos++
			}
			if pos <= n {
				result = insertAt(result, pos, e)
			}
			if len(result) > n {
				result = result[:len(result)-1]
			}
		}
	}
	return result
}

// Random picks a uniformly random entry weighted by bucket occupancy
// (equivalently, a uniformly random entry across the whole table). Returns
// false if the table is empty.
func (t *Table) Random() (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	total := 0
	for _, bucket := range t.buckets {
		total += len(bucket)
	}
	if total == 0 {
		return Entry{}, false
	}

	n := rand.Intn(total)
	for _, bucket := range t.buckets {
		if n < len(bucket) {
			return bucket[n], true
		}
		n -= len(bucket)
	}
	panic("ktable: random selection fell through, table accounting is broken")
}

// Len returns the total number of entries across all buckets.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, bucket := range t.buckets {
		n += len(bucket)
	}
	return n
}

// locate finds the bucket index and, within that bucket, the sorted
// insertion position for id's distance from owner. found reports whether an
// entry with this exact id is already present at that position.
func (t *Table) locate(id peerid.ID) (bucket, pos int, found bool) {
	bucket = t.owner.CommonBits(id)
	dist := t.owner.Distance(id)
	b := t.buckets[bucket]
	for pos < len(b) {
		d := t.owner.Distance(b[pos].ID)
		if dist > d {
			pos++
		} else if dist == d {
			found = true
			break
		} else {
			break
		}
	}
	return bucket, pos, found
}

func insertAt(s []Entry, pos int, e Entry) []Entry {
	s = append(s, Entry{})
	copy(s[pos+1:], s[pos:])
	s[pos] = e
	return s
}
