// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

// Package trackersrv implements the reference tracker server: a small
// UDP service that remembers which addresses have recently announced
// themselves as bootstrap peers for a room.
package trackersrv

import (
	"net"
	"sync"
	"time"
)

// boot is one bootstrap address registered for a room.
type boot struct {
	addr     net.Addr
	lastSeen time.Time
	counter  uint32
}

// Store maps room ids to their registered bootstrap addresses. counter is
// a single strictly increasing sequence shared across every room, so that
// a Lookup cursor from one room is never confused with another's.
type Store struct {
	mu      sync.Mutex
	rooms   map[uint64][]*boot
	counter uint32
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{rooms: make(map[uint64][]*boot)}
}

// Update registers addr as a bootstrap address for room, refreshing its
// last-seen time if it was already registered.
func (s *Store) Update(room uint64, addr net.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, b := range s.rooms[room] {
		if b.addr.String() == addr.String() {
			b.lastSeen = now
			return
		}
	}
	s.counter++
	s.rooms[room] = append(s.rooms[room], &boot{addr: addr, lastSeen: now, counter: s.counter})
}

// Lookup returns the first registered address for room whose counter is
// strictly greater than after, so that repeated calls with the previously
// returned counter page forward without repeats.
func (s *Store) Lookup(room uint64, after uint32) (addr net.Addr, counter uint32, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.rooms[room] {
		if b.counter > after {
			return b.addr, b.counter, true
		}
	}
	return nil, 0, false
}

// RemoveOld discards every registration whose last-seen time is older than
// thres relative to now, and drops any room left with no registrations.
func (s *Store) RemoveOld(thres time.Duration, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for room, boots := range s.rooms {
		kept := boots[:0]
		for _, b := range boots {
			if now.Sub(b.lastSeen) <= thres {
				kept = append(kept, b)
			}
		}
		if len(kept) == 0 {
			delete(s.rooms, room)
		} else {
			s.rooms[room] = kept
		}
	}
}
