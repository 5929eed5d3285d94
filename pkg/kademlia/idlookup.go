// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

package kademlia

import (
	"net"

	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"github.com/stan3984/peas-rf-cp/pkg/ktable"
	"github.com/stan3984/peas-rf-cp/pkg/peerid"
	"github.com/stan3984/peas-rf-cp/pkg/udpsession"
)

var mon = monkit.Package()

// IdLookup is the iterative Kademlia node lookup. It is driven by explicit
// Update/UpdateWait ticks rather than blocking, so a single event loop can
// pump several lookups (and everything else) concurrently.
type IdLookup struct {
	manager *udpsession.Manager
	target  peerid.ID
	self    ktable.Entry
	table   *ktable.Table
	best    *ktable.Table

	visited  map[string]bool
	round    *udpsession.SendHandle[Msg]
	roundSrc map[string]ktable.Entry
	done     bool
}

// New starts a lookup for target, seeding the first round from table's
// current closest entries. table is the shared routing table; it is read
// and mutated as the lookup progresses.
func New(manager *udpsession.Manager, target peerid.ID, self ktable.Entry, table *ktable.Table) *IdLookup {
	l := &IdLookup{
		manager: manager,
		target:  target,
		self:    self,
		table:   table,
		best:    ktable.New(table.K(), target),
		visited: make(map[string]bool),
	}
	l.startRound(table.ClosestTo(2*table.K(), target))
	return l
}

func (l *IdLookup) startRound(entries []ktable.Entry) {
	if len(entries) == 0 {
		l.done = true
		return
	}
	dests := make([]net.Addr, len(entries))
	l.roundSrc = make(map[string]ktable.Entry, len(entries))
	for i, e := range entries {
		dests[i] = e.Addr
		l.roundSrc[e.Addr.String()] = e
	}
	handle, err := udpsession.Send[Msg](l.manager, Lookup(l.target, l.self), dests, ServiceTag)
	if err != nil {
		l.done = true
		return
	}
	l.round = handle
}

// Update advances the in-flight round without blocking.
func (l *IdLookup) Update() {
	defer mon.Task()(nil)(nil)

	if l.done || l.round == nil {
		return
	}
	l.round.Update()
	if l.round.IsDone() {
		l.finishRound()
	}
}

// UpdateWait blocks until the in-flight round finishes, then advances to
// the next round or completion.
func (l *IdLookup) UpdateWait() {
	defer mon.Task()(nil)(nil)

	if l.done || l.round == nil {
		return
	}
	l.round.UpdateWait()
	l.finishRound()
}

func (l *IdLookup) finishRound() {
	for addr, e := range l.roundSrc {
		l.visited[addr] = true
		if l.round.IsDead(e.Addr) {
			l.table.DeleteID(e.ID)
			l.best.DeleteID(e.ID)
			continue
		}
		ans := l.round.GetAnswer(e.Addr)
		for _, cand := range ans.AnswerEntries() {
			if l.visited[cand.Addr.String()] {
				continue
			}
			l.table.Offer(cand)
			l.best.Offer(cand)
		}
	}
	l.round = nil
	l.roundSrc = nil

	top := l.best.ClosestTo(l.table.K()+1, l.target)
	allVisited := true
	var next []ktable.Entry
	for _, e := range top {
		if l.visited[e.Addr.String()] {
			continue
		}
		allVisited = false
		if len(next) < l.table.K() {
			next = append(next, e)
		}
	}
	if allVisited || len(next) == 0 {
		l.done = true
		return
	}
	l.startRound(next)
}

// IsDone reports whether the lookup has converged.
func (l *IdLookup) IsDone() bool {
	return l.done
}

// Answer returns the up-to-k entries closest to the target found during the
// lookup. An entry whose id equals the target is never included, since the
// best-so-far table is owned by the target id. Only meaningful once IsDone
// reports true.
func (l *IdLookup) Answer() []ktable.Entry {
	return l.best.Get(l.table.K())
}
