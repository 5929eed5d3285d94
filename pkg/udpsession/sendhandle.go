// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

package udpsession

import (
	"net"

	"github.com/stan3984/peas-rf-cp/pkg/udptransport"
)

// SendHandle is the caller-facing side of a Send session: one ticket per
// destination, all sharing a session id. IsDead, GetAnswer and BorrowAnswer
// require the session to be done (all tickets answered or expired) and panic
// otherwise.
type SendHandle[T any] struct {
	rec       chan ticketResponse
	count     int
	all       []net.Addr
	responses map[string]T
}

func (h *SendHandle[T]) process(tr ticketResponse) {
	h.count--
	if tr.payload == nil {
		return
	}
	des, err := udptransport.Unmarshal[T](tr.payload)
	if err != nil {
		return
	}
	h.responses[tr.source.String()] = des
}

// UpdateWait blocks until every ticket in this session has either been
// answered or given up as dead.
func (h *SendHandle[T]) UpdateWait() {
	for h.count > 0 {
		h.process(<-h.rec)
	}
}

// Update drains whatever ticket responses are already available without
// blocking. Call this repeatedly from a poll loop instead of UpdateWait when
// the caller cannot afford to block.
func (h *SendHandle[T]) Update() {
	for h.count > 0 {
		select {
		case tr := <-h.rec:
			h.process(tr)
		default:
			return
		}
	}
}

// IsDone reports whether every ticket in this session has resolved.
func (h *SendHandle[T]) IsDone() bool {
	return h.count == 0
}

// Dests returns every destination this session was sent to.
func (h *SendHandle[T]) Dests() []net.Addr {
	return h.all
}

// IsDead reports whether a did not respond, or responded with something
// that failed to deserialize as T. Panics if the session is not done.
func (h *SendHandle[T]) IsDead(a net.Addr) bool {
	if !h.IsDone() {
		panic("udpsession: IsDead called before session is done")
	}
	_, ok := h.responses[a.String()]
	return !ok
}

// GetAnswer extracts and removes a's answer. Panics if a is dead or the
// session is not done.
func (h *SendHandle[T]) GetAnswer(a net.Addr) T {
	if !h.IsDone() {
		panic("udpsession: GetAnswer called before session is done")
	}
	v, ok := h.responses[a.String()]
	if !ok {
		panic("udpsession: tried to get an answer of something that is dead")
	}
	delete(h.responses, a.String())
	return v
}

// BorrowAnswer returns a's answer without removing it. Panics if a is dead
// or the session is not done.
func (h *SendHandle[T]) BorrowAnswer(a net.Addr) T {
	if !h.IsDone() {
		panic("udpsession: BorrowAnswer called before session is done")
	}
	v, ok := h.responses[a.String()]
	if !ok {
		panic("udpsession: tried to borrow an answer of something that is dead")
	}
	return v
}

// GetSingleAnswer is a convenience for the common case of a session with
// exactly one destination. ok is false if that destination is dead.
func (h *SendHandle[T]) GetSingleAnswer() (v T, ok bool) {
	if len(h.all) != 1 {
		panic("udpsession: GetSingleAnswer called on a session with more than one destination")
	}
	v, ok = h.responses[h.all[0].String()]
	return v, ok
}
