// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

package trackerapi

import (
	"net"
	"time"

	"github.com/stan3984/peas-rf-cp/pkg/peerid"
	"github.com/stan3984/peas-rf-cp/pkg/udptransport"
)

// retries and perTry match the design's bootstrap/refresh retry budget: up
// to 3 attempts, 500 ms apart.
const (
	retries = 3
	perTry  = 500 * time.Millisecond
)

// Update registers myAddr as a bootstrap address for room at tracker,
// returning the TTL the tracker promises to keep the entry for.
func Update(sock *udptransport.Socket, room peerid.ID, myAddr net.Addr, tracker net.Addr) (time.Duration, error) {
	q := Query{Kind: KindUpdate, RoomID: room.Uint64(), Addr: myAddr.String()}
	resp, err := sendWithResponse[Resp](sock, q, tracker, func(r Resp) bool { return r.Kind == KindUpdateSuccess })
	if err != nil {
		return 0, err
	}
	return time.Duration(resp.TTLMillis) * time.Millisecond, nil
}

// LookupSession pages through a room's known bootstrap addresses one at a
// time, never returning the same one twice.
type LookupSession struct {
	sock       *udptransport.Socket
	tracker    net.Addr
	room       peerid.ID
	lastLookup uint32
	dead       bool
}

// NewLookupSession starts a fresh paging session against tracker for room.
func NewLookupSession(sock *udptransport.Socket, tracker net.Addr, room peerid.ID) *LookupSession {
	return &LookupSession{sock: sock, tracker: tracker, room: room}
}

// Next returns the next bootstrap address, ok=false with a nil error once
// the tracker has no more to offer, or a non-nil error if the tracker is
// unreachable. Once Next returns an error, every subsequent call returns a
// Timeout-class error without touching the network again.
func (s *LookupSession) Next() (net.Addr, bool, error) {
	if s.dead {
		return nil, false, udptransport.Timeout.New("lookup session already failed")
	}
	q := Query{Kind: KindLookup, RoomID: s.room.Uint64(), LastLookup: s.lastLookup}
	resp, err := sendWithResponse[Resp](s.sock, q, s.tracker, func(r Resp) bool { return r.Kind == KindLookupAns })
	if err != nil {
		s.dead = true
		return nil, false, err
	}
	if resp.Addr == "" {
		return nil, false, nil
	}
	addr, err := net.ResolveUDPAddr("udp4", resp.Addr)
	if err != nil {
		return nil, false, nil
	}
	s.lastLookup = resp.LookupID
	return addr, true, nil
}

// sendWithResponse sends msg to dst, retrying up to `retries` times at
// `perTry` each, accepting only a response that both comes from dst and
// satisfies pred.
func sendWithResponse[U any](sock *udptransport.Socket, msg any, dst net.Addr, pred func(U) bool) (U, error) {
	var zero U
	accept := func(from net.Addr, m U) bool {
		return from != nil && from.String() == dst.String() && pred(m)
	}
	for try := 1; ; try++ {
		if err := udptransport.Send(sock, msg, dst); err != nil {
			return zero, err
		}
		_, resp, err := udptransport.RecvUntilTimeout[U](sock, perTry, accept)
		if err == nil {
			return resp, nil
		}
		if !udptransport.Timeout.Has(err) {
			return zero, err
		}
		if try >= retries {
			return zero, udptransport.Timeout.New("tracker at %s did not respond after %d tries", dst, retries)
		}
	}
}
