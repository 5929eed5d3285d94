// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

package netpeer

import (
	"net"

	"go.uber.org/zap"

	"github.com/stan3984/peas-rf-cp/pkg/peerid"
)

// Config bundles everything NetThread needs to start a participant.
type Config struct {
	UserID   peerid.ID
	UserName string
	RoomID   peerid.ID
	Trackers []net.Addr
	Log      *zap.Logger
}

// NetHandle owns a running NetThread and the two channels that are the
// only way a UI or bot thread talks to it.
type NetHandle struct {
	in     chan ToNetMsg
	out    chan FromNetMsg
	done   chan struct{}
	addrCh chan net.Addr
	addr   net.Addr
}

// New spawns a NetThread for cfg and returns a handle to it.
func New(cfg Config) *NetHandle {
	h := &NetHandle{
		in:     make(chan ToNetMsg, 16),
		out:    make(chan FromNetMsg, 64),
		done:   make(chan struct{}),
		addrCh: make(chan net.Addr, 1),
	}
	go func() {
		defer close(h.done)
		run(cfg, h.in, h.out, h.addrCh)
	}()
	return h
}

// LocalAddr blocks until the NetThread has opened its Kademlia/broadcast
// socket and returns its address, or nil if the thread exited first
// (e.g. the socket could not be opened).
func (h *NetHandle) LocalAddr() net.Addr {
	if h.addr != nil {
		return h.addr
	}
	select {
	case a, ok := <-h.addrCh:
		if ok {
			h.addr = a
		}
	case <-h.done:
	}
	return h.addr
}

// Read returns the next pending message from the NetThread without
// blocking. ok is false if nothing is currently available.
func (h *NetHandle) Read() (FromNetMsg, bool) {
	select {
	case msg := <-h.out:
		return msg, true
	default:
		return FromNetMsg{}, false
	}
}

// SendMessage enqueues text for broadcast to the room.
func (h *NetHandle) SendMessage(text string) {
	h.in <- NewOutgoing(text)
}

// Terminate requests the NetThread shut down and blocks until it has.
func (h *NetHandle) Terminate() {
	h.in <- Terminate()
	<-h.done
}
