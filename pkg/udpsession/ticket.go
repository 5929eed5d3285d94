// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

package udpsession

import (
	"net"
	"time"

	"github.com/stan3984/peas-rf-cp/pkg/xtimer"
)

// TicketTTL is how long a ticket waits before it is resent.
const TicketTTL = 50 * time.Millisecond

// Retries is how many times a ticket is sent, the first send included, before
// it is given up as dead.
const Retries = 3

// SleepTime is how long the manager goroutine sleeps between polling rounds.
const SleepTime = 20 * time.Millisecond

// ticketResponse is what the manager goroutine hands back to a SendHandle.
// A nil Payload means the ticket's destination never answered.
type ticketResponse struct {
	payload []byte
	source  net.Addr
}

// ticket holds everything the manager goroutine needs to keep a single
// outstanding request alive: who to ask, what to ask, and how to report the
// answer back.
type ticket struct {
	id        uint64
	timer     *xtimer.Timer
	retries   int
	requester chan ticketResponse
	payload   []byte
	dest      net.Addr
	service   uint32
}

// serviceResponse is what the manager goroutine hands to a ServiceHandle
// when a datagram arrives addressed to that service.
type serviceResponse struct {
	payload []byte
	source  net.Addr
	id      uint64
}

// serviceReg records a live service registration inside the manager
// goroutine.
type serviceReg struct {
	service uint32
	pipe    chan serviceResponse
}

// request is the sum type of instructions the manager goroutine accepts on
// its control channel.
type request interface {
	isRequest()
}

type sendRequest struct{ t *ticket }
type serviceRequest struct{ s serviceReg }
type terminateRequest struct{}

func (sendRequest) isRequest()      {}
func (serviceRequest) isRequest()   {}
func (terminateRequest) isRequest() {}
