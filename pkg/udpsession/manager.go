// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

// Package udpsession implements the UDP session manager: a single goroutine
// that owns a socket and multiplexes it between outstanding request/response
// "tickets" and long-lived inbound "services", so that every other
// component can treat a one-shot UDP exchange like a function call.
package udpsession

import (
	"crypto/rand"
	"encoding/binary"
	"net"
	"time"

	"go.uber.org/zap"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"github.com/stan3984/peas-rf-cp/pkg/udptransport"
	"github.com/stan3984/peas-rf-cp/pkg/xtimer"
)

var mon = monkit.Package()

// Manager owns one UDP socket and a background goroutine that drives every
// ticket and service registered against it. The zero Manager is not usable;
// construct one with Start.
type Manager struct {
	toMan chan request
	sock  *udptransport.Socket
	log   *zap.Logger
}

// Start binds the manager's background goroutine to sock and returns
// immediately. The caller retains ownership of sock's address but must not
// use sock directly afterwards; all reads and writes go through Manager.
func Start(sock *udptransport.Socket, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		toMan: make(chan request, 64),
		sock:  sock,
		log:   log,
	}
	go m.run()
	return m
}

// Terminate asks the manager goroutine to stop. It does not wait for the
// goroutine to exit.
func (m *Manager) Terminate() {
	m.log.Debug("udp manager terminating as per request")
	m.toMan <- terminateRequest{}
}

// RegisterService creates a ServiceHandle that receives every inbound
// envelope tagged with the given service number.
func (m *Manager) RegisterService(service uint32) *ServiceHandle {
	pipe := make(chan serviceResponse, 64)
	m.toMan <- serviceRequest{s: serviceReg{service: service, pipe: pipe}}
	return &ServiceHandle{rec: pipe, sock: m.sock}
}

// Send initiates a new session: msg is serialized once and a ticket is
// opened against every destination in dests, all sharing one session id so
// that responses can be correlated by the caller. The returned SendHandle's
// type parameter U is the expected response type.
func Send[U any](m *Manager, msg any, dests []net.Addr, service uint32) (handle *SendHandle[U], err error) {
	defer mon.Task()(nil)(&err)

	if len(dests) == 0 {
		return nil, Error.New("dests is empty")
	}
	payload, err := udptransport.Marshal(msg)
	if err != nil {
		return nil, err
	}
	id := randomID()
	rec := make(chan ticketResponse, len(dests))

	for _, d := range dests {
		t := &ticket{
			id:        id,
			timer:     xtimer.NewExpired(),
			retries:   Retries,
			requester: rec,
			payload:   payload,
			dest:      d,
			service:   service,
		}
		m.toMan <- sendRequest{t: t}
	}

	return &SendHandle[U]{
		rec:       rec,
		count:     len(dests),
		all:       dests,
		responses: make(map[string]U, len(dests)),
	}, nil
}

func randomID() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(Error.Wrap(err))
	}
	return binary.LittleEndian.Uint64(b[:])
}

// run is the manager goroutine's main loop: drain control requests, drain
// the socket, retransmit or expire tickets, then sleep.
func (m *Manager) run() {
	var services []serviceReg
	var tickets []*ticket
	if err := m.sock.SetNonblocking(); err != nil {
		m.log.Error("udp manager could not set socket nonblocking", zap.Error(err))
		return
	}

	for {
	drainControl:
		for {
			select {
			case req := <-m.toMan:
				switch r := req.(type) {
				case sendRequest:
					tickets = append(tickets, r.t)
				case serviceRequest:
					services = append(services, r.s)
				case terminateRequest:
					m.log.Debug("udp manager terminated")
					return
				}
			default:
				break drainControl
			}
		}

		m.drainSocket(&services, &tickets)
		m.tickTickets(&tickets)

		time.Sleep(SleepTime)
	}
}

func (m *Manager) drainSocket(services *[]serviceReg, tickets *[]*ticket) {
	for {
		addr, env, err := udptransport.RecvOnce[envelope](m.sock)
		switch {
		case err == nil:
			m.dispatch(addr, env, services, tickets)
		case udptransport.NoMessage.Has(err):
			continue
		case udptransport.Timeout.Has(err):
			return
		default:
			m.log.Error("udp manager socket error", zap.Error(err))
			return
		}
	}
}

func (m *Manager) dispatch(addr net.Addr, env envelope, services *[]serviceReg, tickets *[]*ticket) {
	if env.Service != 0 {
		for _, s := range *services {
			if s.service == env.Service {
				s.pipe <- serviceResponse{payload: env.Payload, source: addr, id: env.ID}
				return
			}
		}
		return
	}
	ts := *tickets
	for i := len(ts) - 1; i >= 0; i-- {
		if ts[i].id == env.ID && addrEqual(addr, ts[i].dest) {
			ts[i].requester <- ticketResponse{payload: env.Payload, source: addr}
			*tickets = append(ts[:i], ts[i+1:]...)
			return
		}
	}
}

func (m *Manager) tickTickets(tickets *[]*ticket) {
	ts := *tickets
	for i := len(ts) - 1; i >= 0; i-- {
		if !ts[i].timer.Expired(1.0) {
			continue
		}
		if ts[i].retries == 0 {
			ts[i].requester <- ticketResponse{payload: nil, source: ts[i].dest}
			*tickets = append(ts[:i], ts[i+1:]...)
			continue
		}
		ts[i].retries--
		ts[i].timer.ResetWith(TicketTTL)
		if err := udptransport.Send(m.sock, envelope{Service: ts[i].service, ID: ts[i].id, Payload: ts[i].payload}, ts[i].dest); err != nil {
			m.log.Debug("udp manager could not resend ticket", zap.Error(err))
		}
	}
}

func addrEqual(a, b net.Addr) bool {
	return a != nil && b != nil && a.String() == b.String()
}
