// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

package udpsession

import (
	"net"

	"github.com/stan3984/peas-rf-cp/pkg/udptransport"
)

// ServiceHandle is the caller-facing side of a registered service: a stream
// of inbound requests tagged with that service's number, plus the means to
// reply to any one of them.
type ServiceHandle struct {
	rec  chan serviceResponse
	sock *udptransport.Socket
}

// ServiceGet drains one pending request from the service, if any is
// available. ok is false if nothing is waiting, or if the payload could not
// be deserialized as T (in which case it is silently dropped, matching a
// service's tolerance for malformed peers).
func ServiceGet[T any](sh *ServiceHandle) (msg T, source net.Addr, id uint64, ok bool) {
	select {
	case sr := <-sh.rec:
		des, err := udptransport.Unmarshal[T](sr.payload)
		if err != nil {
			return msg, nil, 0, false
		}
		return des, sr.source, sr.id, true
	default:
		return msg, nil, 0, false
	}
}

// ServiceRespond answers a request with session id id by sending resp back
// to to over the service's own socket, tagged as a ticket response (service
// 0) so the remote SendHandle recognizes it.
func ServiceRespond[T any](sh *ServiceHandle, resp T, id uint64, to net.Addr) error {
	payload, err := udptransport.Marshal(resp)
	if err != nil {
		return err
	}
	return udptransport.Send(sh.sock, envelope{Service: 0, ID: id, Payload: payload}, to)
}
