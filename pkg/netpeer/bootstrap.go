// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

package netpeer

import (
	"net"
	"time"

	"github.com/stan3984/peas-rf-cp/pkg/kademlia"
	"github.com/stan3984/peas-rf-cp/pkg/peerid"
	"github.com/stan3984/peas-rf-cp/pkg/trackerapi"
	"github.com/stan3984/peas-rf-cp/pkg/udpsession"
	"github.com/stan3984/peas-rf-cp/pkg/udptransport"
)

// pingTimeout bounds how long bootstrap waits for a single candidate's Pong.
const pingTimeout = 500 * time.Millisecond

// bootResult names the bootstrap peer found, if any.
type bootResult struct {
	addr net.Addr
	id   peerid.ID
}

// findBootstrapper iterates trackers, streaming candidate addresses from
// each via a LookupSession over trackSock and pinging every candidate
// through um (which owns the Kademlia socket), and returns the first that
// answers with a Pong, along with the id it advertised. trackSock must not
// be the socket backing um: um's goroutine already drains its own socket
// continuously, and a second direct reader on the same socket would race it
// for incoming datagrams. A zero-value, ok=false result means no tracker
// knew of the room, so the caller should proceed as the room's first
// participant. An error means every tracker was unreachable.
func findBootstrapper(trackSock *udptransport.Socket, um *udpsession.Manager, room peerid.ID, trackers []net.Addr) (bootResult, bool, error) {
	timedOut := 0
	for _, tracker := range trackers {
		sess := trackerapi.NewLookupSession(trackSock, tracker, room)
		for {
			addr, ok, err := sess.Next()
			if err != nil {
				timedOut++
				break
			}
			if !ok {
				break
			}
			if id, alive := pingCandidate(um, addr); alive {
				return bootResult{addr: addr, id: id}, true, nil
			}
		}
	}
	if len(trackers) > 0 && timedOut == len(trackers) {
		return bootResult{}, false, Error.New("all trackers timed out")
	}
	return bootResult{}, false, nil
}

func pingCandidate(um *udpsession.Manager, addr net.Addr) (peerid.ID, bool) {
	handle, err := udpsession.Send[kademlia.Msg](um, kademlia.Ping(), []net.Addr{addr}, kademlia.ServiceTag)
	if err != nil {
		return 0, false
	}
	handle.UpdateWait()
	pong, ok := handle.GetSingleAnswer()
	if !ok {
		return 0, false
	}
	return pong.PongID(), true
}
