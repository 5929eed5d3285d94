// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

package kademlia

import (
	"net"

	"github.com/stan3984/peas-rf-cp/pkg/ktable"
	"github.com/stan3984/peas-rf-cp/pkg/peerid"
	"github.com/stan3984/peas-rf-cp/pkg/udpsession"
)

// maxPerTick bounds how many inbound Kademlia requests are serviced in a
// single HandleMessages call, so one noisy peer cannot starve the rest of
// the event loop.
const maxPerTick = 10

// HandleMessages drains up to maxPerTick pending requests from sh, answering
// Ping with Pong and Lookup with the table's current closest entries. table
// is mutated by an incoming Lookup's requester, which is offered as a new
// routing candidate.
func HandleMessages(sh *udpsession.ServiceHandle, table *ktable.Table, myID peerid.ID) {
	for i := 0; i < maxPerTick; i++ {
		msg, source, id, ok := udpsession.ServiceGet[Msg](sh)
		if !ok {
			return
		}
		switch msg.Kind {
		case KindPing:
			_ = udpsession.ServiceRespond(sh, Pong(myID), id, source)
		case KindLookup:
			handleLookup(sh, table, msg, id, source)
		default:
			// Pong and Answer never arrive as fresh requests; they only ever
			// arrive as ticket responses, handled by the SendHandle instead.
		}
	}
}

func handleLookup(sh *udpsession.ServiceHandle, table *ktable.Table, msg Msg, id uint64, source net.Addr) {
	requester, ok := msg.LookupRequester()
	if !ok {
		return
	}
	target := msg.LookupTarget()

	closest := table.ClosestTo(table.K()+1, target)
	table.Offer(requester)

	answer := make([]ktable.Entry, 0, table.K())
	for _, e := range closest {
		if e.ID == requester.ID {
			continue
		}
		if len(answer) == table.K() {
			break
		}
		answer = append(answer, e)
	}

	_ = udpsession.ServiceRespond(sh, AnswerMsg(answer), id, source)
}
