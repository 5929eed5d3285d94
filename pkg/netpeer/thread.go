// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

package netpeer

import (
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/stan3984/peas-rf-cp/pkg/broadcast"
	"github.com/stan3984/peas-rf-cp/pkg/chatmsg"
	"github.com/stan3984/peas-rf-cp/pkg/kademlia"
	"github.com/stan3984/peas-rf-cp/pkg/ktable"
	"github.com/stan3984/peas-rf-cp/pkg/peerid"
	"github.com/stan3984/peas-rf-cp/pkg/trackerapi"
	"github.com/stan3984/peas-rf-cp/pkg/udpsession"
	"github.com/stan3984/peas-rf-cp/pkg/udptransport"
	"github.com/stan3984/peas-rf-cp/pkg/xtimer"
)

// k is the routing table's bucket capacity.
const k = 3

// threadSleep is how long the main loop sleeps between ticks.
const threadSleep = 40 * time.Millisecond

// lookupCadence is how often an idle peer starts a random IdLookup to keep
// its routing table fresh.
const lookupCadence = 20 * time.Second

// timedOutRefresh is how long the tracker refresh timer is armed for after
// a refresh attempt times out.
const timedOutRefresh = 60 * time.Second

// maxMessageLen rejects locally-originated messages over this length.
const maxMessageLen = 100

// run is the NetThread body. It owns every piece of per-peer state and
// never touches it from another goroutine.
func run(cfg Config, in <-chan ToNetMsg, out chan<- FromNetMsg, addrOut chan<- net.Addr) {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	defer close(addrOut)

	kadSock, err := udptransport.OpenAny()
	if err != nil {
		out <- FromNetMsg{Err: err.Error()}
		return
	}
	defer func() { _ = kadSock.Close() }()

	trackSock, err := udptransport.OpenAny()
	if err != nil {
		out <- FromNetMsg{Err: err.Error()}
		return
	}
	defer func() { _ = trackSock.Close() }()

	addrOut <- kadSock.LocalAddr()

	// netID identifies this process in the Kademlia routing table and the
	// gossip overlay. It is independent of the user-facing identity
	// (cfg.UserID) that tags messages this peer originates.
	netID := peerid.NewRandom()
	myself := ktable.NewEntry(kadSock.LocalAddr(), netID)

	table := ktable.New(k, netID)

	um := udpsession.Start(kadSock, log)
	defer um.Terminate()
	kadSH := um.RegisterService(kademlia.ServiceTag)

	outCh := make(chan broadcast.OutEvent, 64)
	bm := broadcast.New(table, um.RegisterService(broadcast.ServiceTag), um, outCh, netID, log)

	var tracker = pickTracker(cfg.Trackers)

	boot, found, err := findBootstrapper(trackSock, um, cfg.RoomID, cfg.Trackers)
	if err != nil {
		log.Error("bootstrap failed", zap.Error(err))
		out <- FromNetMsg{Err: err.Error()}
		return
	}

	var lookup *kademlia.IdLookup
	if found {
		log.Debug("bootstrapping from peer", zap.Stringer("addr", boot.addr))
		table.Offer(ktable.NewEntry(boot.addr, boot.id))
		lookup = kademlia.New(um, netID, myself, table)
		lookup.UpdateWait()
		if lookup.IsDone() {
			lookup = nil
		}
	} else {
		log.Debug("first to connect")
	}

	trackerTimer := xtimer.NewExpired()
	lookupTimer := xtimer.New(lookupCadence)

	for {
		if tracker != nil && trackerTimer.Expired(0.95) {
			if err := udptransport.Clear(trackSock); err != nil {
				log.Warn("could not clear tracker socket", zap.Error(err))
			}
			ttl, err := trackerapi.Update(trackSock, cfg.RoomID, kadSock.LocalAddr(), tracker)
			switch {
			case err == nil:
				trackerTimer.ResetWith(ttl)
			case udptransport.Timeout.Has(err):
				trackerTimer.ResetWith(timedOutRefresh)
			default:
				trackerTimer.Disable()
			}
		}

		kademlia.HandleMessages(kadSH, table, netID)

		if lookup != nil {
			lookup.Update()
			if lookup.IsDone() {
				lookup = nil
				lookupTimer.Reset()
			}
		} else if lookupTimer.Expired(1) {
			lookup = kademlia.New(um, peerid.NewRandom(), myself, table)
		}

		bm.Update()
		drainBroadcastEvents(outCh, out)

		select {
		case msg := <-in:
			if msg.Terminate {
				return
			}
			if len(msg.NewMsg) > maxMessageLen {
				out <- FromNetMsg{NotSent: true}
			} else {
				chat := chatmsg.ChatMessage{
					Text:       msg.NewMsg,
					SenderID:   cfg.UserID,
					SenderName: cfg.UserName,
					Timestamp:  time.Now().Unix(),
					IsFromSelf: true,
				}
				out <- FromNetMsg{Message: &chat}
				bm.Broadcast(chat)
			}
		default:
		}

		time.Sleep(threadSleep)
	}
}

// pickTracker returns the first configured tracker, the one kept alive by
// periodic refresh, or nil if none was configured (a lone participant has
// nothing to register with).
func pickTracker(trackers []net.Addr) net.Addr {
	if len(trackers) == 0 {
		return nil
	}
	return trackers[0]
}

func drainBroadcastEvents(bc <-chan broadcast.OutEvent, out chan<- FromNetMsg) {
	for {
		select {
		case ev := <-bc:
			out <- FromNetMsg{Message: ev.Message, NotSent: ev.NotSent}
		default:
			return
		}
	}
}
