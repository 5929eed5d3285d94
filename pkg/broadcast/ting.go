// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

package broadcast

import (
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/stan3984/peas-rf-cp/pkg/ktable"
	"github.com/stan3984/peas-rf-cp/pkg/udpsession"
	"github.com/stan3984/peas-rf-cp/pkg/xtimer"
)

// tingCadence is how often, while idle, the engine probes a random known
// peer for reachability through both the direct link and the flood.
const tingCadence = 10 * time.Second

// tingWait is how long, once a direct ting reply arrives, the engine waits
// for the corresponding IsAlive to also arrive through the flood before
// concluding the peer is broadcast-unreachable.
const tingWait = 3 * time.Second

// tingProbe is the single in-flight liveness probe. Its presence on Manager
// corresponds to the TingSending/TingWaitingForFlood states; a nil ting
// field is TingIdle.
type tingProbe struct {
	target    ktable.Entry
	handle    *udpsession.SendHandle[Ack]
	sendDone  bool
	waitTimer *xtimer.Timer
}

// updateTing drives the ting state machine one tick: start a new probe if
// the cadence timer has fired and nothing is in flight, otherwise advance
// whatever probe is already running.
func (m *Manager) updateTing() {
	defer mon.Task()(nil)(nil)

	if m.tingCadence.Expired(1.0) {
		m.startTing()
	}
	if m.ting == nil {
		return
	}
	if !m.ting.sendDone {
		m.advanceTingSend()
		return
	}
	m.advanceTingWait()
}

func (m *Manager) startTing() {
	entry, ok := m.table.Random()
	if !ok {
		m.tingCadence.Reset()
		return
	}
	m.tingCadence.Disable()

	msg := tingMsg(m.myID)
	m.cache.Insert(msg.Hash)
	handle, err := udpsession.Send[Ack](m.manager, msg, []net.Addr{entry.Addr}, ServiceTag)
	if err != nil {
		m.tingCadence.Reset()
		return
	}

	wait := xtimer.New(tingWait)
	wait.Disable()
	m.ting = &tingProbe{target: entry, handle: handle, waitTimer: wait}
	m.log.Debug("sending a ting")
}

func (m *Manager) advanceTingSend() {
	m.ting.handle.Update()
	if !m.ting.handle.IsDone() {
		return
	}
	m.ting.sendDone = true

	if _, ok := m.ting.handle.GetSingleAnswer(); ok {
		m.ting.waitTimer.Reset()
		m.log.Debug("ting target could be reached directly")
		return
	}
	m.table.DeleteID(m.ting.target.ID)
	m.ting = nil
	m.tingCadence.Reset()
}

func (m *Manager) advanceTingWait() {
	if !m.ting.waitTimer.Expired(1.0) {
		return
	}
	addr := m.ting.target.Addr
	if _, known := m.connAddr[addr.String()]; !known {
		m.log.Debug("creating an extra bridge because a ting timed out", zap.Stringer("addr", addr))
		m.connected[addr.String()] = m.ting.target.ID
		m.connAddr[addr.String()] = addr
	}
	m.tingCadence.Reset()
	m.ting = nil
}

// observeIsAlive clears an in-flight ting if the flooded IsAlive matches
// its target, regardless of which phase the probe is currently in.
func (m *Manager) observeIsAlive(id uint64) {
	if m.ting == nil || m.ting.target.ID.Uint64() != id {
		return
	}
	m.ting = nil
	m.tingCadence.Reset()
	m.log.Debug("ting target could be reached through the flood")
}
