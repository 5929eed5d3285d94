// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

package broadcast

import (
	"net"

	"go.uber.org/zap"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"github.com/stan3984/peas-rf-cp/pkg/chatmsg"
	"github.com/stan3984/peas-rf-cp/pkg/dupcache"
	"github.com/stan3984/peas-rf-cp/pkg/ktable"
	"github.com/stan3984/peas-rf-cp/pkg/peerid"
	"github.com/stan3984/peas-rf-cp/pkg/udpsession"
	"github.com/stan3984/peas-rf-cp/pkg/xtimer"
)

var mon = monkit.Package()

// MaxConnections is the size of the sparse overlay neighbor set.
const MaxConnections = 3

// cacheSize is how many recent broadcast hashes are remembered for
// duplicate suppression.
const cacheSize = 100

// maxServicePerTick bounds how many inbound broadcast requests are serviced
// in a single Update call.
const maxServicePerTick = 10

// OutEvent is what the broadcast engine hands to the local UI/bot layer:
// either a delivered chat message or a NotSent failure notice.
type OutEvent struct {
	Message *chatmsg.ChatMessage
	NotSent bool
}

type activeBroadcast struct {
	msg    Msg
	handle *udpsession.SendHandle[Ack]
}

// Manager implements the gossip broadcast engine: a sparse overlay of
// MaxConnections neighbors drawn from the shared Ktable, hash-based
// de-duplication, and the ting liveness probe that repairs partitions.
type Manager struct {
	connected map[string]peerid.ID
	connAddr  map[string]net.Addr
	cache     *dupcache.Cache
	active    []activeBroadcast

	table   *ktable.Table
	sh      *udpsession.ServiceHandle
	manager *udpsession.Manager
	out     chan<- OutEvent
	myID    peerid.ID
	log     *zap.Logger

	tingCadence *xtimer.Timer
	ting        *tingProbe
}

// New constructs a Manager. table is the shared routing table; sh must
// already be registered on um as ServiceTag. out receives delivered
// messages and NotSent notices; it is never closed by Manager.
func New(table *ktable.Table, sh *udpsession.ServiceHandle, um *udpsession.Manager, out chan<- OutEvent, myID peerid.ID, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		connected:   make(map[string]peerid.ID),
		connAddr:    make(map[string]net.Addr),
		cache:       dupcache.New(cacheSize),
		table:       table,
		sh:          sh,
		manager:     um,
		out:         out,
		myID:        myID,
		log:         log,
		tingCadence: xtimer.New(tingCadence),
	}
}

// Update advances every in-flight broadcast and the ting probe, grows the
// neighbor set if needed, and services up to maxServicePerTick inbound
// requests. Call this once per event-loop tick.
func (m *Manager) Update() {
	var resend []Msg
	for i := len(m.active) - 1; i >= 0; i-- {
		m.active[i].handle.Update()
		if !m.active[i].handle.IsDone() {
			continue
		}
		a := m.active[i]
		m.active = append(m.active[:i], m.active[i+1:]...)

		wantResend := false
		for _, dest := range a.handle.Dests() {
			if a.handle.IsDead(dest) {
				m.removeConnection(dest)
				wantResend = true
			}
		}
		if wantResend {
			resend = append(resend, a.msg)
		}
	}

	m.connectClosest()

	for _, r := range resend {
		m.log.Debug("resending a broadcast after a dead neighbor")
		m.broadcastMsg(r, nil)
	}

	m.updateTing()

	for i := 0; i < maxServicePerTick; i++ {
		msg, source, id, ok := udpsession.ServiceGet[Msg](m.sh)
		if !ok {
			return
		}
		_ = udpsession.ServiceRespond(m.sh, Ack{}, id, source)
		m.receive(msg, source)
	}
}

func (m *Manager) receive(msg Msg, source net.Addr) {
	defer mon.Task()(nil)(nil)

	if !m.cache.Insert(msg.Hash) {
		return
	}

	reflood := true
	switch msg.Payload.Kind {
	case KindMsg:
		chat := msg.Payload.Chat.toChat(false)
		m.log.Debug("received a broadcast chat message")
		m.out <- OutEvent{Message: &chat}
	case KindIsAlive:
		m.observeIsAlive(msg.Payload.IsAlive)
	case KindTing:
		m.log.Debug("responding to a ting")
		m.broadcastMsg(isAliveMsg(m.myID), nil)
		reflood = false
	}

	if !reflood {
		return
	}

	if _, known := m.connAddr[source.String()]; !known {
		senderID := peerid.New(msg.SenderID)
		m.connected[source.String()] = senderID
		m.connAddr[source.String()] = source
		m.table.Offer(ktable.NewEntry(source, senderID))
	}

	m.broadcastMsg(msg.rethreadedAs(m.myID), source)
}

func (m *Manager) removeConnection(addr net.Addr) {
	key := addr.String()
	id, ok := m.connected[key]
	if !ok {
		return
	}
	delete(m.connected, key)
	delete(m.connAddr, key)
	m.log.Debug("removed neighbor", zap.Stringer("addr", addr))
	m.table.DeleteID(id)
}

func (m *Manager) connectClosest() {
	if len(m.connected) >= MaxConnections {
		return
	}
	for _, c := range m.table.Get(MaxConnections) {
		key := c.Addr.String()
		if _, ok := m.connected[key]; ok {
			continue
		}
		m.log.Debug("connected to neighbor", zap.Stringer("addr", c.Addr))
		m.connected[key] = c.ID
		m.connAddr[key] = c.Addr
	}
}

// broadcastMsg sends msg to every current neighbor except ban (pass nil to
// exclude no one).
func (m *Manager) broadcastMsg(msg Msg, ban net.Addr) {
	if len(m.connAddr) == 0 {
		m.log.Warn("no one to send to, dropping the message")
		m.out <- OutEvent{NotSent: true}
		return
	}

	m.cache.Insert(msg.Hash)

	targets := make([]net.Addr, 0, len(m.connAddr))
	for key, addr := range m.connAddr {
		if ban != nil && key == ban.String() {
			continue
		}
		targets = append(targets, addr)
	}
	if len(targets) == 0 {
		return
	}

	handle, err := udpsession.Send[Ack](m.manager, msg, targets, ServiceTag)
	if err != nil {
		m.log.Error("could not start a broadcast send", zap.Error(err))
		return
	}
	m.active = append(m.active, activeBroadcast{msg: msg, handle: handle})
}

// Broadcast originates a new chat message, delivering it to every current
// neighbor.
func (m *Manager) Broadcast(chat chatmsg.ChatMessage) {
	m.broadcastMsg(chatMsg(m.myID, chat), nil)
}
