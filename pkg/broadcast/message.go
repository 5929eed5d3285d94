// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

// Package broadcast implements the gossip engine that delivers chat
// messages to every reachable room participant through a sparse overlay,
// with liveness probing ("ting"), neighbor replacement and de-duplication.
package broadcast

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/stan3984/peas-rf-cp/pkg/chatmsg"
	"github.com/stan3984/peas-rf-cp/pkg/peerid"
)

// ServiceTag is the udpsession service number the broadcast engine
// registers as.
const ServiceTag = uint32(2)

// Ack is the empty acknowledgement every broadcast request is answered
// with; receiving it is what keeps the UM's ticket retransmission honest.
type Ack struct{}

// PayloadKind tags which variant of Payload is populated.
type PayloadKind uint8

const (
	KindMsg PayloadKind = iota
	KindIsAlive
	KindTing
)

type wireChat struct {
	Text       string
	SenderID   uint64
	SenderName string
	Timestamp  int64
}

func toWireChat(c chatmsg.ChatMessage) wireChat {
	return wireChat{
		Text:       c.Text,
		SenderID:   c.SenderID.Uint64(),
		SenderName: c.SenderName,
		Timestamp:  c.Timestamp,
	}
}

func (w wireChat) toChat(fromSelf bool) chatmsg.ChatMessage {
	return chatmsg.ChatMessage{
		Text:       w.Text,
		SenderID:   peerid.New(w.SenderID),
		SenderName: w.SenderName,
		Timestamp:  w.Timestamp,
		IsFromSelf: fromSelf,
	}
}

// Payload is the tagged union of broadcast payload kinds: a chat message, a
// liveness announcement, or a ting probe.
type Payload struct {
	Kind    PayloadKind
	IsAlive uint64
	Chat    wireChat
}

// Msg is the envelope every broadcast datagram carries: a random hash for
// de-duplication, the id of the link it arrived from (not necessarily the
// id of the original sender), and the payload.
type Msg struct {
	Hash     uint64
	SenderID uint64
	Payload  Payload
}

func randomHash() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(Error.Wrap(err))
	}
	return binary.LittleEndian.Uint64(b[:])
}

func newMsg(myID peerid.ID, p Payload) Msg {
	return Msg{Hash: randomHash(), SenderID: myID.Uint64(), Payload: p}
}

func chatMsg(myID peerid.ID, chat chatmsg.ChatMessage) Msg {
	return newMsg(myID, Payload{Kind: KindMsg, Chat: toWireChat(chat)})
}

func isAliveMsg(myID peerid.ID) Msg {
	return newMsg(myID, Payload{Kind: KindIsAlive, IsAlive: myID.Uint64()})
}

func tingMsg(myID peerid.ID) Msg {
	return newMsg(myID, Payload{Kind: KindTing})
}

func (m Msg) rethreadedAs(myID peerid.ID) Msg {
	m.SenderID = myID.Uint64()
	return m
}
