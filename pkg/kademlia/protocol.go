// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

// Package kademlia implements the Kademlia protocol's wire messages, the
// service handler that answers them, and the iterative IdLookup procedure
// that locates the k peers closest to a target id.
package kademlia

import (
	"net"

	"github.com/stan3984/peas-rf-cp/pkg/ktable"
	"github.com/stan3984/peas-rf-cp/pkg/peerid"
)

// ServiceTag is the udpsession service number Kademlia registers as.
const ServiceTag = uint32(1)

// Kind tags which variant of Msg is populated.
type Kind uint8

const (
	KindPing Kind = iota
	KindPong
	KindLookup
	KindAnswer
)

// wireEntry is the CBOR-safe stand-in for a ktable.Entry: net.Addr is an
// interface and does not round-trip through a generic codec on its own.
type wireEntry struct {
	Addr string
	ID   uint64
}

func toWire(e ktable.Entry) wireEntry {
	return wireEntry{Addr: e.Addr.String(), ID: e.ID.Uint64()}
}

func (w wireEntry) toEntry() (ktable.Entry, bool) {
	addr, err := net.ResolveUDPAddr("udp4", w.Addr)
	if err != nil {
		return ktable.Entry{}, false
	}
	return ktable.NewEntry(addr, peerid.New(w.ID)), true
}

func toWireSlice(es []ktable.Entry) []wireEntry {
	out := make([]wireEntry, len(es))
	for i, e := range es {
		out[i] = toWire(e)
	}
	return out
}

// Msg is the tagged union of every Kademlia wire message: Ping, Pong(id),
// Lookup(target, requester) and Answer(entries).
type Msg struct {
	Kind      Kind
	Pong      uint64
	Target    uint64
	Requester wireEntry
	Answer    []wireEntry
}

// Ping builds a Ping message.
func Ping() Msg { return Msg{Kind: KindPing} }

// Pong builds a Pong(id) message.
func Pong(id peerid.ID) Msg { return Msg{Kind: KindPong, Pong: id.Uint64()} }

// Lookup builds a Lookup(target, requester) message.
func Lookup(target peerid.ID, requester ktable.Entry) Msg {
	return Msg{Kind: KindLookup, Target: target.Uint64(), Requester: toWire(requester)}
}

// AnswerMsg builds an Answer(entries) message.
func AnswerMsg(entries []ktable.Entry) Msg {
	return Msg{Kind: KindAnswer, Answer: toWireSlice(entries)}
}

// PongID returns the id carried by a Pong message.
func (m Msg) PongID() peerid.ID { return peerid.New(m.Pong) }

// LookupTarget returns the target id carried by a Lookup message.
func (m Msg) LookupTarget() peerid.ID { return peerid.New(m.Target) }

// LookupRequester returns the requester entry carried by a Lookup message,
// or false if its advertised address could not be parsed.
func (m Msg) LookupRequester() (ktable.Entry, bool) { return m.Requester.toEntry() }

// AnswerEntries returns the entries carried by an Answer message, silently
// dropping any with an unparsable address.
func (m Msg) AnswerEntries() []ktable.Entry {
	out := make([]ktable.Entry, 0, len(m.Answer))
	for _, w := range m.Answer {
		if e, ok := w.toEntry(); ok {
			out = append(out, e)
		}
	}
	return out
}
