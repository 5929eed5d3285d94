// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

// Package trackerapi implements the client side of the tracker wire
// protocol: registering a room's bootstrap address and paging through a
// room's known bootstrap addresses.
package trackerapi

// QueryKind tags which variant of Query is populated.
type QueryKind uint8

const (
	KindUpdate QueryKind = iota
	KindLookup
)

// Query is the tagged union of requests a peer sends to a tracker.
type Query struct {
	Kind       QueryKind
	RoomID     uint64
	Addr       string // populated for Update: the peer's own advertised address.
	LastLookup uint32 // populated for Lookup: the last seen counter.
}

// RespKind tags which variant of Resp is populated.
type RespKind uint8

const (
	KindUpdateSuccess RespKind = iota
	KindLookupAns
)

// Resp is the tagged union of replies a tracker sends to a peer.
type Resp struct {
	Kind      RespKind
	RoomID    uint64
	TTLMillis int64
	Addr      string // empty means "no more addresses" for LookupAns.
	LookupID  uint32
}
