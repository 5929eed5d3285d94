// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

// Package ktable implements the 64-bucket Kademlia routing table: bucket i
// holds peers whose id shares exactly i leading bits with the table's owner.
package ktable

import (
	"net"

	"github.com/stan3984/peas-rf-cp/pkg/peerid"
)

// Entry is a directory record pairing a network address with the identity
// reachable there.
type Entry struct {
	Addr net.Addr
	ID   peerid.ID
}

// NewEntry builds an Entry.
func NewEntry(addr net.Addr, id peerid.ID) Entry {
	return Entry{Addr: addr, ID: id}
}

func (e Entry) String() string {
	return e.ID.String() + "@" + e.Addr.String()
}
