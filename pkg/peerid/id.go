// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

// Package peerid defines the 64-bit identity used throughout the Kademlia
// routing table and the gossip overlay.
package peerid

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/fxamacker/cbor/v2"
)

// ID is an opaque 64-bit identifier. The zero value is a valid (if
// degenerate) identity; it is never mutated after creation.
type ID uint64

// New wraps x as an ID.
func New(x uint64) ID {
	return ID(x)
}

// NewRandom draws a new ID from a cryptographically strong source, matching
// the "sampling a strong RNG" requirement for node identities and ticket ids.
func NewRandom() ID {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand.Read on any supported platform only fails if the
		// system RNG itself is broken; there is nothing recoverable to do.
		panic(fmt.Sprintf("peerid: system RNG failed: %v", err))
	}
	return ID(binary.BigEndian.Uint64(buf[:]))
}

// Uint64 returns the underlying value.
func (id ID) Uint64() uint64 {
	return uint64(id)
}

// Distance is the XOR metric between two ids.
func (id ID) Distance(other ID) uint64 {
	return uint64(id) ^ uint64(other)
}

// CommonBits returns the number of leading bits id and other share, i.e. the
// number of leading zeros of their XOR distance. Two equal ids share all 64
// bits.
func (id ID) CommonBits(other ID) int {
	return bits.LeadingZeros64(id.Distance(other))
}

// Less orders ids for deterministic iteration in tests and debug dumps.
func (id ID) Less(other ID) bool {
	return id < other
}

func (id ID) String() string {
	return fmt.Sprintf("%016x", uint64(id))
}

// MarshalCBOR implements cbor.Marshaler so IDs are encoded as plain uint64 on
// the wire rather than as a tagged struct.
func (id ID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(uint64(id))
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (id *ID) UnmarshalCBOR(data []byte) error {
	var v uint64
	if err := cbor.Unmarshal(data, &v); err != nil {
		return err
	}
	*id = ID(v)
	return nil
}
