// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

// Package roomfile reads and writes the ".peas-room" files that carry a
// room's 64-bit identifier between a room's creator and the peers who
// join it.
package roomfile

import (
	"encoding/binary"
	"os"

	"github.com/stan3984/peas-rf-cp/pkg/peerid"
)

// Ext is the conventional suffix for room files, appended to whatever name
// the caller passed to --new-room.
const Ext = ".peas-room"

// Size is the number of bytes a room file must contain at minimum: a
// little-endian uint64.
const Size = 8

// Write creates path (truncating any existing file) containing the
// little-endian encoding of id.
func Write(path string, id peerid.ID) error {
	var buf [Size]byte
	binary.LittleEndian.PutUint64(buf[:], id.Uint64())
	if err := os.WriteFile(path, buf[:], 0o644); err != nil {
		return Error.Wrap(err)
	}
	return nil
}

// Read parses the room id out of path. Files with more than Size bytes are
// tolerated and only the leading 8 bytes are consulted, since an earlier
// revision of the format also wrote a room name after the id; files with
// fewer than Size bytes are rejected.
func Read(path string) (peerid.ID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, Error.Wrap(err)
	}
	if len(data) < Size {
		return 0, Error.New("room file %q is too short: have %d bytes, need at least %d", path, len(data), Size)
	}
	return peerid.New(binary.LittleEndian.Uint64(data[:Size])), nil
}
