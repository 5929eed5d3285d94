// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

package udpsession

// envelope is the only struct ever put on the wire by this package. Every
// outbound and inbound datagram is one of these. A zero Service marks a
// ticket response; any other value routes the payload to the matching
// registered service.
type envelope struct {
	Service uint32
	ID      uint64
	Payload []byte
}
