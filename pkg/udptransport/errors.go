// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

package udptransport

import "github.com/zeebo/errs"

// Error is the class for all errors originating in this package.
var Error = errs.Class("transport")

// The three recovery-relevant error kinds from the design: Timeout is
// recoverable by retry or by treating the peer as dead, NoMessage is always
// ignored at its point of occurrence, Io is fatal for the affected
// operation. TooLarge is returned by Send under its own class.
var (
	// Timeout means a bounded wait elapsed with no matching datagram.
	Timeout = errs.Class("timeout")
	// NoMessage means the received bytes failed to deserialize, were
	// truncated, or did not match what the caller expected.
	NoMessage = errs.Class("no message")
	// Io means the underlying socket failed.
	Io = errs.Class("io")
	// TooLarge means an outbound payload exceeded MaxUDP.
	TooLarge = errs.Class("too large")
)
