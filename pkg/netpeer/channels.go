// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

// Package netpeer owns the per-peer event loop: the NetThread that drives
// Kademlia, the gossip broadcast overlay, and the tracker refresh timer,
// and the NetHandle that a UI or bot thread uses to talk to it.
package netpeer

import "github.com/stan3984/peas-rf-cp/pkg/chatmsg"

// ToNetMsg is sent from the UI/bot thread into the NetThread.
type ToNetMsg struct {
	Terminate bool
	// NewMsg is the outgoing chat text. Only meaningful when Terminate is
	// false.
	NewMsg string
}

// Terminate builds a ToNetMsg requesting shutdown.
func Terminate() ToNetMsg { return ToNetMsg{Terminate: true} }

// NewOutgoing builds a ToNetMsg carrying text to broadcast.
func NewOutgoing(text string) ToNetMsg { return ToNetMsg{NewMsg: text} }

// FromNetMsg is sent from the NetThread out to the UI/bot thread.
type FromNetMsg struct {
	Err     string
	Message *chatmsg.ChatMessage
	NotSent bool
}
