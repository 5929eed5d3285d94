// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

// Package chatmsg defines the message type that crosses the boundary
// between the network core and the UI/bot layer.
package chatmsg

import "github.com/stan3984/peas-rf-cp/pkg/peerid"

// ChatMessage is a single chat line, either produced locally or received
// off the wire.
type ChatMessage struct {
	Text       string
	SenderID   peerid.ID
	SenderName string
	Timestamp  int64
	IsFromSelf bool
}
