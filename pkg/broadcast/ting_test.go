// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

package broadcast

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stan3984/peas-rf-cp/pkg/ktable"
	"github.com/stan3984/peas-rf-cp/pkg/peerid"
	"github.com/stan3984/peas-rf-cp/pkg/xtimer"
)

func TestObserveIsAliveClearsMatchingTing(t *testing.T) {
	a := newBCNode(t, 1)
	target := ktable.NewEntry(&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9}, peerid.New(77))
	a.bm.ting = &tingProbe{target: target, waitTimer: xtimer.New(tingWait)}

	a.bm.observeIsAlive(77)

	assert.Nil(t, a.bm.ting)
	assert.False(t, a.bm.tingCadence.Expired(1.0))
}

func TestObserveIsAliveIgnoresMismatchedID(t *testing.T) {
	a := newBCNode(t, 1)
	target := ktable.NewEntry(&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9}, peerid.New(77))
	probe := &tingProbe{target: target, waitTimer: xtimer.New(tingWait)}
	a.bm.ting = probe

	a.bm.observeIsAlive(999)

	assert.Same(t, probe, a.bm.ting)
}

func TestAdvanceTingWaitBridgesUnknownNeighbor(t *testing.T) {
	a := newBCNode(t, 1)
	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9}
	target := ktable.NewEntry(addr, peerid.New(77))
	a.bm.ting = &tingProbe{target: target, sendDone: true, waitTimer: xtimer.NewExpired()}

	a.bm.advanceTingWait()

	assert.Nil(t, a.bm.ting)
	_, ok := a.bm.connAddr[addr.String()]
	assert.True(t, ok, "expected the ting target to be bridged into connected")
}

func TestTingDirectReachableButFloodUnreachableBridges(t *testing.T) {
	a := newBCNode(t, 1<<60)
	b := newBCNode(t, 2<<60)

	a.table.Offer(b.entry)
	a.bm.tingCadence = xtimer.NewExpired()

	require.Eventually(t, func() bool {
		_, ok := a.bm.connAddr[b.entry.Addr.String()]
		return ok
	}, 5*time.Second, 20*time.Millisecond)
}
