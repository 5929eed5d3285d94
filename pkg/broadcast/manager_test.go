// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

package broadcast

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stan3984/peas-rf-cp/pkg/chatmsg"
	"github.com/stan3984/peas-rf-cp/pkg/ktable"
	"github.com/stan3984/peas-rf-cp/pkg/peerid"
	"github.com/stan3984/peas-rf-cp/pkg/udpsession"
	"github.com/stan3984/peas-rf-cp/pkg/udptransport"
)

type bcNode struct {
	id    peerid.ID
	table *ktable.Table
	um    *udpsession.Manager
	bm    *Manager
	out   chan OutEvent
	entry ktable.Entry
	stop  chan struct{}
}

func newBCNode(t *testing.T, id uint64) *bcNode {
	t.Helper()
	sock, err := udptransport.Bind("127.0.0.1:0")
	require.NoError(t, err)

	n := &bcNode{id: peerid.New(id), stop: make(chan struct{})}
	n.table = ktable.New(3, n.id)
	n.um = udpsession.Start(sock, nil)
	sh := n.um.RegisterService(ServiceTag)
	n.out = make(chan OutEvent, 16)
	n.bm = New(n.table, sh, n.um, n.out, n.id, nil)
	n.entry = ktable.NewEntry(sock.LocalAddr(), n.id)

	go func() {
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-n.stop:
				return
			case <-ticker.C:
				n.bm.Update()
			}
		}
	}()
	t.Cleanup(func() {
		close(n.stop)
		n.um.Terminate()
	})
	return n
}

func TestBroadcastWithNoNeighborsReportsNotSent(t *testing.T) {
	a := newBCNode(t, 1)
	a.bm.Broadcast(chatmsg.ChatMessage{Text: "hi"})

	select {
	case ev := <-a.out:
		assert.True(t, ev.NotSent)
	case <-time.After(time.Second):
		t.Fatal("expected a NotSent event")
	}
}

func TestBroadcastTriangleDeduplicates(t *testing.T) {
	a := newBCNode(t, 1<<62)
	b := newBCNode(t, 2<<62)
	c := newBCNode(t, 3<<62)

	a.table.Offer(b.entry)
	a.table.Offer(c.entry)
	b.table.Offer(a.entry)
	b.table.Offer(c.entry)
	c.table.Offer(a.entry)
	c.table.Offer(b.entry)

	require.Eventually(t, func() bool {
		return len(a.bm.connected) == 2 && len(b.bm.connected) == 2 && len(c.bm.connected) == 2
	}, 2*time.Second, 10*time.Millisecond)

	a.bm.Broadcast(chatmsg.ChatMessage{Text: "hello room"})

	waitForMsg := func(n *bcNode) chatmsg.ChatMessage {
		select {
		case ev := <-n.out:
			require.NotNil(t, ev.Message)
			return *ev.Message
		case <-time.After(2 * time.Second):
			t.Fatal("expected a delivered chat message")
			return chatmsg.ChatMessage{}
		}
	}

	gotB := waitForMsg(b)
	gotC := waitForMsg(c)
	assert.Equal(t, "hello room", gotB.Text)
	assert.False(t, gotB.IsFromSelf)
	assert.Equal(t, "hello room", gotC.Text)

	// the second copy reaching each peer (via reflooding through the other)
	// must be suppressed by the dedup cache.
	select {
	case ev := <-b.out:
		t.Fatalf("unexpected second delivery to b: %+v", ev)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestDeadOnlyNeighborIsRemovedAndReportsNotSent(t *testing.T) {
	a := newBCNode(t, 1)

	deadAddr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1}
	a.table.Offer(ktable.NewEntry(deadAddr, peerid.New(42)))

	require.Eventually(t, func() bool {
		return len(a.bm.connected) == 1
	}, time.Second, 10*time.Millisecond)

	a.bm.Broadcast(chatmsg.ChatMessage{Text: "anyone there"})

	require.Eventually(t, func() bool {
		return len(a.bm.connected) == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, a.table.Len())

	foundNotSent := false
	for i := 0; i < 2; i++ {
		select {
		case ev := <-a.out:
			if ev.NotSent {
				foundNotSent = true
			}
		case <-time.After(time.Second):
		}
	}
	assert.True(t, foundNotSent, "expected a NotSent event once the only neighbor died")
}
