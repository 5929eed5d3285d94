// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

package netpeer

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stan3984/peas-rf-cp/pkg/peerid"
	"github.com/stan3984/peas-rf-cp/pkg/trackersrv"
	"github.com/stan3984/peas-rf-cp/pkg/udptransport"
)

func TestLoneParticipantReportsNotSent(t *testing.T) {
	h := New(Config{
		UserID:   peerid.New(1),
		UserName: "alice",
		RoomID:   peerid.New(99),
	})
	t.Cleanup(h.Terminate)

	require.NotNil(t, h.LocalAddr())
	h.SendMessage("hi")

	var sawNotSent bool
	require.Eventually(t, func() bool {
		msg, ok := h.Read()
		if ok && msg.NotSent {
			sawNotSent = true
		}
		return sawNotSent
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, sawNotSent)
}

func startTestTracker(t *testing.T) net.Addr {
	t.Helper()
	sock, err := udptransport.Bind("127.0.0.1:0")
	require.NoError(t, err)
	srv := trackersrv.New(sock, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return sock.LocalAddr()
}

func TestTwoPeersExchangeAMessage(t *testing.T) {
	room := peerid.New(42)
	tracker := startTestTracker(t)

	a := New(Config{
		UserID:   peerid.New(1),
		UserName: "alice",
		RoomID:   room,
		Trackers: []net.Addr{tracker},
	})
	t.Cleanup(a.Terminate)
	require.NotNil(t, a.LocalAddr())

	// give a a moment to register itself with the tracker before b looks
	// it up.
	time.Sleep(100 * time.Millisecond)

	b := New(Config{
		UserID:   peerid.New(2),
		UserName: "bob",
		RoomID:   room,
		Trackers: []net.Addr{tracker},
	})
	t.Cleanup(b.Terminate)

	b.SendMessage("hi")

	require.Eventually(t, func() bool {
		msg, ok := a.Read()
		return ok && msg.Message != nil && msg.Message.Text == "hi"
	}, 5*time.Second, 20*time.Millisecond)
}
