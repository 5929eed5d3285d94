// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

package udpsession

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stan3984/peas-rf-cp/pkg/udptransport"
)

type pingMsg struct{ Text string }
type pongMsg struct{ Text string }

const pingService = uint32(1)

func mustManager(t *testing.T) (*Manager, net.Addr) {
	t.Helper()
	sock, err := udptransport.Bind("127.0.0.1:0")
	require.NoError(t, err)
	addr := sock.LocalAddr()
	m := Start(sock, nil)
	t.Cleanup(m.Terminate)
	return m, addr
}

func TestSendReceivesServiceReply(t *testing.T) {
	server, serverAddr := mustManager(t)
	client, _ := mustManager(t)

	sh := server.RegisterService(pingService)

	handle, err := Send[pongMsg](client, pingMsg{Text: "hi"}, []net.Addr{serverAddr}, pingService)
	require.NoError(t, err)

	var got pingMsg
	var from net.Addr
	var id uint64
	require.Eventually(t, func() bool {
		var ok bool
		got, from, id, ok = ServiceGet[pingMsg](sh)
		return ok
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "hi", got.Text)

	require.NoError(t, ServiceRespond(sh, pongMsg{Text: "hello back"}, id, from))

	handle.UpdateWait()
	require.True(t, handle.IsDone())
	assert.False(t, handle.IsDead(serverAddr))
	assert.Equal(t, "hello back", handle.GetAnswer(serverAddr).Text)
}

func TestSendToUnresponsiveDestEventuallyDies(t *testing.T) {
	client, _ := mustManager(t)

	deadAddr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1}
	handle, err := Send[pongMsg](client, pingMsg{Text: "hi"}, []net.Addr{deadAddr}, pingService)
	require.NoError(t, err)

	require.Eventually(t, handle.IsDone, 2*time.Second, 10*time.Millisecond)
	assert.True(t, handle.IsDead(deadAddr))
}

func TestSendFanOutToMultipleDests(t *testing.T) {
	serverA, addrA := mustManager(t)
	serverB, addrB := mustManager(t)
	client, _ := mustManager(t)

	shA := serverA.RegisterService(pingService)
	shB := serverB.RegisterService(pingService)

	handle, err := Send[pongMsg](client, pingMsg{Text: "hi"}, []net.Addr{addrA, addrB}, pingService)
	require.NoError(t, err)

	respondOnce := func(sh *ServiceHandle, text string) {
		require.Eventually(t, func() bool {
			_, from, id, ok := ServiceGet[pingMsg](sh)
			if !ok {
				return false
			}
			require.NoError(t, ServiceRespond(sh, pongMsg{Text: text}, id, from))
			return true
		}, time.Second, 5*time.Millisecond)
	}
	respondOnce(shA, "from-a")
	respondOnce(shB, "from-b")

	handle.UpdateWait()
	assert.Equal(t, "from-a", handle.GetAnswer(addrA).Text)
	assert.Equal(t, "from-b", handle.GetAnswer(addrB).Text)
}

func TestGetSingleAnswer(t *testing.T) {
	server, serverAddr := mustManager(t)
	client, _ := mustManager(t)
	sh := server.RegisterService(pingService)

	handle, err := Send[pongMsg](client, pingMsg{Text: "hi"}, []net.Addr{serverAddr}, pingService)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, from, id, ok := ServiceGet[pingMsg](sh)
		if !ok {
			return false
		}
		require.NoError(t, ServiceRespond(sh, pongMsg{Text: "pong"}, id, from))
		return true
	}, time.Second, 5*time.Millisecond)

	handle.UpdateWait()
	v, ok := handle.GetSingleAnswer()
	require.True(t, ok)
	assert.Equal(t, "pong", v.Text)
}

func TestSendRejectsEmptyDests(t *testing.T) {
	client, _ := mustManager(t)
	_, err := Send[pongMsg](client, pingMsg{}, nil, pingService)
	assert.Error(t, err)
}
