// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

package udptransport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testMsg struct {
	Value string
}

func mustBind(t *testing.T) *Socket {
	t.Helper()
	s, err := Bind("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSendRecvRoundTrip(t *testing.T) {
	a := mustBind(t)
	b := mustBind(t)

	require.NoError(t, Send(a, testMsg{Value: "hello"}, b.LocalAddr()))

	require.NoError(t, b.SetTimeout(time.Second))
	_, got, err := RecvOnce[testMsg](b)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Value)
}

func TestRecvOnceTimesOutWhenNothingArrives(t *testing.T) {
	b := mustBind(t)
	require.NoError(t, b.SetTimeout(20*time.Millisecond))
	_, _, err := RecvOnce[testMsg](b)
	assert.True(t, Timeout.Has(err))
}

func TestSendTooLarge(t *testing.T) {
	a := mustBind(t)
	b := mustBind(t)
	big := testMsg{Value: string(make([]byte, MaxUDP*2))}
	err := Send(a, big, b.LocalAddr())
	assert.True(t, TooLarge.Has(err))
}

func TestRecvUntilTimeoutFindsMatchingMessage(t *testing.T) {
	a := mustBind(t)
	b := mustBind(t)

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = Send(a, testMsg{Value: "skip"}, b.LocalAddr())
		time.Sleep(10 * time.Millisecond)
		_ = Send(a, testMsg{Value: "match"}, b.LocalAddr())
	}()

	_, got, err := RecvUntilTimeout[testMsg](b, time.Second, func(_ net.Addr, m testMsg) bool {
		return m.Value == "match"
	})
	require.NoError(t, err)
	assert.Equal(t, "match", got.Value)
}

func TestRecvUntilTimeoutGivesUp(t *testing.T) {
	b := mustBind(t)
	_, _, err := RecvUntilTimeout[testMsg](b, 50*time.Millisecond, func(_ net.Addr, m testMsg) bool {
		return false
	})
	assert.True(t, Timeout.Has(err))
}

func TestClearDrainsPendingDatagrams(t *testing.T) {
	a := mustBind(t)
	b := mustBind(t)
	require.NoError(t, Send(a, testMsg{Value: "one"}, b.LocalAddr()))
	require.NoError(t, Send(a, testMsg{Value: "two"}, b.LocalAddr()))

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, Clear(b))

	require.NoError(t, b.SetTimeout(20 * time.Millisecond))
	_, _, err := RecvOnce[testMsg](b)
	assert.True(t, Timeout.Has(err))
}
