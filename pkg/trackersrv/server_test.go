// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

package trackersrv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stan3984/peas-rf-cp/pkg/peerid"
	"github.com/stan3984/peas-rf-cp/pkg/trackerapi"
	"github.com/stan3984/peas-rf-cp/pkg/udptransport"
)

func TestServerAnswersUpdateThenLookup(t *testing.T) {
	serverSock, err := udptransport.Bind("127.0.0.1:0")
	require.NoError(t, err)
	srv := New(serverSock, nil)

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

	clientSock, err := udptransport.Bind("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = clientSock.Close() })

	room := peerid.New(7)
	ttl, err := trackerapi.Update(clientSock, room, clientSock.LocalAddr(), serverSock.LocalAddr())
	require.NoError(t, err)
	assert.Equal(t, TTL, ttl)

	sess := trackerapi.NewLookupSession(clientSock, serverSock.LocalAddr(), room)
	addr, ok, err := sess.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, clientSock.LocalAddr().String(), addr.String())

	_, ok, err = sess.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestServerLookupOnEmptyRoomReturnsNone(t *testing.T) {
	serverSock, err := udptransport.Bind("127.0.0.1:0")
	require.NoError(t, err)
	srv := New(serverSock, nil)

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

	clientSock, err := udptransport.Bind("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = clientSock.Close() })

	sess := trackerapi.NewLookupSession(clientSock, serverSock.LocalAddr(), peerid.New(123))
	_, ok, err := sess.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}
