// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

package trackersrv

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"github.com/stan3984/peas-rf-cp/pkg/trackerapi"
	"github.com/stan3984/peas-rf-cp/pkg/udptransport"
)

var mon = monkit.Package()

// TTL is how long a registration stays valid without a refresh, and the
// value advertised to clients on a successful Update.
const TTL = 5 * time.Minute

// pollTimeout bounds each socket read so Run can observe ctx cancellation
// promptly instead of blocking forever.
const pollTimeout = time.Second

// Server answers the tracker wire protocol over a single UDP socket.
type Server struct {
	sock  *udptransport.Socket
	store *Store
	log   *zap.Logger
}

// New constructs a Server bound to sock.
func New(sock *udptransport.Socket, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{sock: sock, store: NewStore(), log: log}
}

// Run services requests until ctx is cancelled or the socket fails.
func (s *Server) Run(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := s.sock.SetTimeout(pollTimeout); err != nil {
			return err
		}
		addr, q, err := udptransport.RecvOnce[trackerapi.Query](s.sock)
		switch {
		case err == nil:
			s.handle(addr, q)
		case udptransport.Timeout.Has(err), udptransport.NoMessage.Has(err):
		default:
			return err
		}

		s.store.RemoveOld(TTL, time.Now())
	}
}

func (s *Server) handle(sender net.Addr, q trackerapi.Query) {
	switch q.Kind {
	case trackerapi.KindUpdate:
		s.handleUpdate(sender, q)
	case trackerapi.KindLookup:
		s.handleLookup(sender, q)
	}
}

func (s *Server) handleUpdate(sender net.Addr, q trackerapi.Query) {
	addr, err := net.ResolveUDPAddr("udp4", q.Addr)
	if err != nil {
		s.log.Debug("update with unparsable address", zap.String("addr", q.Addr))
		return
	}
	s.store.Update(q.RoomID, addr)
	resp := trackerapi.Resp{Kind: trackerapi.KindUpdateSuccess, RoomID: q.RoomID, TTLMillis: TTL.Milliseconds()}
	if err := udptransport.Send(s.sock, resp, sender); err != nil {
		s.log.Debug("could not answer update", zap.Error(err))
	}
}

func (s *Server) handleLookup(sender net.Addr, q trackerapi.Query) {
	resp := trackerapi.Resp{Kind: trackerapi.KindLookupAns}
	if addr, counter, ok := s.store.Lookup(q.RoomID, q.LastLookup); ok {
		resp.Addr = addr.String()
		resp.LookupID = counter
	}
	if err := udptransport.Send(s.sock, resp, sender); err != nil {
		s.log.Debug("could not answer lookup", zap.Error(err))
	}
}
