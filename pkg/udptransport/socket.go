// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

// Package udptransport implements the three send/receive primitives every
// other peas component is built on: send, recv_once and recv_until_timeout,
// plus the auto-bind and blocking-mode helpers described in the design.
package udptransport

import (
	"errors"
	"net"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// MaxUDP is the maximum serialized size of a single outbound datagram.
const MaxUDP = 512

// Socket wraps a bound UDP endpoint.
type Socket struct {
	conn *net.UDPConn
}

// Bind opens a UDP socket on addr ("host:port"; port 0 picks a free port).
func Bind(addr string) (*Socket, error) {
	udpAddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, Io.Wrap(err)
	}
	conn, err := net.ListenUDP("udp4", udpAddr)
	if err != nil {
		return nil, Io.Wrap(err)
	}
	return &Socket{conn: conn}, nil
}

// OpenAny binds to port 0 on the first non-loopback, up IPv4 interface it
// can find, falling back to the wildcard address if none is found (e.g. in
// a sandboxed test environment with only loopback available).
func OpenAny() (*Socket, error) {
	ip, err := firstUsableIPv4()
	if err != nil {
		return Bind(":0")
	}
	return Bind((&net.UDPAddr{IP: ip, Port: 0}).String())
}

func firstUsableIPv4() (net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, Io.Wrap(err)
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			if ip4 := ipNet.IP.To4(); ip4 != nil {
				return ip4, nil
			}
		}
	}
	return nil, Io.New("no usable IPv4 interface found")
}

// LocalAddr returns the socket's bound local address.
func (s *Socket) LocalAddr() *net.UDPAddr {
	return s.conn.LocalAddr().(*net.UDPAddr)
}

// Close releases the underlying file descriptor.
func (s *Socket) Close() error {
	return Io.Wrap(s.conn.Close())
}

// SetBlocking removes any read deadline: reads will block indefinitely.
func (s *Socket) SetBlocking() error {
	return Io.Wrap(s.conn.SetReadDeadline(time.Time{}))
}

// SetNonblocking makes the next read return immediately with Timeout if no
// datagram is already queued.
func (s *Socket) SetNonblocking() error {
	return Io.Wrap(s.conn.SetReadDeadline(time.Now()))
}

// SetTimeout arms a read deadline d from now.
func (s *Socket) SetTimeout(d time.Duration) error {
	return Io.Wrap(s.conn.SetReadDeadline(time.Now().Add(d)))
}

// Marshal serializes msg with CBOR, the codec used for every message this
// package and its callers put on the wire.
func Marshal(msg any) ([]byte, error) {
	data, err := cbor.Marshal(msg)
	if err != nil {
		return nil, Io.Wrap(err)
	}
	return data, nil
}

// Unmarshal deserializes data as a T, the inverse of Marshal.
func Unmarshal[T any](data []byte) (T, error) {
	var out T
	if err := cbor.Unmarshal(data, &out); err != nil {
		return out, NoMessage.New("could not deserialize: %v", err)
	}
	return out, nil
}

// Send serializes msg with CBOR and emits exactly one datagram to addr.
func Send(s *Socket, msg any, addr net.Addr) error {
	data, err := Marshal(msg)
	if err != nil {
		return err
	}
	if len(data) > MaxUDP {
		return TooLarge.New("serialized message is %d bytes, max is %d", len(data), MaxUDP)
	}
	if _, err := s.conn.WriteTo(data, addr); err != nil {
		return Io.Wrap(err)
	}
	return nil
}

// RecvOnce attempts a single datagram read into a MaxUDP-sized buffer,
// deserializing it as T. A datagram that exactly fills the buffer is
// assumed truncated and reported as NoMessage, matching the design's
// truncation-detection rule.
func RecvOnce[T any](s *Socket) (net.Addr, T, error) {
	var zero T
	buf := make([]byte, MaxUDP)
	n, addr, err := s.conn.ReadFrom(buf)
	if err != nil {
		if isTimeout(err) {
			return nil, zero, Timeout.New("read timed out")
		}
		return nil, zero, Io.Wrap(err)
	}
	if n == MaxUDP {
		return nil, zero, NoMessage.New("datagram filled the receive buffer, assuming truncation")
	}
	var out T
	if err := cbor.Unmarshal(buf[:n], &out); err != nil {
		return nil, zero, NoMessage.New("could not deserialize datagram: %v", err)
	}
	return addr, out, nil
}

// RecvUntilTimeout repeats RecvOnce, polling with a read timeout of
// total/10, until either pred(sender, msg) returns true (success) or total
// elapses (Timeout).
func RecvUntilTimeout[T any](s *Socket, total time.Duration, pred func(net.Addr, T) bool) (net.Addr, T, error) {
	var zero T
	deadline := time.Now().Add(total)
	poll := total / 10
	if poll <= 0 {
		poll = time.Millisecond
	}

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, zero, Timeout.New("recv_until_timeout: %s elapsed", total)
		}
		step := poll
		if remaining < step {
			step = remaining
		}
		if err := s.SetTimeout(step); err != nil {
			return nil, zero, err
		}

		addr, msg, err := RecvOnce[T](s)
		switch {
		case err == nil:
			if pred(addr, msg) {
				return addr, msg, nil
			}
			// not the message we wanted; keep polling.
		case Timeout.Has(err):
			// just a polling-interval timeout, keep going until the outer
			// deadline is reached.
		case NoMessage.Has(err):
			// ignore and keep polling.
		default:
			return nil, zero, err
		}
	}
}

// Clear drains any pending datagrams without blocking.
func Clear(s *Socket) error {
	if err := s.SetNonblocking(); err != nil {
		return err
	}
	for {
		_, _, err := RecvOnce[struct{}](s)
		if err == nil {
			continue
		}
		if Timeout.Has(err) || NoMessage.Has(err) {
			return nil
		}
		return err
	}
}

func isTimeout(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) {
		return nerr.Timeout()
	}
	return false
}
