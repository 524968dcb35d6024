package transport

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"golang.org/x/net/ipv4"
)

// DefaultMulticastAddr is the conventional ATAK situational-awareness
// multicast group.
const DefaultMulticastAddr = "239.2.3.1:6969"

// defaultMulticastTTL keeps datagrams on the local network segment
// unless routers are configured to forward them.
const defaultMulticastTTL = 1

// Multicast sends each event as one UDP datagram to a multicast group.
// Delivery is fire-and-forget: Publish returns as soon as the OS
// accepts the datagram. Multicast is safe for concurrent use; each
// Publish is an independent send.
type Multicast struct {
	conn   *net.UDPConn
	group  *net.UDPAddr
	closed atomic.Bool
}

// NewMulticast creates a multicast transport for the given group
// address. An empty addr selects DefaultMulticastAddr. The egress
// interface is left to the OS routing table.
func NewMulticast(addr string) (*Multicast, error) {
	return newMulticast(addr, "")
}

// NewMulticastBound creates a multicast transport that sends through
// the named network interface. Hosts with several interfaces use this
// to pin SA traffic to the radio-side network.
func NewMulticastBound(addr, ifaceName string) (*Multicast, error) {
	if ifaceName == "" {
		return nil, fmt.Errorf("%w: interface name is required", ErrConfig)
	}
	return newMulticast(addr, ifaceName)
}

func newMulticast(addr, ifaceName string) (*Multicast, error) {
	if addr == "" {
		addr = DefaultMulticastAddr
	}

	group, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid multicast address %q: %w", ErrConfig, addr, err)
	}
	if !group.IP.IsMulticast() {
		return nil, fmt.Errorf("%w: %s is not a multicast address", ErrConfig, group.IP)
	}

	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: opening UDP socket: %w", ErrConfig, err)
	}

	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetMulticastTTL(defaultMulticastTTL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: setting multicast TTL: %w", ErrConfig, err)
	}

	if ifaceName != "" {
		iface, err := net.InterfaceByName(ifaceName)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("%w: unknown interface %q: %w", ErrConfig, ifaceName, err)
		}
		if err := pc.SetMulticastInterface(iface); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%w: binding interface %q: %w", ErrConfig, ifaceName, err)
		}
	}

	return &Multicast{
		conn:  conn,
		group: group,
	}, nil
}

// Publish sends one event frame as a single datagram. It returns
// ErrNetwork if the OS rejects the send and never blocks waiting for
// receivers; UDP multicast has no delivery confirmation.
func (m *Multicast) Publish(ctx context.Context, frame []byte) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := m.conn.WriteToUDP(frame, m.group); err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	return nil
}

// HealthCheck reports whether the socket is still usable.
func (m *Multicast) HealthCheck(ctx context.Context) bool {
	if m.closed.Load() || ctx.Err() != nil {
		return false
	}
	return m.conn.LocalAddr() != nil
}

// Close releases the socket. Close is idempotent.
func (m *Multicast) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	return m.conn.Close()
}

// GroupAddr returns the multicast destination.
func (m *Multicast) GroupAddr() *net.UDPAddr {
	return m.group
}

// Compile-time interface satisfaction check.
var _ Transport = (*Multicast)(nil)
