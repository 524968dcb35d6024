package publisher

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cot-protocol/cot-go/pkg/cot"
	"github.com/cot-protocol/cot-go/pkg/transport"
)

// listenGroup joins a multicast group on an ephemeral port so tests
// can observe published datagrams.
func listenGroup(t *testing.T) (*net.UDPConn, string) {
	t.Helper()

	group := &net.UDPAddr{IP: net.ParseIP("239.2.3.1"), Port: 0}
	conn, err := net.ListenMulticastUDP("udp4", nil, group)
	if err != nil {
		t.Skipf("multicast unavailable: %v", err)
	}

	port := conn.LocalAddr().(*net.UDPAddr).Port
	return conn, fmt.Sprintf("239.2.3.1:%d", port)
}

func readDatagram(t *testing.T, conn *net.UDPConn) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 64*1024)
	n, _, err := conn.ReadFromUDP(buf)
	require.NoError(t, err)
	return buf[:n]
}

func trackEvent(t *testing.T) *cot.Event {
	t.Helper()
	ev, err := cot.NewEvent("TRACK1", "a-f-G-E-V-C")
	require.NoError(t, err)
	ev.SetPoint(34.05, -118.25)
	ev.SetContact("RAVEN", "192.168.1.10:4242")
	return ev
}

func TestBlockingAndContextPathsProduceIdenticalBytes(t *testing.T) {
	listener, addr := listenGroup(t)
	defer listener.Close()

	pub, err := NewMulticast(addr)
	require.NoError(t, err)
	defer pub.Close()

	ev := trackEvent(t)

	require.NoError(t, pub.Publish(context.Background(), ev))
	fromCtx := readDatagram(t, listener)

	require.NoError(t, pub.PublishBlocking(ev))
	fromBlocking := readDatagram(t, listener)

	assert.Equal(t, fromCtx, fromBlocking)
}

func TestPublishValidatesBeforeSending(t *testing.T) {
	listener, addr := listenGroup(t)
	defer listener.Close()

	pub, err := NewMulticast(addr)
	require.NoError(t, err)
	defer pub.Close()

	bad := trackEvent(t)
	bad.Type = "not-a-type-code"

	err = pub.Publish(context.Background(), bad)
	assert.ErrorIs(t, err, cot.ErrValidation)

	// Nothing reached the wire.
	require.NoError(t, listener.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	buf := make([]byte, 1024)
	_, _, err = listener.ReadFromUDP(buf)
	assert.Error(t, err)
}

func TestAllowInvalidPassthrough(t *testing.T) {
	listener, addr := listenGroup(t)
	defer listener.Close()

	mt, err := transport.NewMulticast(addr)
	require.NoError(t, err)
	pub := New(mt, Options{AllowInvalid: true})
	defer pub.Close()

	bad := trackEvent(t)
	bad.Type = "not-a-type-code"

	require.NoError(t, pub.Publish(context.Background(), bad))
	frame := readDatagram(t, listener)
	assert.Contains(t, string(frame), `type="not-a-type-code"`)
}

func TestPublishAfterClose(t *testing.T) {
	pub, err := NewMulticast("239.2.3.1:16975")
	require.NoError(t, err)

	require.NoError(t, pub.Close())
	require.NoError(t, pub.Close()) // idempotent

	err = pub.Publish(context.Background(), trackEvent(t))
	assert.ErrorIs(t, err, transport.ErrClosed)
	assert.False(t, pub.HealthCheck(context.Background()))
}

func TestPublishedFrameDecodes(t *testing.T) {
	listener, addr := listenGroup(t)
	defer listener.Close()

	pub, err := NewMulticast(addr)
	require.NoError(t, err)
	defer pub.Close()

	ev := trackEvent(t)
	require.NoError(t, pub.PublishBlocking(ev))

	frame := readDatagram(t, listener)
	decoded, err := cot.NewCodec().Decode(frame)
	require.NoError(t, err)
	assert.True(t, ev.Equal(decoded))
}

func TestHealthCheckDelegates(t *testing.T) {
	pub, err := NewMulticast("239.2.3.1:16976")
	require.NoError(t, err)
	defer pub.Close()

	assert.True(t, pub.HealthCheck(context.Background()))
}
