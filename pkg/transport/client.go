package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cot-protocol/cot-go/pkg/cert"
	"github.com/cot-protocol/cot-go/pkg/connection"
	"github.com/cot-protocol/cot-go/pkg/log"
)

// Connection states.
type State int32

const (
	// StateDisconnected indicates no session has been established yet.
	StateDisconnected State = iota

	// StateConnecting indicates a handshake is in progress.
	StateConnecting

	// StateAuthenticated indicates a live mutually-authenticated session.
	StateAuthenticated

	// StateDegraded indicates the session dropped and reconnection is
	// pending or in progress.
	StateDegraded

	// StateClosed indicates the client is terminally closed.
	StateClosed
)

// String returns the connection state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateDegraded:
		return "DEGRADED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// healthProbeTimeout bounds the HealthCheck read probe.
const healthProbeTimeout = 250 * time.Millisecond

// Config configures a TAK server client.
type Config struct {
	// ServerName overrides the name used for server certificate
	// verification. Defaults to the host part of the dial address.
	ServerName string

	// IgnoreInvalid disables server certificate verification.
	// Unsafe; only for lab servers with self-signed certificates.
	// A prominent warning is logged when set.
	IgnoreInvalid bool

	// ConnectTimeout bounds TCP connect plus TLS handshake
	// (default: 30s).
	ConnectTimeout time.Duration

	// Reconnection policy after a mid-session drop. Zero values take
	// the connection package defaults.
	MaxReconnectAttempts int
	BackoffBase          time.Duration
	BackoffCap           time.Duration
	BackoffMultiplier    float64

	// Logger receives frame, state and error events. Nil disables.
	Logger log.Logger
}

func (c Config) retryPolicy() connection.Policy {
	return connection.Policy{
		Base:        c.BackoffBase,
		Cap:         c.BackoffCap,
		Multiplier:  c.BackoffMultiplier,
		Jitter:      connection.DefaultJitterFactor,
		MaxAttempts: c.MaxReconnectAttempts,
	}
}

// Client is a TLS connection to a TAK server. It holds at most one
// live session and allows one in-flight publish at a time; a
// concurrent Publish fails fast with ErrBusy.
type Client struct {
	id      string
	addr    string
	config  Config
	tlsConf *tls.Config
	logger  log.Logger

	state atomic.Int32

	// publishMu serializes the publish path. TryLock keeps a second
	// caller from queueing behind a reconnection storm.
	publishMu sync.Mutex

	mu        sync.Mutex
	conn      *tls.Conn
	closeOnce sync.Once
}

// NewClient creates an unconnected client. The TLS session is
// established lazily on the first Publish.
func NewClient(addr string, bundle *cert.Bundle, cfg Config) (*Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("%w: server address is required", ErrConfig)
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}

	tlsConf, err := newClientTLSConfig(bundle, addr, cfg)
	if err != nil {
		return nil, err
	}

	c := &Client{
		id:      uuid.NewString(),
		addr:    addr,
		config:  cfg,
		tlsConf: tlsConf,
		logger:  log.OrNoop(cfg.Logger),
	}
	c.state.Store(int32(StateDisconnected))

	return c, nil
}

// Dial creates a client and eagerly establishes the TLS session.
// A handshake or verification failure closes the client and returns
// ErrConnection; initial connection failures are never retried.
func Dial(ctx context.Context, addr string, bundle *cert.Bundle, cfg Config) (*Client, error) {
	c, err := NewClient(addr, bundle, cfg)
	if err != nil {
		return nil, err
	}

	c.setState(StateConnecting, "dialing")
	if err := c.connect(ctx); err != nil {
		c.setState(StateClosed, "initial connect failed")
		c.logError(err, "dial")
		return nil, err
	}
	c.setState(StateAuthenticated, "handshake complete")

	return c, nil
}

// ID returns the client's connection identifier (UUID), as surfaced
// in log events.
func (c *Client) ID() string {
	return c.id
}

// RemoteAddr returns the configured server address.
func (c *Client) RemoteAddr() string {
	return c.addr
}

// State returns the current connection state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// Publish writes one event frame to the server. The frame goes out in
// a single Write call, so cancellation never leaves a partial event on
// the wire.
//
// A write failure on a live session moves the client to Degraded and
// drives bounded reconnection with exponential backoff; on success the
// frame is re-sent and the publish completes. Budget exhaustion closes
// the client and returns ErrConnectionLost.
//
// A concurrent Publish on the same client returns ErrBusy immediately.
func (c *Client) Publish(ctx context.Context, frame []byte) error {
	if !c.publishMu.TryLock() {
		return ErrBusy
	}
	defer c.publishMu.Unlock()

	switch c.State() {
	case StateClosed:
		return ErrClosed

	case StateDisconnected:
		c.setState(StateConnecting, "lazy connect")
		if err := c.connect(ctx); err != nil {
			c.setState(StateClosed, "initial connect failed")
			c.logError(err, "connect")
			return err
		}
		c.setState(StateAuthenticated, "handshake complete")
	}

	err := c.writeFrame(ctx, frame)
	if err == nil {
		c.logFrame(frame)
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	c.logError(err, "write")
	c.setState(StateDegraded, "write failed")

	// Bounded reconnection: each attempt redials and re-sends the
	// frame. The full frame was buffered up front, so a re-send after
	// a partial TLS write cannot interleave with stale bytes; the
	// server sees the event once per accepted session.
	retryErr := connection.Retry(ctx, c.config.retryPolicy(), func(ctx context.Context) error {
		if err := c.connect(ctx); err != nil {
			c.logError(err, "reconnect")
			return err
		}
		return c.writeFrame(ctx, frame)
	})
	if retryErr == nil {
		c.setState(StateAuthenticated, "reconnected")
		c.logFrame(frame)
		return nil
	}
	if errors.Is(retryErr, context.Canceled) || errors.Is(retryErr, context.DeadlineExceeded) {
		// Caller gave up mid-backoff; the client stays Degraded and a
		// later publish gets a fresh budget.
		return retryErr
	}

	c.setState(StateClosed, "reconnection budget exhausted")
	c.closeSession()
	c.logError(retryErr, "reconnect budget")
	return fmt.Errorf("%w: %w", ErrConnectionLost, retryErr)
}

// HealthCheck probes the session with a short deadline read. A TAK
// server pushes no data to a pure publisher, so a deadline expiry
// means the session is still up; an EOF or reset means it is not.
// A failed probe marks the client Degraded but performs no
// reconnection. HealthCheck never returns an error.
func (c *Client) HealthCheck(ctx context.Context) bool {
	if ctx.Err() != nil || c.State() != StateAuthenticated {
		return false
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return false
	}

	conn.SetReadDeadline(time.Now().Add(healthProbeTimeout))
	defer conn.SetReadDeadline(time.Time{})

	var buf [1]byte
	_, err := conn.Read(buf[:])
	if err == nil || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	c.logError(err, "health check")
	c.setState(StateDegraded, "health probe failed")
	return false
}

// Close terminally closes the client. Close is idempotent; Publish
// after Close returns ErrClosed.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.setState(StateClosed, "closed by caller")
		c.closeSession()
	})
	return nil
}

// connect dials the server and completes the TLS handshake, replacing
// any previous session.
func (c *Client) connect(ctx context.Context) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ConnectTimeout)
		defer cancel()
	}

	dialer := &net.Dialer{}
	raw, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %w", ErrConnection, c.addr, err)
	}

	tlsConn := tls.Client(raw, c.tlsConf)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		raw.Close()
		return fmt.Errorf("%w: TLS handshake with %s: %w", ErrConnection, c.addr, err)
	}

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = tlsConn
	c.mu.Unlock()

	return nil
}

// writeFrame writes the frame with a single Write call.
func (c *Client) writeFrame(ctx context.Context, frame []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("%w: no session", ErrConnection)
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
		defer conn.SetWriteDeadline(time.Time{})
	}

	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("%w: write to %s: %w", ErrConnection, c.addr, err)
	}
	return nil
}

func (c *Client) closeSession() {
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()
}

func (c *Client) setState(newState State, reason string) {
	oldState := State(c.state.Swap(int32(newState)))
	if oldState == newState {
		return
	}
	c.logger.Log(log.Event{
		Timestamp:    time.Now().UTC(),
		ConnectionID: c.id,
		Direction:    log.DirectionOut,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		Transport:    "tls",
		RemoteAddr:   c.addr,
		StateChange: &log.StateChangeEvent{
			OldState: oldState.String(),
			NewState: newState.String(),
			Reason:   reason,
		},
	})
}

func (c *Client) logFrame(frame []byte) {
	c.logger.Log(log.Event{
		Timestamp:    time.Now().UTC(),
		ConnectionID: c.id,
		Direction:    log.DirectionOut,
		Layer:        log.LayerTransport,
		Category:     log.CategoryFrame,
		Transport:    "tls",
		RemoteAddr:   c.addr,
		Frame:        log.NewFrameEvent(frame),
	})
}

func (c *Client) logError(err error, op string) {
	c.logger.Log(log.Event{
		Timestamp:    time.Now().UTC(),
		ConnectionID: c.id,
		Direction:    log.DirectionOut,
		Layer:        log.LayerTransport,
		Category:     log.CategoryError,
		Transport:    "tls",
		RemoteAddr:   c.addr,
		Error: &log.ErrorEventData{
			Message: err.Error(),
			Context: op,
		},
	})
}

// Compile-time interface satisfaction check.
var _ Transport = (*Client)(nil)
