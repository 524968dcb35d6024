package transport

import (
	"context"
	"errors"
)

// Transport errors.
var (
	// ErrConfig indicates invalid transport configuration (bad address,
	// unknown interface, missing certificate bundle).
	ErrConfig = errors.New("transport configuration error")

	// ErrConnection indicates connection establishment failed (TCP
	// connect, TLS handshake, or certificate verification).
	ErrConnection = errors.New("connection failed")

	// ErrNetwork indicates a local network send failure.
	ErrNetwork = errors.New("network send failed")

	// ErrConnectionLost indicates an established connection dropped and
	// the reconnection budget was exhausted.
	ErrConnectionLost = errors.New("connection lost")

	// ErrBusy indicates a publish is already in flight on this client.
	ErrBusy = errors.New("publish already in progress")

	// ErrClosed indicates the transport has been closed.
	ErrClosed = errors.New("transport closed")
)

// Transport delivers encoded CoT event frames.
// Implementations are safe for concurrent use; see each implementation
// for its concurrency discipline.
type Transport interface {
	// Publish delivers one encoded event frame. The frame is written
	// whole or not at all.
	Publish(ctx context.Context, frame []byte) error

	// HealthCheck reports whether the transport can currently deliver.
	// It never returns an error; a failed probe may move a connection
	// to a degraded state but performs no reconnection.
	HealthCheck(ctx context.Context) bool

	// Close releases the transport. Close is idempotent; Publish after
	// Close returns ErrClosed.
	Close() error
}
