package publisher

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cot-protocol/cot-go/pkg/cert"
	"github.com/cot-protocol/cot-go/pkg/cot"
	"github.com/cot-protocol/cot-go/pkg/log"
	"github.com/cot-protocol/cot-go/pkg/transport"
)

// Options tunes publisher construction.
type Options struct {
	// AllowInvalid disables event validation on the codec.
	// Insecure; for testing only. A warning is logged when set.
	AllowInvalid bool

	// Logger receives publish events. Nil disables.
	Logger log.Logger
}

// Publisher sends CoT events through one transport.
type Publisher struct {
	id        string
	codec     *cot.Codec
	transport transport.Transport
	logger    log.Logger
	closed    atomic.Bool

	// ownedLogger is closed with the publisher when FromConfig opened
	// the log sink itself.
	ownedLogger io.Closer
}

// New creates a publisher over an existing transport.
func New(t transport.Transport, opts Options) *Publisher {
	return &Publisher{
		id:        uuid.NewString(),
		codec:     cot.NewCodecWithOptions(cot.CodecOptions{AllowInvalid: opts.AllowInvalid}),
		transport: t,
		logger:    log.OrNoop(opts.Logger),
	}
}

// NewMulticast creates a publisher sending to a multicast group.
// An empty addr selects transport.DefaultMulticastAddr.
func NewMulticast(addr string) (*Publisher, error) {
	t, err := transport.NewMulticast(addr)
	if err != nil {
		return nil, err
	}
	return New(t, Options{}), nil
}

// NewMulticastBound creates a multicast publisher pinned to a network
// interface.
func NewMulticastBound(addr, ifaceName string) (*Publisher, error) {
	t, err := transport.NewMulticastBound(addr, ifaceName)
	if err != nil {
		return nil, err
	}
	return New(t, Options{}), nil
}

// NewTAKServer creates a publisher over a TLS connection to a TAK
// server. The session is established lazily on the first publish.
func NewTAKServer(addr string, bundle *cert.Bundle, cfg transport.Config) (*Publisher, error) {
	t, err := transport.NewClient(addr, bundle, cfg)
	if err != nil {
		return nil, err
	}
	return New(t, Options{Logger: cfg.Logger}), nil
}

// Publish encodes the event and delivers it. The call suspends only
// at transport I/O and backoff waits; cancellation between encoding
// and the transport write leaves the event unsent.
func (p *Publisher) Publish(ctx context.Context, event *cot.Event) error {
	if p.closed.Load() {
		return transport.ErrClosed
	}

	frame, err := p.codec.Encode(event)
	if err != nil {
		p.logError(event, err)
		return err
	}

	if err := p.transport.Publish(ctx, frame); err != nil {
		p.logError(event, err)
		return err
	}

	p.logger.Log(log.Event{
		Timestamp:    time.Now().UTC(),
		ConnectionID: p.id,
		Direction:    log.DirectionOut,
		Layer:        log.LayerPublisher,
		Category:     log.CategoryFrame,
		EventUID:     event.UID,
		Frame:        log.NewFrameEvent(frame),
	})
	return nil
}

// PublishBlocking encodes and delivers the event, blocking the caller
// through connection establishment and any reconnection backoff.
func (p *Publisher) PublishBlocking(event *cot.Event) error {
	return p.Publish(context.Background(), event)
}

// HealthCheck reports whether the underlying transport can deliver.
func (p *Publisher) HealthCheck(ctx context.Context) bool {
	if p.closed.Load() {
		return false
	}
	return p.transport.HealthCheck(ctx)
}

// Close releases the underlying transport. Close is idempotent.
func (p *Publisher) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	err := p.transport.Close()
	if p.ownedLogger != nil {
		p.ownedLogger.Close()
	}
	return err
}

func (p *Publisher) logError(event *cot.Event, err error) {
	uid := ""
	if event != nil {
		uid = event.UID
	}
	p.logger.Log(log.Event{
		Timestamp:    time.Now().UTC(),
		ConnectionID: p.id,
		Direction:    log.DirectionOut,
		Layer:        log.LayerPublisher,
		Category:     log.CategoryError,
		EventUID:     uid,
		Error: &log.ErrorEventData{
			Message: err.Error(),
			Context: "publish",
		},
	})
}
