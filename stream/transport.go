package stream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/arloliu/go-peribus/bus"
	"github.com/arloliu/go-peribus/logger"
	"github.com/arloliu/go-peribus/message"
)

// Sink receives the replies read from the stream. *bus.Bus implements it.
type Sink interface {
	DeliverAck(id bus.EndpointID, ack message.Ack)
	DeliverResponse(id bus.EndpointID, resp message.Response)
	DeliverNack(id bus.EndpointID, nack message.Nack)
	LookupEndpoint(id bus.EndpointID) (*bus.Endpoint, bool)
}

var _ Sink = (*bus.Bus)(nil)

// Transport sends commands as frames over an io.ReadWriteCloser and reads
// replies back. It implements bus.Transmitter.
//
// Transmit is safe for concurrent use. Run must be called once to process
// inbound frames.
type Transport struct {
	rw     io.ReadWriteCloser
	logger logger.Logger

	writeMu sync.Mutex

	capMu sync.RWMutex
	caps  map[bus.EndpointID]map[message.Type]struct{}

	closed  atomic.Bool
	metrics Metrics
}

var _ bus.Transmitter = (*Transport)(nil)

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithLogger sets the logger of the transport.
func WithLogger(l logger.Logger) TransportOption {
	return func(t *Transport) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewTransport creates a Transport on rw. The transport owns rw and closes
// it on Close.
func NewTransport(rw io.ReadWriteCloser, opts ...TransportOption) *Transport {
	t := &Transport{
		rw:     rw,
		logger: logger.GetLogger(),
		caps:   make(map[bus.EndpointID]map[message.Type]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// GetMetrics returns the transport counters.
func (t *Transport) GetMetrics() *Metrics {
	return &t.metrics
}

// SetCapabilities restricts the command kinds transmitted to endpoint id.
// Transmitting any other kind fails with bus.ErrUnsupported. Calling it
// without types removes the restriction.
func (t *Transport) SetCapabilities(id bus.EndpointID, types ...message.Type) {
	t.capMu.Lock()
	defer t.capMu.Unlock()

	if len(types) == 0 {
		delete(t.caps, id)
		return
	}

	set := make(map[message.Type]struct{}, len(types))
	for _, typ := range types {
		set[typ] = struct{}{}
	}
	t.caps[id] = set
}

// Supports reports whether command kind typ may be transmitted to endpoint id.
func (t *Transport) Supports(id bus.EndpointID, typ message.Type) bool {
	t.capMu.RLock()
	defer t.capMu.RUnlock()

	set, ok := t.caps[id]
	if !ok {
		return true
	}
	_, ok = set[typ]

	return ok
}

// Transmit writes msg to endpoint id as one command frame.
func (t *Transport) Transmit(ctx context.Context, id bus.EndpointID, msg message.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.closed.Load() {
		return ErrClosed
	}

	if !t.Supports(id, msg.Type) {
		t.metrics.incUnsupportedCount()
		return fmt.Errorf("%w: type %s on endpoint %d", bus.ErrUnsupported, msg.Type, id)
	}

	f, err := NewCommandFrame(id, msg)
	if err != nil {
		return err
	}

	return t.writeFrame(f)
}

// WriteFrame writes f as is. It is used to send frames other than commands,
// such as the replies of a simulated endpoint.
func (t *Transport) WriteFrame(f *Frame) error {
	if t.closed.Load() {
		return ErrClosed
	}

	return t.writeFrame(f)
}

func (t *Transport) writeFrame(f *Frame) error {
	data := f.Pack()

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	for len(data) > 0 {
		n, err := t.rw.Write(data)
		if err != nil {
			return fmt.Errorf("stream: write frame: %w", err)
		}
		data = data[n:]
	}

	t.metrics.incFrameSendCount()
	t.logger.Debug("stream: frame sent", "frame", f.String())

	return nil
}

// Run reads frames until ctx is done, the transport is closed or the
// stream fails, and feeds every reply into sink. Any valid frame from an
// endpoint marks that endpoint responsive.
//
// Run returns ctx.Err() when ctx ends it, nil after Close, and the read
// error otherwise. Cancelling ctx closes the transport.
func (t *Transport) Run(ctx context.Context, sink Sink) error {
	stop := context.AfterFunc(ctx, func() { _ = t.Close() })
	defer stop()

	reader := bufio.NewReader(t.rw)
	dec := NewDecoder()

	for {
		b, err := reader.ReadByte()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if t.closed.Load() {
				return nil
			}
			if errors.Is(err, io.EOF) {
				t.logger.Debug("stream: end of stream")
				return nil
			}

			return fmt.Errorf("stream: read: %w", err)
		}

		f, err := dec.DecodeByte(b)
		if err != nil {
			t.metrics.incFrameErrCount()
			t.logger.Debug("stream: discarding invalid frame", "error", err)

			continue
		}
		if f != nil {
			t.dispatch(f, sink)
		}
	}
}

func (t *Transport) dispatch(f *Frame, sink Sink) {
	if !f.RBit() {
		t.metrics.incEchoCount()
		return
	}

	t.metrics.incFrameRecvCount()
	id := f.Endpoint()

	if ep, ok := sink.LookupEndpoint(id); ok {
		ep.MarkResponsive()
	}

	switch f.Kind() {
	case KindAck:
		sink.DeliverAck(id, f.Ack())
	case KindResponse:
		sink.DeliverResponse(id, f.Response())
	case KindNack:
		sink.DeliverNack(id, f.Nack())
	default:
		t.logger.Debug("stream: dropping unsolicited frame", "frame", f.String())
	}
}

// Close closes the underlying stream. Only the first call has an effect.
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	return t.rw.Close()
}
