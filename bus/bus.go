package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/arloliu/go-peribus/logger"
	"github.com/arloliu/go-peribus/message"
	"github.com/puzpuzpuz/xsync/v3"
)

// Transmitter is the send primitive of the transport collaborator.
//
// Transmit puts msg on the wire towards endpoint id. It returns
// ErrUnsupported when the command kind is not part of the negotiated
// protocol; any other error is treated as a lost transmission.
type Transmitter interface {
	Transmit(ctx context.Context, id EndpointID, msg message.Message) error
}

// TransmitterFunc adapts a function to the Transmitter interface.
type TransmitterFunc func(ctx context.Context, id EndpointID, msg message.Message) error

func (f TransmitterFunc) Transmit(ctx context.Context, id EndpointID, msg message.Message) error {
	return f(ctx, id, msg)
}

// Receiver is implemented by outstanding commands. Each method must be a
// no-op once the receiver reached a terminal state.
type Receiver interface {
	OnAck(ack message.Ack)
	OnResponse(resp message.Response)
	OnNack(nack message.Nack)
}

// AttentionHandler is invoked when an endpoint flags that it requires attention.
type AttentionHandler func(id EndpointID)

type routeKey struct {
	endpoint EndpointID
	seq      message.SeqNum
}

// Bus is one logical connection to a set of endpoints.
//
// It is safe for concurrent use by multiple goroutines issuing commands and
// by the transport's receive path delivering replies.
type Bus struct {
	cfg    *Config
	tx     Transmitter
	logger logger.Logger

	endpoints *xsync.MapOf[EndpointID, *Endpoint]
	routes    *xsync.MapOf[routeKey, Receiver]

	handlerMu         sync.RWMutex
	attentionHandlers []AttentionHandler

	metrics Metrics
}

// New creates a Bus sending through tx.
func New(tx Transmitter, cfg *Config) (*Bus, error) {
	if tx == nil {
		return nil, ErrTransmitterNil
	}
	if cfg == nil {
		return nil, ErrConfigNil
	}

	return &Bus{
		cfg:       cfg,
		tx:        tx,
		logger:    cfg.logger,
		endpoints: xsync.NewMapOf[EndpointID, *Endpoint](),
		routes:    xsync.NewMapOf[routeKey, Receiver](),
	}, nil
}

// Config returns the bus configuration.
func (b *Bus) Config() *Config {
	return b.cfg
}

// GetLogger returns the logger associated with the bus.
func (b *Bus) GetLogger() logger.Logger {
	return b.logger
}

// GetMetrics returns the metrics associated with the bus.
func (b *Bus) GetMetrics() *Metrics {
	return &b.metrics
}

// Endpoint returns the endpoint with the given id, creating it on first use.
// The same *Endpoint is returned for the lifetime of the bus.
func (b *Bus) Endpoint(id EndpointID) *Endpoint {
	ep, _ := b.endpoints.LoadOrCompute(id, func() *Endpoint {
		return newEndpoint(id, b)
	})

	return ep
}

// LookupEndpoint returns the endpoint with the given id if it was ever used.
func (b *Bus) LookupEndpoint(id EndpointID) (*Endpoint, bool) {
	return b.endpoints.Load(id)
}

// OnAttention registers handlers invoked for every ack that flags
// "attention required". Handlers run on the delivery goroutine and must not block.
func (b *Bus) OnAttention(handlers ...AttentionHandler) {
	b.handlerMu.Lock()
	defer b.handlerMu.Unlock()

	b.attentionHandlers = append(b.attentionHandlers, handlers...)
}

// Register allocates a sequence number that is not outstanding for ep and
// routes replies referencing it to r until Unregister is called.
func (b *Bus) Register(ep *Endpoint, r Receiver) (message.SeqNum, error) {
	if ep.bus != b {
		return 0, ErrForeignEndpoint
	}

	// Every value of the 16-bit space except zero can be tried once.
	for range 0xFFFF {
		seq := b.cfg.seqGen.Next()
		if _, loaded := b.routes.LoadOrStore(routeKey{endpoint: ep.id, seq: seq}, r); !loaded {
			return seq, nil
		}
	}

	return 0, fmt.Errorf("%w: endpoint %d", ErrNoSequence, ep.id)
}

// Unregister removes the route of (ep, seq). Later replies for it are dropped.
func (b *Bus) Unregister(ep *Endpoint, seq message.SeqNum) {
	b.routes.Delete(routeKey{endpoint: ep.id, seq: seq})
}

// Outstanding returns the number of registered routes.
func (b *Bus) Outstanding() int {
	return b.routes.Size()
}

// Transmit sends the first copy of msg to ep.
func (b *Bus) Transmit(ctx context.Context, ep *Endpoint, msg message.Message) error {
	b.metrics.incTransmitCount()

	return b.transmit(ctx, ep, msg)
}

// Retransmit sends msg to ep again, unchanged.
func (b *Bus) Retransmit(ctx context.Context, ep *Endpoint, msg message.Message) error {
	b.metrics.incRetransmitCount()

	return b.transmit(ctx, ep, msg)
}

func (b *Bus) transmit(ctx context.Context, ep *Endpoint, msg message.Message) error {
	if err := b.tx.Transmit(ctx, ep.id, msg); err != nil {
		b.metrics.incTransmitErrCount()
		return err
	}

	return nil
}

// DeliverAck routes an ack from endpoint id to the command it references.
func (b *Bus) DeliverAck(id EndpointID, ack message.Ack) {
	if ack.AttentionRequired {
		b.notifyAttention(id)
	}

	r, ok := b.lookup(id, ack.Ref, "ack")
	if !ok {
		return
	}

	b.metrics.incAckCount()
	r.OnAck(ack)
}

// DeliverResponse routes a response from endpoint id to the command it references.
func (b *Bus) DeliverResponse(id EndpointID, resp message.Response) {
	r, ok := b.lookup(id, resp.Ref, "response")
	if !ok {
		return
	}

	b.metrics.incResponseCount()
	r.OnResponse(resp)
}

// DeliverNack routes a nack from endpoint id to the command it references.
func (b *Bus) DeliverNack(id EndpointID, nack message.Nack) {
	r, ok := b.lookup(id, nack.Ref, "nack")
	if !ok {
		return
	}

	b.metrics.incNackCount()
	r.OnNack(nack)
}

func (b *Bus) lookup(id EndpointID, ref message.SeqNum, kind string) (Receiver, bool) {
	r, ok := b.routes.Load(routeKey{endpoint: id, seq: ref})
	if !ok {
		b.metrics.incDroppedCount()
		b.logger.Debug("bus: dropping reply with no waiting command",
			"kind", kind,
			"endpoint", id,
			"ref", ref)

		return nil, false
	}

	return r, true
}

func (b *Bus) notifyAttention(id EndpointID) {
	b.handlerMu.RLock()
	handlers := make([]AttentionHandler, len(b.attentionHandlers))
	copy(handlers, b.attentionHandlers)
	b.handlerMu.RUnlock()

	for _, h := range handlers {
		h(id)
	}
}
