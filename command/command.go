package command

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-peribus/bus"
	"github.com/arloliu/go-peribus/internal/pool"
	"github.com/arloliu/go-peribus/logger"
	"github.com/arloliu/go-peribus/message"
	"github.com/arloliu/go-peribus/retry"
	"github.com/rs/xid"
)

// Empty is the response type of commands that are only acknowledged.
type Empty struct{}

// Command is an outgoing request to one endpoint that expects a correlated
// reply. R is the decoded response type; use Empty for commands answered by
// a bare Ack.
//
// Send and SendAndReceive may be called once. The OnAck, OnResponse and
// OnNack methods are called by the bus receive path and are safe for
// concurrent use; only the first reply that completes the command has an
// effect.
type Command[R any] struct {
	id      xid.ID
	ep      *bus.Endpoint
	bus     *bus.Bus
	logger  logger.Logger
	msgType message.Type
	payload []byte

	expectsResponse bool
	hasDefault      bool
	defaultResponse R
	decode          func([]byte) (R, error)
	policy          retry.Policy

	sent  atomic.Bool
	state atomic.Uint32
	seq   atomic.Uint32

	// done is closed by the single writer that completed the command.
	// outcome, response and nackErr are only read after done is closed.
	done     chan struct{}
	outcome  Outcome
	response R
	nackErr  *NackError

	attention atomic.Bool
}

var _ bus.Receiver = (*Command[Empty])(nil)

// New creates a command of type t carrying payload to ep.
//
// When expectsResponse is false the command completes on Ack; otherwise it
// completes on a Response decoded into R. The retry policy defaults to the
// bus policy for t.
func New[R any](ep *bus.Endpoint, t message.Type, payload []byte, expectsResponse bool, opts ...Option[R]) *Command[R] {
	c := &Command[R]{
		id:              xid.New(),
		ep:              ep,
		msgType:         t,
		expectsResponse: expectsResponse,
		decode:          defaultDecoder[R](),
		done:            make(chan struct{}),
	}
	if len(payload) > 0 {
		c.payload = make([]byte, len(payload))
		copy(c.payload, payload)
	}

	if ep != nil {
		c.bus = ep.Bus()
		c.policy = c.bus.Config().PolicyFor(t)
		c.logger = c.bus.GetLogger().With("cmd", c.id.String(), "endpoint", ep.ID(), "type", t.String())
	} else {
		c.logger = logger.GetLogger()
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewAck creates a command of type t that completes on a bare Ack.
func NewAck(ep *bus.Endpoint, t message.Type, payload []byte, opts ...Option[Empty]) *Command[Empty] {
	return New[Empty](ep, t, payload, false, opts...)
}

// ID returns the trace id of the command, used to correlate log lines.
func (c *Command[R]) ID() xid.ID { return c.id }

// Type returns the command kind.
func (c *Command[R]) Type() message.Type { return c.msgType }

// Endpoint returns the target endpoint.
func (c *Command[R]) Endpoint() *bus.Endpoint { return c.ep }

// ExpectsResponse reports whether the command completes on a Response.
func (c *Command[R]) ExpectsResponse() bool { return c.expectsResponse }

// Policy returns the effective retry policy.
func (c *Command[R]) Policy() retry.Policy { return c.policy }

// Seq returns the sequence number allocated when the command was sent,
// zero before that.
func (c *Command[R]) Seq() message.SeqNum { return message.SeqNum(c.seq.Load()) }

// State returns the current lifecycle state.
func (c *Command[R]) State() State { return State(c.state.Load()) }

// AttentionRequired reports whether the completing Ack flagged that the
// endpoint requires attention.
func (c *Command[R]) AttentionRequired() bool { return c.attention.Load() }

// Done returns a channel closed when the command reaches a terminal state.
func (c *Command[R]) Done() <-chan struct{} { return c.done }

// Outcome returns the terminal outcome, or false if the command has not
// completed yet.
func (c *Command[R]) Outcome() (Outcome, bool) {
	select {
	case <-c.done:
		return c.outcome, true
	default:
		return Outcome{}, false
	}
}

// Send transmits the command and blocks until it is acknowledged, answered
// or rejected, or until the deadline of its retry policy. A response to a
// command that expects one is accepted and discarded.
//
// The returned error is ErrAlreadySent on reuse and a *NackError on any
// rejection, including timeouts and cancellation of ctx.
func (c *Command[R]) Send(ctx context.Context) error {
	if err := c.exchange(ctx); err != nil {
		return err
	}

	if c.outcome.Kind == OutcomeNack || c.outcome.Kind == OutcomeTimedOut {
		return c.nackErr
	}

	return nil
}

// SendAndReceive transmits a command that expects a response and returns the
// decoded response.
//
// If the command kind turns out to be unsupported, a default response was
// given with WithDefaultResponse and the kind's policy allows fallback, the
// default response is returned instead of an error.
func (c *Command[R]) SendAndReceive(ctx context.Context) (R, error) {
	var zero R

	if !c.expectsResponse {
		return zero, ErrNoResponseExpected
	}

	if err := c.exchange(ctx); err != nil {
		return zero, err
	}

	switch c.outcome.Kind {
	case OutcomeResponse:
		return c.response, nil
	case OutcomeAck:
		return zero, nil
	}

	if useFallback(c.outcome, c.hasDefault, c.policy.FallbackAllowed) {
		c.bus.GetMetrics().IncFallbackCount()
		c.logger.Debug("command: kind unsupported, using default response", "seq", c.Seq())

		return c.defaultResponse, nil
	}

	return zero, c.nackErr
}

// exchange runs the whole exchange and returns once the outcome is readable.
// A non-nil error means the command was not sent and its state is unchanged.
func (c *Command[R]) exchange(ctx context.Context) error {
	if c.ep == nil {
		return ErrEndpointNil
	}
	if err := c.policy.Validate(); err != nil {
		return err
	}
	if !c.sent.CompareAndSwap(false, true) {
		return ErrAlreadySent
	}

	c.drive(ctx)

	// The writer that won the result slot may still be filling it in.
	<-c.done

	return nil
}

// drive takes the command from Created to a terminal state.
func (c *Command[R]) drive(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		c.interrupt(err)
		return
	}

	// The permit is released only after run has returned, so nothing of
	// this command reaches the line once the next one has started.
	permit, err := c.ep.Acquire(ctx)
	if err != nil {
		c.interrupt(err)
		return
	}
	defer permit.Release()

	c.state.Store(uint32(Sent))

	if !c.ep.IsResponding() {
		c.bus.GetMetrics().IncShortCircuitCount()
		c.logger.Debug("command: endpoint not responding, not transmitting")
		c.complete(Outcome{Kind: OutcomeTimedOut, Reason: retry.TimeoutReason(c.expectsResponse), Synthetic: true}, nil)

		return
	}

	seq, err := c.bus.Register(c.ep, c)
	if err != nil {
		c.logger.Warn("command: failed to allocate sequence number", "error", err)
		c.complete(Outcome{Kind: OutcomeNack, Reason: message.ReasonBusy, Synthetic: true}, err)

		return
	}
	defer c.bus.Unregister(c.ep, seq)
	c.seq.Store(uint32(seq))

	if c.expectsResponse {
		c.state.CompareAndSwap(uint32(Sent), uint32(AwaitingResponseOrNack))
	} else {
		c.state.CompareAndSwap(uint32(Sent), uint32(AwaitingAckOrNack))
	}

	c.run(ctx, message.New(c.msgType, seq, c.payload))
}

// run transmits msg and waits for completion, retransmitting on silence.
func (c *Command[R]) run(ctx context.Context, msg message.Message) {
	schedule := retry.Start(c.policy, time.Now())

	if !c.transmit(ctx, msg, c.bus.Transmit) {
		return
	}

	for {
		wait, ok := schedule.Next(time.Now())
		if !ok {
			break
		}

		switch pool.Wait(ctx, c.done, wait) {
		case pool.Signaled:
			return

		case pool.Canceled:
			c.interrupt(ctx.Err())
			return

		case pool.Expired:
			if c.completed() {
				return
			}
			if schedule.Expired(time.Now()) {
				continue
			}

			schedule.Retransmitted()
			c.logger.Debug("command: no reply, retransmitting",
				"seq", msg.Seq,
				"retransmit", schedule.Retransmits())

			if !c.transmit(ctx, msg, c.bus.Retransmit) {
				return
			}
		}
	}

	c.timeout(msg.Seq)
}

// transmit sends msg with send and reports whether the exchange continues.
// An unsupported command kind completes the command; any other transmit
// error counts as a lost transmission.
func (c *Command[R]) transmit(ctx context.Context, msg message.Message, send func(context.Context, *bus.Endpoint, message.Message) error) bool {
	err := send(ctx, c.ep, msg)
	if err == nil {
		return true
	}

	if errors.Is(err, bus.ErrUnsupported) {
		c.logger.Debug("command: kind not supported by protocol", "seq", msg.Seq)
		c.complete(Outcome{Kind: OutcomeNack, Reason: message.ReasonPacketTypeUnknown, Synthetic: true}, err)

		return false
	}

	c.logger.Warn("command: transmit failed", "seq", msg.Seq, "error", err)

	return true
}

// timeout abandons the command at its deadline. Only this path marks the
// endpoint as not responding.
func (c *Command[R]) timeout(seq message.SeqNum) {
	reason := retry.TimeoutReason(c.expectsResponse)
	if !c.complete(Outcome{Kind: OutcomeTimedOut, Reason: reason, Synthetic: true}, nil) {
		return
	}

	c.bus.GetMetrics().IncTimeoutCount()
	c.logger.Debug("command: deadline elapsed without reply", "seq", seq, "reason", reason.String())
	c.ep.MarkNotResponding(seq, reason)
}

// completed reports whether the result slot has been claimed.
func (c *Command[R]) completed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Command[R]) interrupt(cause error) {
	if c.complete(Outcome{Kind: OutcomeNack, Reason: message.ReasonInterrupted, Synthetic: true}, cause) {
		c.logger.Debug("command: interrupted", "seq", c.Seq(), "error", cause)
	}
}

// OnAck completes a command that does not expect a response.
func (c *Command[R]) OnAck(ack message.Ack) {
	if c.expectsResponse {
		c.logger.Debug("command: ignoring ack while waiting for response", "ref", ack.Ref)
		return
	}

	ok := c.completeWith(Outcome{Kind: OutcomeAck}, nil, func() {
		c.attention.Store(ack.AttentionRequired)
	})
	if !ok {
		c.logger.Debug("command: dropping duplicate ack", "ref", ack.Ref)
	}
}

// OnResponse completes a command that expects a response.
func (c *Command[R]) OnResponse(resp message.Response) {
	if !c.expectsResponse {
		c.logger.Debug("command: ignoring response to command that expects an ack", "ref", resp.Ref)
		return
	}

	if resp.AnswerType != c.msgType {
		c.logger.Warn("command: protocol anomaly, response answers a different command",
			"ref", resp.Ref,
			"sent_type", c.msgType.String(),
			"answer_type", resp.AnswerType.String(),
			"state", c.State().String())

		return
	}

	if c.State().IsTerminal() {
		c.logger.Debug("command: dropping duplicate response", "ref", resp.Ref)
		return
	}

	value, err := c.decode(resp.Payload)
	if err != nil {
		if c.complete(Outcome{Kind: OutcomeNack, Reason: message.ReasonMalformedResponse, Synthetic: true}, err) {
			c.logger.Warn("command: failed to decode response", "ref", resp.Ref, "error", err)
		}

		return
	}

	payload := make([]byte, len(resp.Payload))
	copy(payload, resp.Payload)

	ok := c.completeWith(Outcome{Kind: OutcomeResponse, Payload: payload}, nil, func() {
		c.response = value
	})
	if !ok {
		c.logger.Debug("command: dropping duplicate response", "ref", resp.Ref)
	}
}

// OnNack completes the command with a rejection reported by the endpoint.
func (c *Command[R]) OnNack(nack message.Nack) {
	if !c.complete(Outcome{Kind: OutcomeNack, Reason: nack.Reason}, nil) {
		c.logger.Debug("command: dropping duplicate nack", "ref", nack.Ref, "reason", nack.Reason.String())
		return
	}

	if c.bus.Config().IsBenign(nack.Reason) {
		c.logger.Debug("command: nack", "seq", c.Seq(), "ref", nack.Ref, "reason", nack.Reason.String())
		return
	}

	c.logger.Warn("command: nack",
		"endpoint", c.ep.ID(),
		"seq", c.Seq(),
		"ref", nack.Ref,
		"reason", nack.Reason.String())
}

func (c *Command[R]) complete(out Outcome, cause error) bool {
	return c.completeWith(out, cause, nil)
}

// completeWith claims the result slot. Exactly one caller wins; it writes
// the outcome, runs set and closes done. Every other caller gets false and
// changes nothing. The permit stays with drive.
func (c *Command[R]) completeWith(out Outcome, cause error, set func()) bool {
	target := uint32(out.state())

	for {
		cur := c.state.Load()
		if State(cur).IsTerminal() {
			return false
		}
		if c.state.CompareAndSwap(cur, target) {
			break
		}
	}

	c.outcome = out
	if out.Kind == OutcomeNack || out.Kind == OutcomeTimedOut {
		c.nackErr = &NackError{
			Reason:    out.Reason,
			Synthetic: out.Synthetic,
			Endpoint:  c.ep.ID(),
			Type:      c.msgType,
			Seq:       c.Seq(),
			cause:     cause,
		}
	}
	if set != nil {
		set()
	}
	close(c.done)

	return true
}
