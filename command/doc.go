// Package command implements the reliable request/reply exchange with a
// single endpoint: correlation by sequence number, acknowledge, respond or
// reject semantics, bounded retransmission and synthetic failure.
//
// # Lifecycle
//
// A [Command] is built once, sent at most once and completes exactly once:
//
//	Created → Sent → AwaitingAckOrNack      → Acked | Nacked | TimedOut
//	               → AwaitingResponseOrNack → Responded | Nacked | TimedOut
//
// [Command.Send] and [Command.SendAndReceive] acquire the endpoint's
// in-flight permit, transmit the message and block until a reply is routed
// back through the bus, retransmitting the identical message every
// retransmit interval until the total deadline. Whatever the exit path
// (reply, timeout, short-circuit, cancellation) the permit is released and
// the command ends in a terminal state.
//
// # Errors
//
// Every rejection is reported as a [*NackError]. Replies from the endpoint
// and locally synthesized outcomes (timeouts, short-circuits against an
// endpoint already marked NotResponding, cancellation) share that type;
// NackError.Synthetic tells them apart.
//
// # Compatibility fallback
//
// When the transport reports that a command kind is not supported, and the
// command was built with [WithDefaultResponse] and its kind's policy has
// FallbackAllowed set, SendAndReceive returns the default response as if the
// endpoint had sent it. This keeps newer hosts working against older
// firmware where a safe default exists.
package command
