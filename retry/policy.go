// Package retry holds the pure timing logic that governs how long a command
// waits for its reply and when it is retransmitted.
//
// A command is transmitted once, then retransmitted unchanged every
// RetransmitInterval until a reply arrives or TotalDeadline elapses since the
// first transmission. With the defaults (100ms / 250ms) a command that never
// hears back is retransmitted at t≈100ms and t≈200ms and abandoned at
// t≈250ms.
package retry

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-peribus/message"
)

const (
	DefaultRetransmitInterval = 100 * time.Millisecond
	DefaultTotalDeadline      = 250 * time.Millisecond
)

// ErrInvalidPolicy is wrapped by Policy.Validate failures.
var ErrInvalidPolicy = errors.New("retry: invalid policy")

// Policy is the per command kind timing and fallback configuration.
type Policy struct {
	// RetransmitInterval is the silence after which the command is sent again.
	RetransmitInterval time.Duration
	// TotalDeadline bounds the whole exchange, measured from the first transmission.
	TotalDeadline time.Duration
	// FallbackAllowed lets a command carrying a default response return it
	// when the transport reports the command kind as unsupported.
	FallbackAllowed bool
}

// DefaultPolicy returns the 100ms / 250ms policy with fallback disabled.
func DefaultPolicy() Policy {
	return Policy{
		RetransmitInterval: DefaultRetransmitInterval,
		TotalDeadline:      DefaultTotalDeadline,
	}
}

// Validate checks that both durations are positive and the interval does not
// exceed the deadline.
func (p Policy) Validate() error {
	if p.RetransmitInterval <= 0 {
		return fmt.Errorf("%w: retransmit interval %v must be positive", ErrInvalidPolicy, p.RetransmitInterval)
	}
	if p.TotalDeadline <= 0 {
		return fmt.Errorf("%w: total deadline %v must be positive", ErrInvalidPolicy, p.TotalDeadline)
	}
	if p.RetransmitInterval > p.TotalDeadline {
		return fmt.Errorf("%w: retransmit interval %v exceeds total deadline %v",
			ErrInvalidPolicy, p.RetransmitInterval, p.TotalDeadline)
	}

	return nil
}

// TimeoutReason returns the synthetic Nack reason for a command abandoned
// while waiting for its reply.
func TimeoutReason(expectsResponse bool) message.Reason {
	if expectsResponse {
		return message.ReasonAbandonedWaitingForResponse
	}

	return message.ReasonAbandonedWaitingForAck
}
