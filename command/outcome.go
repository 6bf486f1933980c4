package command

import (
	"github.com/arloliu/go-peribus/message"
)

// OutcomeKind tags the variant held by an Outcome.
type OutcomeKind int

const (
	OutcomeAck OutcomeKind = iota
	OutcomeResponse
	OutcomeNack
	OutcomeTimedOut
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAck:
		return "Ack"
	case OutcomeResponse:
		return "Response"
	case OutcomeNack:
		return "Nack"
	case OutcomeTimedOut:
		return "TimedOut"
	default:
		return "Unknown"
	}
}

// Outcome is the single result written into a command when it completes.
//
// Payload is set for OutcomeResponse. Reason is set for OutcomeNack and
// OutcomeTimedOut; for the latter it is one of
// ReasonAbandonedWaitingForAck or ReasonAbandonedWaitingForResponse.
type Outcome struct {
	Kind      OutcomeKind
	Payload   []byte
	Reason    message.Reason
	Synthetic bool
}

func (o Outcome) state() State {
	switch o.Kind {
	case OutcomeAck:
		return Acked
	case OutcomeResponse:
		return Responded
	case OutcomeTimedOut:
		return TimedOut
	default:
		return Nacked
	}
}
