package command

import (
	"github.com/arloliu/go-peribus/message"
)

// useFallback decides whether a default response substitutes for outcome.
//
// Only the "packet type unknown" rejection qualifies, whether it was
// reported by the transport (Synthetic) or by older firmware on the wire.
func useFallback(out Outcome, hasDefault, allowed bool) bool {
	return hasDefault && allowed &&
		out.Kind == OutcomeNack &&
		out.Reason == message.ReasonPacketTypeUnknown
}
