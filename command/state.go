package command

// State is the position of a command in its lifecycle.
type State uint32

const (
	Created State = iota
	Sent
	AwaitingAckOrNack
	AwaitingResponseOrNack
	Acked
	Responded
	Nacked
	TimedOut
)

func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case Sent:
		return "Sent"
	case AwaitingAckOrNack:
		return "AwaitingAckOrNack"
	case AwaitingResponseOrNack:
		return "AwaitingResponseOrNack"
	case Acked:
		return "Acked"
	case Responded:
		return "Responded"
	case Nacked:
		return "Nacked"
	case TimedOut:
		return "TimedOut"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether s is one of Acked, Responded, Nacked or TimedOut.
func (s State) IsTerminal() bool {
	return s >= Acked
}
