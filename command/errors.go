package command

import (
	"errors"
	"fmt"

	"github.com/arloliu/go-peribus/bus"
	"github.com/arloliu/go-peribus/message"
)

var (
	// ErrNack matches every *NackError with errors.Is.
	ErrNack = errors.New("command: nack")

	// ErrAlreadySent is returned when a command is sent a second time.
	ErrAlreadySent = errors.New("command: already sent")

	// ErrNoResponseExpected is returned by SendAndReceive on a command built
	// without expecting a response.
	ErrNoResponseExpected = errors.New("command: command does not expect a response")

	// ErrEndpointNil indicates that a nil Endpoint was provided.
	ErrEndpointNil = errors.New("command: endpoint is nil")
)

// NackError reports that a command was rejected, either by the endpoint
// (Synthetic false) or locally because it timed out, was short-circuited,
// was not supported or was interrupted (Synthetic true).
type NackError struct {
	Reason    message.Reason
	Synthetic bool
	Endpoint  bus.EndpointID
	Type      message.Type
	Seq       message.SeqNum

	cause error
}

func (e *NackError) Error() string {
	origin := "endpoint"
	if e.Synthetic {
		origin = "local"
	}

	msg := fmt.Sprintf("command: %s nack from %s for type %s seq %d on endpoint %d",
		e.Reason, origin, e.Type, e.Seq, e.Endpoint)
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}

	return msg
}

// Unwrap returns the underlying cause, such as the context error of an
// interrupted command.
func (e *NackError) Unwrap() error {
	return e.cause
}

// Is makes errors.Is(err, ErrNack) true for every NackError.
func (e *NackError) Is(target error) bool {
	return target == ErrNack
}

// IsTimeout reports whether the command behind e was abandoned waiting for a reply.
func (e *NackError) IsTimeout() bool {
	return e.Reason.IsTimeout()
}

// ReasonOf extracts the Nack reason from err.
func ReasonOf(err error) (message.Reason, bool) {
	var nackErr *NackError
	if errors.As(err, &nackErr) {
		return nackErr.Reason, true
	}

	return message.ReasonUnknown, false
}

// IsTimeout reports whether err is a NackError for an abandoned command.
func IsTimeout(err error) bool {
	var nackErr *NackError
	return errors.As(err, &nackErr) && nackErr.IsTimeout()
}
