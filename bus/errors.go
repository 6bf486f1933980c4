package bus

import "errors"

var (
	// ErrUnsupported is returned by a Transmitter when the local or remote
	// protocol does not recognize the command kind. It is consumed by the
	// command layer's compatibility fallback and never surfaces to callers.
	ErrUnsupported = errors.New("bus: command kind not supported")

	// ErrConfigNil indicates that a nil Config was provided.
	ErrConfigNil = errors.New("bus: config is nil")

	// ErrTransmitterNil indicates that a nil Transmitter was provided.
	ErrTransmitterNil = errors.New("bus: transmitter is nil")

	// ErrNoSequence indicates every sequence number is outstanding for the endpoint.
	ErrNoSequence = errors.New("bus: no free sequence number")

	// ErrForeignEndpoint indicates an endpoint that belongs to a different bus.
	ErrForeignEndpoint = errors.New("bus: endpoint belongs to another bus")
)
