package stream

import "errors"

var (
	// ErrInvalidLength indicates that a frame's Length byte is out of range.
	ErrInvalidLength = errors.New("stream: invalid frame length")

	// ErrChecksumMismatch indicates that a frame's CRC does not match its content.
	ErrChecksumMismatch = errors.New("stream: checksum mismatch")

	// ErrUnexpectedEnd indicates that END arrived before a frame was complete.
	ErrUnexpectedEnd = errors.New("stream: unexpected end of frame")

	// ErrBodyTooLarge indicates that a payload does not fit into one frame.
	ErrBodyTooLarge = errors.New("stream: body too large")

	// ErrInvalidEndpoint indicates an endpoint id that does not fit into 15 bits.
	ErrInvalidEndpoint = errors.New("stream: endpoint id out of range")

	// ErrInvalidKind indicates a frame kind this package does not know.
	ErrInvalidKind = errors.New("stream: invalid frame kind")

	// ErrClosed indicates that the transport has been closed.
	ErrClosed = errors.New("stream: transport closed")
)
