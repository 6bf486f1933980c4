package command

import (
	"bytes"

	"github.com/arloliu/go-peribus/message"
	"github.com/arloliu/go-peribus/retry"
)

// Option configures a Command.
type Option[R any] func(*Command[R])

// WithDefaultResponse sets the response returned by the compatibility
// fallback when the command kind is unsupported.
func WithDefaultResponse[R any](r R) Option[R] {
	return func(c *Command[R]) {
		c.defaultResponse = r
		c.hasDefault = true
	}
}

// WithDecoder sets how response payloads are turned into R.
// The default decodes CBOR, or copies the bytes when R is []byte.
func WithDecoder[R any](decode func([]byte) (R, error)) Option[R] {
	return func(c *Command[R]) {
		if decode != nil {
			c.decode = decode
		}
	}
}

// WithPolicy overrides the retry policy configured on the bus for this
// command's kind.
func WithPolicy[R any](p retry.Policy) Option[R] {
	return func(c *Command[R]) {
		c.policy = p
	}
}

func defaultDecoder[R any]() func([]byte) (R, error) {
	var zero R
	if _, ok := any(zero).([]byte); ok {
		return func(data []byte) (R, error) {
			out, _ := any(bytes.Clone(data)).(R)
			return out, nil
		}
	}

	return message.DecodeInto[R]()
}
