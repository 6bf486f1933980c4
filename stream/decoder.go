package stream

import "fmt"

type decoderState int

const (
	stateIdle decoderState = iota
	stateLength
	stateContent
	stateEnd
)

// Decoder reassembles frames from a byte stream one byte at a time.
//
// It resynchronizes on every START byte, so a frame cut short by line noise
// is discarded and the next frame is decoded normally. Decoder is not safe
// for concurrent use.
type Decoder struct {
	state  decoderState
	escape bool
	want   int
	buf    []byte
}

// NewDecoder creates a Decoder waiting for a START byte.
func NewDecoder() *Decoder {
	return &Decoder{
		state: stateIdle,
		buf:   make([]byte, 0, 1+maxLength+checksumSize),
	}
}

// Reset drops any partial frame and waits for the next START byte.
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.escape = false
	d.want = 0
	d.buf = d.buf[:0]
}

// DecodeByte feeds b to the decoder. It returns a frame when b completes
// one, an error when b proves the current frame invalid, and (nil, nil)
// otherwise.
func (d *Decoder) DecodeByte(b byte) (*Frame, error) {
	switch b {
	case StartByte:
		d.Reset()
		d.state = stateLength

		return nil, nil

	case EndByte:
		state := d.state
		data := d.buf
		d.state = stateIdle
		d.escape = false

		switch state {
		case stateIdle:
			return nil, nil
		case stateEnd:
			f, err := ParseFrame(data)
			d.buf = d.buf[:0]

			return f, err
		default:
			d.buf = d.buf[:0]
			return nil, fmt.Errorf("%w: %d bytes received", ErrUnexpectedEnd, len(data))
		}

	case EscByte:
		if d.state != stateIdle {
			d.escape = true
		}

		return nil, nil
	}

	if d.escape {
		b ^= EscXor
		d.escape = false
	}

	switch d.state {
	case stateLength:
		length := int(b)
		if length < minLength || length > maxLength {
			d.Reset()
			return nil, fmt.Errorf("%w: got %d, want %d-%d", ErrInvalidLength, length, minLength, maxLength)
		}
		d.buf = append(d.buf, b)
		d.want = 1 + length + checksumSize
		d.state = stateContent

	case stateContent:
		d.buf = append(d.buf, b)
		if len(d.buf) == d.want {
			d.state = stateEnd
		}

	case stateEnd:
		d.Reset()
		return nil, fmt.Errorf("%w: missing END byte", ErrInvalidLength)
	}

	return nil, nil
}

// Decode feeds every byte of data to the decoder and returns the frames it
// completed. Errors for invalid frames are collected, not fatal.
func (d *Decoder) Decode(data []byte) ([]*Frame, []error) {
	var (
		frames []*Frame
		errs   []error
	)

	for _, b := range data {
		f, err := d.DecodeByte(b)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if f != nil {
			frames = append(frames, f)
		}
	}

	return frames, errs
}
