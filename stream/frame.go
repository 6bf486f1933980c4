package stream

import (
	"encoding/binary"
	"fmt"

	"github.com/arloliu/go-peribus/bus"
	"github.com/arloliu/go-peribus/message"
)

// Framing bytes.
const (
	StartByte byte = 0x7E
	EndByte   byte = 0x7F
	EscByte   byte = 0x7D
	EscXor    byte = 0x20
)

const (
	// MaxBodySize is the largest payload carried by one frame.
	MaxBodySize = 244

	// MaxEndpointID is the largest endpoint id that fits into a header.
	MaxEndpointID bus.EndpointID = 0x7FFF

	headerSize   = 10
	checksumSize = 2

	minLength = headerSize
	maxLength = headerSize + MaxBodySize

	rBit          = 0x80
	attentionBit  = 0x80
	kindMask      = 0x7F
	endpointMaskH = 0x7F
)

// Kind tells what a frame carries.
type Kind uint8

const (
	KindCommand Kind = iota + 1
	KindAck
	KindResponse
	KindNack
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindAck:
		return "ack"
	case KindResponse:
		return "response"
	case KindNack:
		return "nack"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Frame is one unit of transfer on the stream.
type Frame struct {
	Header [headerSize]byte
	Body   []byte
}

// --- Header accessors ---

// RBit reports whether the frame was sent by an endpoint.
func (f *Frame) RBit() bool {
	return f.Header[0]&rBit != 0
}

// SetRBit sets or clears the R-bit.
func (f *Frame) SetRBit(v bool) {
	if v {
		f.Header[0] |= rBit
	} else {
		f.Header[0] &^= rBit
	}
}

// Endpoint returns the 15-bit endpoint id.
func (f *Frame) Endpoint() bus.EndpointID {
	return bus.EndpointID(binary.BigEndian.Uint16(f.Header[0:2]) & uint16(MaxEndpointID))
}

// SetEndpoint sets the endpoint id, keeping the R-bit.
func (f *Frame) SetEndpoint(id bus.EndpointID) {
	r := f.Header[0] & rBit
	binary.BigEndian.PutUint16(f.Header[0:2], uint16(id&MaxEndpointID))
	f.Header[0] = f.Header[0]&endpointMaskH | r
}

// Kind returns the frame kind.
func (f *Frame) Kind() Kind {
	return Kind(f.Header[2] & kindMask)
}

// SetKind sets the frame kind, keeping the attention bit.
func (f *Frame) SetKind(k Kind) {
	f.Header[2] = f.Header[2]&attentionBit | byte(k)&kindMask
}

// Attention reports whether an ack flags that the endpoint requires attention.
func (f *Frame) Attention() bool {
	return f.Header[2]&attentionBit != 0
}

// SetAttention sets or clears the attention bit.
func (f *Frame) SetAttention(v bool) {
	if v {
		f.Header[2] |= attentionBit
	} else {
		f.Header[2] &^= attentionBit
	}
}

// Type returns the message type.
func (f *Frame) Type() message.Type { return message.Type(f.Header[3]) }

// SetType sets the message type.
func (f *Frame) SetType(t message.Type) { f.Header[3] = byte(t) }

// Seq returns the sequence number.
func (f *Frame) Seq() message.SeqNum {
	return message.SeqNum(binary.BigEndian.Uint16(f.Header[4:6]))
}

// SetSeq sets the sequence number.
func (f *Frame) SetSeq(seq message.SeqNum) {
	binary.BigEndian.PutUint16(f.Header[4:6], uint16(seq))
}

// Ref returns the reference number of a reply.
func (f *Frame) Ref() message.SeqNum {
	return message.SeqNum(binary.BigEndian.Uint16(f.Header[6:8]))
}

// SetRef sets the reference number.
func (f *Frame) SetRef(ref message.SeqNum) {
	binary.BigEndian.PutUint16(f.Header[6:8], uint16(ref))
}

// Reason returns the nack reason.
func (f *Frame) Reason() message.Reason { return message.Reason(f.Header[8]) }

// SetReason sets the nack reason.
func (f *Frame) SetReason(r message.Reason) { f.Header[8] = byte(r) }

// AnswerType returns the message type a response answers.
func (f *Frame) AnswerType() message.Type { return message.Type(f.Header[9]) }

// SetAnswerType sets the answered message type.
func (f *Frame) SetAnswerType(t message.Type) { f.Header[9] = byte(t) }

// Length returns the value of the Length byte.
func (f *Frame) Length() byte {
	return byte(headerSize + len(f.Body)) //nolint:gosec // body size is checked by the constructors
}

// --- Constructors ---

func newFrame(id bus.EndpointID, kind Kind, fromEndpoint bool, body []byte) (*Frame, error) {
	if id > MaxEndpointID {
		return nil, fmt.Errorf("%w: %d", ErrInvalidEndpoint, id)
	}
	if len(body) > MaxBodySize {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrBodyTooLarge, len(body), MaxBodySize)
	}

	f := &Frame{}
	f.SetEndpoint(id)
	f.SetRBit(fromEndpoint)
	f.SetKind(kind)
	if len(body) > 0 {
		f.Body = make([]byte, len(body))
		copy(f.Body, body)
	}

	return f, nil
}

// NewCommandFrame builds the frame a host sends for msg to endpoint id.
func NewCommandFrame(id bus.EndpointID, msg message.Message) (*Frame, error) {
	f, err := newFrame(id, KindCommand, false, msg.Payload)
	if err != nil {
		return nil, err
	}
	f.SetType(msg.Type)
	f.SetSeq(msg.Seq)

	return f, nil
}

// NewAckFrame builds the frame an endpoint sends to acknowledge a command.
func NewAckFrame(id bus.EndpointID, ack message.Ack) (*Frame, error) {
	f, err := newFrame(id, KindAck, true, nil)
	if err != nil {
		return nil, err
	}
	f.SetRef(ack.Ref)
	f.SetAttention(ack.AttentionRequired)

	return f, nil
}

// NewResponseFrame builds the frame an endpoint sends to answer a command.
func NewResponseFrame(id bus.EndpointID, resp message.Response) (*Frame, error) {
	f, err := newFrame(id, KindResponse, true, resp.Payload)
	if err != nil {
		return nil, err
	}
	f.SetRef(resp.Ref)
	f.SetType(resp.AnswerType)
	f.SetAnswerType(resp.AnswerType)

	return f, nil
}

// NewNackFrame builds the frame an endpoint sends to reject a command.
func NewNackFrame(id bus.EndpointID, nack message.Nack) (*Frame, error) {
	f, err := newFrame(id, KindNack, true, nil)
	if err != nil {
		return nil, err
	}
	f.SetRef(nack.Ref)
	f.SetReason(nack.Reason)

	return f, nil
}

// --- Conversions ---

// Message returns the command carried by a command frame.
func (f *Frame) Message() message.Message {
	return message.New(f.Type(), f.Seq(), f.Body)
}

// Ack returns the ack carried by an ack frame.
func (f *Frame) Ack() message.Ack {
	return message.Ack{Ref: f.Ref(), AttentionRequired: f.Attention()}
}

// Response returns the response carried by a response frame.
func (f *Frame) Response() message.Response {
	resp := message.Response{Ref: f.Ref(), AnswerType: f.AnswerType()}
	if len(f.Body) > 0 {
		resp.Payload = make([]byte, len(f.Body))
		copy(resp.Payload, f.Body)
	}

	return resp
}

// Nack returns the rejection carried by a nack frame.
func (f *Frame) Nack() message.Nack {
	return message.Nack{Ref: f.Ref(), Reason: f.Reason()}
}

func (f *Frame) String() string {
	return fmt.Sprintf("%s endpoint=%d r=%t type=%s seq=%d ref=%d body=%d",
		f.Kind(), f.Endpoint(), f.RBit(), f.Type(), f.Seq(), f.Ref(), len(f.Body))
}

// --- Wire encoding ---

// Pack serializes the frame to its stuffed wire format, START and END included.
func (f *Frame) Pack() []byte {
	length := f.Length()
	raw := make([]byte, 0, 1+int(length)+checksumSize)
	raw = append(raw, length)
	raw = append(raw, f.Header[:]...)
	raw = append(raw, f.Body...)

	crc := checksum(raw)
	raw = append(raw, byte(crc>>8), byte(crc))

	out := make([]byte, 0, 2*len(raw)+2)
	out = append(out, StartByte)
	for _, b := range raw {
		if b == StartByte || b == EndByte || b == EscByte {
			out = append(out, EscByte, b^EscXor)
		} else {
			out = append(out, b)
		}
	}
	out = append(out, EndByte)

	return out
}

// ParseFrame deserializes the unstuffed content of a frame:
// the Length byte, header, body and CRC, without START and END.
func ParseFrame(data []byte) (*Frame, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("%w: empty frame", ErrInvalidLength)
	}

	length := int(data[0])
	if length < minLength || length > maxLength {
		return nil, fmt.Errorf("%w: got %d, want %d-%d", ErrInvalidLength, length, minLength, maxLength)
	}
	if want := 1 + length + checksumSize; len(data) != want {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidLength, len(data), want)
	}

	wire := binary.BigEndian.Uint16(data[1+length:])
	if calc := checksum(data[:1+length]); wire != calc {
		return nil, fmt.Errorf("%w: wire=0x%04X, computed=0x%04X", ErrChecksumMismatch, wire, calc)
	}

	f := &Frame{}
	copy(f.Header[:], data[1:1+headerSize])
	if bodyLen := length - headerSize; bodyLen > 0 {
		f.Body = make([]byte, bodyLen)
		copy(f.Body, data[1+headerSize:1+length])
	}

	if k := f.Kind(); k < KindCommand || k > KindNack {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKind, k)
	}

	return f, nil
}
