package message

import (
	"fmt"
)

// Type identifies a command kind (or, for replies, the kind being answered).
type Type uint8

func (t Type) String() string {
	return fmt.Sprintf("0x%02X", uint8(t))
}

// SeqNum is a sender-assigned sequence number. Replies refer to the command
// they answer by its SeqNum.
type SeqNum uint16

// Message is a logical command as handed to the transport.
//
// Ref is nil for commands and set for replies. A Message is treated as
// immutable once transmitted; retransmissions reuse the same value.
type Message struct {
	Type    Type
	Seq     SeqNum
	Ref     *SeqNum
	Payload []byte
}

// New creates a command message of type t with a copy of payload.
func New(t Type, seq SeqNum, payload []byte) Message {
	msg := Message{Type: t, Seq: seq}
	if len(payload) > 0 {
		msg.Payload = make([]byte, len(payload))
		copy(msg.Payload, payload)
	}

	return msg
}

// IsReply reports whether the message carries a reference number.
func (m Message) IsReply() bool {
	return m.Ref != nil
}

// Clone returns a deep copy of m.
func (m Message) Clone() Message {
	out := New(m.Type, m.Seq, m.Payload)
	if m.Ref != nil {
		ref := *m.Ref
		out.Ref = &ref
	}

	return out
}

func (m Message) String() string {
	if m.Ref != nil {
		return fmt.Sprintf("type=%s seq=%d ref=%d len=%d", m.Type, m.Seq, *m.Ref, len(m.Payload))
	}

	return fmt.Sprintf("type=%s seq=%d len=%d", m.Type, m.Seq, len(m.Payload))
}

// Ack is a positive acknowledgement without payload.
//
// AttentionRequired is set when the endpoint flags that it has something
// the host should look at; it is propagated, not handled, by this layer.
type Ack struct {
	Ref               SeqNum
	AttentionRequired bool
}

// Response is a substantive reply carrying a payload.
//
// AnswerType is the command type the endpoint declares it is answering.
type Response struct {
	Ref        SeqNum
	AnswerType Type
	Payload    []byte
}

// Nack is a negative acknowledgement carrying a reason code.
type Nack struct {
	Ref    SeqNum
	Reason Reason
}
