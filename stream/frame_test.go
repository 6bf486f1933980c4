package stream

import (
	"bytes"
	"testing"

	"github.com/arloliu/go-peribus/bus"
	"github.com/arloliu/go-peribus/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unframe strips START/END and the byte stuffing from a packed frame.
func unframe(t *testing.T, packed []byte) []byte {
	t.Helper()

	require.Equal(t, StartByte, packed[0])
	require.Equal(t, EndByte, packed[len(packed)-1])

	var (
		out    []byte
		escape bool
	)
	for _, b := range packed[1 : len(packed)-1] {
		require.NotEqual(t, StartByte, b, "START must be stuffed inside a frame")
		require.NotEqual(t, EndByte, b, "END must be stuffed inside a frame")
		if escape {
			out = append(out, b^EscXor)
			escape = false
			continue
		}
		if b == EscByte {
			escape = true
			continue
		}
		out = append(out, b)
	}
	require.False(t, escape)

	return out
}

func TestFrame_HeaderFields(t *testing.T) {
	f := &Frame{}
	f.SetRBit(true)
	f.SetEndpoint(0x1234)
	f.SetKind(KindAck)
	f.SetAttention(true)
	f.SetType(0x21)
	f.SetSeq(0xBEEF)
	f.SetRef(0x0102)
	f.SetReason(message.ReasonBatteryLow)
	f.SetAnswerType(0x22)

	assert.True(t, f.RBit())
	assert.Equal(t, bus.EndpointID(0x1234), f.Endpoint())
	assert.Equal(t, KindAck, f.Kind())
	assert.True(t, f.Attention())
	assert.Equal(t, message.Type(0x21), f.Type())
	assert.Equal(t, message.SeqNum(0xBEEF), f.Seq())
	assert.Equal(t, message.SeqNum(0x0102), f.Ref())
	assert.Equal(t, message.ReasonBatteryLow, f.Reason())
	assert.Equal(t, message.Type(0x22), f.AnswerType())
	assert.Equal(t, byte(0x92), f.Header[0])

	// Flags and neighbouring fields are independent.
	f.SetEndpoint(MaxEndpointID)
	assert.True(t, f.RBit())
	f.SetRBit(false)
	assert.Equal(t, MaxEndpointID, f.Endpoint())
	f.SetKind(KindNack)
	assert.True(t, f.Attention())
	f.SetAttention(false)
	assert.Equal(t, KindNack, f.Kind())
}

func TestFrame_PackParse(t *testing.T) {
	payload := []byte{0x01, StartByte, EndByte, EscByte, 0x02}

	f, err := NewCommandFrame(7, message.New(0x21, 0x7E7F, payload))
	require.NoError(t, err)
	assert.False(t, f.RBit())
	assert.Equal(t, byte(headerSize+len(payload)), f.Length())

	content := unframe(t, f.Pack())
	require.Len(t, content, 1+headerSize+len(payload)+checksumSize)

	got, err := ParseFrame(content)
	require.NoError(t, err)
	assert.Equal(t, f.Header, got.Header)
	assert.Equal(t, payload, got.Body)

	msg := got.Message()
	assert.Equal(t, message.Type(0x21), msg.Type)
	assert.Equal(t, message.SeqNum(0x7E7F), msg.Seq)
	assert.Nil(t, msg.Ref)
	assert.Equal(t, payload, msg.Payload)
}

func TestFrame_Replies(t *testing.T) {
	ack, err := NewAckFrame(3, message.Ack{Ref: 10, AttentionRequired: true})
	require.NoError(t, err)
	assert.True(t, ack.RBit())
	assert.Equal(t, KindAck, ack.Kind())
	assert.Equal(t, message.Ack{Ref: 10, AttentionRequired: true}, ack.Ack())

	resp, err := NewResponseFrame(3, message.Response{Ref: 11, AnswerType: 0x30, Payload: []byte{9}})
	require.NoError(t, err)
	assert.Equal(t, message.Response{Ref: 11, AnswerType: 0x30, Payload: []byte{9}}, resp.Response())

	nack, err := NewNackFrame(3, message.Nack{Ref: 12, Reason: message.ReasonPacketTypeUnknown})
	require.NoError(t, err)
	assert.Equal(t, message.Nack{Ref: 12, Reason: message.ReasonPacketTypeUnknown}, nack.Nack())
	assert.Equal(t, "nack endpoint=3 r=true type=0x00 seq=0 ref=12 body=0", nack.String())
}

func TestFrame_ConstructorErrors(t *testing.T) {
	_, err := NewCommandFrame(MaxEndpointID+1, message.New(0x21, 1, nil))
	require.ErrorIs(t, err, ErrInvalidEndpoint)

	_, err = NewCommandFrame(1, message.New(0x21, 1, make([]byte, MaxBodySize+1)))
	require.ErrorIs(t, err, ErrBodyTooLarge)

	f, err := NewCommandFrame(1, message.New(0x21, 1, make([]byte, MaxBodySize)))
	require.NoError(t, err)
	assert.Equal(t, byte(maxLength), f.Length())
}

func TestParseFrame_Errors(t *testing.T) {
	f, err := NewAckFrame(1, message.Ack{Ref: 5})
	require.NoError(t, err)
	content := unframe(t, f.Pack())

	_, err = ParseFrame(nil)
	require.ErrorIs(t, err, ErrInvalidLength)

	short := bytes.Clone(content[:len(content)-1])
	_, err = ParseFrame(short)
	require.ErrorIs(t, err, ErrInvalidLength)

	badLen := bytes.Clone(content)
	badLen[0] = minLength - 1
	_, err = ParseFrame(badLen)
	require.ErrorIs(t, err, ErrInvalidLength)

	corrupt := bytes.Clone(content)
	corrupt[5] ^= 0x01
	_, err = ParseFrame(corrupt)
	require.ErrorIs(t, err, ErrChecksumMismatch)

	unknown := &Frame{}
	unknown.Header[2] = 0x55
	_, err = ParseFrame(unframe(t, unknown.Pack()))
	require.ErrorIs(t, err, ErrInvalidKind)
}

func TestChecksum(t *testing.T) {
	// CRC-16/CCITT-FALSE check value.
	assert.Equal(t, uint16(0x29B1), checksum([]byte("123456789")))
	assert.Equal(t, uint16(crcInitial), checksum(nil))
}
