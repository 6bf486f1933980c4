package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CopiesPayload(t *testing.T) {
	payload := []byte{1, 2, 3}
	msg := New(0x21, 7, payload)
	payload[0] = 0xFF

	assert.Equal(t, []byte{1, 2, 3}, msg.Payload)
	assert.False(t, msg.IsReply())
	assert.Equal(t, "type=0x21 seq=7 len=3", msg.String())
}

func TestMessage_Clone(t *testing.T) {
	ref := SeqNum(9)
	msg := Message{Type: 0x10, Seq: 3, Ref: &ref, Payload: []byte{4}}

	clone := msg.Clone()
	clone.Payload[0] = 5
	*clone.Ref = 10

	assert.Equal(t, byte(4), msg.Payload[0])
	assert.Equal(t, SeqNum(9), *msg.Ref)
	assert.True(t, clone.IsReply())
	assert.Equal(t, "type=0x10 seq=3 ref=9 len=1", msg.String())
}

func TestReason(t *testing.T) {
	assert.Equal(t, "battery_low", ReasonBatteryLow.String())
	assert.Equal(t, "reason(0x42)", Reason(0x42).String())
	assert.True(t, ReasonAbandonedWaitingForAck.IsTimeout())
	assert.True(t, ReasonAbandonedWaitingForResponse.IsTimeout())
	assert.False(t, ReasonInterrupted.IsTimeout())
	assert.True(t, ReasonMalformedResponse.IsSynthetic())
	assert.False(t, ReasonPacketTypeUnknown.IsSynthetic())

	for _, in := range []string{"in_progress", " IN_PROGRESS ", "2", "0x02"} {
		r, err := ParseReason(in)
		require.NoError(t, err, in)
		assert.Equal(t, ReasonInProgress, r, in)
	}

	_, err := ParseReason("sleepy")
	require.Error(t, err)
	_, err = ParseReason("0x1FF")
	require.Error(t, err)
}

func TestSeqGenerator(t *testing.T) {
	gen := NewSeqGeneratorAt(0xFFFE)
	assert.Equal(t, SeqNum(0xFFFF), gen.Next())
	assert.Equal(t, SeqNum(1), gen.Next(), "zero must be skipped on wrap-around")
	assert.Equal(t, SeqNum(2), gen.Next())

	random := NewSeqGenerator()
	seen := make(map[SeqNum]struct{})
	for i := 0; i < 1000; i++ {
		seq := random.Next()
		assert.NotZero(t, seq)
		seen[seq] = struct{}{}
	}
	assert.Len(t, seen, 1000)
}

func TestCodec(t *testing.T) {
	type motorStatus struct {
		Motor uint8 `cbor:"0,keyasint"`
		RPM   int32 `cbor:"1,keyasint"`
	}

	data, err := Marshal(motorStatus{Motor: 1, RPM: -1200})
	require.NoError(t, err)

	decode := DecodeInto[motorStatus]()
	got, err := decode(data)
	require.NoError(t, err)
	assert.Equal(t, motorStatus{Motor: 1, RPM: -1200}, got)

	_, err = decode(nil)
	require.Error(t, err)

	_, err = decode([]byte{0xFF, 0x00})
	require.Error(t, err)
}
