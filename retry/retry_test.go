package retry

import (
	"testing"
	"time"

	"github.com/arloliu/go-peribus/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Validate(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())
	assert.False(t, DefaultPolicy().FallbackAllowed)

	tests := []Policy{
		{RetransmitInterval: 0, TotalDeadline: time.Second},
		{RetransmitInterval: time.Second, TotalDeadline: 0},
		{RetransmitInterval: 2 * time.Second, TotalDeadline: time.Second},
	}
	for _, p := range tests {
		err := p.Validate()
		require.ErrorIs(t, err, ErrInvalidPolicy, "%+v", p)
	}
}

func TestTimeoutReason(t *testing.T) {
	assert.Equal(t, message.ReasonAbandonedWaitingForAck, TimeoutReason(false))
	assert.Equal(t, message.ReasonAbandonedWaitingForResponse, TimeoutReason(true))
}

// TestSchedule_DefaultCadence walks the default policy with a synthetic
// clock: waits of 100, 100 and 50ms, two retransmissions, then expiry.
func TestSchedule_DefaultCadence(t *testing.T) {
	now := time.Unix(1000, 0)
	s := Start(DefaultPolicy(), now)
	assert.Equal(t, now.Add(250*time.Millisecond), s.Deadline())

	var waits []time.Duration
	for {
		wait, ok := s.Next(now)
		if !ok {
			break
		}
		waits = append(waits, wait)
		now = now.Add(wait)
		if !s.Expired(now) {
			s.Retransmitted()
		}
	}

	assert.Equal(t, []time.Duration{100 * time.Millisecond, 100 * time.Millisecond, 50 * time.Millisecond}, waits)
	assert.Equal(t, 2, s.Retransmits())
	assert.True(t, s.Expired(now))
	assert.Zero(t, s.Remaining(now.Add(time.Hour)))
}

func TestSchedule_ShortDeadline(t *testing.T) {
	now := time.Unix(0, 0)
	s := Start(Policy{RetransmitInterval: 80 * time.Millisecond, TotalDeadline: 80 * time.Millisecond}, now)

	wait, ok := s.Next(now.Add(30 * time.Millisecond))
	require.True(t, ok)
	assert.Equal(t, 50*time.Millisecond, wait)

	_, ok = s.Next(now.Add(80 * time.Millisecond))
	assert.False(t, ok)
}
