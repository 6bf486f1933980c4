package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arloliu/go-peribus/logger"
	"github.com/arloliu/go-peribus/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEndpoint_Identity(t *testing.T) {
	b, _ := newTestBus(t)

	ep := b.Endpoint(5)
	assert.Same(t, ep, b.Endpoint(5))
	assert.Equal(t, EndpointID(5), ep.ID())
	assert.Same(t, b, ep.Bus())

	got, ok := b.LookupEndpoint(5)
	require.True(t, ok)
	assert.Same(t, ep, got)

	_, ok = b.LookupEndpoint(6)
	assert.False(t, ok)
}

func TestEndpoint_Health(t *testing.T) {
	ml := logger.NewMockLogger()
	ml.On("Warn", "bus: marking endpoint as not responding", mock.Anything).Once()
	ml.On("Info", "bus: endpoint responding again", mock.Anything).Once()

	b, _ := newTestBus(t, WithLogger(ml))
	ep := b.Endpoint(1)

	assert.True(t, ep.IsResponding())
	assert.Equal(t, "Responsive", ep.Health().String())

	assert.True(t, ep.MarkNotResponding(10, message.ReasonAbandonedWaitingForAck))
	assert.False(t, ep.IsResponding())
	assert.Equal(t, NotResponding, ep.Health())

	// The warning is emitted once per transition.
	assert.False(t, ep.MarkNotResponding(11, message.ReasonAbandonedWaitingForAck))
	assert.Equal(t, uint64(1), b.GetMetrics().UnresponsiveCount.Load())

	ep.MarkResponsive()
	assert.True(t, ep.IsResponding())
	ml.AssertExpectations(t)

	ml.On("Warn", "bus: marking endpoint as not responding", mock.Anything).Once()
	assert.True(t, ep.MarkNotResponding(12, message.ReasonAbandonedWaitingForResponse))
	ml.AssertExpectations(t)
}

func TestEndpoint_PermitSerializes(t *testing.T) {
	b, _ := newTestBus(t)
	ep := b.Endpoint(1)

	var (
		holders atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			p, err := ep.Acquire(context.Background())
			if !assert.NoError(t, err) {
				return
			}
			defer p.Release()

			n := holders.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(2 * time.Millisecond)
			holders.Add(-1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load())
	assert.False(t, ep.InFlight())
	assert.Equal(t, int64(0), b.GetMetrics().InflightCount.Load())
}

func TestEndpoint_AcquireCanceled(t *testing.T) {
	b, _ := newTestBus(t)
	ep := b.Endpoint(1)

	p, err := ep.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ep.InFlight())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = ep.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	p.Release()
	p.Release() // idempotent

	p2, err := ep.Acquire(context.Background())
	require.NoError(t, err)
	p2.Release()
}

func TestEndpoint_StalePermitDoesNotReleaseNewHolder(t *testing.T) {
	b, _ := newTestBus(t)
	ep := b.Endpoint(1)

	p1, err := ep.Acquire(context.Background())
	require.NoError(t, err)
	p1.Release()

	p2, err := ep.Acquire(context.Background())
	require.NoError(t, err)

	// A second release through a copy of the old token must not free p2's slot.
	ep.release(p1.token)
	assert.True(t, ep.InFlight())
	assert.Same(t, ep, p2.Endpoint())

	p2.Release()
	assert.False(t, ep.InFlight())
}
