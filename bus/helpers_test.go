package bus

import (
	"context"
	"sync"
	"testing"

	"github.com/arloliu/go-peribus/logger"
	"github.com/arloliu/go-peribus/message"
	"github.com/stretchr/testify/require"
)

// recordingTx records every transmitted message.
type recordingTx struct {
	mu   sync.Mutex
	sent []message.Message
	err  error
}

func (tx *recordingTx) Transmit(_ context.Context, _ EndpointID, msg message.Message) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	tx.sent = append(tx.sent, msg)

	return tx.err
}

func (tx *recordingTx) count() int {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	return len(tx.sent)
}

// fakeReceiver counts deliveries.
type fakeReceiver struct {
	mu        sync.Mutex
	acks      []message.Ack
	responses []message.Response
	nacks     []message.Nack
}

func (r *fakeReceiver) OnAck(ack message.Ack) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acks = append(r.acks, ack)
}

func (r *fakeReceiver) OnResponse(resp message.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, resp)
}

func (r *fakeReceiver) OnNack(nack message.Nack) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nacks = append(r.nacks, nack)
}

func newTestBus(t *testing.T, opts ...Option) (*Bus, *recordingTx) {
	t.Helper()

	cfg, err := NewConfig(append([]Option{WithLogger(logger.GetLogger())}, opts...)...)
	require.NoError(t, err)

	tx := &recordingTx{}
	b, err := New(tx, cfg)
	require.NoError(t, err)

	return b, tx
}
