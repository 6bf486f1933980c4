package stream

import "sync/atomic"

// Metrics contains atomic counters for a Transport.
// Metrics can be used as the value of a prometheus CounterFunc.
type Metrics struct {
	// FrameSendCount indicates the number of frames written.
	FrameSendCount atomic.Uint64
	// FrameRecvCount indicates the number of valid frames read from endpoints.
	FrameRecvCount atomic.Uint64
	// FrameErrCount indicates the number of invalid frames discarded.
	FrameErrCount atomic.Uint64
	// EchoCount indicates the number of host frames read back from the line.
	EchoCount atomic.Uint64
	// UnsupportedCount indicates the number of transmissions refused by the
	// capability table.
	UnsupportedCount atomic.Uint64
}

func (m *Metrics) incFrameSendCount()   { m.FrameSendCount.Add(1) }
func (m *Metrics) incFrameRecvCount()   { m.FrameRecvCount.Add(1) }
func (m *Metrics) incFrameErrCount()    { m.FrameErrCount.Add(1) }
func (m *Metrics) incEchoCount()        { m.EchoCount.Add(1) }
func (m *Metrics) incUnsupportedCount() { m.UnsupportedCount.Add(1) }
