package bus

import (
	"sync/atomic"
)

// Metrics contains atomic counters for a Bus.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type Metrics struct {
	// TransmitCount indicates the number of first transmissions.
	TransmitCount atomic.Uint64
	// RetransmitCount indicates the number of retransmissions.
	RetransmitCount atomic.Uint64
	// TransmitErrCount indicates the number of failed transmissions.
	TransmitErrCount atomic.Uint64

	// AckCount indicates the number of acks delivered to a waiting command.
	AckCount atomic.Uint64
	// ResponseCount indicates the number of responses delivered to a waiting command.
	ResponseCount atomic.Uint64
	// NackCount indicates the number of wire nacks delivered to a waiting command.
	NackCount atomic.Uint64
	// DroppedCount indicates the number of replies with no waiting command.
	DroppedCount atomic.Uint64

	// TimeoutCount indicates the number of commands abandoned at their deadline.
	TimeoutCount atomic.Uint64
	// ShortCircuitCount indicates the number of commands refused because
	// their endpoint was already marked NotResponding.
	ShortCircuitCount atomic.Uint64
	// FallbackCount indicates the number of default responses substituted
	// for unsupported commands.
	FallbackCount atomic.Uint64
	// UnresponsiveCount indicates the number of transitions to NotResponding.
	UnresponsiveCount atomic.Uint64

	// InflightCount indicates the number of endpoints with a command in flight.
	InflightCount atomic.Int64
}

func (m *Metrics) incTransmitCount()     { m.TransmitCount.Add(1) }
func (m *Metrics) incRetransmitCount()   { m.RetransmitCount.Add(1) }
func (m *Metrics) incTransmitErrCount()  { m.TransmitErrCount.Add(1) }
func (m *Metrics) incAckCount()          { m.AckCount.Add(1) }
func (m *Metrics) incResponseCount()     { m.ResponseCount.Add(1) }
func (m *Metrics) incNackCount()         { m.NackCount.Add(1) }
func (m *Metrics) incDroppedCount()      { m.DroppedCount.Add(1) }
func (m *Metrics) incUnresponsiveCount() { m.UnresponsiveCount.Add(1) }
func (m *Metrics) incInflightCount()     { m.InflightCount.Add(1) }
func (m *Metrics) decInflightCount()     { m.InflightCount.Add(-1) }

// IncTimeoutCount records a command abandoned at its deadline.
func (m *Metrics) IncTimeoutCount() { m.TimeoutCount.Add(1) }

// IncShortCircuitCount records a command refused for an unresponsive endpoint.
func (m *Metrics) IncShortCircuitCount() { m.ShortCircuitCount.Add(1) }

// IncFallbackCount records a substituted default response.
func (m *Metrics) IncFallbackCount() { m.FallbackCount.Add(1) }
