package bus

import (
	"context"
	"sync"

	"github.com/arloliu/go-peribus/message"
)

// EndpointID addresses a peripheral on the bus.
type EndpointID uint16

// Health is the reachability of an endpoint as observed by the host.
type Health uint32

const (
	Responsive Health = iota
	NotResponding
)

func (h Health) String() string {
	switch h {
	case Responsive:
		return "Responsive"
	case NotResponding:
		return "NotResponding"
	default:
		return "Unknown"
	}
}

// Endpoint is an addressable peripheral and its shared per-endpoint state.
//
// Endpoints are created and owned by a Bus; use [Bus.Endpoint] to get one.
type Endpoint struct {
	id  EndpointID
	bus *Bus

	mu    sync.Mutex
	state endpointState
}

type endpointState struct {
	health Health
	// warned is set once the unresponsive warning has been emitted and
	// cleared when the endpoint is marked responsive again.
	warned bool

	// holder is the token of the current permit holder, zero when free.
	holder    uint64
	nextToken uint64
	// freed is closed when the current holder releases the permit.
	freed chan struct{}
}

func newEndpoint(id EndpointID, b *Bus) *Endpoint {
	return &Endpoint{id: id, bus: b}
}

// ID returns the endpoint address.
func (ep *Endpoint) ID() EndpointID {
	return ep.id
}

// Bus returns the bus the endpoint is reachable on.
func (ep *Endpoint) Bus() *Bus {
	return ep.bus
}

// Health returns the current health flag.
func (ep *Endpoint) Health() Health {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	return ep.state.health
}

// IsResponding reports whether the endpoint has not been marked NotResponding.
func (ep *Endpoint) IsResponding() bool {
	return ep.Health() == Responsive
}

// MarkNotResponding flags the endpoint as unresponsive after a command to it
// timed out. The first call after the endpoint was last responsive logs a
// warning and returns true; later calls are silent.
func (ep *Endpoint) MarkNotResponding(seq message.SeqNum, reason message.Reason) bool {
	ep.mu.Lock()
	ep.state.health = NotResponding
	warn := !ep.state.warned
	ep.state.warned = true
	ep.mu.Unlock()

	if warn {
		ep.bus.metrics.incUnresponsiveCount()
		ep.bus.logger.Warn("bus: marking endpoint as not responding",
			"endpoint", ep.id,
			"seq", seq,
			"reason", reason.String())
	}

	return warn
}

// MarkResponsive clears the NotResponding flag. It is called by the
// transport collaborator whenever inbound traffic from the endpoint is seen.
func (ep *Endpoint) MarkResponsive() {
	ep.mu.Lock()
	was := ep.state.health
	ep.state.health = Responsive
	ep.state.warned = false
	ep.mu.Unlock()

	if was == NotResponding {
		ep.bus.logger.Info("bus: endpoint responding again", "endpoint", ep.id)
	}
}

// Acquire blocks until the endpoint's in-flight permit is granted or ctx is
// done. The returned Permit must be released exactly when the command
// holding it reaches a terminal state.
func (ep *Endpoint) Acquire(ctx context.Context) (*Permit, error) {
	for {
		ep.mu.Lock()
		if ep.state.holder == 0 {
			ep.state.nextToken++
			if ep.state.nextToken == 0 {
				ep.state.nextToken++
			}
			token := ep.state.nextToken
			ep.state.holder = token
			ep.state.freed = make(chan struct{})
			ep.mu.Unlock()

			ep.bus.metrics.incInflightCount()

			return &Permit{ep: ep, token: token}, nil
		}
		freed := ep.state.freed
		ep.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-freed:
		}
	}
}

// InFlight reports whether a command currently holds the permit.
func (ep *Endpoint) InFlight() bool {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	return ep.state.holder != 0
}

func (ep *Endpoint) release(token uint64) {
	ep.mu.Lock()
	if ep.state.holder != token {
		ep.mu.Unlock()
		return
	}
	ep.state.holder = 0
	freed := ep.state.freed
	ep.state.freed = nil
	ep.mu.Unlock()

	ep.bus.metrics.decInflightCount()
	close(freed)
}

// Permit is the in-flight slot of one endpoint.
type Permit struct {
	ep    *Endpoint
	token uint64
	once  sync.Once
}

// Endpoint returns the endpoint the permit belongs to.
func (p *Permit) Endpoint() *Endpoint {
	return p.ep
}

// Release hands the slot to the next waiter. Only the first call has an
// effect, so it is safe to defer it alongside an explicit release.
func (p *Permit) Release() {
	p.once.Do(func() {
		p.ep.release(p.token)
	})
}
