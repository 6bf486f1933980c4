// Package bus tracks the endpoints reachable over a shared half-duplex bus and
// routes their replies to the commands waiting for them.
//
// # Endpoints
//
// Each [Endpoint] carries two pieces of shared state, guarded together by one
// mutex because their invariants are coupled:
//
//   - health: Responsive or NotResponding. Only a command that times out
//     sets NotResponding. Clearing it again is the job of whoever observes
//     inbound traffic from the endpoint (see [Endpoint.MarkResponsive]).
//   - the in-flight permit: at most one command per endpoint may be
//     outstanding. [Endpoint.Acquire] blocks until the permit is free and
//     [Permit.Release] is the "finished with this command" notification.
//
// # Routing
//
// [Bus.Register] allocates a sequence number that is not outstanding for the
// endpoint and maps (endpoint, sequence) to a [Receiver]. The transport
// collaborator reports every reply through [Bus.DeliverAck],
// [Bus.DeliverResponse] or [Bus.DeliverNack]; replies for unknown or already
// finished references are dropped with a debug log.
package bus
