// Package message defines the logical units exchanged with peripheral
// endpoints: commands, and the Ack, Response and Nack replies that answer
// them.
//
// A command carries a sender-assigned sequence number. Every reply carries a
// reference number equal to the sequence number of the command it answers,
// which is how replies are correlated to outstanding commands. Sequence
// numbers are allocated per logical connection by a [SeqGenerator]; zero is
// reserved and never allocated.
//
// Payloads are opaque bytes at this layer. The [Marshal] and [Unmarshal]
// helpers encode structured payloads as CBOR for device drivers that want a
// self-describing format.
package message
