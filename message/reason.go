package message

import (
	"fmt"
	"strconv"
	"strings"
)

// Reason is a Nack reason code.
//
// Codes below ReasonAbandonedWaitingForAck may be reported by endpoints on
// the wire. The remaining codes are synthesized locally by the host.
type Reason uint8

const (
	ReasonUnknown           Reason = 0x00
	ReasonBusy              Reason = 0x01
	ReasonInProgress        Reason = 0x02
	ReasonBatteryLow        Reason = 0x03
	ReasonInvalidArgument   Reason = 0x04
	ReasonNotPermitted      Reason = 0x05
	ReasonPacketTypeUnknown Reason = 0x06

	ReasonAbandonedWaitingForAck      Reason = 0xF0
	ReasonAbandonedWaitingForResponse Reason = 0xF1
	ReasonInterrupted                 Reason = 0xF2
	ReasonMalformedResponse           Reason = 0xF3
)

var reasonNames = map[Reason]string{
	ReasonUnknown:                     "unknown",
	ReasonBusy:                        "busy",
	ReasonInProgress:                  "in_progress",
	ReasonBatteryLow:                  "battery_low",
	ReasonInvalidArgument:             "invalid_argument",
	ReasonNotPermitted:                "not_permitted",
	ReasonPacketTypeUnknown:           "packet_type_unknown",
	ReasonAbandonedWaitingForAck:      "abandoned_waiting_for_ack",
	ReasonAbandonedWaitingForResponse: "abandoned_waiting_for_response",
	ReasonInterrupted:                 "interrupted",
	ReasonMalformedResponse:           "malformed_response",
}

func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}

	return fmt.Sprintf("reason(0x%02X)", uint8(r))
}

// IsSynthetic reports whether r is produced by the host rather than sent
// by an endpoint.
func (r Reason) IsSynthetic() bool {
	return r >= ReasonAbandonedWaitingForAck
}

// IsTimeout reports whether r is one of the abandoned-waiting codes.
func (r Reason) IsTimeout() bool {
	return r == ReasonAbandonedWaitingForAck || r == ReasonAbandonedWaitingForResponse
}

// ParseReason accepts a reason name as returned by Reason.String, or a
// numeric code in any base accepted by strconv.ParseUint ("3", "0x03").
func ParseReason(s string) (Reason, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for code, name := range reasonNames {
		if name == s {
			return code, nil
		}
	}

	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return ReasonUnknown, fmt.Errorf("message: unknown nack reason %q", s)
	}

	return Reason(n), nil
}
