package retry

import "time"

// Schedule tracks the deadline and retransmissions of a single exchange.
//
// It holds no clock of its own; callers pass the current time so the
// arithmetic stays deterministic under test. Schedule is not safe for
// concurrent use; it belongs to the goroutine driving the command.
type Schedule struct {
	policy      Policy
	deadline    time.Time
	retransmits int
}

// Start begins a schedule at the moment of first transmission.
func Start(p Policy, now time.Time) *Schedule {
	return &Schedule{
		policy:   p,
		deadline: now.Add(p.TotalDeadline),
	}
}

// Deadline returns the instant after which the exchange is abandoned.
func (s *Schedule) Deadline() time.Time {
	return s.deadline
}

// Remaining returns the time left before the deadline, never negative.
func (s *Schedule) Remaining(now time.Time) time.Duration {
	if d := s.deadline.Sub(now); d > 0 {
		return d
	}

	return 0
}

// Expired reports whether the deadline has passed.
func (s *Schedule) Expired(now time.Time) bool {
	return s.Remaining(now) == 0
}

// Next returns how long to wait for a reply before the next decision point:
// min(remaining, retransmit interval). ok is false once the deadline has
// passed.
func (s *Schedule) Next(now time.Time) (wait time.Duration, ok bool) {
	remaining := s.Remaining(now)
	if remaining == 0 {
		return 0, false
	}

	return min(remaining, s.policy.RetransmitInterval), true
}

// Retransmitted records one retransmission.
func (s *Schedule) Retransmitted() {
	s.retransmits++
}

// Retransmits returns the number of retransmissions recorded so far.
func (s *Schedule) Retransmits() int {
	return s.retransmits
}
