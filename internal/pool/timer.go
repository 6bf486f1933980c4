package pool

import (
	"context"
	"sync"
	"time"
)

var timerPool sync.Pool

// GetTimer returns a stopped-and-reset timer for duration d from the pool.
//
// Return the timer to the pool with PutTimer.
func GetTimer(d time.Duration) *time.Timer {
	if v := timerPool.Get(); v != nil {
		t, _ := v.(*time.Timer)
		if t.Reset(d) {
			select {
			case <-t.C:
			default:
			}
		}

		return t
	}

	return time.NewTimer(d)
}

// PutTimer returns t to the pool. t must not be used afterwards.
func PutTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	timerPool.Put(t)
}

// WaitResult reports why Wait returned.
type WaitResult int

const (
	// Signaled means the signal channel was closed or received from.
	Signaled WaitResult = iota
	// Expired means the duration elapsed first.
	Expired
	// Canceled means the context was done first.
	Canceled
)

func (r WaitResult) String() string {
	switch r {
	case Signaled:
		return "signaled"
	case Expired:
		return "expired"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Wait blocks until signal fires, d elapses or ctx is done, whichever is
// first. A signal that is already ready wins over an expired duration.
func Wait(ctx context.Context, signal <-chan struct{}, d time.Duration) WaitResult {
	select {
	case <-signal:
		return Signaled
	default:
	}

	if d <= 0 {
		return Expired
	}

	timer := GetTimer(d)
	defer PutTimer(timer)

	select {
	case <-signal:
		return Signaled
	case <-ctx.Done():
		return Canceled
	case <-timer.C:
		return Expired
	}
}
