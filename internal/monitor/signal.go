package monitor

import (
	"context"
	"time"
)

// Signal is a single-slot wake notification. It is not a counter: several
// Notify calls made while nobody waits are delivered as one wake-up to the
// next Wait.
type Signal struct {
	ch chan struct{}
}

func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// Notify raises the signal. It never blocks.
func (s *Signal) Notify() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// drain clears a pending wake-up, reports if there was one.
func (s *Signal) drain() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

type WaitResult int

const (
	Elapsed WaitResult = iota
	Cancelled
)

func (r WaitResult) String() string {
	if r == Cancelled {
		return "cancelled"
	}
	return "elapsed"
}

// Wait blocks until d elapses, the signal is raised or ctx is done. A signal
// raised before Wait was called makes it return Cancelled immediately.
func Wait(ctx context.Context, d time.Duration, sig *Signal) WaitResult {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-sig.ch:
		return Cancelled
	default:
	}

	select {
	case <-timer.C:
		return Elapsed
	case <-sig.ch:
		return Cancelled
	case <-ctx.Done():
		return Cancelled
	}
}
