package session

import (
	"context"
	"time"
)

// Waiter performs the throttling pauses between chunks. It is an interface
// so tests can substitute a zero-length wait and exercise the state machine
// without wall-clock delays.
type Waiter interface {
	// Wait blocks for d or until ctx is cancelled, returning ctx.Err() in
	// the cancelled case.
	Wait(ctx context.Context, d time.Duration) error
}

// TimerWaiter is the production Waiter backed by a real timer.
type TimerWaiter struct{}

func (TimerWaiter) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		if !timer.Stop() {
			<-timer.C
		}
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
