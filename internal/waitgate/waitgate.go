// Package waitgate bridges asynchronous event delivery and blocking test
// logic.
//
// A Gate is a counting signal. The dispatch goroutine calls Signal for every
// matching reply; the owning test goroutine calls Drain before arming a new
// request and then Await to block, bounded by a timeout, until a reply
// arrives. Signal never blocks, so it is safe to call from a dispatch loop
// that serves every channel of the controller.
package waitgate

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTimedOut is returned by Await when no signal arrived within the timeout.
var ErrTimedOut = errors.New("wait timed out")

// Gate is a counting signal with drain and bounded wait.
//
// Signal and Drain may be called from any goroutine. Await must only be
// called from one goroutine at a time.
type Gate struct {
	mu    sync.Mutex
	count int
	// wake holds at most one pending wakeup; the count is the source of truth.
	wake chan struct{}
}

// New returns a gate with a zero count.
func New() *Gate {
	return &Gate{wake: make(chan struct{}, 1)}
}

// Signal increments the pending count by one.
func (g *Gate) Signal() {
	g.mu.Lock()
	g.count++
	g.mu.Unlock()

	select {
	case g.wake <- struct{}{}:
	default:
	}
}

// Drain resets the pending count to zero, discarding replies to earlier requests.
func (g *Gate) Drain() {
	g.mu.Lock()
	g.count = 0
	g.mu.Unlock()

	select {
	case <-g.wake:
	default:
	}
}

// available returns the current pending count.
func (g *Gate) available() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count
}

// Await blocks until the count is positive, then decrements it and returns
// nil. It returns ErrTimedOut when d elapses first, or the context error if
// ctx is cancelled while waiting.
func (g *Gate) Await(ctx context.Context, d time.Duration) error {
	if g.tryAcquire() {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		select {
		case <-g.wake:
			if g.tryAcquire() {
				return nil
			}
		case <-timer.C:
			// A signal racing the deadline still counts.
			if g.tryAcquire() {
				return nil
			}
			return ErrTimedOut
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (g *Gate) tryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.count > 0 {
		g.count--
		return true
	}
	return false
}
