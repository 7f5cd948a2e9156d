package harness

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"ioctest/internal/iocomm"
	"ioctest/internal/waitgate"
)

// Probe correlates requests with replies for one test. It subscribes to a
// single event kind and channel; the dispatch goroutine stores each
// matching value and releases the probe's gate.
type Probe struct {
	ch      iocomm.CommandChannel
	sub     *iocomm.Subscription
	gate    *waitgate.Gate
	kind    iocomm.EventKind
	channel uint16
	accept  func(uint32) bool

	last     atomic.Uint32
	accepted atomic.Uint32
	max      atomic.Uint32
	received atomic.Bool
}

// ProbeOption configures a Probe.
type ProbeOption func(*Probe)

// WithAccept only releases the gate for values accepted by fn. Every value
// still updates Last and Max, but Await only ever returns accepted ones.
func WithAccept(fn func(uint32) bool) ProbeOption {
	return func(p *Probe) {
		p.accept = fn
	}
}

// Attach subscribes a new probe to events of kind on channel.
func Attach(ch iocomm.CommandChannel, kind iocomm.EventKind, channel uint16, opts ...ProbeOption) (*Probe, error) {
	p := &Probe{
		ch:      ch,
		gate:    waitgate.New(),
		kind:    kind,
		channel: channel,
	}
	for _, opt := range opts {
		opt(p)
	}

	sub, err := ch.SubscribeEvent(kind, channel, p.handle)
	if err != nil {
		return nil, &SubscriptionError{Target: fmt.Sprintf("%s channel %d", kind, channel), Err: err}
	}
	p.sub = sub
	return p, nil
}

// handle runs on the dispatch goroutine and never blocks.
func (p *Probe) handle(e iocomm.Event) {
	p.last.Store(e.Value)
	p.received.Store(true)
	for {
		cur := p.max.Load()
		if e.Value <= cur || p.max.CompareAndSwap(cur, e.Value) {
			break
		}
	}
	if p.accept == nil || p.accept(e.Value) {
		p.accepted.Store(e.Value)
		p.gate.Signal()
	}
}

// Request discards any earlier replies, sends cmd and waits up to timeout
// for a matching reply. Nothing is sent once ctx is done.
func (p *Probe) Request(ctx context.Context, cmd iocomm.Command, timeout time.Duration) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("interrupted: %w", err)
	}
	p.gate.Drain()
	if err := p.ch.Send(cmd); err != nil {
		return 0, &SendError{Command: cmd.String(), Err: err}
	}
	return p.Await(ctx, timeout)
}

// Await waits up to timeout for a matching reply without sending anything.
// It returns the latest value that released the gate.
func (p *Probe) Await(ctx context.Context, timeout time.Duration) (uint32, error) {
	err := p.gate.Await(ctx, timeout)
	switch {
	case err == nil:
		return p.accepted.Load(), nil
	case errors.Is(err, waitgate.ErrTimedOut):
		return 0, &TimeoutError{After: timeout, Err: err}
	default:
		return 0, fmt.Errorf("interrupted: %w", err)
	}
}

// Drain discards replies received so far.
func (p *Probe) Drain() {
	p.gate.Drain()
}

// Last returns the most recent value received.
func (p *Probe) Last() uint32 {
	return p.last.Load()
}

// Max returns the highest value received since the probe was attached or
// last reset, and whether any value arrived at all.
func (p *Probe) Max() (uint32, bool) {
	return p.max.Load(), p.received.Load()
}

// ResetMax forgets the values observed so far.
func (p *Probe) ResetMax() {
	p.max.Store(0)
	p.received.Store(false)
}

// Detach removes the probe's subscription.
func (p *Probe) Detach() {
	p.ch.Unsubscribe(p.sub)
}
