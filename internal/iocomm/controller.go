package iocomm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"ioctest/pkg/logging"
)

// ErrClosed is returned when using a controller after Close.
var ErrClosed = errors.New("controller is closed")

// Transport moves commands to the controller and decoded events back.
type Transport interface {
	// Write sends one command. It must not wait for a reply.
	Write(cmd Command) error
	// Events is closed when the transport stops producing events.
	Events() <-chan Event
	Close() error
}

// Filter decides whether an event is of interest to a subscriber.
type Filter func(Event) bool

// Handler consumes a matching event. Handlers run on the dispatch goroutine
// and must return promptly.
type Handler func(Event)

// match accepts events of one kind on one channel.
func match(kind EventKind, channel uint16) Filter {
	return func(e Event) bool {
		return e.Kind == kind && e.Channel == channel
	}
}

// MatchKind accepts every event of one kind.
func MatchKind(kind EventKind) Filter {
	return func(e Event) bool {
		return e.Kind == kind
	}
}

// routeKey addresses subscriptions to one event kind on one channel.
type routeKey struct {
	kind    EventKind
	channel uint16
}

// Subscription is a registered filter and handler pair.
type Subscription struct {
	ID      uint64
	filter  Filter
	handler Handler
	// route is set for subscriptions registered with SubscribeEvent.
	route   *routeKey
	closed  atomic.Bool
}

// IsClosed returns whether the subscription has been removed.
func (s *Subscription) IsClosed() bool {
	return s.closed.Load()
}

// CommandChannel is the shared connection to the IO controller as seen by
// test logic: fire-and-forget sends plus subscriptions to the inbound stream.
type CommandChannel interface {
	Send(cmd Command) error
	Subscribe(filter Filter, handler Handler) (*Subscription, error)
	// SubscribeEvent registers a handler for one kind on one channel. Such
	// subscriptions are found by lookup instead of running filters.
	SubscribeEvent(kind EventKind, channel uint16, handler Handler) (*Subscription, error)
	Unsubscribe(sub *Subscription)
}

// Stats tracks dispatch activity.
type Stats struct {
	CommandsSent    uint64
	EventsReceived  uint64
	EventsDelivered uint64
	EventsUnmatched uint64
	HandlerPanics   uint64
	Subscriptions   int
	LastEventTime   time.Time
}

// Controller implements CommandChannel over a Transport. A single dispatch
// goroutine delivers events to subscribers in the order the transport
// produced them. Subscribers for one (kind, channel) pair are looked up by
// key; filtered subscribers are scanned.
type Controller struct {
	transport Transport

	mu     sync.RWMutex
	subs   []*Subscription              // copy-on-write
	routes map[routeKey][]*Subscription // copy-on-write
	nextID uint64
	closed bool

	statsMu sync.Mutex
	stats   Stats

	startOnce sync.Once
	done      chan struct{}
	started   atomic.Bool
}

var _ CommandChannel = (*Controller)(nil)

// NewController wraps a transport. Call Start to begin dispatching.
func NewController(t Transport) *Controller {
	return &Controller{
		transport: t,
		done:      make(chan struct{}),
	}
}

// Start launches the dispatch goroutine. It returns immediately.
func (c *Controller) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		c.started.Store(true)
		go c.dispatch(ctx)
	})
}

func (c *Controller) dispatch(ctx context.Context) {
	defer close(c.done)
	logging.Debug("Dispatcher", "dispatch loop started")

	events := c.transport.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				logging.Debug("Dispatcher", "transport event stream closed")
				return
			}
			c.deliver(ev)
		case <-ctx.Done():
			logging.Debug("Dispatcher", "dispatch loop stopped: %v", ctx.Err())
			return
		}
	}
}

func (c *Controller) deliver(ev Event) {
	if ev.Received.IsZero() {
		ev.Received = time.Now()
	}

	c.mu.RLock()
	subs := c.subs
	routed := c.routes[routeKey{kind: ev.Kind, channel: ev.Channel}]
	c.mu.RUnlock()

	delivered := 0
	panics := 0
	for _, sub := range routed {
		if sub.IsClosed() {
			continue
		}
		if !c.invoke(sub, ev) {
			panics++
		}
		delivered++
	}
	for _, sub := range subs {
		if sub.IsClosed() {
			continue
		}
		if sub.filter != nil && !sub.filter(ev) {
			continue
		}
		if !c.invoke(sub, ev) {
			panics++
		}
		delivered++
	}

	logging.Debug("Dispatcher", "event %s delivered to %d subscriber(s)", ev, delivered)

	c.statsMu.Lock()
	c.stats.EventsReceived++
	c.stats.EventsDelivered += uint64(delivered)
	c.stats.HandlerPanics += uint64(panics)
	if delivered == 0 {
		c.stats.EventsUnmatched++
	}
	c.stats.LastEventTime = ev.Received
	c.statsMu.Unlock()
}

// invoke runs one handler, containing any panic so the loop keeps serving.
func (c *Controller) invoke(sub *Subscription, ev Event) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Dispatcher", fmt.Errorf("%v", r), "subscription %d handler panicked", sub.ID)
			ok = false
		}
	}()
	sub.handler(ev)
	return true
}

// Send writes a command to the transport.
func (c *Controller) Send(cmd Command) error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	logging.Debug("Dispatcher", "-> %s", cmd)
	if err := c.transport.Write(cmd); err != nil {
		return fmt.Errorf("failed to send %s: %w", cmd, err)
	}

	c.statsMu.Lock()
	c.stats.CommandsSent++
	c.statsMu.Unlock()
	return nil
}

// Subscribe registers a handler for events accepted by filter.
func (c *Controller) Subscribe(filter Filter, handler Handler) (*Subscription, error) {
	if handler == nil {
		return nil, errors.New("handler is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}

	c.nextID++
	sub := &Subscription{ID: c.nextID, filter: filter, handler: handler}

	next := make([]*Subscription, len(c.subs), len(c.subs)+1)
	copy(next, c.subs)
	c.subs = append(next, sub)
	return sub, nil
}

// SubscribeEvent registers a handler for events of kind on channel.
func (c *Controller) SubscribeEvent(kind EventKind, channel uint16, handler Handler) (*Subscription, error) {
	if handler == nil {
		return nil, errors.New("handler is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}

	c.nextID++
	key := routeKey{kind: kind, channel: channel}
	sub := &Subscription{ID: c.nextID, handler: handler, route: &key}

	routes := c.copyRoutes()
	list := make([]*Subscription, len(routes[key]), len(routes[key])+1)
	copy(list, routes[key])
	routes[key] = append(list, sub)
	c.routes = routes
	return sub, nil
}

// Unsubscribe removes a subscription. It is safe to call more than once.
func (c *Controller) Unsubscribe(sub *Subscription) {
	if sub == nil || sub.closed.Swap(true) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if sub.route != nil {
		routes := c.copyRoutes()
		routes[*sub.route] = without(routes[*sub.route], sub)
		if len(routes[*sub.route]) == 0 {
			delete(routes, *sub.route)
		}
		c.routes = routes
		return
	}
	c.subs = without(c.subs, sub)
}

func (c *Controller) copyRoutes() map[routeKey][]*Subscription {
	routes := make(map[routeKey][]*Subscription, len(c.routes)+1)
	for k, v := range c.routes {
		routes[k] = v
	}
	return routes
}

func without(subs []*Subscription, sub *Subscription) []*Subscription {
	next := make([]*Subscription, 0, len(subs))
	for _, s := range subs {
		if s != sub {
			next = append(next, s)
		}
	}
	return next
}

// Stats returns a snapshot of dispatch counters.
func (c *Controller) Stats() Stats {
	c.mu.RLock()
	n := len(c.subs)
	for _, list := range c.routes {
		n += len(list)
	}
	c.mu.RUnlock()

	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	s := c.stats
	s.Subscriptions = n
	return s
}

// Close stops accepting work, closes the transport and waits for the
// dispatch goroutine to finish.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for _, s := range c.subs {
		s.closed.Store(true)
	}
	for _, list := range c.routes {
		for _, s := range list {
			s.closed.Store(true)
		}
	}
	c.subs = nil
	c.routes = nil
	c.mu.Unlock()

	err := c.transport.Close()
	if c.started.Load() {
		select {
		case <-c.done:
		case <-time.After(2 * time.Second):
			logging.Warn("Dispatcher", "dispatch loop did not stop within 2s")
		}
	}
	return err
}
