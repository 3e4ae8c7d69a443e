package platform

import (
	"sync"
	"sync/atomic"
)

// MethodChannel provides method-call communication with native code.
type MethodChannel struct {
	name string
}

// NewMethodChannel creates a new method channel with the given name.
func NewMethodChannel(name string) *MethodChannel {
	return &MethodChannel{name: name}
}

// Name returns the channel name.
func (c *MethodChannel) Name() string {
	return c.name
}

// Invoke calls a method on the native side and returns the decoded result.
// This blocks until the native side responds or an error occurs.
func (c *MethodChannel) Invoke(method string, args any) (any, error) {
	return invokeNative(c.name, method, args)
}

// EventHandler receives events from an EventChannel.
type EventHandler struct {
	OnEvent func(data any)
	OnError func(err error)
	OnDone  func()
}

// Subscription represents an active event subscription.
type Subscription struct {
	channel  *EventChannel
	handler  *EventHandler
	canceled atomic.Bool
}

// Cancel stops receiving events on this subscription. Repeated calls are no-ops.
func (s *Subscription) Cancel() {
	if s.canceled.CompareAndSwap(false, true) {
		s.channel.removeSubscription(s)
	}
}

// IsCanceled returns true if this subscription has been canceled.
func (s *Subscription) IsCanceled() bool {
	return s.canceled.Load()
}

// EventChannel provides stream-based event communication from native to Go.
// The native stream is started on the first subscription and stopped when the
// last one is canceled.
type EventChannel struct {
	name          string
	subscriptions []*Subscription
	started       bool
	mu            sync.Mutex
}

// NewEventChannel creates a new event channel with the given name.
func NewEventChannel(name string) *EventChannel {
	ch := &EventChannel{name: name}
	registry.registerEvent(name, ch)
	return ch
}

// Name returns the channel name.
func (c *EventChannel) Name() string {
	return c.name
}

// Listen subscribes to events on this channel.
// Any error from starting the native event stream is reported via the error handler
// but does not prevent the subscription from being created; the stream is
// retried when a bridge is installed with SetNativeBridge.
func (c *EventChannel) Listen(handler EventHandler) *Subscription {
	sub := &Subscription{
		channel: c,
		handler: &handler,
	}
	c.mu.Lock()
	c.subscriptions = append(c.subscriptions, sub)
	shouldStart := !c.started
	if shouldStart {
		c.started = true
	}
	c.mu.Unlock()

	if shouldStart {
		if err := startEventStream(c.name); err != nil {
			c.mu.Lock()
			c.started = false
			c.mu.Unlock()
			if handler.OnError != nil {
				handler.OnError(err)
			}
		}
	}

	return sub
}

func (c *EventChannel) removeSubscription(sub *Subscription) {
	c.mu.Lock()
	for i, s := range c.subscriptions {
		if s == sub {
			c.subscriptions = append(c.subscriptions[:i], c.subscriptions[i+1:]...)
			break
		}
	}
	shouldStop := len(c.subscriptions) == 0 && c.started
	if shouldStop {
		c.started = false
	}
	c.mu.Unlock()

	if shouldStop {
		// Failures are reported by stopEventStream.
		_ = stopEventStream(c.name)
	}
}

func (c *EventChannel) snapshot() []*Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	subs := make([]*Subscription, len(c.subscriptions))
	copy(subs, c.subscriptions)
	return subs
}

func (c *EventChannel) dispatchEvent(data any) {
	for _, sub := range c.snapshot() {
		if !sub.IsCanceled() && sub.handler.OnEvent != nil {
			sub.handler.OnEvent(data)
		}
	}
}

func (c *EventChannel) dispatchError(err error) {
	for _, sub := range c.snapshot() {
		if !sub.IsCanceled() && sub.handler.OnError != nil {
			sub.handler.OnError(err)
		}
	}
}

func (c *EventChannel) dispatchDone() {
	c.mu.Lock()
	subs := c.subscriptions
	c.subscriptions = nil
	c.started = false
	c.mu.Unlock()

	for _, sub := range subs {
		sub.canceled.Store(true)
		if sub.handler.OnDone != nil {
			sub.handler.OnDone()
		}
	}
}
