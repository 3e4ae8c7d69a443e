package platform

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/go-drift/geolocation/pkg/errors"
)

// channelRegistry routes native events to registered event channels.
type channelRegistry struct {
	eventChannels map[string]*EventChannel
	mu            sync.RWMutex
}

var registry = &channelRegistry{
	eventChannels: make(map[string]*EventChannel),
}

func (r *channelRegistry) registerEvent(name string, ch *EventChannel) {
	r.mu.Lock()
	r.eventChannels[name] = ch
	r.mu.Unlock()
}

func (r *channelRegistry) getEventChannel(name string) *EventChannel {
	r.mu.RLock()
	ch := r.eventChannels[name]
	r.mu.RUnlock()
	return ch
}

func (r *channelRegistry) events() []*EventChannel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	channels := make([]*EventChannel, 0, len(r.eventChannels))
	for _, ch := range r.eventChannels {
		channels = append(channels, ch)
	}
	return channels
}

// NativeBridge defines the interface for calling native platform code.
type NativeBridge interface {
	// InvokeMethod calls a method on the native side.
	InvokeMethod(channel, method string, args []byte) ([]byte, error)

	// StartEventStream tells native to start sending events for a channel.
	StartEventStream(channel string) error

	// StopEventStream tells native to stop sending events for a channel.
	StopEventStream(channel string) error
}

var (
	bridgeMu     sync.RWMutex
	nativeBridge NativeBridge
)

func currentBridge() NativeBridge {
	bridgeMu.RLock()
	defer bridgeMu.RUnlock()
	return nativeBridge
}

// SetNativeBridge sets the native bridge implementation.
//
// After setting the bridge, SetNativeBridge starts event streams for any
// event channels that acquired subscriptions before the bridge was available.
// Startup errors are dispatched to subscribers' error handlers.
func SetNativeBridge(bridge NativeBridge) {
	bridgeMu.Lock()
	nativeBridge = bridge
	bridgeMu.Unlock()
	if bridge == nil {
		return
	}

	for _, ch := range registry.events() {
		ch.mu.Lock()
		shouldStart := len(ch.subscriptions) > 0 && !ch.started
		if shouldStart {
			ch.started = true
		}
		ch.mu.Unlock()

		if shouldStart {
			if err := startEventStream(ch.name); err != nil {
				ch.mu.Lock()
				ch.started = false
				ch.mu.Unlock()
				ch.dispatchError(err)
			}
		}
	}
}

func invokeNative(channel, method string, args any) (any, error) {
	bridge := currentBridge()
	if bridge == nil {
		return nil, ErrPlatformUnavailable
	}

	argsData, err := DefaultCodec.Encode(args)
	if err != nil {
		return nil, err
	}

	resultData, err := bridge.InvokeMethod(channel, method, argsData)
	if err != nil {
		return nil, err
	}

	return DefaultCodec.Decode(resultData)
}

func startEventStream(channel string) error {
	bridge := currentBridge()
	if bridge == nil {
		errors.Report(&errors.GeoError{
			Op:      "platform.startEventStream",
			Kind:    errors.KindPlatform,
			Channel: channel,
			Err:     ErrPlatformUnavailable,
		})
		return ErrPlatformUnavailable
	}
	if err := bridge.StartEventStream(channel); err != nil {
		errors.Report(&errors.GeoError{
			Op:      "platform.startEventStream",
			Kind:    errors.KindPlatform,
			Channel: channel,
			Err:     err,
		})
		return err
	}
	return nil
}

func stopEventStream(channel string) error {
	bridge := currentBridge()
	if bridge == nil {
		return ErrPlatformUnavailable
	}
	if err := bridge.StopEventStream(channel); err != nil {
		// ErrClosed is expected while a bridge is shutting down.
		if !stderrors.Is(err, ErrClosed) {
			errors.Report(&errors.GeoError{
				Op:      "platform.stopEventStream",
				Kind:    errors.KindPlatform,
				Channel: channel,
				Err:     err,
			})
		}
		return err
	}
	return nil
}

// ErrChannelNotRegistered is returned when an event is received for an unregistered channel.
var ErrChannelNotRegistered = fmt.Errorf("event channel not registered")

func lookupEventChannel(op, channel string) (*EventChannel, error) {
	ch := registry.getEventChannel(channel)
	if ch == nil {
		err := fmt.Errorf("%w: %s", ErrChannelNotRegistered, channel)
		errors.Report(&errors.GeoError{
			Op:      op,
			Kind:    errors.KindPlatform,
			Channel: channel,
			Err:     err,
		})
		return nil, err
	}
	return ch, nil
}

// HandleEvent is called from the bridge when native sends an event.
func HandleEvent(channel string, eventData []byte) error {
	ch, err := lookupEventChannel("platform.HandleEvent", channel)
	if err != nil {
		return err
	}

	data, err := DefaultCodec.Decode(eventData)
	if err != nil {
		ch.dispatchError(err)
		return err
	}

	ch.dispatchEvent(data)
	return nil
}

// HandleEventError is called from the bridge when an event stream errors.
func HandleEventError(channel string, code, message string) error {
	ch, err := lookupEventChannel("platform.HandleEventError", channel)
	if err != nil {
		return err
	}
	ch.dispatchError(NewChannelError(code, message))
	return nil
}

// HandleEventDone is called from the bridge when an event stream ends.
func HandleEventDone(channel string) error {
	ch, err := lookupEventChannel("platform.HandleEventDone", channel)
	if err != nil {
		return err
	}
	ch.dispatchDone()
	return nil
}

// ResetForTest resets all global platform state for test isolation.
// It clears the native bridge and dispatcher and removes all event
// subscriptions.
// This should only be called from tests.
func ResetForTest() {
	bridgeMu.Lock()
	nativeBridge = nil
	bridgeMu.Unlock()

	for _, ch := range registry.events() {
		ch.mu.Lock()
		ch.subscriptions = ch.subscriptions[:0]
		ch.started = false
		ch.mu.Unlock()
	}

	dispatchMu.Lock()
	dispatchFunc = nil
	dispatchMu.Unlock()
}
