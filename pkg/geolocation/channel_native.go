package geolocation

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-drift/geolocation/pkg/platform"
)

// Channel names used by ChannelNative. Hosts implement the native half.
const (
	MethodChannelName = "drift/geolocation"
	EventChannelName  = "drift/geolocation/events"
)

// Event kinds carried on EventChannelName.
const (
	EventKindPosition = "position"
	EventKindError    = "error"
)

// ChannelNative implements Native over platform channels.
//
// Requests are sent on MethodChannelName:
//
//	getCurrentPosition {requestId, options}
//	watchPosition      {requestId, options} -> {watchId}
//	clearWatch         {watchId}
//
// and results come back on EventChannelName as
// {requestId, kind: "position"|"error", payload}. Payloads keep the
// navigator.geolocation shape and are decoded by the Service.
//
// The WatchID handed to callers is the requestId; the host's watchId is
// only used on the wire. A stream error with code platform.CodeDisconnected
// fails every outstanding request with PositionUnavailable.
type ChannelNative struct {
	channel     *platform.MethodChannel
	unsubscribe func()

	mu      sync.Mutex
	pending map[int64]*pendingRequest

	// host watchId -> requestId, live watches only
	hostWatches map[int64]int64

	nextRequestID atomic.Int64
}

type pendingRequest struct {
	success RawCallback
	failure RawCallback
	oneShot bool

	hostWatchID int64
	// hostLost is set once the host disconnected; the host watch is gone.
	hostLost    bool
}

// ChannelEvent is a decoded message from EventChannelName.
type ChannelEvent struct {
	RequestID int64
	Kind      string
	Payload   any
}

// NewChannelNative registers the geolocation channels and starts listening
// for results.
func NewChannelNative() *ChannelNative {
	n := &ChannelNative{
		channel:     platform.NewMethodChannel(MethodChannelName),
		pending:     make(map[int64]*pendingRequest),
		hostWatches: make(map[int64]int64),
	}
	events := platform.NewStream(platform.NewEventChannel(EventChannelName), ParseChannelEvent)
	n.unsubscribe = events.ListenWithErrors(n.handleEvent, n.handleStreamError)
	return n
}

// Close stops listening for results. Outstanding requests never complete.
func (n *ChannelNative) Close() {
	n.unsubscribe()
	n.mu.Lock()
	n.pending = make(map[int64]*pendingRequest)
	n.hostWatches = make(map[int64]int64)
	n.mu.Unlock()
}

// GetCurrentPosition implements Native.
func (n *ChannelNative) GetCurrentPosition(success, failure RawCallback, opts PositionOptions) error {
	id := n.register(&pendingRequest{success: success, failure: failure, oneShot: true})
	_, err := n.channel.Invoke("getCurrentPosition", map[string]any{
		"requestId": id,
		"options":   opts,
	})
	if err != nil {
		n.drop(id)
		return err
	}
	return nil
}

// WatchPosition implements Native. A watchId the host already assigned to
// a live watch is rejected.
func (n *ChannelNative) WatchPosition(success, failure RawCallback, opts PositionOptions) (WatchID, error) {
	req := &pendingRequest{success: success, failure: failure}
	id := n.register(req)
	result, err := n.channel.Invoke("watchPosition", map[string]any{
		"requestId": id,
		"options":   opts,
	})
	if err != nil {
		n.drop(id)
		return 0, err
	}

	m, _ := platform.AsMap(result)
	hostID, ok := platform.AsInt64(m["watchId"])
	if !ok {
		n.drop(id)
		return 0, fmt.Errorf("watchPosition: %w: missing watchId in %v", platform.ErrInvalidArguments, result)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if _, dup := n.hostWatches[hostID]; dup {
		delete(n.pending, id)
		return 0, fmt.Errorf("watchPosition: %w: duplicate watchId %d", platform.ErrInvalidArguments, hostID)
	}
	if n.pending[id] != req || req.hostLost {
		// Lost to a disconnect or Close while the call was in flight.
		return WatchID(id), nil
	}
	req.hostWatchID = hostID
	n.hostWatches[hostID] = id
	return WatchID(id), nil
}

// ClearWatch implements Native. The callbacks are released before the host
// is told, so no delivery can arrive after ClearWatch returns. Watches lost
// to a disconnect are released without a host call.
func (n *ChannelNative) ClearWatch(id WatchID) error {
	n.mu.Lock()
	req := n.pending[int64(id)]
	if req == nil || req.oneShot {
		n.mu.Unlock()
		return fmt.Errorf("clearWatch: unknown watch %d", id)
	}
	delete(n.pending, int64(id))
	if !req.hostLost {
		delete(n.hostWatches, req.hostWatchID)
	}
	n.mu.Unlock()

	if req.hostLost {
		return nil
	}
	_, err := n.channel.Invoke("clearWatch", map[string]any{"watchId": req.hostWatchID})
	return err
}

// Pending returns the number of requests whose callbacks are still held.
func (n *ChannelNative) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.pending)
}

func (n *ChannelNative) register(req *pendingRequest) int64 {
	id := n.nextRequestID.Add(1)
	n.mu.Lock()
	n.pending[id] = req
	n.mu.Unlock()
	return id
}

func (n *ChannelNative) drop(id int64) {
	n.mu.Lock()
	delete(n.pending, id)
	n.mu.Unlock()
}

func (n *ChannelNative) handleEvent(ev ChannelEvent) {
	n.mu.Lock()
	req := n.pending[ev.RequestID]
	if req != nil && req.oneShot {
		delete(n.pending, ev.RequestID)
	}
	n.mu.Unlock()

	// Late results for completed or cleared requests are expected.
	if req == nil {
		return
	}
	switch ev.Kind {
	case EventKindPosition:
		req.success(ev.Payload)
	case EventKindError:
		if req.failure != nil {
			req.failure(ev.Payload)
		}
	}
}

// handleStreamError fails everything outstanding when the host went away.
// One-shots are released; watches stay registered until cleared but are
// marked lost so ClearWatch does not address the new host.
func (n *ChannelNative) handleStreamError(err error) {
	var chErr *platform.ChannelError
	if !errors.As(err, &chErr) || chErr.Code != platform.CodeDisconnected {
		return
	}

	n.mu.Lock()
	var failed []*pendingRequest
	for id, req := range n.pending {
		if req.hostLost {
			continue
		}
		if req.oneShot {
			delete(n.pending, id)
		} else {
			req.hostLost = true
		}
		failed = append(failed, req)
	}
	n.hostWatches = make(map[int64]int64)
	n.mu.Unlock()

	payload := map[string]any{
		"code":    int64(PositionUnavailable),
		"message": "host disconnected: " + chErr.Message,
	}
	for _, req := range failed {
		if req.failure != nil {
			req.failure(payload)
		}
	}
}

// ParseChannelEvent decodes a message from EventChannelName.
func ParseChannelEvent(data any) (ChannelEvent, error) {
	m, ok := platform.AsMap(data)
	if !ok {
		return ChannelEvent{}, fmt.Errorf("expected map, got %T", data)
	}
	requestID, ok := platform.AsInt64(m["requestId"])
	if !ok {
		return ChannelEvent{}, fmt.Errorf("requestId: expected integer, got %T", m["requestId"])
	}
	kind, _ := platform.AsString(m["kind"])
	if kind != EventKindPosition && kind != EventKindError {
		return ChannelEvent{}, fmt.Errorf("kind: unknown event kind %q", kind)
	}
	return ChannelEvent{RequestID: requestID, Kind: kind, Payload: m["payload"]}, nil
}
