// Package geotest provides a scriptable geolocation.Native for tests.
package geotest

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-drift/geolocation/pkg/geolocation"
)

// Request is one call recorded by Native.
type Request struct {
	Options geolocation.PositionOptions
	WatchID geolocation.WatchID
	Watch   bool

	success  geolocation.RawCallback
	failure  geolocation.RawCallback
	released bool
}

// Native is a geolocation.Native whose results are delivered by the test.
// It follows the Native contract: one-shot callbacks are released after
// their first delivery, watch callbacks when the watch is cleared.
type Native struct {
	// GetErr, WatchErr and ClearErr are returned by the matching calls when set.
	GetErr   error
	WatchErr error
	ClearErr error

	mu        sync.Mutex
	requests  []*Request
	watches   map[geolocation.WatchID]*Request
	cleared   []geolocation.WatchID
	clearedCh chan geolocation.WatchID
	nextWatch geolocation.WatchID
}

// New returns an empty Native.
func New() *Native {
	return &Native{
		watches:   make(map[geolocation.WatchID]*Request),
		clearedCh: make(chan geolocation.WatchID, 64),
	}
}

// GetCurrentPosition records a one-shot request.
func (n *Native) GetCurrentPosition(success, failure geolocation.RawCallback, opts geolocation.PositionOptions) error {
	if n.GetErr != nil {
		return n.GetErr
	}
	n.mu.Lock()
	n.requests = append(n.requests, &Request{Options: opts, success: success, failure: failure})
	n.mu.Unlock()
	return nil
}

// WatchPosition records a watch and assigns it the next id, starting at 1.
func (n *Native) WatchPosition(success, failure geolocation.RawCallback, opts geolocation.PositionOptions) (geolocation.WatchID, error) {
	if n.WatchErr != nil {
		return 0, n.WatchErr
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextWatch++
	req := &Request{Options: opts, WatchID: n.nextWatch, Watch: true, success: success, failure: failure}
	n.requests = append(n.requests, req)
	n.watches[req.WatchID] = req
	return req.WatchID, nil
}

// ClearWatch records the id and releases the watch's callbacks.
func (n *Native) ClearWatch(id geolocation.WatchID) error {
	n.mu.Lock()
	n.cleared = append(n.cleared, id)
	if req, ok := n.watches[id]; ok {
		req.released = true
		delete(n.watches, id)
	}
	n.mu.Unlock()

	select {
	case n.clearedCh <- id:
	default:
	}
	return n.ClearErr
}

// Requests returns every request issued so far.
func (n *Native) Requests() []*Request {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*Request(nil), n.requests...)
}

// Last returns the most recent request, or nil.
func (n *Native) Last() *Request {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.requests) == 0 {
		return nil
	}
	return n.requests[len(n.requests)-1]
}

// Cleared returns the ids passed to ClearWatch, in call order.
func (n *Native) Cleared() []geolocation.WatchID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]geolocation.WatchID(nil), n.cleared...)
}

// ActiveWatches returns the number of watches not yet cleared.
func (n *Native) ActiveWatches() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.watches)
}

// WaitCleared blocks until ClearWatch(id) is called or timeout elapses.
// poll runs between waits, for tests that need to drive the garbage collector.
func (n *Native) WaitCleared(id geolocation.WatchID, timeout time.Duration, poll func()) bool {
	deadline := time.After(timeout)
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		for _, c := range n.Cleared() {
			if c == id {
				return true
			}
		}
		select {
		case <-n.clearedCh:
		case <-tick.C:
			if poll != nil {
				poll()
			}
		case <-deadline:
			return false
		}
	}
}

// ErrReleased is returned when delivering to a request whose callbacks were released.
var ErrReleased = errors.New("geotest: callbacks already released")

// DeliverPosition invokes the request's success callback with raw.
func (n *Native) DeliverPosition(req *Request, raw any) error {
	cb, err := n.take(req, true)
	if err != nil {
		return err
	}
	cb(raw)
	return nil
}

// DeliverError invokes the request's failure callback with raw. A request
// issued without a failure callback still counts as delivered.
func (n *Native) DeliverError(req *Request, raw any) error {
	cb, err := n.take(req, false)
	if err != nil {
		return err
	}
	if cb != nil {
		cb(raw)
	}
	return nil
}

func (n *Native) take(req *Request, success bool) (geolocation.RawCallback, error) {
	if req == nil {
		return nil, fmt.Errorf("geotest: nil request")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if req.released {
		return nil, ErrReleased
	}
	if !req.Watch {
		req.released = true
	}
	if success {
		return req.success, nil
	}
	return req.failure, nil
}

// Released reports whether the request's callbacks have been released.
func (n *Native) Released(req *Request) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return req.released
}

// RawPosition builds a navigator-shaped reading with only the required fields.
func RawPosition(lat, lng, accuracy, timestamp float64) map[string]any {
	return map[string]any{
		"coords": map[string]any{
			"latitude":         lat,
			"longitude":        lng,
			"accuracy":         accuracy,
			"altitude":         nil,
			"altitudeAccuracy": nil,
			"heading":          nil,
			"speed":            nil,
		},
		"timestamp": timestamp,
	}
}

// RawError builds a navigator-shaped error record.
func RawError(code float64, message string) map[string]any {
	return map[string]any{"code": code, "message": message}
}
