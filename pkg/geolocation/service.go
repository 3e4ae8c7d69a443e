package geolocation

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/go-drift/geolocation/pkg/errors"
	"github.com/go-drift/geolocation/pkg/platform"
)

// Service issues position requests to a Native layer and delivers decoded
// results to callbacks.
type Service struct {
	native Native
}

// NewService creates a service backed by native.
func NewService(native Native) *Service {
	return &Service{native: native}
}

// GetCurrentPosition requests a single reading.
//
// Exactly one of onSuccess or onError fires, once, unless the failure
// branch has no callback: then the failure is reported to the global error
// handler and dropped. A nil opts means DefaultPositionOptions.
//
// The returned error only covers issuing the request; when it is non-nil
// no callback will fire.
func (s *Service) GetCurrentPosition(onSuccess func(Position), onError func(PositionError), opts *PositionOptions) error {
	const op = "geolocation.GetCurrentPosition"
	if onSuccess == nil {
		return ErrNilCallback
	}

	var fired atomic.Bool
	success := func(raw any) {
		if !fired.CompareAndSwap(false, true) {
			return
		}
		pos, err := DecodePosition(raw)
		if err != nil {
			reportDecode(op, err)
			return
		}
		deliver(op, func() { onSuccess(pos) })
	}
	failure := func(raw any) {
		if !fired.CompareAndSwap(false, true) {
			return
		}
		perr, err := DecodePositionError(raw)
		if err != nil {
			reportDecode(op, err)
			return
		}
		if onError == nil {
			errors.Report(&errors.GeoError{
				Op:   op,
				Kind: errors.KindNative,
				Err:  fmt.Errorf("%w: %w", ErrNoErrorCallback, perr),
			})
			return
		}
		deliver(op, func() { onError(perr) })
	}

	if err := s.native.GetCurrentPosition(success, failure, resolveOptions(opts)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// WatchPosition starts continuous delivery of readings.
//
// onSuccess fires for every reading and onError (if non-nil) for every
// failure, in the order the host reports them. A failure does not end the
// watch; only canceling the returned Watch does. Deliveries that arrive
// after the watch is canceled are ignored.
func (s *Service) WatchPosition(onSuccess func(Position), onError func(PositionError), opts *PositionOptions) (*Watch, error) {
	const op = "geolocation.WatchPosition"
	if onSuccess == nil {
		return nil, ErrNilCallback
	}

	state := &watchState{native: s.native, active: true}
	success := func(raw any) {
		if !state.isActive() {
			return
		}
		pos, err := DecodePosition(raw)
		if err != nil {
			reportDecode(op, err)
			return
		}
		deliver(op, func() {
			if state.isActive() {
				onSuccess(pos)
			}
		})
	}
	failure := func(raw any) {
		if !state.isActive() {
			return
		}
		perr, err := DecodePositionError(raw)
		if err != nil {
			reportDecode(op, err)
			return
		}
		if onError == nil {
			return
		}
		deliver(op, func() {
			if state.isActive() {
				onError(perr)
			}
		})
	}

	id, err := s.native.WatchPosition(success, failure, resolveOptions(opts))
	if err != nil {
		state.mu.Lock()
		state.active = false
		state.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	state.mu.Lock()
	state.id = id
	state.mu.Unlock()

	w := &Watch{state: state}
	w.cleanup = runtime.AddCleanup(w, releaseUnreachable, state)
	return w, nil
}

func deliver(op string, fn func()) {
	platform.DispatchOrRun(func() {
		defer errors.Recover(op)
		fn()
	})
}

func reportDecode(op string, err error) {
	errors.Report(&errors.GeoError{
		Op:   op,
		Kind: errors.KindParsing,
		Err:  err,
	})
}
