package geolocation

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/go-drift/geolocation/pkg/errors"
)

// Watch owns one native watch subscription.
//
// A Watch is active from WatchPosition until Cancel or Close, then
// inactive for good. A Watch dropped while active is canceled when the
// garbage collector finds it unreachable, so a forgotten handle cannot
// leave a native subscription running; call Close explicitly (usually
// deferred) to release it deterministically.
type Watch struct {
	state   *watchState
	cleanup runtime.Cleanup
}

// watchState is everything a release needs. It must not point back to the
// Watch, or the runtime cleanup would never run.
type watchState struct {
	mu     sync.Mutex
	native Native
	id     WatchID
	active bool
}

func (s *watchState) isActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// release moves the state to inactive and clears the native watch.
// It reports false if the state was already inactive.
func (s *watchState) release() (bool, error) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return false, nil
	}
	s.active = false
	id := s.id
	s.mu.Unlock()
	return true, s.native.ClearWatch(id)
}

// releaseUnreachable runs on the runtime's cleanup goroutine, which all
// cleanups share, so the native clear happens on its own goroutine.
func releaseUnreachable(s *watchState) {
	go func() {
		s.mu.Lock()
		id := s.id
		s.mu.Unlock()
		released, err := s.release()
		if !released {
			return
		}
		errors.Report(&errors.GeoError{
			Op:   "geolocation.Watch.cleanup",
			Kind: errors.KindLifecycle,
			Err:  fmt.Errorf("watch %d dropped while active, cleared (clear error: %v)", id, err),
		})
	}()
}

// ID returns the native subscription id.
func (w *Watch) ID() WatchID {
	w.state.mu.Lock()
	defer w.state.mu.Unlock()
	return w.state.id
}

// IsActive reports whether the subscription is still live.
func (w *Watch) IsActive() bool {
	return w.state.isActive()
}

// Cancel clears the native subscription and releases both callbacks.
// Canceling an inactive watch is a programming error and panics with
// ErrWatchInactive. A failure from the host while clearing is reported
// to the global error handler; the watch is inactive either way.
func (w *Watch) Cancel() {
	released, err := w.state.release()
	if !released {
		panic(ErrWatchInactive)
	}
	w.cleanup.Stop()
	if err != nil {
		errors.Report(&errors.GeoError{
			Op:   "geolocation.Watch.Cancel",
			Kind: errors.KindPlatform,
			Err:  err,
		})
	}
}

// Close cancels the watch if it is still active and does nothing otherwise.
// It returns the host's error from clearing the subscription, if any.
func (w *Watch) Close() error {
	released, err := w.state.release()
	if released {
		w.cleanup.Stop()
	}
	return err
}
