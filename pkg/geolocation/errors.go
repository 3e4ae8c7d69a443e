package geolocation

import "errors"

var (
	// ErrWatchInactive is the panic value of Cancel on a watch that was
	// already canceled or closed.
	ErrWatchInactive = errors.New("geolocation: cancel called on inactive watch")

	// ErrNilCallback is returned when a request is issued without a success callback.
	ErrNilCallback = errors.New("geolocation: success callback is nil")

	// ErrNoErrorCallback wraps a native failure that was dropped because the
	// caller registered no error callback.
	ErrNoErrorCallback = errors.New("geolocation: failure dropped, no error callback registered")
)
