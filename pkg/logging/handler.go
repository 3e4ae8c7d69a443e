package logging

import "github.com/go-drift/geolocation/pkg/errors"

// Handler sends reported errors and recovered panics to a Logger.
// Install it with errors.SetHandler.
type Handler struct {
	Logger *Logger
}

// HandleError implements errors.Handler. Dropped host failures are routine
// and go to the debug level.
func (h Handler) HandleError(err *errors.GeoError) {
	if err == nil {
		return
	}
	if err.Kind == errors.KindNative {
		h.Logger.Debugf("%s", err)
		return
	}
	h.Logger.Errorf("%s", err)
	if err.StackTrace != "" {
		h.Logger.Debugf("stack trace:\n%s", err.StackTrace)
	}
}

// HandlePanic implements errors.Handler.
func (h Handler) HandlePanic(err *errors.PanicError) {
	if err == nil {
		return
	}
	h.Logger.Errorf("panic in %s: %v", err.Op, err.Value)
	if err.StackTrace != "" {
		h.Logger.Errorf("stack trace:\n%s", err.StackTrace)
	}
}
