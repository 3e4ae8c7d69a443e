package geolocation_test

import (
	"sync"
	"testing"

	"github.com/go-drift/geolocation/pkg/errors"
)

// reports captures everything sent to the global error handler.
type reports struct {
	mu     sync.Mutex
	errs   []*errors.GeoError
	panics []*errors.PanicError
}

func (r *reports) HandleError(err *errors.GeoError) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *reports) HandlePanic(err *errors.PanicError) {
	r.mu.Lock()
	r.panics = append(r.panics, err)
	r.mu.Unlock()
}

func (r *reports) kinds() []errors.ErrorKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]errors.ErrorKind, len(r.errs))
	for i, e := range r.errs {
		kinds[i] = e.Kind
	}
	return kinds
}

func captureReports(t *testing.T) *reports {
	t.Helper()
	r := &reports{}
	errors.SetHandler(r)
	t.Cleanup(func() { errors.SetHandler(nil) })
	return r
}
