package platform

import "sync"

var (
	dispatchMu   sync.RWMutex
	dispatchFunc func(callback func())
)

// RegisterDispatch sets the dispatch function used to schedule callbacks on the UI loop.
// Pass nil to deliver callbacks inline on the bridge goroutine.
func RegisterDispatch(fn func(callback func())) {
	dispatchMu.Lock()
	dispatchFunc = fn
	dispatchMu.Unlock()
}

// Dispatch schedules a callback to run on the UI loop.
// Returns true if the callback was successfully scheduled, false if no dispatch function
// is registered or the callback is nil.
func Dispatch(callback func()) bool {
	dispatchMu.RLock()
	fn := dispatchFunc
	dispatchMu.RUnlock()
	if fn == nil || callback == nil {
		return false
	}
	fn(callback)
	return true
}

// DispatchOrRun schedules callback on the UI loop, or runs it immediately
// when no dispatch function is registered.
func DispatchOrRun(callback func()) {
	if callback == nil {
		return
	}
	if !Dispatch(callback) {
		callback()
	}
}
