//go:build js && wasm

package geolocation

import (
	"errors"
	"sync"
	"syscall/js"
)

// BrowserNative implements Native with navigator.geolocation.
//
// Every Go callback handed to the browser is a js.Func that must be
// released: after the single delivery of a one-shot query, and on
// ClearWatch for a watch.
type BrowserNative struct {
	geolocation js.Value

	mu       sync.Mutex
	watches  map[WatchID][2]js.Func
	oneShots int
}

// NewBrowserNative returns a Native for the current page, or an error if the
// browser has no geolocation support.
func NewBrowserNative() (*BrowserNative, error) {
	g := js.Global().Get("navigator").Get("geolocation")
	if g.IsUndefined() || g.IsNull() {
		return nil, errors.New("geolocation: navigator.geolocation is not available")
	}
	return newBrowserNative(g), nil
}

func newBrowserNative(g js.Value) *BrowserNative {
	return &BrowserNative{geolocation: g, watches: make(map[WatchID][2]js.Func)}
}

// Pending returns how many requests still hold js.Funcs.
func (b *BrowserNative) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.oneShots + len(b.watches)
}

// GetCurrentPosition implements Native.
func (b *BrowserNative) GetCurrentPosition(success, failure RawCallback, opts PositionOptions) error {
	var onSuccess, onError js.Func
	var once sync.Once
	release := func() {
		once.Do(func() {
			onSuccess.Release()
			onError.Release()
			b.mu.Lock()
			b.oneShots--
			b.mu.Unlock()
		})
	}
	onSuccess = js.FuncOf(func(this js.Value, args []js.Value) any {
		defer release()
		success(cloneAsObject(args[0]))
		return nil
	})
	onError = js.FuncOf(func(this js.Value, args []js.Value) any {
		defer release()
		if failure != nil {
			failure(cloneAsObject(args[0]))
		}
		return nil
	})
	b.mu.Lock()
	b.oneShots++
	b.mu.Unlock()
	b.geolocation.Call("getCurrentPosition", onSuccess, onError, jsOptions(opts))
	return nil
}

// WatchPosition implements Native.
func (b *BrowserNative) WatchPosition(success, failure RawCallback, opts PositionOptions) (WatchID, error) {
	onSuccess := js.FuncOf(func(this js.Value, args []js.Value) any {
		success(cloneAsObject(args[0]))
		return nil
	})
	onError := js.FuncOf(func(this js.Value, args []js.Value) any {
		if failure != nil {
			failure(cloneAsObject(args[0]))
		}
		return nil
	})
	id := WatchID(b.geolocation.Call("watchPosition", onSuccess, onError, jsOptions(opts)).Int())

	b.mu.Lock()
	b.watches[id] = [2]js.Func{onSuccess, onError}
	b.mu.Unlock()
	return id, nil
}

// ClearWatch implements Native.
func (b *BrowserNative) ClearWatch(id WatchID) error {
	b.mu.Lock()
	funcs, ok := b.watches[id]
	delete(b.watches, id)
	b.mu.Unlock()

	b.geolocation.Call("clearWatch", int(id))
	if ok {
		funcs[0].Release()
		funcs[1].Release()
	}
	return nil
}

func jsOptions(opts PositionOptions) js.Value {
	o := js.Global().Get("Object").New()
	o.Set("enableHighAccuracy", opts.EnableHighAccuracy)
	o.Set("timeout", opts.TimeoutMs)
	o.Set("maximumAge", opts.MaximumAge)
	return o
}

// cloneAsObject copies a GeolocationPosition or GeolocationPositionError
// into plain Go values. Their fields are prototype getters, so they are
// read by name rather than enumerated.
func cloneAsObject(v js.Value) any {
	if v.IsNull() || v.IsUndefined() {
		return nil
	}
	coords := v.Get("coords")
	if coords.IsUndefined() {
		return map[string]any{
			"code":    v.Get("code").Float(),
			"message": v.Get("message").String(),
		}
	}
	c := make(map[string]any, 7)
	for _, name := range []string{"latitude", "longitude", "altitude", "accuracy", "altitudeAccuracy", "heading", "speed"} {
		f := coords.Get(name)
		if f.Type() == js.TypeNumber {
			c[name] = f.Float()
		} else {
			c[name] = nil
		}
	}
	return map[string]any{
		"coords":    c,
		"timestamp": v.Get("timestamp").Float(),
	}
}
