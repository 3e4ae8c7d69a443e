// Package geolocation exposes the host's geolocation capability as typed,
// callback-based queries.
//
// A [Service] issues requests to a [Native] layer: a browser through
// syscall/js, a mobile or remote host through platform channels
// ([ChannelNative]), or a test double. Raw readings are decoded into
// [Position] and [PositionError] values before reaching callers.
//
// # One-shot queries
//
// GetCurrentPosition delivers exactly one reading or one error:
//
//	svc.GetCurrentPosition(func(p geolocation.Position) {
//	    fmt.Println(p.Coords.Latitude, p.Coords.Longitude)
//	}, nil, nil)
//
// If no error callback is given, a native failure is dropped after being
// reported to the global error handler.
//
// # Watches
//
// WatchPosition keeps delivering readings until the returned [Watch] is
// canceled. The watch owns the native subscription:
//
//	w, err := svc.WatchPosition(onPosition, onError, nil)
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//
// Cancel on an inactive watch panics. Close is the scope guard and never
// panics. A watch that becomes unreachable while active is canceled by the
// runtime.
//
// # Delivery
//
// Callbacks run through [platform.DispatchOrRun], so hosts that register a
// UI dispatcher receive them on their own loop.
package geolocation
