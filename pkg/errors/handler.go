package errors

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"
)

var (
	handlerMu sync.RWMutex
	handler   Handler = &LogHandler{}
)

// SetHandler installs the handler that receives every reported failure.
// Pass nil to go back to a quiet LogHandler.
func SetHandler(h Handler) {
	if h == nil {
		h = &LogHandler{}
	}
	handlerMu.Lock()
	handler = h
	handlerMu.Unlock()
}

// CurrentHandler returns the installed handler.
func CurrentHandler() Handler {
	handlerMu.RLock()
	defer handlerMu.RUnlock()
	return handler
}

// Report stamps err if needed and hands it to the installed handler.
func Report(err *GeoError) {
	if err == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	CurrentHandler().HandleError(err)
}

// Recover reports a panic in a user callback and swallows it, so a
// misbehaving callback cannot take down the delivering goroutine.
//
//	defer errors.Recover("geolocation.deliver")
func Recover(op string) {
	r := recover()
	if r == nil {
		return
	}
	CurrentHandler().HandlePanic(&PanicError{
		Op:         op,
		Value:      r,
		StackTrace: stack(),
		Timestamp:  time.Now(),
	})
}

// stack formats the goroutine's frames above Recover.
func stack() string {
	var pcs [32]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for n > 0 {
		f, more := frames.Next()
		fmt.Fprintf(&sb, "%s\n\t%s:%d\n", f.Function, f.File, f.Line)
		if !more {
			break
		}
	}
	return sb.String()
}
