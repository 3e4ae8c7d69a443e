// Package errors provides structured error reporting for the geolocation binding.
//
// Failures that cannot be returned to a caller (a malformed native payload,
// a platform failure with no registered error callback, a panic inside a
// delivery) are reported to a global [Handler] instead.
package errors

import (
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindPlatform indicates a platform channel or native bridge error.
	KindPlatform
	// KindParsing indicates a native payload that could not be decoded.
	KindParsing
	// KindNative indicates a failure reported by the native geolocation layer.
	KindNative
	// KindLifecycle indicates a watch handle lifecycle event (release, cleanup).
	KindLifecycle
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindPlatform:
		return "platform"
	case KindParsing:
		return "parsing"
	case KindNative:
		return "native"
	case KindLifecycle:
		return "lifecycle"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// GeoError represents a structured error reported by the binding.
type GeoError struct {
	// Op is the operation that failed (e.g., "geolocation.WatchPosition").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// Channel is the platform channel name, if applicable.
	Channel string
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *GeoError) Error() string {
	if e.Channel != "" {
		return fmt.Sprintf("%s [%s] channel=%s: %v", e.Op, e.Kind, e.Channel, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *GeoError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "geolocation.deliver").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Handler receives errors reported by the binding.
type Handler interface {
	// HandleError is called when an error occurs.
	HandleError(err *GeoError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
