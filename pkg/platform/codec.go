// Package platform provides platform channel communication between Go and native code.
// It lets Go code call native APIs (geolocation queries, watch registration)
// and receive events pushed by the native platform (position readings, errors).
package platform

import (
	"encoding/json"
	"errors"
)

// MessageCodec encodes and decodes messages for platform channel communication.
type MessageCodec interface {
	// Encode converts a Go value to bytes for transmission to native code.
	Encode(value any) ([]byte, error)

	// Decode converts bytes received from native code to a Go value.
	Decode(data []byte) (any, error)
}

// JsonCodec implements MessageCodec using JSON encoding.
// JSON matches what browser and mobile hosts already produce for geolocation records.
type JsonCodec struct{}

// Encode serializes the value to JSON bytes.
func (c JsonCodec) Encode(value any) ([]byte, error) {
	return json.Marshal(value)
}

// Decode deserializes JSON bytes to a Go value.
// Objects decode to map[string]any and numbers to float64.
func (c JsonCodec) Decode(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// DefaultCodec is the codec used by platform channels.
var DefaultCodec MessageCodec = JsonCodec{}

// Standard errors for platform channel operations.
var (
	// ErrChannelNotFound indicates the requested platform channel does not exist.
	ErrChannelNotFound = errors.New("platform channel not found")

	// ErrMethodNotFound indicates the method is not implemented on the native side.
	ErrMethodNotFound = errors.New("method not implemented")

	// ErrInvalidArguments indicates the arguments passed to the method were invalid.
	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrPlatformUnavailable indicates no native bridge is installed or the
	// host does not expose the capability.
	ErrPlatformUnavailable = errors.New("platform feature unavailable")

	// ErrTimeout indicates the native side did not answer a method call in time.
	ErrTimeout = errors.New("operation timed out")
)

// CodeDisconnected is the ChannelError code a bridge sends on its event
// streams when the host went away. Requests issued before it will never
// be answered.
const CodeDisconnected = "disconnected"

// ChannelError is a failure reported by the host, either as the answer to
// a method call or on an event stream.
type ChannelError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ChannelError) Error() string {
	if e.Message != "" {
		return e.Code + ": " + e.Message
	}
	return e.Code
}

// NewChannelError creates a new ChannelError with the given code and message.
func NewChannelError(code, message string) *ChannelError {
	return &ChannelError{Code: code, Message: message}
}
