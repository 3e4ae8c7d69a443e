package platform

import "github.com/go-drift/geolocation/pkg/errors"

// Stream provides a multi-subscriber broadcast of typed platform events.
// Unlike raw event channels, each event is parsed once per listener and
// parse failures are reported instead of reaching the handler.
type Stream[T any] struct {
	eventChannel *EventChannel
	parser       func(data any) (T, error)
}

// NewStream creates a Stream wrapping an EventChannel.
// The parser converts raw event data to the typed value, returning error on parse failure.
func NewStream[T any](channel *EventChannel, parser func(data any) (T, error)) *Stream[T] {
	return &Stream[T]{
		eventChannel: channel,
		parser:       parser,
	}
}

// Listen subscribes to events and returns an unsubscribe function.
// Parse errors and stream errors are reported via errors.Report.
func (s *Stream[T]) Listen(handler func(T)) (unsubscribe func()) {
	return s.ListenWithErrors(handler, nil)
}

// ListenWithErrors is Listen with stream errors also passed to onError
// after they are reported. Parse errors are only reported.
func (s *Stream[T]) ListenWithErrors(handler func(T), onError func(error)) (unsubscribe func()) {
	name := s.eventChannel.Name()
	sub := s.eventChannel.Listen(EventHandler{
		OnEvent: func(data any) {
			val, err := s.parser(data)
			if err != nil {
				errors.Report(&errors.GeoError{
					Op:      "stream.parse",
					Kind:    errors.KindParsing,
					Channel: name,
					Err:     err,
				})
				return
			}
			handler(val)
		},
		OnError: func(err error) {
			errors.Report(&errors.GeoError{
				Op:      "stream.error",
				Kind:    errors.KindPlatform,
				Channel: name,
				Err:     err,
			})
			if onError != nil {
				onError(err)
			}
		},
	})
	return sub.Cancel
}
