package platform

import (
	stderrors "errors"

	"github.com/go-drift/drift-spine/pkg/errors"
)

// Stream decodes the raw payloads of an EventChannel into typed values.
// Multiple listeners each receive every event.
type Stream[T any] struct {
	eventChannel *EventChannel
	parser       func(data any) (T, error)
}

// NewStream creates a Stream wrapping an EventChannel.
// The parser converts raw event data to the typed value.
func NewStream[T any](channel *EventChannel, parser func(data any) (T, error)) *Stream[T] {
	return &Stream[T]{eventChannel: channel, parser: parser}
}

// Listen subscribes to events and returns an unsubscribe function.
// Parse failures and native stream errors are reported via errors.Report.
// ErrPlatformUnavailable is not reported: the stream starts once a bridge is
// installed.
func (s *Stream[T]) Listen(handler func(T)) (unsubscribe func()) {
	name := s.eventChannel.Name()
	sub := s.eventChannel.Listen(EventHandler{
		OnEvent: func(data any) {
			val, err := s.parser(data)
			if err != nil {
				errors.Report(&errors.SpineError{
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
			if stderrors.Is(err, ErrPlatformUnavailable) {
				return
			}
			errors.Report(&errors.SpineError{
				Op:      "stream.error",
				Kind:    errors.KindPlatform,
				Channel: name,
				Err:     err,
			})
		},
	})
	return sub.Cancel
}
