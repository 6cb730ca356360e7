package platform

import "errors"

// Sentinel errors for platform operations.
var (
	// ErrClosed is returned when operating on a closed channel or stream.
	ErrClosed = errors.New("platform: channel closed")

	// ErrDisposed is returned when calling into a disposed platform view.
	ErrDisposed = errors.New("platform: view disposed")
)
