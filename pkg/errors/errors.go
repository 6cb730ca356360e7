// Package errors provides structured error reporting for the Spine binding.
//
// Errors that cannot be returned to a caller (frame loop failures, listener
// panics, malformed native events) are wrapped in a [SpineError] and sent to
// the global [Handler] through [Report].
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
	// KindLoad indicates an atlas or skeleton that failed to load.
	KindLoad
	// KindNotFound indicates an unknown skin or animation name.
	KindNotFound
	// KindAttachment indicates an operation that needs a render surface.
	KindAttachment
	// KindRender indicates a per-frame update or draw failure.
	KindRender
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindPlatform:
		return "platform"
	case KindParsing:
		return "parsing"
	case KindLoad:
		return "load"
	case KindNotFound:
		return "not-found"
	case KindAttachment:
		return "attachment"
	case KindRender:
		return "render"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// SpineError is a reported error with enough context to locate the
// skeleton or view it concerns.
type SpineError struct {
	// Op is the operation that failed (e.g., "View.frame").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// Channel is the platform channel name, if applicable.
	Channel string
	// SkeletonID is the native skeleton handle, or 0.
	SkeletonID int64
	// ViewID is the platform view id, or 0.
	ViewID int64
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *SpineError) Error() string {
	if e.Channel != "" {
		return fmt.Sprintf("%s [%s] channel=%s: %v", e.Op, e.Kind, e.Channel, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *SpineError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "Listener.OnAnimationStart").
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

// ParseError represents a native payload with an unexpected shape.
type ParseError struct {
	// Channel is the platform channel that delivered the payload.
	Channel string
	// DataType is the expected type name.
	DataType string
	// Got is the actual data received.
	Got any
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s from channel %s: got %T", e.DataType, e.Channel, e.Got)
}

// Handler receives errors reported by the binding.
type Handler interface {
	// HandleError is called when an error is reported.
	HandleError(err *SpineError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
