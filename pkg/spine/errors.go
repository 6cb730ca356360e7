package spine

import (
	stderrors "errors"
	"fmt"

	"github.com/go-drift/drift-spine/pkg/platform"
)

// Sentinel causes carried by the typed errors below.
var (
	// ErrNotAttached is the cause of an AttachmentError raised when a
	// skeleton has no live animation state.
	ErrNotAttached = stderrors.New("render surface not attached")

	// ErrAlreadyAttached is the cause of an AttachmentError raised when a
	// skeleton is already attached to another view.
	ErrAlreadyAttached = stderrors.New("skeleton already attached to another view")

	// ErrReleased is returned for operations on a released skeleton.
	ErrReleased = stderrors.New("skeleton released")

	// ErrNoContext is the cause of a LoadError raised when no native runtime
	// is available to load into.
	ErrNoContext = stderrors.New("no execution context")

	// ErrEmptyPath is the cause of a LoadError raised for an empty atlas or
	// skeleton name.
	ErrEmptyPath = stderrors.New("empty atlas or skeleton path")

	// ErrInvalidTrack is returned for a negative track index.
	ErrInvalidTrack = fmt.Errorf("%w: negative track index", platform.ErrInvalidArguments)
)

// LoadError reports a failed skeleton load: a missing, unreadable or corrupt
// file, or no runtime to load into.
type LoadError struct {
	Atlas    string
	Skeleton string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("spine: load %q / %q: %v", e.Atlas, e.Skeleton, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// NotFoundError reports a skin, animation or asset referenced by an unknown
// name.
type NotFoundError struct {
	// Kind is "skin", "animation" or "asset".
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("spine: %s not found: %q", e.Kind, e.Name)
}

// AttachmentError reports an operation that needs a render surface, or an
// attach that could not happen.
type AttachmentError struct {
	Op  string
	Err error
}

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("spine: %s: %v", e.Op, e.Err)
}

func (e *AttachmentError) Unwrap() error { return e.Err }

// Native error codes sent by the runtime.
const (
	codeNotFound    = "not_found"
	codeNotAttached = "not_attached"
	codeLoadFailed  = "load_failed"
	codeNoContext   = "no_context"
	codeIO          = "io"
)

// nativeError converts a native failure into the binding's error types.
// Unknown codes are wrapped with op and returned unchanged.
func nativeError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *platform.ChannelError
	if !stderrors.As(err, &ce) {
		if stderrors.Is(err, platform.ErrPlatformUnavailable) {
			return &AttachmentError{Op: op, Err: err}
		}
		return fmt.Errorf("spine: %s: %w", op, err)
	}
	switch ce.Code {
	case codeNotFound:
		details := platform.ParseMap(ce.Details)
		kind := platform.ParseString(details["kind"])
		if kind == "" {
			kind = "animation"
		}
		name := platform.ParseString(details["name"])
		if name == "" {
			name = ce.Message
		}
		return &NotFoundError{Kind: kind, Name: name}
	case codeNotAttached:
		return &AttachmentError{Op: op, Err: ErrNotAttached}
	case codeLoadFailed, codeIO:
		return &LoadError{Err: ce}
	case codeNoContext:
		return &LoadError{Err: fmt.Errorf("%w: %s", ErrNoContext, ce.Message)}
	default:
		return fmt.Errorf("spine: %s: %w", op, err)
	}
}

// loadError converts a native load failure into a LoadError naming the files.
func loadError(req LoadRequest, err error) error {
	var le *LoadError
	if stderrors.As(err, &le) {
		return &LoadError{Atlas: req.Atlas, Skeleton: req.Skeleton, Err: le.Err}
	}
	if stderrors.Is(err, platform.ErrPlatformUnavailable) {
		err = fmt.Errorf("%w: %w", ErrNoContext, err)
	}
	return &LoadError{Atlas: req.Atlas, Skeleton: req.Skeleton, Err: err}
}
