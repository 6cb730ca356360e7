//go:build !android && !ios

package spine

// DefaultRuntime returns the runtime used when none is configured. This host
// has no native Spine runtime, so every load fails with a LoadError wrapping
// ErrNoContext.
func DefaultRuntime() Runtime {
	return unsupportedRuntime{}
}

// DefaultSurfaceFactory renders software preview frames.
func DefaultSurfaceFactory() SurfaceFactory {
	return PreviewSurfaceFactory
}
