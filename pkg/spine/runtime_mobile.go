//go:build android || ios

package spine

// DefaultRuntime returns the runtime used when none is configured: the
// native Spine runtime reached over platform channels.
func DefaultRuntime() Runtime {
	return NewChannelRuntime()
}

// DefaultSurfaceFactory renders into the native spine_view.
func DefaultSurfaceFactory() SurfaceFactory {
	return NativeSurfaceFactory
}
