package spine

import (
	"context"

	"github.com/go-drift/drift-spine/pkg/platform"
)

// unsupportedRuntime is used on hosts without a native Spine runtime. Loads
// fail with a LoadError wrapping ErrNoContext; nothing else can be reached
// because no skeleton can be loaded.
type unsupportedRuntime struct{}

func unavailable(op string) error {
	return &AttachmentError{Op: op, Err: platform.ErrPlatformUnavailable}
}

func (unsupportedRuntime) LoadFromFiles(_ context.Context, req LoadRequest) (Descriptor, error) {
	return Descriptor{}, loadError(req, platform.ErrPlatformUnavailable)
}

func (unsupportedRuntime) LoadFromBundle(req LoadRequest) (Descriptor, error) {
	return Descriptor{}, loadError(req, platform.ErrPlatformUnavailable)
}

func (unsupportedRuntime) LoadFromAssets(req LoadRequest) (Descriptor, error) {
	return Descriptor{}, loadError(req, platform.ErrPlatformUnavailable)
}

func (unsupportedRuntime) Release(int64) error { return nil }

func (unsupportedRuntime) SetAnimation(int64, int, string, bool) (TrackEntry, error) {
	return TrackEntry{}, unavailable(methodSetAnimation)
}

func (unsupportedRuntime) AddAnimation(int64, int, string, bool, float64) (TrackEntry, error) {
	return TrackEntry{}, unavailable(methodAddAnimation)
}

func (unsupportedRuntime) SetSkin(int64, string) error       { return unavailable(methodSetSkin) }
func (unsupportedRuntime) SetTimeScale(int64, float64) error { return unavailable(methodSetTimeScale) }
func (unsupportedRuntime) ClearTrack(int64, int) error       { return unavailable(methodClearTrack) }
func (unsupportedRuntime) ClearTracks(int64) error           { return unavailable(methodClearTracks) }
func (unsupportedRuntime) Update(int64, float64) error       { return unavailable(methodUpdate) }

func (unsupportedRuntime) Current(int64, int) (TrackEntry, bool, error) {
	return TrackEntry{}, false, unavailable(methodGetCurrent)
}

func (unsupportedRuntime) Pose(int64) (Pose, error) { return Pose{}, unavailable(methodGetPose) }

func (unsupportedRuntime) SetListening(int64, bool) error { return unavailable(methodSetListening) }

func (unsupportedRuntime) Subscribe(int64, func(StateEvent)) func() { return func() {} }
