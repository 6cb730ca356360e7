package spine

import "context"

// Runtime is the native Spine runtime as seen from Go. Every operation
// addresses a skeleton by the id the runtime assigned when loading it.
//
// Implementations return the error types of this package: LoadError for
// loads, NotFoundError for unknown names and AttachmentError when the
// skeleton has no live animation state.
type Runtime interface {
	// LoadFromFiles loads from filesystem paths. It blocks until the runtime
	// reports completion or ctx is done.
	LoadFromFiles(ctx context.Context, req LoadRequest) (Descriptor, error)
	// LoadFromBundle loads from the app bundle.
	LoadFromBundle(req LoadRequest) (Descriptor, error)
	// LoadFromAssets loads from the platform asset store.
	LoadFromAssets(req LoadRequest) (Descriptor, error)
	// Release frees the skeleton's native resources.
	Release(id int64) error

	SetAnimation(id int64, track int, name string, loop bool) (TrackEntry, error)
	AddAnimation(id int64, track int, name string, loop bool, delay float64) (TrackEntry, error)
	SetSkin(id int64, skin string) error
	SetTimeScale(id int64, scale float64) error
	ClearTrack(id int64, track int) error
	ClearTracks(id int64) error
	Update(id int64, delta float64) error

	// Current returns the entry playing on track, if any.
	Current(id int64, track int) (TrackEntry, bool, error)
	// Pose returns the skeleton's current bone transforms.
	Pose(id int64) (Pose, error)

	// SetListening turns animation state notifications on or off.
	SetListening(id int64, enabled bool) error
	// Subscribe routes the skeleton's notifications to fn until the returned
	// function is called.
	Subscribe(id int64, fn func(StateEvent)) (unsubscribe func())
}
