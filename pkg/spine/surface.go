package spine

import "github.com/go-drift/drift-spine/pkg/platform"

// AttachRequest describes the skeleton a surface should render.
type AttachRequest struct {
	SkeletonID   int64
	AtlasFile    string
	SkeletonFile string
	Deferred     bool
	Metadata     Metadata
}

// SurfaceConfig is the initial surface configuration.
type SurfaceConfig struct {
	PremultipliedAlpha bool
	Debug              bool
	// Width and Height size software frames. Native surfaces take their size
	// from layout.
	Width  int
	Height int
}

// Surface is where a View renders its skeleton.
type Surface interface {
	// Attach binds the skeleton and returns its descriptor as seen by the
	// surface, which carries the metadata of a deferred skeleton.
	Attach(req AttachRequest) (Descriptor, error)
	Detach() error
	SetPremultipliedAlpha(enabled bool) error
	SetDebug(enabled bool) error
	// Invalidate requests a redraw on the next frame.
	Invalidate() error
	// Render draws the frame after an update.
	Render() error
	Dispose()
}

// SurfaceFactory creates a surface for a newly attached skeleton.
type SurfaceFactory func(cfg SurfaceConfig) (Surface, error)

// errorRenderer is implemented by surfaces that can show a failure in place
// of the skeleton.
type errorRenderer interface {
	RenderError(err error)
}

// geometrySurface is implemented by surfaces that follow the host layout.
type geometrySurface interface {
	SetGeometry(offset platform.Offset, size platform.Size)
}

// visibilitySurface is implemented by surfaces that can be hidden.
type visibilitySurface interface {
	SetVisible(visible bool)
}
