package spine

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/go-drift/drift-spine/pkg/animation"
	"github.com/go-drift/drift-spine/pkg/config"
	"github.com/go-drift/drift-spine/pkg/errors"
	"github.com/go-drift/drift-spine/pkg/logger"
	"github.com/go-drift/drift-spine/pkg/platform"
)

// ViewState is the render surface lifecycle of a View.
type ViewState int

const (
	ViewEmpty ViewState = iota
	ViewAttaching
	ViewAttached
	ViewDetaching
)

func (s ViewState) String() string {
	switch s {
	case ViewEmpty:
		return "empty"
	case ViewAttaching:
		return "attaching"
	case ViewAttached:
		return "attached"
	case ViewDetaching:
		return "detaching"
	default:
		return "unknown"
	}
}

var viewIDs atomic.Int64

// View hosts one skeleton on a render surface and drives its per-frame
// update loop.
//
// Setting a skeleton detaches the previous one, replaces the surface and
// restarts the loop. Each frame updates the skeleton by the real time elapsed
// since the previous frame and then renders. Failures inside a frame are
// reported through pkg/errors and the loop keeps going.
type View struct {
	id         int64
	newSurface SurfaceFactory
	loop       *animation.FrameLoop
	log        *logrus.Entry
	width      int
	height     int

	stopLifecycle func()

	// opMu serializes SetSkeleton, Dispose, detaches and loop changes. The
	// frame callback never takes it.
	opMu sync.Mutex
	// propMu orders property writes with their delivery to the surface.
	// Taken after opMu.
	propMu sync.Mutex

	mu                 sync.Mutex
	state              ViewState
	skeleton           *Skeleton
	surface            Surface
	premultipliedAlpha bool
	debug              bool
	offset             platform.Offset
	size               platform.Size
	hasGeometry        bool
	hidden             bool
	disposed           bool
}

// ViewOption configures a View.
type ViewOption func(*viewOptions)

type viewOptions struct {
	cfg      config.Resolved
	surfaces SurfaceFactory
	source   func() animation.FrameSource
}

// WithViewConfig sets property defaults, the loop mode and the preview size.
func WithViewConfig(cfg config.Resolved) ViewOption {
	return func(o *viewOptions) { o.cfg = cfg }
}

// WithSurfaceFactory sets how render surfaces are created.
func WithSurfaceFactory(f SurfaceFactory) ViewOption {
	return func(o *viewOptions) { o.surfaces = f }
}

// WithFrameSource sets the frame source constructor, called each time the
// loop starts.
func WithFrameSource(newSource func() animation.FrameSource) ViewOption {
	return func(o *viewOptions) { o.source = newSource }
}

// NewView creates an empty View.
func NewView(opts ...ViewOption) *View {
	o := viewOptions{cfg: config.Default(), surfaces: DefaultSurfaceFactory()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.source == nil {
		o.source = frameSourceFor(o.cfg)
	}

	v := &View{
		id:                 viewIDs.Add(1),
		newSurface:         o.surfaces,
		width:              o.cfg.PreviewWidth,
		height:             o.cfg.PreviewHeight,
		premultipliedAlpha: o.cfg.PremultipliedAlpha,
		debug:              o.cfg.Debug,
	}
	v.log = logger.L.WithField("view_id", v.id)
	v.loop = animation.NewFrameLoop(o.source, v.frame)
	v.stopLifecycle = platform.Lifecycle.AddHandler(v.lifecycleChanged)
	attachments.register(v)
	return v
}

func frameSourceFor(cfg config.Resolved) func() animation.FrameSource {
	if cfg.LoopMode == config.LoopInterval {
		interval := cfg.FrameInterval
		return func() animation.FrameSource { return animation.NewIntervalSource(interval) }
	}
	return func() animation.FrameSource { return animation.NewDisplaySource() }
}

// ID returns the view's handle in the attachment table.
func (v *View) ID() int64 { return v.id }

// State returns the surface lifecycle state.
func (v *View) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Skeleton returns the attached skeleton, or nil.
func (v *View) Skeleton() *Skeleton {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.skeleton
}

// Surface returns the current render surface, or nil while empty.
func (v *View) Surface() Surface {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.surface
}

// PremultipliedAlpha reports whether textures use premultiplied alpha.
func (v *View) PremultipliedAlpha() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.premultipliedAlpha
}

// Debug reports whether debug rendering is on.
func (v *View) Debug() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.debug
}

// Geometry returns the last position and size set with SetGeometry.
func (v *View) Geometry() (platform.Offset, platform.Size) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.offset, v.size
}

// Visible reports whether the view is shown.
func (v *View) Visible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.hidden
}

// Running reports whether the frame loop is active.
func (v *View) Running() bool {
	return v.loop.IsRunning()
}

func (v *View) setState(s ViewState) {
	v.mu.Lock()
	v.state = s
	v.mu.Unlock()
}

// SetSkeleton attaches s, replacing the current skeleton. nil leaves the view
// empty. Setting the skeleton that is already attached does nothing.
//
// A skeleton attached to another view, released, or missing its atlas or
// skeleton name is refused with an AttachmentError; the error is also
// reported and the view is left empty.
func (v *View) SetSkeleton(s *Skeleton) error {
	v.opMu.Lock()
	defer v.opMu.Unlock()

	v.mu.Lock()
	disposed, cur := v.disposed, v.skeleton
	v.mu.Unlock()
	if disposed {
		return &AttachmentError{Op: "View.SetSkeleton", Err: platform.ErrDisposed}
	}
	if s != nil && s == cur {
		return nil
	}

	v.detachLocked()
	if s == nil {
		return nil
	}
	return v.attachLocked(s)
}

func (v *View) attachLocked(s *Skeleton) error {
	const op = "View.SetSkeleton"
	log := v.log.WithField("skeleton_id", s.ID())
	fail := func(err error) error {
		v.setState(ViewEmpty)
		errors.Report(&errors.SpineError{
			Op:         op,
			Kind:       errors.KindAttachment,
			SkeletonID: s.ID(),
			ViewID:     v.id,
			Err:        err,
		})
		return err
	}

	if s.Released() {
		return fail(&AttachmentError{Op: op, Err: ErrReleased})
	}
	if s.AtlasFile() == "" || s.SkeletonFile() == "" {
		return fail(&AttachmentError{Op: op, Err: ErrEmptyPath})
	}
	if err := attachments.link(s.ID(), v.id); err != nil {
		return fail(&AttachmentError{Op: op, Err: err})
	}

	v.mu.Lock()
	v.state = ViewAttaching
	cfg := SurfaceConfig{
		PremultipliedAlpha: v.premultipliedAlpha,
		Debug:              v.debug,
		Width:              v.width,
		Height:             v.height,
	}
	v.mu.Unlock()

	surface, err := v.newSurface(cfg)
	if err != nil {
		attachments.unlink(v.id)
		return fail(err)
	}
	d, err := surface.Attach(AttachRequest{
		SkeletonID:   s.ID(),
		AtlasFile:    s.AtlasFile(),
		SkeletonFile: s.SkeletonFile(),
		Deferred:     s.Deferred(),
		Metadata:     s.Metadata(),
	})
	if err != nil {
		surface.Dispose()
		attachments.unlink(v.id)
		return fail(err)
	}
	s.bind(v.id, d)

	v.mu.Lock()
	v.skeleton = s
	v.surface = surface
	v.state = ViewAttached
	v.mu.Unlock()

	v.syncSurface(surface, cfg)
	if v.shouldRun() {
		v.loop.Start(context.Background())
	}
	log.Debug("skeleton attached")
	return nil
}

// syncSurface brings a new surface up to date with properties set after its
// config was taken, and applies layout the config does not carry.
func (v *View) syncSurface(surface Surface, cfg SurfaceConfig) {
	v.propMu.Lock()
	defer v.propMu.Unlock()

	v.mu.Lock()
	pma, debug := v.premultipliedAlpha, v.debug
	offset, size, hasGeometry, hidden := v.offset, v.size, v.hasGeometry, v.hidden
	v.mu.Unlock()

	var errs []error
	if pma != cfg.PremultipliedAlpha {
		errs = append(errs, surface.SetPremultipliedAlpha(pma))
	}
	if debug != cfg.Debug {
		errs = append(errs, surface.SetDebug(debug))
	}
	if g, ok := surface.(geometrySurface); ok && hasGeometry {
		g.SetGeometry(offset, size)
	}
	if vs, ok := surface.(visibilitySurface); ok && hidden {
		vs.SetVisible(false)
	}
	if err := stderrors.Join(errs...); err != nil {
		errors.Report(&errors.SpineError{
			Op:     "View.SetSkeleton",
			Kind:   errors.KindAttachment,
			ViewID: v.id,
			Err:    err,
		})
	}
}

// shouldRun reports whether the frame loop should run: a skeleton is
// attached, the view is shown and the app is visible. Callers hold opMu.
func (v *View) shouldRun() bool {
	v.mu.Lock()
	ok := v.skeleton != nil && !v.hidden && !v.disposed
	v.mu.Unlock()
	return ok && platform.Lifecycle.State().Visible()
}

// detachLocked stops the loop, unbinds the skeleton and discards the surface.
// The skeleton itself stays alive; it belongs to whoever loaded it.
func (v *View) detachLocked() {
	v.mu.Lock()
	s, surface := v.skeleton, v.surface
	if s == nil && surface == nil {
		v.mu.Unlock()
		return
	}
	v.state = ViewDetaching
	v.mu.Unlock()

	v.loop.Stop()

	var sid int64
	if s != nil {
		sid = s.ID()
		s.unbind()
		attachments.unlink(v.id)
	}
	if surface != nil {
		if err := surface.Detach(); err != nil {
			errors.Report(&errors.SpineError{
				Op:         "View.detach",
				Kind:       errors.KindAttachment,
				SkeletonID: sid,
				ViewID:     v.id,
				Err:        err,
			})
		}
		surface.Dispose()
	}

	v.mu.Lock()
	v.skeleton = nil
	v.surface = nil
	v.state = ViewEmpty
	v.mu.Unlock()
	v.log.Debug("skeleton detached")
}

// detachSkeleton detaches s if it is still the attached skeleton.
func (v *View) detachSkeleton(s *Skeleton) {
	v.opMu.Lock()
	defer v.opMu.Unlock()
	if v.Skeleton() == s {
		v.detachLocked()
	}
}

// SetPremultipliedAlpha sets whether textures use premultiplied alpha.
func (v *View) SetPremultipliedAlpha(enabled bool) error {
	v.propMu.Lock()
	defer v.propMu.Unlock()

	v.mu.Lock()
	v.premultipliedAlpha = enabled
	surface := v.surface
	v.mu.Unlock()
	if surface == nil {
		return nil
	}
	return surface.SetPremultipliedAlpha(enabled)
}

// SetDebug toggles debug rendering.
func (v *View) SetDebug(enabled bool) error {
	v.propMu.Lock()
	defer v.propMu.Unlock()

	v.mu.Lock()
	v.debug = enabled
	surface := v.surface
	v.mu.Unlock()
	if surface == nil {
		return nil
	}
	return surface.SetDebug(enabled)
}

// SetGeometry positions and sizes the view in logical pixels. The layout is
// kept across skeleton changes. Software surfaces render frames at size.
func (v *View) SetGeometry(offset platform.Offset, size platform.Size) error {
	if size.Width < 0 || size.Height < 0 || math.IsNaN(size.Width) || math.IsNaN(size.Height) {
		return fmt.Errorf("%w: view size %vx%v", platform.ErrInvalidArguments, size.Width, size.Height)
	}
	v.propMu.Lock()
	defer v.propMu.Unlock()

	v.mu.Lock()
	v.offset, v.size, v.hasGeometry = offset, size, true
	if w, h := int(math.Round(size.Width)), int(math.Round(size.Height)); w > 0 && h > 0 {
		v.width, v.height = w, h
	}
	surface := v.surface
	v.mu.Unlock()
	if g, ok := surface.(geometrySurface); ok {
		g.SetGeometry(offset, size)
	}
	return nil
}

// SetVisible shows or hides the view. A hidden view does not advance its
// skeleton.
func (v *View) SetVisible(visible bool) {
	v.opMu.Lock()
	defer v.opMu.Unlock()

	v.propMu.Lock()
	v.mu.Lock()
	changed := v.hidden == visible
	v.hidden = !visible
	surface := v.surface
	v.mu.Unlock()
	if vs, ok := surface.(visibilitySurface); ok && changed {
		vs.SetVisible(visible)
	}
	v.propMu.Unlock()

	if v.shouldRun() {
		v.loop.Start(context.Background())
	} else {
		v.loop.Stop()
	}
}

// Invalidate requests a redraw on the next frame without touching the
// animation state. It is a no-op while empty.
func (v *View) Invalidate() error {
	surface := v.Surface()
	if surface == nil {
		return nil
	}
	return surface.Invalidate()
}

// Dispose detaches the skeleton and retires the view. It is safe in any
// state and idempotent.
func (v *View) Dispose() {
	v.opMu.Lock()
	defer v.opMu.Unlock()

	v.mu.Lock()
	if v.disposed {
		v.mu.Unlock()
		return
	}
	v.mu.Unlock()

	v.detachLocked()

	v.mu.Lock()
	v.disposed = true
	v.mu.Unlock()
	v.stopLifecycle()
	attachments.unregister(v.id)
}

// lifecycleChanged pauses the frame loop while the app cannot be seen and
// resumes it when it can. Animation time does not advance while paused.
func (v *View) lifecycleChanged(state platform.LifecycleState) {
	v.opMu.Lock()
	defer v.opMu.Unlock()
	if v.Skeleton() == nil {
		return
	}
	if v.shouldRun() {
		v.loop.Start(context.Background())
		v.log.WithField("lifecycle", state).Debug("frame loop resumed")
		return
	}
	v.loop.Stop()
	v.log.WithField("lifecycle", state).Debug("frame loop paused")
}

// frame runs on the loop goroutine.
func (v *View) frame(dt time.Duration) {
	v.mu.Lock()
	s, surface := v.skeleton, v.surface
	v.mu.Unlock()
	if s == nil || surface == nil {
		return
	}
	defer errors.RecoverWithCallback("View.frame", func(r any) {
		if er, ok := surface.(errorRenderer); ok {
			er.RenderError(fmt.Errorf("panic: %v", r))
		}
	})

	if err := s.Update(dt.Seconds()); err != nil {
		v.frameError("View.update", s, surface, err)
		return
	}
	if err := surface.Render(); err != nil {
		v.frameError("View.render", s, surface, err)
	}
}

func (v *View) frameError(op string, s *Skeleton, surface Surface, err error) {
	if stderrors.Is(err, ErrReleased) {
		return
	}
	errors.Report(&errors.SpineError{
		Op:         op,
		Kind:       errors.KindRender,
		SkeletonID: s.ID(),
		ViewID:     v.id,
		Err:        err,
	})
	if r, ok := surface.(errorRenderer); ok {
		r.RenderError(err)
	}
}
