package spine_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	spineerrors "github.com/go-drift/drift-spine/pkg/errors"
	"github.com/go-drift/drift-spine/pkg/platform"
	"github.com/go-drift/drift-spine/pkg/spine"
	"github.com/go-drift/drift-spine/pkg/spine/spinetest"
)

func TestViewAttachDrivesFrames(t *testing.T) {
	e := newEnv(t)
	s := e.load(t)
	frames := &spinetest.Frames{}
	v := e.view(t, frames)
	assert.Equal(t, spine.ViewEmpty, v.State())

	require.NoError(t, v.SetSkeleton(s))
	assert.Equal(t, spine.ViewAttached, v.State())
	assert.Same(t, s, v.Skeleton())
	assert.True(t, s.Attached())
	assert.True(t, v.Running())

	viewID := nativeViewID(t, v)
	info, ok := e.bridge.View(viewID)
	require.True(t, ok)
	assert.Equal(t, s.ID(), info.SkeletonID)

	require.True(t, frames.Tick())
	require.True(t, frames.Tick())

	sk, _ := e.bridge.Skeleton(s.ID())
	assert.Len(t, sk.Updates, 2)
	for _, dt := range sk.Updates {
		assert.GreaterOrEqual(t, dt, 0.0)
	}
	assert.Equal(t, 2, e.bridge.ViewCount("invalidate"))
}

func TestViewSetSkeletonNilStopsUpdates(t *testing.T) {
	e := newEnv(t)
	s := e.load(t)
	frames := &spinetest.Frames{}
	v := e.view(t, frames)

	require.NoError(t, v.SetSkeleton(s))
	viewID := nativeViewID(t, v)
	require.True(t, frames.Tick())

	require.NoError(t, v.SetSkeleton(nil))
	assert.Equal(t, spine.ViewEmpty, v.State())
	assert.Nil(t, v.Skeleton())
	assert.Nil(t, v.Surface())
	assert.False(t, v.Running())
	assert.False(t, s.Attached())
	assert.False(t, frames.Tick())

	sk, _ := e.bridge.Skeleton(s.ID())
	assert.Len(t, sk.Updates, 1)
	info, _ := e.bridge.View(viewID)
	assert.True(t, info.Disposed)

	// The skeleton outlives the view attachment.
	_, err := s.SetAnimation(0, "walk", true)
	assert.NoError(t, err)
}

func TestViewSetSameSkeletonIsNoop(t *testing.T) {
	e := newEnv(t)
	s := e.load(t)
	v := e.view(t, &spinetest.Frames{})

	require.NoError(t, v.SetSkeleton(s))
	require.NoError(t, v.SetSkeleton(s))
	assert.Equal(t, 1, e.bridge.ViewCount("attach"))
	assert.Zero(t, e.bridge.ViewCount("detach"))
}

func TestViewReplacesSkeleton(t *testing.T) {
	e := newEnv(t)
	first := e.load(t)
	second := e.load(t)
	frames := &spinetest.Frames{}
	v := e.view(t, frames)

	require.NoError(t, v.SetSkeleton(first))
	require.NoError(t, v.SetSkeleton(second))
	assert.False(t, first.Attached())
	assert.True(t, second.Attached())

	require.True(t, frames.Tick())
	a, _ := e.bridge.Skeleton(first.ID())
	b, _ := e.bridge.Skeleton(second.ID())
	assert.Empty(t, a.Updates)
	assert.Len(t, b.Updates, 1)
}

func TestSkeletonAttachesToOneView(t *testing.T) {
	e := newEnv(t)
	reports := captureErrors(t)
	s := e.load(t)
	v1 := e.view(t, &spinetest.Frames{})
	v2 := e.view(t, &spinetest.Frames{})

	require.NoError(t, v1.SetSkeleton(s))

	err := v2.SetSkeleton(s)
	var ae *spine.AttachmentError
	require.ErrorAs(t, err, &ae)
	assert.ErrorIs(t, err, spine.ErrAlreadyAttached)
	assert.Equal(t, spine.ViewEmpty, v2.State())
	assert.Same(t, s, v1.Skeleton())

	errs := reports.errors()
	require.Len(t, errs, 1)
	assert.Equal(t, spineerrors.KindAttachment, errs[0].Kind)
	assert.Equal(t, s.ID(), errs[0].SkeletonID)

	v1.Dispose()
	require.NoError(t, v2.SetSkeleton(s))
	assert.Equal(t, spine.ViewAttached, v2.State())
}

func TestReleaseDetachesFromView(t *testing.T) {
	e := newEnv(t)
	s := e.load(t)
	frames := &spinetest.Frames{}
	v := e.view(t, frames)
	require.NoError(t, v.SetSkeleton(s))

	require.NoError(t, s.Release())
	assert.Nil(t, v.Skeleton())
	assert.Equal(t, spine.ViewEmpty, v.State())
	assert.False(t, v.Running())

	err := v.SetSkeleton(s)
	assert.ErrorIs(t, err, spine.ErrReleased)
}

func TestDeferredSkeleton(t *testing.T) {
	e := newEnv(t)
	data := spinetest.Spineboy()
	data.Deferred = true
	e.addFile(t, "/assets/lazy.atlas", "/assets/lazy.skel", data)

	s, err := e.factory.LoadFromFiles(t.Context(), "/assets/lazy.atlas", "/assets/lazy.skel")
	require.NoError(t, err)
	assert.True(t, s.Deferred())
	assert.Equal(t, spine.Metadata{}, s.Metadata())

	_, err = s.SetAnimation(0, "walk", true)
	var ae *spine.AttachmentError
	require.ErrorAs(t, err, &ae)
	assert.ErrorIs(t, err, spine.ErrNotAttached)

	rec := &spinetest.Recorder{}
	require.NoError(t, s.SetAnimationStateListener(rec.Listener()))
	assert.Zero(t, e.bridge.Count("setListening"))

	v := e.view(t, &spinetest.Frames{})
	require.NoError(t, v.SetSkeleton(s))
	assert.Equal(t, 470.0, s.Width())
	assert.Contains(t, s.Animations(), "walk")
	assert.Equal(t, 1, e.bridge.Count("setListening"))

	_, err = s.SetAnimation(0, "walk", true)
	require.NoError(t, err)
	e.bridge.Flush()
	assert.Equal(t, []string{"start walk"}, rec.Events())

	require.NoError(t, v.SetSkeleton(nil))
	_, err = s.SetAnimation(0, "walk", true)
	assert.ErrorIs(t, err, spine.ErrNotAttached)
	// Metadata stays known once attached.
	assert.Equal(t, 470.0, s.Width())
}

func TestViewProperties(t *testing.T) {
	e := newEnv(t)
	s := e.load(t)
	v := e.view(t, &spinetest.Frames{})

	assert.NoError(t, v.Invalidate())
	require.NoError(t, v.SetPremultipliedAlpha(true))
	assert.True(t, v.PremultipliedAlpha())
	assert.Zero(t, e.bridge.ViewCount("setPremultipliedAlpha"))

	require.NoError(t, v.SetSkeleton(s))
	viewID := nativeViewID(t, v)
	info, _ := e.bridge.View(viewID)
	assert.True(t, info.PremultipliedAlpha)
	assert.False(t, info.Debug)

	require.NoError(t, v.SetDebug(true))
	require.NoError(t, v.SetPremultipliedAlpha(false))
	require.NoError(t, v.Invalidate())
	info, _ = e.bridge.View(viewID)
	assert.True(t, info.Debug)
	assert.False(t, info.PremultipliedAlpha)
	assert.Equal(t, 1, info.Invalidations)
}

func TestPropertiesSetDuringAttachReachSurface(t *testing.T) {
	e := newEnv(t)
	s := e.load(t)

	var v *spine.View
	v = spine.NewView(
		spine.WithSurfaceFactory(func(cfg spine.SurfaceConfig) (spine.Surface, error) {
			done := make(chan struct{})
			go func() {
				defer close(done)
				assert.NoError(t, v.SetPremultipliedAlpha(false))
				assert.NoError(t, v.SetDebug(true))
			}()
			<-done
			return spine.NativeSurfaceFactory(cfg)
		}),
		spine.WithFrameSource((&spinetest.Frames{}).Source),
	)
	t.Cleanup(v.Dispose)
	require.NoError(t, v.SetSkeleton(s))

	info, _ := e.bridge.View(nativeViewID(t, v))
	assert.False(t, v.PremultipliedAlpha())
	assert.False(t, info.PremultipliedAlpha)
	assert.True(t, v.Debug())
	assert.True(t, info.Debug)
}

func TestViewGeometry(t *testing.T) {
	e := newEnv(t)
	s := e.load(t)
	v := e.view(t, &spinetest.Frames{})

	require.NoError(t, v.SetGeometry(platform.Offset{X: 10, Y: 20}, platform.Size{Width: 200, Height: 300}))
	require.NoError(t, v.SetSkeleton(s))
	info, _ := e.bridge.View(nativeViewID(t, v))
	assert.Equal(t, 10.0, info.X)
	assert.Equal(t, 20.0, info.Y)
	assert.Equal(t, 200.0, info.Width)
	assert.Equal(t, 300.0, info.Height)

	require.NoError(t, v.SetGeometry(platform.Offset{X: 0, Y: 5}, platform.Size{Width: 120, Height: 80}))
	info, _ = e.bridge.View(nativeViewID(t, v))
	assert.Equal(t, 5.0, info.Y)
	assert.Equal(t, 120.0, info.Width)

	// A new surface takes the current layout.
	require.NoError(t, v.SetSkeleton(nil))
	require.NoError(t, v.SetSkeleton(s))
	info, _ = e.bridge.View(nativeViewID(t, v))
	assert.Equal(t, 80.0, info.Height)

	err := v.SetGeometry(platform.Offset{}, platform.Size{Width: -1, Height: 10})
	assert.ErrorIs(t, err, platform.ErrInvalidArguments)
	offset, size := v.Geometry()
	assert.Equal(t, platform.Offset{X: 0, Y: 5}, offset)
	assert.Equal(t, platform.Size{Width: 120, Height: 80}, size)
}

func TestHiddenViewStopsFrames(t *testing.T) {
	e := newEnv(t)
	s := e.load(t)
	frames := &spinetest.Frames{}
	v := e.view(t, frames)
	require.NoError(t, v.SetSkeleton(s))
	require.True(t, frames.Tick())

	v.SetVisible(false)
	info, _ := e.bridge.View(nativeViewID(t, v))
	assert.True(t, info.Hidden)
	assert.False(t, v.Visible())
	assert.False(t, v.Running())
	assert.False(t, frames.Tick())

	// Resuming the app does not show a hidden view.
	e.bridge.SetLifecycle("paused")
	e.bridge.Flush()
	e.bridge.SetLifecycle("resumed")
	e.bridge.Flush()
	assert.False(t, v.Running())

	v.SetVisible(true)
	info, _ = e.bridge.View(nativeViewID(t, v))
	assert.False(t, info.Hidden)
	assert.True(t, v.Running())
	require.True(t, frames.Tick())

	sk, _ := e.bridge.Skeleton(s.ID())
	assert.Len(t, sk.Updates, 2)
}

func TestAttachWhileHidden(t *testing.T) {
	e := newEnv(t)
	s := e.load(t)
	v := e.view(t, &spinetest.Frames{})

	v.SetVisible(false)
	require.NoError(t, v.SetSkeleton(s))
	info, _ := e.bridge.View(nativeViewID(t, v))
	assert.True(t, info.Hidden)
	assert.False(t, v.Running())
	assert.Equal(t, spine.ViewAttached, v.State())
}

func TestPreviewSurfaceFollowsGeometry(t *testing.T) {
	e := newEnv(t)
	s := e.load(t)
	v := spine.NewView(
		spine.WithSurfaceFactory(spine.PreviewSurfaceFactory),
		spine.WithFrameSource((&spinetest.Frames{}).Source),
	)
	t.Cleanup(v.Dispose)

	require.NoError(t, v.SetGeometry(platform.Offset{}, platform.Size{Width: 200, Height: 100}))
	require.NoError(t, v.SetSkeleton(s))
	preview, ok := v.Surface().(*spine.PreviewSurface)
	require.True(t, ok)
	img, err := preview.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())

	require.NoError(t, v.SetGeometry(platform.Offset{}, platform.Size{Width: 300, Height: 150}))
	img, err = preview.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
}

func TestViewDispose(t *testing.T) {
	e := newEnv(t)
	s := e.load(t)
	v := e.view(t, &spinetest.Frames{})
	require.NoError(t, v.SetSkeleton(s))

	v.Dispose()
	v.Dispose()
	assert.Equal(t, spine.ViewEmpty, v.State())
	assert.False(t, s.Attached())
	assert.False(t, s.Released())

	err := v.SetSkeleton(s)
	assert.ErrorIs(t, err, platform.ErrDisposed)
}

func TestFrameUpdateErrorIsReported(t *testing.T) {
	e := newEnv(t)
	reports := captureErrors(t)
	s := e.load(t)
	frames := &spinetest.Frames{}
	v := e.view(t, frames)
	require.NoError(t, v.SetSkeleton(s))

	e.bridge.FailNext("update", "internal", "state corrupted")
	require.True(t, frames.Tick())
	require.True(t, frames.Tick())

	assert.Equal(t, []string{"View.update"}, reports.ops())
	assert.Equal(t, spineerrors.KindRender, reports.errors()[0].Kind)
	assert.True(t, v.Running())
	assert.Equal(t, 1, e.bridge.ViewCount("invalidate"))
}

func TestNativeRenderErrorEvent(t *testing.T) {
	e := newEnv(t)
	reports := captureErrors(t)
	s := e.load(t)
	v := e.view(t, &spinetest.Frames{})
	require.NoError(t, v.SetSkeleton(s))

	viewID := nativeViewID(t, v)
	e.bridge.EmitViewEvent(viewID, "renderError", map[string]any{"skeletonId": s.ID(), "message": "context lost"})
	e.bridge.Flush()

	errs := reports.errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "spine_view.render", errs[0].Op)
	assert.Equal(t, viewID, errs[0].ViewID)
	assert.Equal(t, s.ID(), errs[0].SkeletonID)
	assert.EqualError(t, errs[0].Err, "context lost")
}

type panickySurface struct {
	*spine.PreviewSurface
	panics int
}

func (p *panickySurface) Render() error {
	if p.panics > 0 {
		p.panics--
		panic("draw failed")
	}
	return p.PreviewSurface.Render()
}

func TestFramePanicKeepsLoopRunning(t *testing.T) {
	e := newEnv(t)
	reports := captureErrors(t)
	s := e.load(t)

	surface := &panickySurface{panics: 1}
	frames := &spinetest.Frames{}
	v := spine.NewView(
		spine.WithSurfaceFactory(func(cfg spine.SurfaceConfig) (spine.Surface, error) {
			surface.PreviewSurface = spine.NewPreviewSurface(cfg)
			return surface, nil
		}),
		spine.WithFrameSource(frames.Source),
	)
	t.Cleanup(v.Dispose)
	require.NoError(t, v.SetSkeleton(s))

	require.True(t, frames.Tick())
	require.True(t, frames.Tick())

	panics := reports.panicked()
	require.Len(t, panics, 1)
	assert.Equal(t, "View.frame", panics[0].Op)
	assert.True(t, v.Running())
	assert.Equal(t, 1, surface.Renders())
	assert.Equal(t, "panic: draw failed", surface.Failure())
}

func TestPreviewSurfaceShowsFailures(t *testing.T) {
	e := newEnv(t)
	captureErrors(t)
	s := e.load(t)
	frames := &spinetest.Frames{}
	v := spine.NewView(
		spine.WithSurfaceFactory(spine.PreviewSurfaceFactory),
		spine.WithFrameSource(frames.Source),
	)
	t.Cleanup(v.Dispose)
	require.NoError(t, v.SetSkeleton(s))

	preview, ok := v.Surface().(*spine.PreviewSurface)
	require.True(t, ok)

	e.bridge.FailNext("update", "internal", "boom")
	require.True(t, frames.Tick())
	assert.Zero(t, preview.Renders())

	require.True(t, frames.Tick())
	assert.Equal(t, 1, preview.Renders())

	var buf bytes.Buffer
	require.NoError(t, preview.WritePNG(&buf))
	assert.Equal(t, []byte("\x89PNG"), buf.Bytes()[:4])
}

func TestViewPausesWhileAppHidden(t *testing.T) {
	e := newEnv(t)
	s := e.load(t)
	frames := &spinetest.Frames{}
	v := e.view(t, frames)
	require.NoError(t, v.SetSkeleton(s))
	require.True(t, frames.Tick())

	e.bridge.SetLifecycle("paused")
	e.bridge.Flush()
	assert.False(t, v.Running())
	assert.False(t, frames.Tick())
	assert.Equal(t, spine.ViewAttached, v.State())

	e.bridge.SetLifecycle("resumed")
	e.bridge.Flush()
	assert.True(t, v.Running())
	require.True(t, frames.Tick())

	sk, _ := e.bridge.Skeleton(s.ID())
	assert.Len(t, sk.Updates, 2)
}

func TestAttachWhilePausedWaitsForResume(t *testing.T) {
	e := newEnv(t)
	s := e.load(t)
	frames := &spinetest.Frames{}
	v := e.view(t, frames)

	e.bridge.SetLifecycle("paused")
	e.bridge.Flush()
	require.NoError(t, v.SetSkeleton(s))
	assert.Equal(t, spine.ViewAttached, v.State())
	assert.False(t, v.Running())

	e.bridge.SetLifecycle("resumed")
	e.bridge.Flush()
	assert.True(t, v.Running())
}
