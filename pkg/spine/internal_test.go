package spine

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/drift-spine/pkg/animation"
	spineerrors "github.com/go-drift/drift-spine/pkg/errors"
	"github.com/go-drift/drift-spine/pkg/platform"
)

func TestNativeErrorMapping(t *testing.T) {
	notFound := platform.NewChannelError("not_found", "no such skin")
	notFound.Details = map[string]any{"kind": "skin", "name": "gold"}

	err := nativeError("setSkin", notFound)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, NotFoundError{Kind: "skin", Name: "gold"}, *nf)

	err = nativeError("setAnimation", platform.NewChannelError("not_found", "fly"))
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, NotFoundError{Kind: "animation", Name: "fly"}, *nf)

	err = nativeError("update", platform.NewChannelError("not_attached", ""))
	var ae *AttachmentError
	require.ErrorAs(t, err, &ae)
	assert.ErrorIs(t, err, ErrNotAttached)
	assert.Equal(t, "update", ae.Op)

	for _, code := range []string{"load_failed", "io"} {
		err = nativeError("loadFromBundle", platform.NewChannelError(code, "bad"))
		var le *LoadError
		assert.ErrorAs(t, err, &le, code)
	}

	err = nativeError("loadFromAssets", platform.NewChannelError("no_context", "activity gone"))
	assert.ErrorIs(t, err, ErrNoContext)

	err = nativeError("setSkin", platform.ErrPlatformUnavailable)
	require.ErrorAs(t, err, &ae)
	assert.ErrorIs(t, err, platform.ErrPlatformUnavailable)

	err = nativeError("setSkin", platform.NewChannelError("weird", "?"))
	assert.EqualError(t, err, "spine: setSkin: weird: ?")

	assert.NoError(t, nativeError("x", nil))
}

func TestLoadErrorNamesFiles(t *testing.T) {
	req := LoadRequest{Atlas: "a.atlas", Skeleton: "a.skel"}

	err := loadError(req, &LoadError{Err: platform.NewChannelError("io", "denied")})
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "a.atlas", le.Atlas)
	assert.Equal(t, "a.skel", le.Skeleton)

	err = loadError(req, platform.ErrPlatformUnavailable)
	assert.ErrorIs(t, err, ErrNoContext)
	assert.ErrorIs(t, err, platform.ErrPlatformUnavailable)
}

func TestUnsupportedRuntime(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "a.atlas", []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "a.skel", []byte("x"), 0o644))
	f := NewFactory(WithRuntime(unsupportedRuntime{}), WithFS(fs))

	_, err := f.LoadFromFiles(context.Background(), "a.atlas", "a.skel")
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.ErrorIs(t, err, ErrNoContext)

	_, err = f.LoadFromBundle("a.atlas", "a.skel")
	assert.ErrorIs(t, err, ErrNoContext)
	_, err = f.LoadFromAssets("a.atlas", "a.skel")
	assert.ErrorIs(t, err, ErrNoContext)

	var rt unsupportedRuntime
	var ae *AttachmentError
	assert.ErrorAs(t, rt.SetSkin(1, "default"), &ae)
	assert.ErrorAs(t, rt.Update(1, 0.1), &ae)
	assert.NoError(t, rt.Release(1))
	assert.NoError(t, f.Close())
}

func TestChannelRuntimeWithoutBridge(t *testing.T) {
	platform.SetupTestBridge(t.Cleanup)
	platform.SetNativeBridge(nil)

	rt := NewChannelRuntime()
	err := rt.SetSkin(1, "default")
	var ae *AttachmentError
	require.ErrorAs(t, err, &ae)
	assert.ErrorIs(t, err, platform.ErrPlatformUnavailable)

	_, err = rt.LoadFromBundle(LoadRequest{Atlas: "a.atlas", Skeleton: "a.skel"})
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.ErrorIs(t, err, ErrNoContext)

	_, err = rt.LoadFromFiles(context.Background(), LoadRequest{Atlas: "a.atlas", Skeleton: "a.skel"})
	assert.ErrorIs(t, err, ErrNoContext)
}

type reportSink struct {
	errs []*spineerrors.SpineError
}

func (r *reportSink) HandleError(err *spineerrors.SpineError) { r.errs = append(r.errs, err) }
func (r *reportSink) HandlePanic(*spineerrors.PanicError)     {}

func TestAttachWithEmptyPathLeavesViewEmpty(t *testing.T) {
	sink := &reportSink{}
	prev := spineerrors.SetHandler(sink)
	t.Cleanup(func() { spineerrors.SetHandler(prev) })

	s := newSkeleton(unsupportedRuntime{}, Descriptor{ID: 42}, LoadRequest{Skeleton: "hero.skel"})
	v := NewView(
		WithSurfaceFactory(PreviewSurfaceFactory),
		WithFrameSource(func() animation.FrameSource { return animation.NewManualSource() }),
	)
	t.Cleanup(v.Dispose)

	err := v.SetSkeleton(s)
	var ae *AttachmentError
	require.ErrorAs(t, err, &ae)
	assert.ErrorIs(t, err, ErrEmptyPath)
	assert.Equal(t, ViewEmpty, v.State())
	assert.Nil(t, v.Surface())
	assert.False(t, v.Running())
	assert.Nil(t, attachments.viewOf(42))

	require.Len(t, sink.errs, 1)
	assert.Equal(t, spineerrors.KindAttachment, sink.errs[0].Kind)
	assert.Equal(t, int64(42), sink.errs[0].SkeletonID)
}

func TestPreviewAttachUsesMetadata(t *testing.T) {
	s := newSkeleton(unsupportedRuntime{}, Descriptor{
		ID:           7,
		AtlasFile:    "hero.atlas",
		SkeletonFile: "hero.json",
		Metadata:     Metadata{Width: 100, Height: 200, Animations: []string{"walk"}},
	}, LoadRequest{Format: FormatJSON})
	v := NewView(
		WithSurfaceFactory(PreviewSurfaceFactory),
		WithFrameSource(func() animation.FrameSource { return animation.NewManualSource() }),
	)
	t.Cleanup(v.Dispose)

	require.NoError(t, v.SetSkeleton(s))
	assert.Equal(t, ViewAttached, v.State())
	assert.Same(t, v, attachments.viewOf(7))

	img, err := v.Surface().(*PreviewSurface).Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())

	require.NoError(t, v.SetSkeleton(nil))
	assert.Nil(t, attachments.viewOf(7))
}

func TestParseWireEvent(t *testing.T) {
	_, err := parseWireEvent("nope")
	var pe *spineerrors.ParseError
	assert.True(t, errors.As(err, &pe))

	_, err = parseWireEvent(map[string]any{"type": "loaded", "requestId": "r1"})
	assert.True(t, errors.As(err, &pe))

	ev, err := parseWireEvent(map[string]any{
		"type":       "event",
		"skeletonId": float64(3),
		"entry":      map[string]any{"trackIndex": float64(1), "animation": "jump"},
		"event":      map[string]any{"name": "footstep", "intValue": float64(2)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), ev.SkeletonID)
	assert.Equal(t, EventTimeline, ev.State.Type)
	assert.Equal(t, TrackEntry{TrackIndex: 1, Animation: "jump", TimeScale: 1}, ev.State.Entry)
	assert.Equal(t, Event{Name: "footstep", IntValue: 2}, ev.State.Event)

	ev, err = parseWireEvent(map[string]any{"type": "loadFailed", "requestId": "r2", "code": "io", "message": "denied"})
	require.NoError(t, err)
	assert.Equal(t, "r2", ev.RequestID)
	assert.Equal(t, "io", ev.Code)
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatForPath("hero.JSON"))
	assert.Equal(t, FormatBinary, FormatForPath("hero.skel"))
	assert.Equal(t, FormatBinary, FormatForPath("hero"))
	assert.Equal(t, FormatJSON, parseFormat("", "x.json"))
	assert.Equal(t, FormatBinary, parseFormat("binary", "x.json"))
	assert.Equal(t, "json", FormatJSON.String())
}

func TestViewStateString(t *testing.T) {
	assert.Equal(t, "empty", ViewEmpty.String())
	assert.Equal(t, "attached", ViewAttached.String())
	assert.Equal(t, "unknown", ViewState(99).String())
}
