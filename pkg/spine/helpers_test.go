package spine_test

import (
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	spineerrors "github.com/go-drift/drift-spine/pkg/errors"
	"github.com/go-drift/drift-spine/pkg/platform"
	"github.com/go-drift/drift-spine/pkg/spine"
	"github.com/go-drift/drift-spine/pkg/spine/spinetest"
)

const (
	atlasPath = "/assets/spineboy.atlas"
	skelPath  = "/assets/spineboy.skel"
)

type reported struct {
	mu     sync.Mutex
	errs   []*spineerrors.SpineError
	panics []*spineerrors.PanicError
}

func (r *reported) HandleError(err *spineerrors.SpineError) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *reported) HandlePanic(err *spineerrors.PanicError) {
	r.mu.Lock()
	r.panics = append(r.panics, err)
	r.mu.Unlock()
}

func (r *reported) errors() []*spineerrors.SpineError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*spineerrors.SpineError(nil), r.errs...)
}

func (r *reported) panicked() []*spineerrors.PanicError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*spineerrors.PanicError(nil), r.panics...)
}

func (r *reported) ops() []string {
	var ops []string
	for _, e := range r.errors() {
		ops = append(ops, e.Op)
	}
	return ops
}

func captureErrors(t *testing.T) *reported {
	t.Helper()
	r := &reported{}
	prev := spineerrors.SetHandler(r)
	t.Cleanup(func() { spineerrors.SetHandler(prev) })
	return r
}

type env struct {
	bridge  *spinetest.Bridge
	fs      afero.Fs
	factory *spine.Factory
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{bridge: spinetest.Install(t), fs: afero.NewMemMapFs()}
	e.addFile(t, atlasPath, skelPath, spinetest.Spineboy())
	e.factory = spine.NewFactory(spine.WithRuntime(spine.NewChannelRuntime()), spine.WithFS(e.fs))
	t.Cleanup(func() { _ = e.factory.Close() })
	return e
}

func (e *env) addFile(t *testing.T, atlas, skeleton string, data spinetest.SkeletonData) {
	t.Helper()
	require.NoError(t, afero.WriteFile(e.fs, atlas, []byte("spineboy.png\nsize: 1024,256\n"), 0o644))
	require.NoError(t, afero.WriteFile(e.fs, skeleton, []byte{0x53, 0x4b}, 0o644))
	e.bridge.AddFile(atlas, skeleton, data)
}

func (e *env) load(t *testing.T) *spine.Skeleton {
	t.Helper()
	s, err := e.factory.LoadFromFiles(t.Context(), atlasPath, skelPath)
	require.NoError(t, err)
	return s
}

func (e *env) view(t *testing.T, frames *spinetest.Frames) *spine.View {
	t.Helper()
	v := spine.NewView(
		spine.WithSurfaceFactory(spine.NativeSurfaceFactory),
		spine.WithFrameSource(frames.Source),
	)
	t.Cleanup(v.Dispose)
	return v
}

// nativeViewID returns the platform view id behind v's current surface.
func nativeViewID(t *testing.T, v *spine.View) int64 {
	t.Helper()
	pv, ok := v.Surface().(interface{ PlatformView() platform.PlatformView })
	require.True(t, ok, "surface is not native")
	return pv.PlatformView().ViewID()
}
