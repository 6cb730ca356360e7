package spine

import (
	stderrors "errors"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/go-drift/drift-spine/pkg/errors"
	"github.com/go-drift/drift-spine/pkg/logger"
	"github.com/go-drift/drift-spine/pkg/platform"
)

// Methods of the spine_view platform view.
const (
	viewMethodAttach                = "attach"
	viewMethodDetach                = "detach"
	viewMethodSetPremultipliedAlpha = "setPremultipliedAlpha"
	viewMethodSetDebug              = "setDebug"
	viewMethodInvalidate            = "invalidate"

	viewEventRenderError = "renderError"
)

var registerViewFactory sync.Once

// spineView is the Go side of a native spine_view.
type spineView struct {
	*platform.BasePlatformView
}

func (v *spineView) Create(map[string]any) error { return nil }

func (v *spineView) Dispose() {}

// HandleViewEvent receives events pushed by the native view.
func (v *spineView) HandleViewEvent(method string, args map[string]any) {
	switch method {
	case viewEventRenderError:
		sid, _ := platform.ToInt64(args["skeletonId"])
		errors.Report(&errors.SpineError{
			Op:         "spine_view.render",
			Kind:       errors.KindRender,
			ViewID:     v.ViewID(),
			SkeletonID: sid,
			Err:        stderrors.New(platform.ParseString(args["message"])),
		})
	default:
		logger.L.WithFields(logrus.Fields{"view_id": v.ViewID(), "event": method}).Debug("spine view event")
	}
}

type spineViewFactory struct{}

func (spineViewFactory) ViewType() string { return ViewType }

func (spineViewFactory) Create(viewID int64, _ map[string]any) (platform.PlatformView, error) {
	return &spineView{BasePlatformView: platform.NewBasePlatformView(viewID, ViewType)}, nil
}

// nativeSurface renders through a native spine_view platform view.
type nativeSurface struct {
	view     *spineView
	registry *platform.PlatformViewRegistry
	disposed atomic.Bool
}

// NativeSurfaceFactory creates a spine_view platform view for each attach.
func NativeSurfaceFactory(cfg SurfaceConfig) (Surface, error) {
	reg := platform.GetPlatformViewRegistry()
	registerViewFactory.Do(func() { reg.RegisterFactory(spineViewFactory{}) })

	pv, err := reg.Create(ViewType, map[string]any{
		"premultipliedAlpha": cfg.PremultipliedAlpha,
		"debug":              cfg.Debug,
	})
	if err != nil {
		return nil, nativeError("create", err)
	}
	return &nativeSurface{view: pv.(*spineView), registry: reg}, nil
}

// PlatformView returns the embedded native view for layout.
func (s *nativeSurface) PlatformView() platform.PlatformView {
	return s.view
}

func (s *nativeSurface) invoke(method string, args map[string]any) (any, error) {
	if s.disposed.Load() {
		return nil, platform.ErrDisposed
	}
	res, err := s.registry.InvokeViewMethod(s.view.ViewID(), method, args)
	if err != nil {
		return nil, nativeError(method, err)
	}
	return res, nil
}

func (s *nativeSurface) Attach(req AttachRequest) (Descriptor, error) {
	res, err := s.invoke(viewMethodAttach, map[string]any{
		"skeletonId":   req.SkeletonID,
		"atlasFile":    req.AtlasFile,
		"skeletonFile": req.SkeletonFile,
	})
	if err != nil {
		return Descriptor{}, err
	}
	m := platform.ParseMap(res)
	if !platform.ParseBool(m["attached"]) {
		return Descriptor{}, &AttachmentError{Op: viewMethodAttach, Err: ErrNotAttached}
	}
	if d, ok := parseDescriptor(m["skeleton"]); ok {
		return d, nil
	}
	return Descriptor{
		ID:           req.SkeletonID,
		Deferred:     req.Deferred,
		AtlasFile:    req.AtlasFile,
		SkeletonFile: req.SkeletonFile,
		Metadata:     req.Metadata,
	}, nil
}

func (s *nativeSurface) Detach() error {
	_, err := s.invoke(viewMethodDetach, nil)
	return err
}

func (s *nativeSurface) SetPremultipliedAlpha(enabled bool) error {
	_, err := s.invoke(viewMethodSetPremultipliedAlpha, map[string]any{"value": enabled})
	return err
}

func (s *nativeSurface) SetDebug(enabled bool) error {
	_, err := s.invoke(viewMethodSetDebug, map[string]any{"value": enabled})
	return err
}

func (s *nativeSurface) Invalidate() error {
	_, err := s.invoke(viewMethodInvalidate, nil)
	return err
}

func (s *nativeSurface) Render() error {
	return s.Invalidate()
}

func (s *nativeSurface) SetGeometry(offset platform.Offset, size platform.Size) {
	if !s.disposed.Load() {
		s.view.SetGeometry(offset, size)
	}
}

func (s *nativeSurface) SetVisible(visible bool) {
	if !s.disposed.Load() {
		s.view.SetVisible(visible)
	}
}

func (s *nativeSurface) Dispose() {
	if s.disposed.CompareAndSwap(false, true) {
		s.registry.Dispose(s.view.ViewID())
	}
}
