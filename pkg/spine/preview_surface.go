package spine

import (
	"image"
	"io"
	"math"
	"sync"

	"github.com/go-drift/drift-spine/pkg/config"
	"github.com/go-drift/drift-spine/pkg/platform"
	"github.com/go-drift/drift-spine/pkg/preview"
)

// PreviewSurface renders software frames with pkg/preview. It is the default
// surface on hosts without the native runtime.
type PreviewSurface struct {
	mu       sync.Mutex
	cfg      SurfaceConfig
	attached *AttachRequest
	frame    *image.RGBA
	dirty    bool
	errMsg   string
	renders  int
	disposed bool
}

// NewPreviewSurface creates a surface showing the placeholder frame.
func NewPreviewSurface(cfg SurfaceConfig) *PreviewSurface {
	if cfg.Width <= 0 {
		cfg.Width = config.DefaultPreviewSize
	}
	if cfg.Height <= 0 {
		cfg.Height = config.DefaultPreviewSize
	}
	return &PreviewSurface{cfg: cfg, dirty: true}
}

// PreviewSurfaceFactory is a SurfaceFactory for PreviewSurface.
func PreviewSurfaceFactory(cfg SurfaceConfig) (Surface, error) {
	return NewPreviewSurface(cfg), nil
}

func (s *PreviewSurface) Attach(req AttachRequest) (Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return Descriptor{}, platform.ErrDisposed
	}
	r := req
	r.Metadata = req.Metadata.clone()
	s.attached = &r
	s.errMsg = ""
	s.dirty = true
	return Descriptor{
		ID:           req.SkeletonID,
		Deferred:     req.Deferred,
		AtlasFile:    req.AtlasFile,
		SkeletonFile: req.SkeletonFile,
		Metadata:     r.Metadata,
	}, nil
}

func (s *PreviewSurface) Detach() error {
	s.mu.Lock()
	s.attached = nil
	s.errMsg = ""
	s.dirty = true
	s.mu.Unlock()
	return nil
}

func (s *PreviewSurface) SetPremultipliedAlpha(enabled bool) error {
	s.mu.Lock()
	s.cfg.PremultipliedAlpha = enabled
	s.mu.Unlock()
	return nil
}

func (s *PreviewSurface) SetDebug(enabled bool) error {
	s.mu.Lock()
	s.cfg.Debug = enabled
	s.dirty = true
	s.mu.Unlock()
	return nil
}

// SetGeometry resizes the frame to size. Empty sizes keep the current frame
// size.
func (s *PreviewSurface) SetGeometry(_ platform.Offset, size platform.Size) {
	w, h := int(math.Round(size.Width)), int(math.Round(size.Height))
	if w <= 0 || h <= 0 {
		return
	}
	s.mu.Lock()
	if w != s.cfg.Width || h != s.cfg.Height {
		s.cfg.Width, s.cfg.Height = w, h
		s.dirty = true
	}
	s.mu.Unlock()
}

func (s *PreviewSurface) Invalidate() error {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
	return nil
}

// Render redraws the frame if anything changed since the last one.
func (s *PreviewSurface) Render() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renders++
	return s.redrawLocked()
}

// RenderError replaces the frame with err's message until the next attach.
func (s *PreviewSurface) RenderError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = err.Error()
	s.dirty = true
}

// Failure returns the message shown in place of the skeleton, if any.
func (s *PreviewSurface) Failure() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

func (s *PreviewSurface) Dispose() {
	s.mu.Lock()
	s.disposed = true
	s.attached = nil
	s.frame = nil
	s.mu.Unlock()
}

// Renders returns how many frames Render has been asked for.
func (s *PreviewSurface) Renders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renders
}

// Snapshot returns the current frame, drawing it first if needed.
func (s *PreviewSurface) Snapshot() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.redrawLocked(); err != nil {
		return nil, err
	}
	return s.frame, nil
}

// WritePNG encodes the current frame as PNG.
func (s *PreviewSurface) WritePNG(w io.Writer) error {
	img, err := s.Snapshot()
	if err != nil {
		return err
	}
	return preview.EncodePNG(w, img)
}

func (s *PreviewSurface) redrawLocked() error {
	if !s.dirty || s.disposed {
		return nil
	}
	w, h := s.cfg.Width, s.cfg.Height

	var img *image.RGBA
	var err error
	switch {
	case s.errMsg != "":
		img, err = preview.Error(w, h, s.errMsg)
	case s.attached != nil:
		img, err = preview.SkeletonFrame(w, h, preview.Skeleton{
			Width:      s.attached.Metadata.Width,
			Height:     s.attached.Metadata.Height,
			Skin:       s.attached.Metadata.DefaultSkin,
			Animations: s.attached.Metadata.Animations,
		})
	default:
		img, err = preview.Placeholder(w, h)
	}
	if err == nil && s.cfg.Debug {
		img, err = preview.DebugOverlay(img)
	}
	if err != nil {
		return err
	}
	s.frame = img
	s.dirty = false
	return nil
}
