package spine

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-drift/drift-spine/pkg/assets"
	"github.com/go-drift/drift-spine/pkg/config"
	"github.com/go-drift/drift-spine/pkg/logger"
	"github.com/go-drift/drift-spine/pkg/platform"
)

const tracerName = "github.com/go-drift/drift-spine/pkg/spine"

// Factory loads skeletons and owns them until they are released. Close
// releases whatever is left.
type Factory struct {
	rt       Runtime
	fs       afero.Fs
	cfg      config.Resolved
	manifest *assets.Manifest
	tracer   trace.Tracer

	mu     sync.Mutex
	owned  map[*Skeleton]struct{}
	closed bool
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithRuntime sets the runtime skeletons are loaded into.
func WithRuntime(rt Runtime) FactoryOption {
	return func(f *Factory) { f.rt = rt }
}

// WithFS sets the filesystem LoadFromFiles checks paths against.
func WithFS(fs afero.Fs) FactoryOption {
	return func(f *Factory) { f.fs = fs }
}

// WithConfig sets the resolved configuration (default mix duration).
func WithConfig(cfg config.Resolved) FactoryOption {
	return func(f *Factory) { f.cfg = cfg }
}

// WithManifest sets the manifest LoadAsset resolves names against.
func WithManifest(m *assets.Manifest) FactoryOption {
	return func(f *Factory) { f.manifest = m }
}

// NewFactory creates a Factory using DefaultRuntime and the OS filesystem
// unless options say otherwise.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		fs:     afero.NewOsFs(),
		cfg:    config.Default(),
		tracer: otel.Tracer(tracerName),
		owned:  make(map[*Skeleton]struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.rt == nil {
		f.rt = DefaultRuntime()
	}
	return f
}

// LoadResult is the outcome of LoadFromFilesAsync.
type LoadResult struct {
	Skeleton *Skeleton
	Err      error
}

// LoadFromFiles loads a skeleton from filesystem paths. Both files must exist
// and be readable; the skeleton is parsed as JSON when its name ends in
// ".json" and as binary otherwise. The load runs natively and LoadFromFiles
// waits for it or for ctx. A skeleton whose load completes after ctx is done
// is released.
func (f *Factory) LoadFromFiles(ctx context.Context, atlasFile, skeletonFile string) (*Skeleton, error) {
	req := f.request(atlasFile, skeletonFile, FormatForPath(skeletonFile))
	return f.load(ctx, "LoadFromFiles", req, func(ctx context.Context) (Descriptor, error) {
		for _, p := range []string{atlasFile, skeletonFile} {
			if err := f.checkFile(p); err != nil {
				return Descriptor{}, &LoadError{Atlas: atlasFile, Skeleton: skeletonFile, Err: err}
			}
		}
		return f.rt.LoadFromFiles(ctx, req)
	})
}

// LoadFromFilesAsync starts LoadFromFiles and returns a channel that
// receives its single result.
func (f *Factory) LoadFromFilesAsync(ctx context.Context, atlasFile, skeletonFile string) <-chan LoadResult {
	out := make(chan LoadResult, 1)
	go func() {
		s, err := f.LoadFromFiles(ctx, atlasFile, skeletonFile)
		out <- LoadResult{Skeleton: s, Err: err}
		close(out)
	}()
	return out
}

// LoadFromBundle loads a skeleton packaged in the app bundle.
func (f *Factory) LoadFromBundle(atlasPath, skeletonPath string) (*Skeleton, error) {
	req := f.request(atlasPath, skeletonPath, FormatForPath(skeletonPath))
	return f.load(context.Background(), "LoadFromBundle", req, func(context.Context) (Descriptor, error) {
		return f.rt.LoadFromBundle(req)
	})
}

// LoadFromAssets loads a skeleton from the platform asset store.
func (f *Factory) LoadFromAssets(atlasAsset, skeletonAsset string) (*Skeleton, error) {
	req := f.request(atlasAsset, skeletonAsset, FormatForPath(skeletonAsset))
	return f.loadAssets(req)
}

// LoadAsset loads the manifest entry called name from the asset store.
func (f *Factory) LoadAsset(name string) (*Skeleton, error) {
	a, ok := f.manifest.Lookup(name)
	if !ok {
		return nil, &NotFoundError{Kind: "asset", Name: name}
	}
	req := f.request(a.Atlas, a.Skeleton, parseFormat(a.SkeletonFormat(), a.Skeleton))
	return f.loadAssets(req)
}

func (f *Factory) loadAssets(req LoadRequest) (*Skeleton, error) {
	return f.load(context.Background(), "LoadFromAssets", req, func(context.Context) (Descriptor, error) {
		return f.rt.LoadFromAssets(req)
	})
}

func (f *Factory) request(atlas, skeleton string, format Format) LoadRequest {
	return LoadRequest{Atlas: atlas, Skeleton: skeleton, Format: format, DefaultMix: f.cfg.DefaultMix}
}

func (f *Factory) load(ctx context.Context, op string, req LoadRequest, fn func(context.Context) (Descriptor, error)) (*Skeleton, error) {
	ctx, span := f.tracer.Start(ctx, "spine."+op, trace.WithAttributes(
		attribute.String("spine.atlas", req.Atlas),
		attribute.String("spine.skeleton", req.Skeleton),
		attribute.String("spine.format", req.Format.String()),
	))
	defer span.End()

	log := logger.G(ctx).WithFields(logrus.Fields{
		"op":       op,
		"atlas":    req.Atlas,
		"skeleton": req.Skeleton,
	})

	fail := func(err error) (*Skeleton, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.WithError(err).Error("skeleton load failed")
		return nil, err
	}

	if f.isClosed() {
		return fail(&LoadError{Atlas: req.Atlas, Skeleton: req.Skeleton, Err: platform.ErrClosed})
	}
	if req.Atlas == "" || req.Skeleton == "" {
		return fail(&LoadError{Atlas: req.Atlas, Skeleton: req.Skeleton, Err: ErrEmptyPath})
	}

	d, err := fn(ctx)
	if err != nil {
		return fail(err)
	}

	s := newSkeleton(f.rt, d, req)
	if !f.adopt(s) {
		_ = s.Release()
		return fail(&LoadError{Atlas: req.Atlas, Skeleton: req.Skeleton, Err: platform.ErrClosed})
	}
	span.SetAttributes(attribute.Int64("spine.skeleton_id", d.ID), attribute.Bool("spine.deferred", d.Deferred))
	log.WithField("skeleton_id", d.ID).Debug("skeleton loaded")
	return s, nil
}

func (f *Factory) checkFile(path string) error {
	info, err := f.fs.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: not a regular file", path)
	}
	fh, err := f.fs.Open(path)
	if err != nil {
		return err
	}
	return fh.Close()
}

func (f *Factory) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Factory) adopt(s *Skeleton) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.owned[s] = struct{}{}
	s.onRelease = f.forget
	return true
}

func (f *Factory) forget(s *Skeleton) {
	f.mu.Lock()
	delete(f.owned, s)
	f.mu.Unlock()
}

// Skeletons returns the skeletons loaded by f that are not yet released.
func (f *Factory) Skeletons() []*Skeleton {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Skeleton, 0, len(f.owned))
	for s := range f.owned {
		out = append(out, s)
	}
	return out
}

// Close releases every skeleton still owned by the factory. Later loads fail.
// Release failures are returned together.
func (f *Factory) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()

	var result *multierror.Error
	for _, s := range f.Skeletons() {
		if err := s.Release(); err != nil {
			result = multierror.Append(result, fmt.Errorf("release skeleton %d: %w", s.ID(), err))
		}
	}
	return result.ErrorOrNil()
}
