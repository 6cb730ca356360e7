// Package config resolves the optional spine.yaml project configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the project root.
const FileName = "spine.yaml"

// Defaults applied when spine.yaml omits a value.
const (
	DefaultRuntimeVersion = "4.2"
	DefaultMix            = 0.25
	DefaultFrameInterval  = 16 * time.Millisecond
	DefaultPreviewSize    = 400
	DefaultManifest       = "spine_assets.yaml"
)

// LoopMode selects what drives a view's per-frame update.
type LoopMode string

const (
	// LoopDisplay ticks once per engine display refresh.
	LoopDisplay LoopMode = "display"
	// LoopInterval ticks on a fixed timer.
	LoopInterval LoopMode = "interval"
)

// Config represents the optional spine.yaml configuration.
type Config struct {
	Runtime RuntimeConfig `yaml:"runtime"`
	View    ViewConfig    `yaml:"view"`
	Loop    LoopConfig    `yaml:"loop"`
	Log     LogConfig     `yaml:"log"`
	Preview PreviewConfig `yaml:"preview"`
	Assets  AssetsConfig  `yaml:"assets"`
}

// RuntimeConfig describes the native Spine runtime.
type RuntimeConfig struct {
	Version    string   `yaml:"version,omitempty"`
	DefaultMix *float64 `yaml:"default_mix,omitempty"`
}

// ViewConfig holds view property defaults.
type ViewConfig struct {
	PremultipliedAlpha *bool `yaml:"premultiplied_alpha,omitempty"`
	Debug              *bool `yaml:"debug,omitempty"`
}

// LoopConfig selects the frame source.
type LoopConfig struct {
	Mode     string `yaml:"mode,omitempty"`
	Interval string `yaml:"interval,omitempty"`
}

// LogConfig configures the logrus logger.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// PreviewConfig sizes desktop preview frames.
type PreviewConfig struct {
	Width  int `yaml:"width,omitempty"`
	Height int `yaml:"height,omitempty"`
}

// AssetsConfig locates packaged skeleton assets.
type AssetsConfig struct {
	Root     string `yaml:"root,omitempty"`
	Manifest string `yaml:"manifest,omitempty"`
}

// Resolved contains resolved configuration values.
type Resolved struct {
	Root       string
	ModulePath string

	RuntimeVersion string
	DefaultMix     float64

	PremultipliedAlpha bool
	Debug              bool

	LoopMode      LoopMode
	FrameInterval time.Duration

	LogLevel  string
	LogFormat string

	PreviewWidth  int
	PreviewHeight int

	AssetsRoot   string
	ManifestPath string
}

// Default returns the configuration used when no spine.yaml exists.
func Default() Resolved {
	r, _ := FromConfig(&Config{}, "", "")
	return *r
}

// LoadOptional reads dir/spine.yaml from fsys if present.
func LoadOptional(fsys afero.Fs, dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}
	return Parse(data)
}

// Parse decodes spine.yaml content.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	return &cfg, nil
}

// Resolve loads spine.yaml (if present) from the project in dir and resolves
// defaults.
func Resolve(fsys afero.Fs, dir string) (*Resolved, error) {
	modulePath, err := modulePath(fsys, dir)
	if err != nil {
		return nil, err
	}

	cfg, err := LoadOptional(fsys, dir)
	if err != nil {
		return nil, err
	}
	return FromConfig(cfg, dir, modulePath)
}

// FromConfig validates cfg and fills in defaults.
func FromConfig(cfg *Config, root, modulePath string) (*Resolved, error) {
	r := &Resolved{
		Root:               root,
		ModulePath:         modulePath,
		RuntimeVersion:     DefaultRuntimeVersion,
		DefaultMix:         DefaultMix,
		PremultipliedAlpha: true,
		LoopMode:           LoopDisplay,
		FrameInterval:      DefaultFrameInterval,
		LogLevel:           "info",
		LogFormat:          "text",
		PreviewWidth:       DefaultPreviewSize,
		PreviewHeight:      DefaultPreviewSize,
		AssetsRoot:         "assets",
		ManifestPath:       DefaultManifest,
	}

	if v := strings.TrimSpace(cfg.Runtime.Version); v != "" {
		if err := validateRuntimeVersion(v); err != nil {
			return nil, err
		}
		r.RuntimeVersion = strings.TrimPrefix(v, "v")
	}
	if cfg.Runtime.DefaultMix != nil {
		if *cfg.Runtime.DefaultMix < 0 {
			return nil, fmt.Errorf("runtime.default_mix must not be negative (got %v)", *cfg.Runtime.DefaultMix)
		}
		r.DefaultMix = *cfg.Runtime.DefaultMix
	}

	if cfg.View.PremultipliedAlpha != nil {
		r.PremultipliedAlpha = *cfg.View.PremultipliedAlpha
	}
	if cfg.View.Debug != nil {
		r.Debug = *cfg.View.Debug
	}

	switch mode := LoopMode(strings.ToLower(strings.TrimSpace(cfg.Loop.Mode))); mode {
	case "":
	case LoopDisplay, LoopInterval:
		r.LoopMode = mode
	default:
		return nil, fmt.Errorf("loop.mode must be %q or %q (got %q)", LoopDisplay, LoopInterval, cfg.Loop.Mode)
	}
	if s := strings.TrimSpace(cfg.Loop.Interval); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("loop.interval: %w", err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("loop.interval must be positive (got %s)", s)
		}
		r.FrameInterval = d
	}

	if lvl := strings.TrimSpace(cfg.Log.Level); lvl != "" {
		if _, err := logrus.ParseLevel(lvl); err != nil {
			return nil, fmt.Errorf("log.level: %w", err)
		}
		r.LogLevel = strings.ToLower(lvl)
	}
	switch f := strings.ToLower(strings.TrimSpace(cfg.Log.Format)); f {
	case "":
	case "text", "json":
		r.LogFormat = f
	default:
		return nil, fmt.Errorf("log.format must be text or json (got %q)", cfg.Log.Format)
	}

	if cfg.Preview.Width < 0 || cfg.Preview.Height < 0 {
		return nil, fmt.Errorf("preview size must not be negative")
	}
	if cfg.Preview.Width > 0 {
		r.PreviewWidth = cfg.Preview.Width
	}
	if cfg.Preview.Height > 0 {
		r.PreviewHeight = cfg.Preview.Height
	}

	if s := strings.TrimSpace(cfg.Assets.Root); s != "" {
		r.AssetsRoot = filepath.Clean(s)
	}
	if s := strings.TrimSpace(cfg.Assets.Manifest); s != "" {
		r.ManifestPath = s
	}
	return r, nil
}

// validateRuntimeVersion accepts 4.x runtime versions ("4.2", "v4.1.3").
func validateRuntimeVersion(v string) error {
	canonical := v
	if !strings.HasPrefix(canonical, "v") {
		canonical = "v" + canonical
	}
	if !semver.IsValid(canonical) {
		return fmt.Errorf("runtime.version %q is not a valid version", v)
	}
	if semver.Major(canonical) != "v4" {
		return fmt.Errorf("runtime.version %q is not supported (want 4.x)", v)
	}
	return nil
}

// FindProjectRoot walks up from start to the nearest directory holding a
// go.mod.
func FindProjectRoot(fsys afero.Fs, start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	for {
		if _, err := fsys.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a Go module (no go.mod found)")
		}
		dir = parent
	}
}

// modulePath returns the module path declared in dir/go.mod, or "" when dir
// has no go.mod.
func modulePath(fsys afero.Fs, dir string) (string, error) {
	data, err := afero.ReadFile(fsys, filepath.Join(dir, "go.mod"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read go.mod: %w", err)
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("could not determine module path from go.mod")
	}
	return path, nil
}
