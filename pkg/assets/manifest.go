// Package assets describes packaged Spine skeletons: a YAML manifest naming
// atlas/skeleton pairs, a scanner that builds one from a directory tree, and
// validation against the files on disk.
package assets

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Skeleton file formats recorded in a manifest.
const (
	FormatBinary = "binary"
	FormatJSON   = "json"
)

// Asset names one atlas/skeleton pair. Paths are slash separated and relative
// to the asset root.
type Asset struct {
	Name     string `yaml:"name"`
	Atlas    string `yaml:"atlas"`
	Skeleton string `yaml:"skeleton"`
	Format   string `yaml:"format,omitempty"`
}

// SkeletonFormat returns the declared format, or the one implied by the
// skeleton file suffix.
func (a Asset) SkeletonFormat() string {
	if a.Format != "" {
		return a.Format
	}
	if strings.EqualFold(path.Ext(a.Skeleton), ".json") {
		return FormatJSON
	}
	return FormatBinary
}

// Manifest is the content of spine_assets.yaml.
type Manifest struct {
	Assets []Asset `yaml:"assets"`
}

// Parse decodes and checks a manifest.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse asset manifest: %w", err)
	}
	if err := m.check(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads a manifest from fsys.
func Load(fsys afero.Fs, name string) (*Manifest, error) {
	data, err := afero.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset manifest: %w", err)
	}
	return Parse(data)
}

// Marshal encodes the manifest as YAML.
func (m *Manifest) Marshal() ([]byte, error) {
	return yaml.Marshal(m)
}

// Lookup returns the asset with the given name.
func (m *Manifest) Lookup(name string) (Asset, bool) {
	if m == nil {
		return Asset{}, false
	}
	for _, a := range m.Assets {
		if a.Name == name {
			return a, true
		}
	}
	return Asset{}, false
}

func (m *Manifest) check() error {
	var result *multierror.Error
	seen := make(map[string]bool, len(m.Assets))
	for i, a := range m.Assets {
		switch {
		case a.Name == "":
			result = multierror.Append(result, fmt.Errorf("asset %d: missing name", i))
		case seen[a.Name]:
			result = multierror.Append(result, fmt.Errorf("asset %q: duplicate name", a.Name))
		}
		seen[a.Name] = true
		if a.Atlas == "" || a.Skeleton == "" {
			result = multierror.Append(result, fmt.Errorf("asset %q: atlas and skeleton are required", a.Name))
		}
		if a.Format != "" && a.Format != FormatBinary && a.Format != FormatJSON {
			result = multierror.Append(result, fmt.Errorf("asset %q: unknown format %q", a.Name, a.Format))
		}
	}
	return result.ErrorOrNil()
}

// Validate checks that every asset's files exist under root. All missing
// files are reported together.
func (m *Manifest) Validate(fsys afero.Fs, root string) error {
	var result *multierror.Error
	for _, a := range m.Assets {
		for _, p := range []string{a.Atlas, a.Skeleton} {
			full := path.Join(root, p)
			info, err := fsys.Stat(full)
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("asset %q: %w", a.Name, err))
				continue
			}
			if info.IsDir() {
				result = multierror.Append(result, fmt.Errorf("asset %q: %s is a directory", a.Name, full))
			}
		}
	}
	return result.ErrorOrNil()
}

// Scan builds a manifest from every .atlas file under root that has a
// matching .skel or .json skeleton next to it. Binary skeletons win when
// both exist. Atlases without a skeleton are returned as unpaired.
func Scan(fsys afero.Fs, root string) (m *Manifest, unpaired []string, err error) {
	sub := afero.NewIOFS(afero.NewBasePathFs(fsys, root))
	atlases, err := doublestar.Glob(sub, "**/*.atlas")
	if err != nil {
		return nil, nil, fmt.Errorf("scan %s: %w", root, err)
	}
	sort.Strings(atlases)

	m = &Manifest{}
	for _, atlas := range atlases {
		base := strings.TrimSuffix(atlas, path.Ext(atlas))
		skeleton, format := "", ""
		for _, candidate := range []struct{ ext, format string }{{".skel", FormatBinary}, {".json", FormatJSON}} {
			if isFile(sub, base+candidate.ext) {
				skeleton, format = base+candidate.ext, candidate.format
				break
			}
		}
		if skeleton == "" {
			unpaired = append(unpaired, atlas)
			continue
		}
		m.Assets = append(m.Assets, Asset{Name: base, Atlas: atlas, Skeleton: skeleton, Format: format})
	}
	return m, unpaired, nil
}

func isFile(fsys fs.FS, name string) bool {
	info, err := fs.Stat(fsys, name)
	return err == nil && !info.IsDir()
}
