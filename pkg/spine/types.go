package spine

import (
	"path/filepath"
	"strings"
)

// Format is the skeleton file encoding.
type Format int

const (
	// FormatBinary is the .skel binary format.
	FormatBinary Format = iota
	// FormatJSON is the .json format.
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "binary"
}

// FormatForPath picks the format from the skeleton file suffix: ".json" is
// JSON, anything else binary.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatBinary
}

func parseFormat(s string, path string) Format {
	switch s {
	case "json":
		return FormatJSON
	case "binary":
		return FormatBinary
	default:
		return FormatForPath(path)
	}
}

// Metadata is the read-only description of loaded skeleton data.
type Metadata struct {
	Width       float64
	Height      float64
	DefaultSkin string
	Skins       []string
	Animations  []string
	Bones       []string
	Slots       []string
}

func (m Metadata) clone() Metadata {
	m.Skins = cloneStrings(m.Skins)
	m.Animations = cloneStrings(m.Animations)
	m.Bones = cloneStrings(m.Bones)
	m.Slots = cloneStrings(m.Slots)
	return m
}

func (m Metadata) empty() bool {
	return m.Width == 0 && m.Height == 0 && len(m.Skins) == 0 && len(m.Animations) == 0 &&
		len(m.Bones) == 0 && len(m.Slots) == 0
}

// Descriptor is what the native runtime reports for a loaded or attached
// skeleton.
type Descriptor struct {
	ID           int64
	Deferred     bool
	AtlasFile    string
	SkeletonFile string
	Metadata     Metadata
}

// LoadRequest names the files to load.
type LoadRequest struct {
	Atlas      string
	Skeleton   string
	Format     Format
	DefaultMix float64
}

// TrackEntry is a snapshot of one animation assignment on a track.
type TrackEntry struct {
	TrackIndex  int
	Animation   string
	Loop        bool
	MixDuration float64
	TimeScale   float64
}

// Event is a snapshot of a skeleton timeline event.
type Event struct {
	Name        string
	IntValue    int
	FloatValue  float64
	StringValue string
}

// BoneTransform is a bone's local transform in the current pose.
type BoneTransform struct {
	Name     string
	X        float64
	Y        float64
	Rotation float64
	ScaleX   float64
	ScaleY   float64
}

// Pose is the live skeleton state after the last update.
type Pose struct {
	Skin  string
	Bones []BoneTransform
}

// Bone returns the named bone transform.
func (p Pose) Bone(name string) (BoneTransform, bool) {
	for _, b := range p.Bones {
		if b.Name == name {
			return b, true
		}
	}
	return BoneTransform{}, false
}

// StateEventType identifies an animation state callback.
type StateEventType string

const (
	EventStart     StateEventType = "start"
	EventInterrupt StateEventType = "interrupt"
	EventEnd       StateEventType = "end"
	EventComplete  StateEventType = "complete"
	EventDispose   StateEventType = "dispose"
	EventTimeline  StateEventType = "event"
)

// StateEvent is one animation state notification for a skeleton.
type StateEvent struct {
	Type  StateEventType
	Entry TrackEntry
	// Event is set for EventTimeline.
	Event Event
}

// Listener receives animation state callbacks. Every field is optional.
//
// Callbacks run on the goroutine delivering native events, in the order the
// runtime emitted them. They must return quickly and must not call
// View.SetSkeleton or View.Dispose on the view driving the skeleton.
type Listener struct {
	OnAnimationStart     func(entry TrackEntry)
	OnAnimationInterrupt func(entry TrackEntry)
	OnAnimationEnd       func(entry TrackEntry)
	OnAnimationComplete  func(entry TrackEntry)
	OnAnimationDispose   func(entry TrackEntry)
	OnAnimationEvent     func(entry TrackEntry, event Event)
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
