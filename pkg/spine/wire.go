package spine

import (
	"github.com/go-drift/drift-spine/pkg/errors"
	"github.com/go-drift/drift-spine/pkg/platform"
)

// Method and event names of the drift/spine protocol.
const (
	methodLoadFromFiles  = "loadFromFiles"
	methodLoadFromBundle = "loadFromBundle"
	methodLoadFromAssets = "loadFromAssets"
	methodRelease        = "release"
	methodSetAnimation   = "setAnimation"
	methodAddAnimation   = "addAnimation"
	methodSetSkin        = "setSkin"
	methodSetTimeScale   = "setTimeScale"
	methodClearTrack     = "clearTrack"
	methodClearTracks    = "clearTracks"
	methodUpdate         = "update"
	methodGetCurrent     = "getCurrent"
	methodGetPose        = "getPose"
	methodSetListening   = "setListening"

	eventLoaded     = "loaded"
	eventLoadFailed = "loadFailed"
)

// MethodChannelName and EventChannelName are the channels the native
// runtime registers.
const (
	MethodChannelName = "drift/spine"
	EventChannelName  = "drift/spine/events"
)

// ViewType is the platform view type of the native render view.
const ViewType = "spine_view"

// encodeLoadRequest uses atlasFile/skeletonFile for filesystem loads and
// atlasPath/skeletonPath for packaged resources.
func encodeLoadRequest(req LoadRequest, packaged bool) map[string]any {
	args := map[string]any{
		"format":     req.Format.String(),
		"defaultMix": req.DefaultMix,
	}
	if packaged {
		args["atlasPath"] = req.Atlas
		args["skeletonPath"] = req.Skeleton
	} else {
		args["atlasFile"] = req.Atlas
		args["skeletonFile"] = req.Skeleton
	}
	return args
}

func parseDescriptor(data any) (Descriptor, bool) {
	m := platform.ParseMap(data)
	if m == nil {
		return Descriptor{}, false
	}
	id, ok := platform.ToInt64(m["skeletonId"])
	if !ok {
		return Descriptor{}, false
	}
	width, _ := platform.ToFloat64(m["width"])
	height, _ := platform.ToFloat64(m["height"])
	return Descriptor{
		ID:           id,
		Deferred:     platform.ParseBool(m["deferred"]),
		AtlasFile:    platform.ParseString(m["atlasFile"]),
		SkeletonFile: platform.ParseString(m["skeletonFile"]),
		Metadata: Metadata{
			Width:       width,
			Height:      height,
			DefaultSkin: platform.ParseString(m["defaultSkin"]),
			Skins:       platform.ParseStrings(m["skins"]),
			Animations:  platform.ParseStrings(m["animations"]),
			Bones:       platform.ParseStrings(m["bones"]),
			Slots:       platform.ParseStrings(m["slots"]),
		},
	}, true
}

func parseTrackEntry(data any) (TrackEntry, bool) {
	m := platform.ParseMap(data)
	if m == nil {
		return TrackEntry{}, false
	}
	track, _ := platform.ToInt64(m["trackIndex"])
	mix, _ := platform.ToFloat64(m["mixDuration"])
	scale, ok := platform.ToFloat64(m["timeScale"])
	if !ok {
		scale = 1
	}
	return TrackEntry{
		TrackIndex:  int(track),
		Animation:   platform.ParseString(m["animation"]),
		Loop:        platform.ParseBool(m["loop"]),
		MixDuration: mix,
		TimeScale:   scale,
	}, true
}

func parseEvent(data any) Event {
	m := platform.ParseMap(data)
	iv, _ := platform.ToInt64(m["intValue"])
	fv, _ := platform.ToFloat64(m["floatValue"])
	return Event{
		Name:        platform.ParseString(m["name"]),
		IntValue:    int(iv),
		FloatValue:  fv,
		StringValue: platform.ParseString(m["stringValue"]),
	}
}

func parsePose(data any) Pose {
	m := platform.ParseMap(data)
	pose := Pose{Skin: platform.ParseString(m["skin"])}
	bones, _ := m["bones"].([]any)
	for _, raw := range bones {
		b := platform.ParseMap(raw)
		if b == nil {
			continue
		}
		x, _ := platform.ToFloat64(b["x"])
		y, _ := platform.ToFloat64(b["y"])
		rot, _ := platform.ToFloat64(b["rotation"])
		sx, _ := platform.ToFloat64(b["scaleX"])
		sy, _ := platform.ToFloat64(b["scaleY"])
		pose.Bones = append(pose.Bones, BoneTransform{
			Name: platform.ParseString(b["name"]), X: x, Y: y, Rotation: rot, ScaleX: sx, ScaleY: sy,
		})
	}
	return pose
}

// wireEvent is one payload of drift/spine/events.
type wireEvent struct {
	Type       string
	SkeletonID int64
	RequestID  string
	State      StateEvent
	Skeleton   Descriptor
	Code       string
	Message    string
}

func parseWireEvent(data any) (wireEvent, error) {
	m := platform.ParseMap(data)
	typ := platform.ParseString(m["type"])
	if m == nil || typ == "" {
		return wireEvent{}, &errors.ParseError{Channel: EventChannelName, DataType: "spine event", Got: data}
	}
	ev := wireEvent{Type: typ, RequestID: platform.ParseString(m["requestId"])}
	ev.SkeletonID, _ = platform.ToInt64(m["skeletonId"])

	switch typ {
	case eventLoaded:
		d, ok := parseDescriptor(m["skeleton"])
		if !ok {
			return wireEvent{}, &errors.ParseError{Channel: EventChannelName, DataType: "skeleton descriptor", Got: m["skeleton"]}
		}
		ev.Skeleton = d
	case eventLoadFailed:
		ev.Code = platform.ParseString(m["code"])
		ev.Message = platform.ParseString(m["message"])
	default:
		entry, _ := parseTrackEntry(m["entry"])
		ev.State = StateEvent{Type: StateEventType(typ), Entry: entry}
		if ev.State.Type == EventTimeline {
			ev.State.Event = parseEvent(m["event"])
		}
	}
	return ev, nil
}
