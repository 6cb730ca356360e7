// Package spinetest provides an in-memory native Spine runtime for tests. It
// installs itself as the platform bridge and answers the drift/spine and
// platform view protocols, so code under test runs the real channel path.
package spinetest

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/go-drift/drift-spine/pkg/platform"
	"github.com/go-drift/drift-spine/pkg/spine"
)

const (
	platformViewsChannel      = "drift/platform_views"
	platformViewEventsChannel = "drift/platform_views/events"
	lifecycleEventsChannel    = "drift/lifecycle/events"
	defaultDuration           = 1.0
)

// TimelineEvent is a key on an animation's event timeline.
type TimelineEvent struct {
	Time   float64
	Name   string
	Int    int
	Float  float64
	String string
}

// SkeletonData is what the fake runtime "parses" out of a file pair.
type SkeletonData struct {
	Width       float64
	Height      float64
	DefaultSkin string
	Skins       []string
	Animations  []string
	Bones       []string
	Slots       []string
	// Durations maps animation names to seconds. Missing entries last 1s.
	Durations map[string]float64
	Events    map[string][]TimelineEvent
	// Deferred skeletons get native state only when attached to a view.
	Deferred bool
	// Corrupt makes the load fail with load_failed.
	Corrupt bool
}

func (d SkeletonData) duration(anim string) float64 {
	if v := d.Durations[anim]; v > 0 {
		return v
	}
	return defaultDuration
}

func (d SkeletonData) defaultSkin() string {
	if d.DefaultSkin != "" {
		return d.DefaultSkin
	}
	return "default"
}

// Spineboy returns fixture data shaped like the Spine example character.
func Spineboy() SkeletonData {
	return SkeletonData{
		Width:       470,
		Height:      640,
		DefaultSkin: "default",
		Skins:       []string{"default", "goblin"},
		Animations:  []string{"idle", "walk", "run", "jump", "Walk", "Run", "Idle"},
		Bones:       []string{"root", "hip", "torso", "head"},
		Slots:       []string{"body", "head", "eyes"},
		Durations:   map[string]float64{"idle": 1, "walk": 0.8, "run": 0.5, "jump": 1.2},
		Events: map[string][]TimelineEvent{
			"jump": {{Time: 0.5, Name: "footstep", Int: 1, Float: 0.5, String: "left"}},
		},
	}
}

// Call is one recorded native invocation.
type Call struct {
	Channel string
	Method  string
	Args    map[string]any
}

// SkeletonInfo is the fake runtime's view of a skeleton.
type SkeletonInfo struct {
	ID        int64
	Skin      string
	TimeScale float64
	Listening bool
	ViewID    int64
	Deferred  bool
	Updates   []float64
}

// ViewInfo is the fake runtime's view of a spine_view.
type ViewInfo struct {
	ID                 int64
	SkeletonID         int64
	PremultipliedAlpha bool
	Debug              bool
	Invalidations      int
	X, Y               float64
	Width, Height      float64
	Hidden             bool
	Disposed           bool
}

type fileEntry struct {
	atlas string
	data  SkeletonData
}

type viewState struct {
	info ViewInfo
}

// Bridge is a platform.NativeBridge implementing the native Spine runtime in
// memory.
type Bridge struct {
	mu        sync.Mutex
	files     map[string]fileEntry
	packaged  map[string]fileEntry
	skeletons map[int64]*skeletonState
	released  map[int64]bool
	nextID    int64
	views     map[int64]*viewState
	calls     []Call
	failNext  map[string]*platform.ChannelError
	holdLoads bool
	held      []func()
	streams   map[string]bool

	queue *eventQueue
}

// New creates a Bridge. Most tests want Install instead.
func New() *Bridge {
	return &Bridge{
		files:     make(map[string]fileEntry),
		packaged:  make(map[string]fileEntry),
		skeletons: make(map[int64]*skeletonState),
		released:  make(map[int64]bool),
		views:     make(map[int64]*viewState),
		failNext:  make(map[string]*platform.ChannelError),
		streams:   make(map[string]bool),
		queue:     newEventQueue(),
	}
}

// Install creates a Bridge, installs it as the platform bridge and tears
// everything down when the test ends.
func Install(t testing.TB) *Bridge {
	t.Helper()
	b := New()
	platform.SetupTestBridge(t.Cleanup)
	platform.SetNativeBridge(b)
	t.Cleanup(b.Close)
	return b
}

// AddFile makes a filesystem atlas/skeleton pair loadable.
func (b *Bridge) AddFile(atlas, skeleton string, data SkeletonData) {
	b.mu.Lock()
	b.files[skeleton] = fileEntry{atlas: atlas, data: data}
	b.mu.Unlock()
}

// AddAsset makes a packaged atlas/skeleton pair loadable from the bundle and
// the asset store.
func (b *Bridge) AddAsset(atlas, skeleton string, data SkeletonData) {
	b.mu.Lock()
	b.packaged[skeleton] = fileEntry{atlas: atlas, data: data}
	b.mu.Unlock()
}

// FailNext makes the next call of method fail with a native error.
func (b *Bridge) FailNext(method, code, message string) {
	b.mu.Lock()
	b.failNext[method] = platform.NewChannelError(code, message)
	b.mu.Unlock()
}

// HoldLoads delays loadFromFiles completions until CompleteLoads.
func (b *Bridge) HoldLoads() {
	b.mu.Lock()
	b.holdLoads = true
	b.mu.Unlock()
}

// CompleteLoads sends every held load completion and stops holding.
func (b *Bridge) CompleteLoads() {
	b.mu.Lock()
	held := b.held
	b.held = nil
	b.holdLoads = false
	b.mu.Unlock()
	for _, fn := range held {
		fn()
	}
}

// Flush waits until every emitted event has been delivered. It must not be
// called from a listener.
func (b *Bridge) Flush() {
	b.queue.flush()
}

// Close flushes and stops event delivery.
func (b *Bridge) Close() {
	b.queue.close()
}

// EmitViewEvent sends an event from the native view viewID.
func (b *Bridge) EmitViewEvent(viewID int64, method string, args map[string]any) {
	payload := map[string]any{"viewId": viewID, "method": method}
	for k, v := range args {
		payload[k] = v
	}
	b.emitOn(platformViewEventsChannel, payload)
}

// SetLifecycle reports an app lifecycle change such as "paused" or
// "resumed".
func (b *Bridge) SetLifecycle(state string) {
	b.emitOn(lifecycleEventsChannel, map[string]any{"state": state})
}

// Calls returns every recorded invocation.
func (b *Bridge) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// Count returns how many times method was called on drift/spine.
func (b *Bridge) Count(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c.Channel == spine.MethodChannelName && c.Method == method {
			n++
		}
	}
	return n
}

// ViewCount returns how many times a spine_view method was invoked.
func (b *Bridge) ViewCount(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c.Channel == platformViewsChannel && c.Method == "invokeViewMethod" && c.Args["method"] == method {
			n++
		}
	}
	return n
}

// Skeleton returns the state of a live skeleton.
func (b *Bridge) Skeleton(id int64) (SkeletonInfo, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.skeletons[id]
	if !ok {
		return SkeletonInfo{}, false
	}
	return SkeletonInfo{
		ID:        s.id,
		Skin:      s.skin,
		TimeScale: s.timeScale,
		Listening: s.listening,
		ViewID:    s.viewID,
		Deferred:  s.data.Deferred,
		Updates:   append([]float64(nil), s.updates...),
	}, true
}

// Released reports whether skeleton id was released.
func (b *Bridge) Released(id int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released[id]
}

// Live returns how many skeletons are loaded and not released.
func (b *Bridge) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.skeletons)
}

// View returns the state of a native view.
func (b *Bridge) View(viewID int64) (ViewInfo, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.views[viewID]
	if !ok {
		return ViewInfo{}, false
	}
	return v.info, true
}

// StreamActive reports whether native is streaming events on channel.
func (b *Bridge) StreamActive(channel string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.streams[channel]
}

// StartEventStream implements platform.NativeBridge.
func (b *Bridge) StartEventStream(channel string) error {
	b.mu.Lock()
	b.streams[channel] = true
	b.mu.Unlock()
	return nil
}

// StopEventStream implements platform.NativeBridge.
func (b *Bridge) StopEventStream(channel string) error {
	b.mu.Lock()
	b.streams[channel] = false
	b.mu.Unlock()
	return nil
}

// InvokeMethod implements platform.NativeBridge.
func (b *Bridge) InvokeMethod(channel, method string, argsData []byte) ([]byte, error) {
	var args map[string]any
	if len(argsData) > 0 {
		if err := json.Unmarshal(argsData, &args); err != nil {
			return nil, err
		}
	}

	b.mu.Lock()
	b.calls = append(b.calls, Call{Channel: channel, Method: method, Args: args})
	name := method
	if method == "invokeViewMethod" {
		name = platform.ParseString(args["method"])
	}
	if ce := b.failNext[name]; ce != nil {
		delete(b.failNext, name)
		b.mu.Unlock()
		return nil, ce
	}

	var res any
	var err error
	switch channel {
	case spine.MethodChannelName:
		res, err = b.spineCall(method, args)
	case platformViewsChannel:
		res, err = b.viewCall(method, args)
	default:
		err = platform.ErrChannelNotFound
	}
	b.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return json.Marshal(res)
}

func (b *Bridge) emitOn(channel string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("spinetest: encode event: %v", err))
	}
	b.queue.push(func() { _ = platform.HandleEvent(channel, data) })
}

func (b *Bridge) emitNotices(s *skeletonState) {
	for _, n := range s.drain() {
		b.emitOn(spine.EventChannelName, n)
	}
}

func notFound(kind, name string) error {
	ce := platform.NewChannelError("not_found", kind+" not found: "+name)
	ce.Details = map[string]any{"kind": kind, "name": name}
	return ce
}

func argInt(args map[string]any, key string) int {
	v, _ := platform.ToInt64(args[key])
	return int(v)
}

func argFloat(args map[string]any, key string) float64 {
	v, _ := platform.ToFloat64(args[key])
	return v
}

func (b *Bridge) newSkeleton(atlas, file string, data SkeletonData, args map[string]any) *skeletonState {
	b.nextID++
	s := newSkeletonState(b.nextID, atlas, file, data, argFloat(args, "defaultMix"))
	b.skeletons[s.id] = s
	return s
}

// live returns a skeleton that has animation state.
func (b *Bridge) live(id int64) (*skeletonState, error) {
	s, ok := b.skeletons[id]
	if !ok {
		return nil, notFound("skeleton", fmt.Sprint(id))
	}
	if s.data.Deferred && s.viewID == 0 {
		return nil, platform.NewChannelError("not_attached", "render surface not attached")
	}
	return s, nil
}

func (b *Bridge) spineCall(method string, args map[string]any) (any, error) {
	switch method {
	case "loadFromFiles":
		return b.loadFromFiles(args)
	case "loadFromBundle", "loadFromAssets":
		return b.loadPackaged(args)
	case "release":
		id, _ := platform.ToInt64(args["skeletonId"])
		if _, ok := b.skeletons[id]; ok {
			delete(b.skeletons, id)
			b.released[id] = true
		}
		return nil, nil
	}

	id, _ := platform.ToInt64(args["skeletonId"])
	s, err := b.live(id)
	if err != nil {
		return nil, err
	}
	defer b.emitNotices(s)

	switch method {
	case "setAnimation", "addAnimation":
		name := platform.ParseString(args["animation"])
		if !s.hasAnimation(name) {
			return nil, notFound("animation", name)
		}
		track, loop := argInt(args, "trackIndex"), platform.ParseBool(args["loop"])
		if method == "setAnimation" {
			return s.setAnimation(track, name, loop).wire(), nil
		}
		return s.addAnimation(track, name, loop, argFloat(args, "delay")).wire(), nil
	case "setSkin":
		name := platform.ParseString(args["skin"])
		if !containsString(s.data.Skins, name) {
			return nil, notFound("skin", name)
		}
		s.skin = name
	case "setTimeScale":
		s.timeScale = argFloat(args, "timeScale")
	case "clearTrack":
		s.clearTrack(argInt(args, "trackIndex"))
	case "clearTracks":
		s.clearTracks()
	case "update":
		s.update(argFloat(args, "deltaTime"))
	case "getCurrent":
		if e := s.current(argInt(args, "trackIndex")); e != nil {
			return e.wire(), nil
		}
	case "getPose":
		return s.pose(), nil
	case "setListening":
		s.listening = platform.ParseBool(args["enabled"])
	default:
		return nil, platform.ErrMethodNotFound
	}
	return nil, nil
}

func (b *Bridge) loadFromFiles(args map[string]any) (any, error) {
	requestID := platform.ParseString(args["requestId"])
	atlas := platform.ParseString(args["atlasFile"])
	file := platform.ParseString(args["skeletonFile"])

	payload := map[string]any{"requestId": requestID}
	fe, ok := b.files[file]
	switch {
	case !ok || fe.atlas != atlas:
		payload["type"] = "loadFailed"
		payload["code"] = "io"
		payload["message"] = "cannot read " + file
	case fe.data.Corrupt:
		payload["type"] = "loadFailed"
		payload["code"] = "load_failed"
		payload["message"] = "corrupt skeleton data"
	default:
		s := b.newSkeleton(atlas, file, fe.data, args)
		payload["type"] = "loaded"
		payload["skeletonId"] = s.id
		payload["skeleton"] = s.descriptor(false)
	}

	complete := func() { b.emitOn(spine.EventChannelName, payload) }
	if b.holdLoads {
		b.held = append(b.held, complete)
	} else {
		complete()
	}
	return map[string]any{"accepted": true}, nil
}

func (b *Bridge) loadPackaged(args map[string]any) (any, error) {
	atlas := platform.ParseString(args["atlasPath"])
	file := platform.ParseString(args["skeletonPath"])
	fe, ok := b.packaged[file]
	switch {
	case !ok || fe.atlas != atlas:
		return nil, platform.NewChannelError("io", "no packaged resource "+file)
	case fe.data.Corrupt:
		return nil, platform.NewChannelError("load_failed", "corrupt skeleton data")
	}
	return b.newSkeleton(atlas, file, fe.data, args).descriptor(false), nil
}

func (b *Bridge) viewCall(method string, args map[string]any) (any, error) {
	viewID, _ := platform.ToInt64(args["viewId"])
	switch method {
	case "create":
		params := platform.ParseMap(args["params"])
		b.views[viewID] = &viewState{info: ViewInfo{
			ID:                 viewID,
			PremultipliedAlpha: platform.ParseBool(params["premultipliedAlpha"]),
			Debug:              platform.ParseBool(params["debug"]),
		}}
		return nil, nil
	case "dispose":
		if v, ok := b.views[viewID]; ok {
			b.detach(v)
			v.info.Disposed = true
		}
		return nil, nil
	case "setGeometry":
		if v, ok := b.views[viewID]; ok {
			v.info.X, _ = platform.ToFloat64(args["x"])
			v.info.Y, _ = platform.ToFloat64(args["y"])
			v.info.Width, _ = platform.ToFloat64(args["width"])
			v.info.Height, _ = platform.ToFloat64(args["height"])
		}
		return nil, nil
	case "setVisible":
		if v, ok := b.views[viewID]; ok {
			v.info.Hidden = !platform.ParseBool(args["visible"])
		}
		return nil, nil
	case "invokeViewMethod":
		v, ok := b.views[viewID]
		if !ok || v.info.Disposed {
			return nil, notFound("view", fmt.Sprint(viewID))
		}
		return b.viewMethod(v, platform.ParseString(args["method"]), args)
	default:
		return nil, platform.ErrMethodNotFound
	}
}

func (b *Bridge) viewMethod(v *viewState, method string, args map[string]any) (any, error) {
	switch method {
	case "attach":
		atlas := platform.ParseString(args["atlasFile"])
		file := platform.ParseString(args["skeletonFile"])
		if atlas == "" || file == "" {
			return map[string]any{"attached": false}, nil
		}
		id, _ := platform.ToInt64(args["skeletonId"])
		s, ok := b.skeletons[id]
		if !ok {
			return nil, notFound("skeleton", fmt.Sprint(id))
		}
		b.detach(v)
		s.viewID = v.info.ID
		v.info.SkeletonID = id
		return map[string]any{"attached": true, "skeleton": s.descriptor(true)}, nil
	case "detach":
		b.detach(v)
	case "setPremultipliedAlpha":
		v.info.PremultipliedAlpha = platform.ParseBool(args["value"])
	case "setDebug":
		v.info.Debug = platform.ParseBool(args["value"])
	case "invalidate":
		v.info.Invalidations++
	default:
		return nil, platform.ErrMethodNotFound
	}
	return nil, nil
}

func (b *Bridge) detach(v *viewState) {
	if s, ok := b.skeletons[v.info.SkeletonID]; ok {
		s.viewID = 0
		if s.data.Deferred {
			s.resetState()
		}
	}
	v.info.SkeletonID = 0
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
