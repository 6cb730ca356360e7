package spine

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/go-drift/drift-spine/pkg/errors"
	"github.com/go-drift/drift-spine/pkg/logger"
	"github.com/go-drift/drift-spine/pkg/platform"
)

var (
	service     *spineService
	serviceOnce sync.Once
)

// spineService owns the drift/spine channels. Every ChannelRuntime shares it,
// and its single event listener routes notifications by skeleton id and load
// completions by request id.
type spineService struct {
	channel *platform.MethodChannel
	events  *platform.Stream[wireEvent]

	mu          sync.Mutex
	subscribers map[int64]*subscriber
	pending     map[string]chan loadOutcome
	abandoned   map[string]struct{}
}

type subscriber struct {
	fn func(StateEvent)
}

type loadOutcome struct {
	desc Descriptor
	err  error
}

func ensureService() *spineService {
	serviceOnce.Do(func() {
		svc := &spineService{
			channel: platform.NewMethodChannel(MethodChannelName),
			events:  platform.NewStream(platform.NewEventChannel(EventChannelName), parseWireEvent),
		}
		svc.clear()
		svc.listen()
		platform.RegisterResetHook(svc.reset)
		service = svc
	})
	return service
}

func (s *spineService) clear() {
	s.mu.Lock()
	pending := s.pending
	s.subscribers = make(map[int64]*subscriber)
	s.pending = make(map[string]chan loadOutcome)
	s.abandoned = make(map[string]struct{})
	s.mu.Unlock()

	for _, ch := range pending {
		ch <- loadOutcome{err: platform.ErrClosed}
	}
}

func (s *spineService) reset() {
	s.clear()
	s.listen()
}

func (s *spineService) listen() {
	s.events.Listen(s.handle)
}

func (s *spineService) handle(ev wireEvent) {
	switch ev.Type {
	case eventLoaded, eventLoadFailed:
		s.complete(ev)
	default:
		s.mu.Lock()
		sub := s.subscribers[ev.SkeletonID]
		s.mu.Unlock()
		if sub == nil {
			return
		}
		// Listener callbacks run on the UI thread when the host provides one.
		state := ev.State
		if !platform.Dispatch(func() { sub.fn(state) }) {
			sub.fn(state)
		}
	}
}

func (s *spineService) complete(ev wireEvent) {
	s.mu.Lock()
	ch, waiting := s.pending[ev.RequestID]
	delete(s.pending, ev.RequestID)
	_, orphan := s.abandoned[ev.RequestID]
	delete(s.abandoned, ev.RequestID)
	s.mu.Unlock()

	out := loadOutcome{desc: ev.Skeleton}
	if ev.Type == eventLoadFailed {
		out = loadOutcome{err: nativeError(methodLoadFromFiles, platform.NewChannelError(ev.Code, ev.Message))}
	}

	switch {
	case waiting:
		ch <- out
	case orphan && out.err == nil:
		// The caller gave up; nobody will ever release this skeleton.
		logger.L.WithField("skeleton_id", out.desc.ID).Debug("releasing skeleton loaded after cancellation")
		s.release(out.desc.ID)
	case !orphan:
		logger.L.WithField("request_id", ev.RequestID).Warn("load completion for unknown request")
	}
}

func (s *spineService) addPending(id string, ch chan loadOutcome) {
	s.mu.Lock()
	s.pending[id] = ch
	s.mu.Unlock()
}

func (s *spineService) dropPending(id string) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

// abandon marks a pending load as given up. It returns false when the
// completion has already been delivered.
func (s *spineService) abandon(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[id]; !ok {
		return false
	}
	delete(s.pending, id)
	s.abandoned[id] = struct{}{}
	return true
}

func (s *spineService) release(id int64) {
	if _, err := s.channel.Invoke(methodRelease, map[string]any{"skeletonId": id}); err != nil {
		errors.Report(&errors.SpineError{
			Op:         "spine.release",
			Kind:       errors.KindPlatform,
			Channel:    MethodChannelName,
			SkeletonID: id,
			Err:        err,
		})
	}
}

func (s *spineService) subscribe(id int64, fn func(StateEvent)) func() {
	sub := &subscriber{fn: fn}
	s.mu.Lock()
	s.subscribers[id] = sub
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		if s.subscribers[id] == sub {
			delete(s.subscribers, id)
		}
		s.mu.Unlock()
	}
}

// ChannelRuntime talks to the native Spine runtime over the drift/spine
// platform channels.
type ChannelRuntime struct {
	svc *spineService
}

// NewChannelRuntime returns a runtime backed by the platform channels. All
// channel runtimes share one set of channels.
func NewChannelRuntime() *ChannelRuntime {
	return &ChannelRuntime{svc: ensureService()}
}

func (r *ChannelRuntime) invoke(method string, args map[string]any) (any, error) {
	res, err := r.svc.channel.Invoke(method, args)
	if err != nil {
		return nil, nativeError(method, err)
	}
	return res, nil
}

// LoadFromFiles implements Runtime. The native side acknowledges the request
// and reports completion on the event channel under the same request id.
func (r *ChannelRuntime) LoadFromFiles(ctx context.Context, req LoadRequest) (Descriptor, error) {
	id := uuid.NewString()
	done := make(chan loadOutcome, 1)
	r.svc.addPending(id, done)

	args := encodeLoadRequest(req, false)
	args["requestId"] = id
	if _, err := r.invoke(methodLoadFromFiles, args); err != nil {
		r.svc.dropPending(id)
		return Descriptor{}, loadError(req, err)
	}

	select {
	case out := <-done:
		if out.err != nil {
			return Descriptor{}, loadError(req, out.err)
		}
		return out.desc, nil
	case <-ctx.Done():
		if !r.svc.abandon(id) {
			if out := <-done; out.err == nil {
				r.svc.release(out.desc.ID)
			}
		}
		return Descriptor{}, loadError(req, ctx.Err())
	}
}

// LoadFromBundle implements Runtime.
func (r *ChannelRuntime) LoadFromBundle(req LoadRequest) (Descriptor, error) {
	return r.loadPackaged(methodLoadFromBundle, req)
}

// LoadFromAssets implements Runtime.
func (r *ChannelRuntime) LoadFromAssets(req LoadRequest) (Descriptor, error) {
	return r.loadPackaged(methodLoadFromAssets, req)
}

func (r *ChannelRuntime) loadPackaged(method string, req LoadRequest) (Descriptor, error) {
	res, err := r.invoke(method, encodeLoadRequest(req, true))
	if err != nil {
		return Descriptor{}, loadError(req, err)
	}
	d, ok := parseDescriptor(res)
	if !ok {
		return Descriptor{}, loadError(req, &errors.ParseError{Channel: MethodChannelName, DataType: "skeleton descriptor", Got: res})
	}
	return d, nil
}

// Release implements Runtime.
func (r *ChannelRuntime) Release(id int64) error {
	_, err := r.invoke(methodRelease, map[string]any{"skeletonId": id})
	return err
}

// SetAnimation implements Runtime.
func (r *ChannelRuntime) SetAnimation(id int64, track int, name string, loop bool) (TrackEntry, error) {
	return r.entry(methodSetAnimation, map[string]any{
		"skeletonId": id,
		"trackIndex": track,
		"animation":  name,
		"loop":       loop,
	})
}

// AddAnimation implements Runtime.
func (r *ChannelRuntime) AddAnimation(id int64, track int, name string, loop bool, delay float64) (TrackEntry, error) {
	return r.entry(methodAddAnimation, map[string]any{
		"skeletonId": id,
		"trackIndex": track,
		"animation":  name,
		"loop":       loop,
		"delay":      delay,
	})
}

func (r *ChannelRuntime) entry(method string, args map[string]any) (TrackEntry, error) {
	res, err := r.invoke(method, args)
	if err != nil {
		return TrackEntry{}, err
	}
	entry, ok := parseTrackEntry(res)
	if !ok {
		return TrackEntry{}, &errors.ParseError{Channel: MethodChannelName, DataType: "track entry", Got: res}
	}
	return entry, nil
}

// SetSkin implements Runtime.
func (r *ChannelRuntime) SetSkin(id int64, skin string) error {
	_, err := r.invoke(methodSetSkin, map[string]any{"skeletonId": id, "skin": skin})
	return err
}

// SetTimeScale implements Runtime.
func (r *ChannelRuntime) SetTimeScale(id int64, scale float64) error {
	_, err := r.invoke(methodSetTimeScale, map[string]any{"skeletonId": id, "timeScale": scale})
	return err
}

// ClearTrack implements Runtime.
func (r *ChannelRuntime) ClearTrack(id int64, track int) error {
	_, err := r.invoke(methodClearTrack, map[string]any{"skeletonId": id, "trackIndex": track})
	return err
}

// ClearTracks implements Runtime.
func (r *ChannelRuntime) ClearTracks(id int64) error {
	_, err := r.invoke(methodClearTracks, map[string]any{"skeletonId": id})
	return err
}

// Update implements Runtime.
func (r *ChannelRuntime) Update(id int64, delta float64) error {
	_, err := r.invoke(methodUpdate, map[string]any{"skeletonId": id, "deltaTime": delta})
	return err
}

// Current implements Runtime.
func (r *ChannelRuntime) Current(id int64, track int) (TrackEntry, bool, error) {
	res, err := r.invoke(methodGetCurrent, map[string]any{"skeletonId": id, "trackIndex": track})
	if err != nil || res == nil {
		return TrackEntry{}, false, err
	}
	entry, ok := parseTrackEntry(res)
	return entry, ok, nil
}

// Pose implements Runtime.
func (r *ChannelRuntime) Pose(id int64) (Pose, error) {
	res, err := r.invoke(methodGetPose, map[string]any{"skeletonId": id})
	if err != nil {
		return Pose{}, err
	}
	return parsePose(res), nil
}

// SetListening implements Runtime.
func (r *ChannelRuntime) SetListening(id int64, enabled bool) error {
	_, err := r.invoke(methodSetListening, map[string]any{"skeletonId": id, "enabled": enabled})
	return err
}

// Subscribe implements Runtime.
func (r *ChannelRuntime) Subscribe(id int64, fn func(StateEvent)) func() {
	return r.svc.subscribe(id, fn)
}
