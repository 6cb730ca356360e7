package spine

import (
	"slices"
	"sync"

	"github.com/go-drift/drift-spine/pkg/errors"
)

// Skeleton is a loaded atlas and skeleton pair together with its live pose and
// animation state, which the native runtime owns.
//
// Metadata accessors return copies and never change once known. A deferred
// skeleton only gets native state when first attached to a View: until then
// its metadata is empty and mutations fail with an AttachmentError.
//
// A Skeleton may be attached to at most one View at a time.
type Skeleton struct {
	rt           Runtime
	id           int64
	atlasFile    string
	skeletonFile string
	format       Format
	deferred     bool

	mu          sync.Mutex
	meta        Metadata
	metaReady   bool
	viewID      int64
	listener    *Listener
	released    bool
	unsubscribe func()
	onRelease   func(*Skeleton)
}

func newSkeleton(rt Runtime, d Descriptor, req LoadRequest) *Skeleton {
	s := &Skeleton{
		rt:           rt,
		id:           d.ID,
		atlasFile:    d.AtlasFile,
		skeletonFile: d.SkeletonFile,
		format:       req.Format,
		deferred:     d.Deferred,
		meta:         d.Metadata.clone(),
		metaReady:    !d.Deferred || !d.Metadata.empty(),
	}
	if s.atlasFile == "" {
		s.atlasFile = req.Atlas
	}
	if s.skeletonFile == "" {
		s.skeletonFile = req.Skeleton
	}
	s.unsubscribe = rt.Subscribe(d.ID, s.dispatch)
	return s
}

// ID returns the runtime's handle for this skeleton.
func (s *Skeleton) ID() int64 { return s.id }

// AtlasFile returns the atlas path the skeleton was loaded from.
func (s *Skeleton) AtlasFile() string { return s.atlasFile }

// SkeletonFile returns the skeleton path the skeleton was loaded from.
func (s *Skeleton) SkeletonFile() string { return s.skeletonFile }

// Format returns the skeleton file format.
func (s *Skeleton) Format() Format { return s.format }

// Deferred reports whether native state is only created on attach.
func (s *Skeleton) Deferred() bool { return s.deferred }

// Metadata returns a copy of the skeleton data description, or the zero value
// while a deferred skeleton has never been attached.
func (s *Skeleton) Metadata() Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.metaReady {
		return Metadata{}
	}
	m := s.meta.clone()
	if m.DefaultSkin == "" {
		m.DefaultSkin = "default"
	}
	return m
}

// Width returns the setup-pose bounds width.
func (s *Skeleton) Width() float64 { return s.Metadata().Width }

// Height returns the setup-pose bounds height.
func (s *Skeleton) Height() float64 { return s.Metadata().Height }

// DefaultSkin returns the skin applied at load, "default" when unset.
func (s *Skeleton) DefaultSkin() string { return s.Metadata().DefaultSkin }

// Skins returns the skin names.
func (s *Skeleton) Skins() []string { return s.Metadata().Skins }

// Animations returns the animation names.
func (s *Skeleton) Animations() []string { return s.Metadata().Animations }

// Bones returns the bone names.
func (s *Skeleton) Bones() []string { return s.Metadata().Bones }

// Slots returns the slot names.
func (s *Skeleton) Slots() []string { return s.Metadata().Slots }

// Attached reports whether the skeleton is attached to a View.
func (s *Skeleton) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewID != 0
}

// Released reports whether Release has been called.
func (s *Skeleton) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// ready checks that the skeleton has live animation state.
func (s *Skeleton) ready(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return &AttachmentError{Op: op, Err: ErrReleased}
	}
	if s.deferred && s.viewID == 0 {
		return &AttachmentError{Op: op, Err: ErrNotAttached}
	}
	return nil
}

func (s *Skeleton) readyTrack(op string, track int) error {
	if err := s.ready(op); err != nil {
		return err
	}
	if track < 0 {
		return ErrInvalidTrack
	}
	return nil
}

// SetAnimation replaces the animation on track. The displaced entry is
// interrupted and mixed out.
func (s *Skeleton) SetAnimation(track int, name string, loop bool) (TrackEntry, error) {
	if err := s.readyTrack(methodSetAnimation, track); err != nil {
		return TrackEntry{}, err
	}
	return s.rt.SetAnimation(s.id, track, name, loop)
}

// AddAnimation queues name after the track's last entry. A delay <= 0 is
// relative to the end of that entry; negative values overlap it.
func (s *Skeleton) AddAnimation(track int, name string, loop bool, delay float64) (TrackEntry, error) {
	if err := s.readyTrack(methodAddAnimation, track); err != nil {
		return TrackEntry{}, err
	}
	return s.rt.AddAnimation(s.id, track, name, loop, delay)
}

// SetSkin switches the pose to the named skin and resets slots to their
// setup attachments. Unknown names fail with a NotFoundError and leave the
// current skin in place.
func (s *Skeleton) SetSkin(name string) error {
	if err := s.ready(methodSetSkin); err != nil {
		return err
	}
	s.mu.Lock()
	known := !s.metaReady || slices.Contains(s.meta.Skins, name)
	s.mu.Unlock()
	if !known {
		return &NotFoundError{Kind: "skin", Name: name}
	}
	return s.rt.SetSkin(s.id, name)
}

// SetTimeScale scales every later Update delta on all tracks.
func (s *Skeleton) SetTimeScale(scale float64) error {
	if err := s.ready(methodSetTimeScale); err != nil {
		return err
	}
	return s.rt.SetTimeScale(s.id, scale)
}

// ClearTrack removes the current and queued entries of one track. Clearing an
// empty track is a no-op.
func (s *Skeleton) ClearTrack(track int) error {
	if err := s.readyTrack(methodClearTrack, track); err != nil {
		return err
	}
	return s.rt.ClearTrack(s.id, track)
}

// ClearTracks removes every entry on every track.
func (s *Skeleton) ClearTracks() error {
	if err := s.ready(methodClearTracks); err != nil {
		return err
	}
	return s.rt.ClearTracks(s.id)
}

// Update advances the animation state by delta seconds and applies it to the
// pose. delta must not be negative.
func (s *Skeleton) Update(delta float64) error {
	if err := s.ready(methodUpdate); err != nil {
		return err
	}
	return s.rt.Update(s.id, delta)
}

// Current returns the entry playing on track. ok is false for an empty track.
func (s *Skeleton) Current(track int) (entry TrackEntry, ok bool, err error) {
	if err := s.readyTrack(methodGetCurrent, track); err != nil {
		return TrackEntry{}, false, err
	}
	return s.rt.Current(s.id, track)
}

// Pose returns the current bone transforms.
func (s *Skeleton) Pose() (Pose, error) {
	if err := s.ready(methodGetPose); err != nil {
		return Pose{}, err
	}
	return s.rt.Pose(s.id)
}

// SetAnimationStateListener replaces the skeleton's listener. nil removes it
// and turns native notifications off. A listener set on a deferred skeleton
// before it is attached takes effect on attach.
func (s *Skeleton) SetAnimationStateListener(l *Listener) error {
	var stored *Listener
	if l != nil {
		c := *l
		stored = &c
	}

	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return &AttachmentError{Op: methodSetListening, Err: ErrReleased}
	}
	s.listener = stored
	live := !s.deferred || s.viewID != 0
	s.mu.Unlock()

	if !live {
		return nil
	}
	return s.rt.SetListening(s.id, stored != nil)
}

// Release frees the skeleton's native resources, detaching it from its view
// first. Releasing twice is a no-op.
func (s *Skeleton) Release() error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return nil
	}
	s.released = true
	s.mu.Unlock()

	if v := attachments.viewOf(s.id); v != nil {
		v.detachSkeleton(s)
	}
	s.unsubscribe()
	err := s.rt.Release(s.id)

	s.mu.Lock()
	s.listener = nil
	onRelease := s.onRelease
	s.mu.Unlock()
	if onRelease != nil {
		onRelease(s)
	}
	return err
}

// bind records the attach and, for deferred skeletons, fills the metadata
// and re-registers a pending listener.
func (s *Skeleton) bind(viewID int64, d Descriptor) {
	s.mu.Lock()
	s.viewID = viewID
	if !s.metaReady && !d.Metadata.empty() {
		s.meta = d.Metadata.clone()
		s.metaReady = true
	}
	relisten := s.deferred && s.listener != nil
	s.mu.Unlock()

	if !relisten {
		return
	}
	if err := s.rt.SetListening(s.id, true); err != nil {
		errors.Report(&errors.SpineError{
			Op:         "Skeleton.bind",
			Kind:       errors.KindAttachment,
			SkeletonID: s.id,
			ViewID:     viewID,
			Err:        err,
		})
	}
}

func (s *Skeleton) unbind() {
	s.mu.Lock()
	s.viewID = 0
	s.mu.Unlock()
}

// dispatch delivers one notification to the listener. A panicking callback
// is reported and does not stop later notifications.
func (s *Skeleton) dispatch(ev StateEvent) {
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	if l == nil {
		return
	}

	var fn func(TrackEntry)
	var op string
	switch ev.Type {
	case EventStart:
		fn, op = l.OnAnimationStart, "Listener.OnAnimationStart"
	case EventInterrupt:
		fn, op = l.OnAnimationInterrupt, "Listener.OnAnimationInterrupt"
	case EventEnd:
		fn, op = l.OnAnimationEnd, "Listener.OnAnimationEnd"
	case EventComplete:
		fn, op = l.OnAnimationComplete, "Listener.OnAnimationComplete"
	case EventDispose:
		fn, op = l.OnAnimationDispose, "Listener.OnAnimationDispose"
	case EventTimeline:
		if l.OnAnimationEvent != nil {
			defer errors.Recover("Listener.OnAnimationEvent")
			l.OnAnimationEvent(ev.Entry, ev.Event)
		}
		return
	}
	if fn != nil {
		defer errors.Recover(op)
		fn(ev.Entry)
	}
}
