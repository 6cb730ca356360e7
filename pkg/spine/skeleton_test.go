package spine_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/drift-spine/pkg/platform"
	"github.com/go-drift/drift-spine/pkg/spine"
	"github.com/go-drift/drift-spine/pkg/spine/spinetest"
)

func TestSkeletonMetadata(t *testing.T) {
	e := newEnv(t)
	s := e.load(t)

	assert.Equal(t, atlasPath, s.AtlasFile())
	assert.Equal(t, skelPath, s.SkeletonFile())
	assert.Equal(t, spine.FormatBinary, s.Format())
	assert.False(t, s.Deferred())
	assert.Equal(t, 470.0, s.Width())
	assert.Equal(t, 640.0, s.Height())
	assert.Equal(t, "default", s.DefaultSkin())
	assert.Equal(t, []string{"default", "goblin"}, s.Skins())
	assert.Contains(t, s.Animations(), "walk")
	assert.Equal(t, []string{"root", "hip", "torso", "head"}, s.Bones())
	assert.Equal(t, []string{"body", "head", "eyes"}, s.Slots())

	m := s.Metadata()
	m.Animations[0] = "mutated"
	m.Skins = nil
	assert.Equal(t, spinetest.Spineboy().Animations, s.Animations())
	assert.Equal(t, []string{"default", "goblin"}, s.Skins())
}

func TestSetSkin(t *testing.T) {
	e := newEnv(t)
	s := e.load(t)

	require.NoError(t, s.SetSkin("goblin"))
	pose, err := s.Pose()
	require.NoError(t, err)
	assert.Equal(t, "goblin", pose.Skin)

	err = s.SetSkin("missing")
	var nf *spine.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "skin", nf.Kind)
	assert.Equal(t, "missing", nf.Name)

	pose, err = s.Pose()
	require.NoError(t, err)
	assert.Equal(t, "goblin", pose.Skin)
	assert.Equal(t, 1, e.bridge.Count("setSkin"))
}

func TestSetAnimationAndClearTrack(t *testing.T) {
	e := newEnv(t)
	s := e.load(t)

	entry, err := s.SetAnimation(0, "walk", true)
	require.NoError(t, err)
	assert.Equal(t, spine.TrackEntry{TrackIndex: 0, Animation: "walk", Loop: true, TimeScale: 1}, entry)

	cur, ok, err := s.Current(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "walk", cur.Animation)

	require.NoError(t, s.ClearTrack(0))
	_, ok, err = s.Current(0)
	require.NoError(t, err)
	assert.False(t, ok)

	// Clearing an empty track is fine.
	require.NoError(t, s.ClearTrack(3))
}

func TestUnknownAnimation(t *testing.T) {
	e := newEnv(t)
	s := e.load(t)

	_, err := s.SetAnimation(0, "fly", false)
	var nf *spine.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, spine.NotFoundError{Kind: "animation", Name: "fly"}, *nf)

	_, ok, err := s.Current(0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNegativeTrack(t *testing.T) {
	e := newEnv(t)
	s := e.load(t)

	_, err := s.SetAnimation(-1, "walk", true)
	assert.ErrorIs(t, err, spine.ErrInvalidTrack)
	assert.ErrorIs(t, err, platform.ErrInvalidArguments)
	assert.ErrorIs(t, s.ClearTrack(-2), spine.ErrInvalidTrack)
	assert.Zero(t, e.bridge.Count("setAnimation"))
}

func TestUpdateZeroKeepsPose(t *testing.T) {
	e := newEnv(t)
	s := e.load(t)

	_, err := s.SetAnimation(0, "walk", true)
	require.NoError(t, err)
	require.NoError(t, s.Update(0.3))

	before, err := s.Pose()
	require.NoError(t, err)
	require.NoError(t, s.Update(0))
	after, err := s.Pose()
	require.NoError(t, err)
	assert.Equal(t, before, after)

	require.NoError(t, s.Update(0.1))
	moved, err := s.Pose()
	require.NoError(t, err)
	assert.NotEqual(t, before, moved)

	head, ok := moved.Bone("head")
	require.True(t, ok)
	assert.Equal(t, 1.0, head.ScaleX)
}

func TestTimeScaleAndClearTracks(t *testing.T) {
	e := newEnv(t)
	s := e.load(t)

	require.NoError(t, s.SetTimeScale(2))
	_, err := s.SetAnimation(0, "idle", true)
	require.NoError(t, err)
	_, err = s.SetAnimation(1, "jump", false)
	require.NoError(t, err)

	info, ok := e.bridge.Skeleton(s.ID())
	require.True(t, ok)
	assert.Equal(t, 2.0, info.TimeScale)

	require.NoError(t, s.ClearTracks())
	for _, track := range []int{0, 1} {
		_, ok, err := s.Current(track)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestListenerOrder(t *testing.T) {
	e := newEnv(t)
	s := e.load(t)
	rec := &spinetest.Recorder{}
	require.NoError(t, s.SetAnimationStateListener(rec.Listener()))

	_, err := s.SetAnimation(0, "Walk", true)
	require.NoError(t, err)
	_, err = s.SetAnimation(0, "Run", true)
	require.NoError(t, err)
	e.bridge.Flush()

	assert.Equal(t, []string{"start Walk", "interrupt Walk", "start Run"}, rec.Events())

	// Walk ends once the default mix has elapsed.
	rec.Reset()
	require.NoError(t, s.Update(0.3))
	e.bridge.Flush()
	assert.Equal(t, []string{"end Walk", "dispose Walk"}, rec.Events())

	rec.Reset()
	require.NoError(t, s.ClearTrack(0))
	e.bridge.Flush()
	assert.Equal(t, []string{"end Run", "dispose Run"}, rec.Events())
}

func TestListenerCompleteAndEvents(t *testing.T) {
	e := newEnv(t)
	s := e.load(t)
	rec := &spinetest.Recorder{}

	var got []spine.Event
	l := rec.Listener()
	record := l.OnAnimationEvent
	l.OnAnimationEvent = func(entry spine.TrackEntry, ev spine.Event) {
		got = append(got, ev)
		record(entry, ev)
	}
	require.NoError(t, s.SetAnimationStateListener(l))

	_, err := s.SetAnimation(0, "jump", false)
	require.NoError(t, err)
	require.NoError(t, s.Update(0.6))
	require.NoError(t, s.Update(0.7))
	e.bridge.Flush()

	assert.Equal(t, []string{"start jump", "event footstep jump", "complete jump"}, rec.Events())
	require.Len(t, got, 1)
	assert.Equal(t, spine.Event{Name: "footstep", IntValue: 1, FloatValue: 0.5, StringValue: "left"}, got[0])
}

func TestAddAnimationQueues(t *testing.T) {
	e := newEnv(t)
	s := e.load(t)
	rec := &spinetest.Recorder{}
	require.NoError(t, s.SetAnimationStateListener(rec.Listener()))

	_, err := s.SetAnimation(0, "idle", true)
	require.NoError(t, err)
	_, err = s.AddAnimation(0, "walk", false, 0)
	require.NoError(t, err)

	cur, _, err := s.Current(0)
	require.NoError(t, err)
	assert.Equal(t, "idle", cur.Animation)

	// idle lasts 1s and the mix is 0.25s, so walk starts at 0.75s.
	require.NoError(t, s.Update(0.8))
	cur, _, err = s.Current(0)
	require.NoError(t, err)
	assert.Equal(t, "walk", cur.Animation)
	assert.Equal(t, 0.25, cur.MixDuration)

	e.bridge.Flush()
	assert.Equal(t, []string{"start idle", "interrupt idle", "start walk"}, rec.Events())
}

func TestAddAnimationNegativeDelayOverlaps(t *testing.T) {
	e := newEnv(t)
	s := e.load(t)
	rec := &spinetest.Recorder{}
	require.NoError(t, s.SetAnimationStateListener(rec.Listener()))

	_, err := s.SetAnimation(0, "walk", true)
	require.NoError(t, err)
	entry, err := s.AddAnimation(0, "run", false, -0.2)
	require.NoError(t, err)
	assert.Equal(t, 0.25, entry.MixDuration)

	// walk lasts 0.8s: run starts 0.2s early and mixes for 0.25s, at 0.35s.
	require.NoError(t, s.Update(0.3))
	cur, _, err := s.Current(0)
	require.NoError(t, err)
	assert.Equal(t, "walk", cur.Animation)
	e.bridge.Flush()
	assert.Equal(t, []string{"start walk"}, rec.Events())

	require.NoError(t, s.Update(0.1))
	cur, _, err = s.Current(0)
	require.NoError(t, err)
	assert.Equal(t, "run", cur.Animation)
	e.bridge.Flush()
	assert.Equal(t, []string{"start walk", "interrupt walk", "start run"}, rec.Events())
}

func TestAddAnimationOnEmptyTrackStartsImmediately(t *testing.T) {
	e := newEnv(t)
	s := e.load(t)

	entry, err := s.AddAnimation(2, "run", true, 0.5)
	require.NoError(t, err)
	assert.Zero(t, entry.MixDuration)

	cur, ok, err := s.Current(2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "run", cur.Animation)
}

func TestRemovingListenerStopsNotifications(t *testing.T) {
	e := newEnv(t)
	s := e.load(t)
	rec := &spinetest.Recorder{}
	require.NoError(t, s.SetAnimationStateListener(rec.Listener()))
	require.NoError(t, s.SetAnimationStateListener(nil))

	_, err := s.SetAnimation(0, "walk", true)
	require.NoError(t, err)
	e.bridge.Flush()

	assert.Empty(t, rec.Events())
	info, _ := e.bridge.Skeleton(s.ID())
	assert.False(t, info.Listening)
}

func TestListenerPanicIsRecovered(t *testing.T) {
	e := newEnv(t)
	reports := captureErrors(t)
	s := e.load(t)

	rec := &spinetest.Recorder{}
	l := rec.Listener()
	l.OnAnimationStart = func(spine.TrackEntry) { panic("listener bug") }
	require.NoError(t, s.SetAnimationStateListener(l))

	_, err := s.SetAnimation(0, "Walk", true)
	require.NoError(t, err)
	_, err = s.SetAnimation(0, "Run", true)
	require.NoError(t, err)
	e.bridge.Flush()

	assert.Equal(t, []string{"interrupt Walk"}, rec.Events())
	panics := reports.panicked()
	require.Len(t, panics, 2)
	assert.Equal(t, "Listener.OnAnimationStart", panics[0].Op)
}

func TestRelease(t *testing.T) {
	e := newEnv(t)
	s := e.load(t)
	id := s.ID()

	require.NoError(t, s.Release())
	require.NoError(t, s.Release())
	assert.True(t, s.Released())
	assert.True(t, e.bridge.Released(id))
	assert.Equal(t, 1, e.bridge.Count("release"))
	assert.Empty(t, e.factory.Skeletons())

	_, err := s.SetAnimation(0, "walk", true)
	var ae *spine.AttachmentError
	require.ErrorAs(t, err, &ae)
	assert.True(t, errors.Is(err, spine.ErrReleased))
	assert.ErrorIs(t, s.SetAnimationStateListener(&spine.Listener{}), spine.ErrReleased)
}
