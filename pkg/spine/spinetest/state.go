package spinetest

import (
	"math"
	"slices"
	"sort"
)

// entry is one animation assignment in the fake animation state.
type entry struct {
	track     int
	anim      string
	loop      bool
	mix       float64
	timeScale float64
	delay     float64
	trackTime float64
	mixTime   float64
	from      *entry
}

func (e *entry) wire() map[string]any {
	return map[string]any{
		"trackIndex":  e.track,
		"animation":   e.anim,
		"loop":        e.loop,
		"mixDuration": e.mix,
		"timeScale":   e.timeScale,
	}
}

type trackState struct {
	current *entry
	queue   []*entry
}

// skeletonState is a small stand-in for the native skeleton and animation
// state. It follows the runtime's callback order: interrupt before start,
// end and dispose once a mix finishes, end and dispose on clear.
type skeletonState struct {
	id         int64
	data       SkeletonData
	atlas      string
	file       string
	skin       string
	timeScale  float64
	defaultMix float64
	tracks     map[int]*trackState
	listening  bool
	viewID     int64
	updates    []float64
	notices    []map[string]any
}

func newSkeletonState(id int64, atlas, file string, data SkeletonData, defaultMix float64) *skeletonState {
	return &skeletonState{
		id:         id,
		data:       data,
		atlas:      atlas,
		file:       file,
		skin:       data.defaultSkin(),
		timeScale:  1,
		defaultMix: defaultMix,
		tracks:     make(map[int]*trackState),
	}
}

func (s *skeletonState) descriptor(full bool) map[string]any {
	d := map[string]any{
		"skeletonId":   s.id,
		"deferred":     s.data.Deferred,
		"atlasFile":    s.atlas,
		"skeletonFile": s.file,
	}
	if s.data.Deferred && !full {
		return d
	}
	d["width"] = s.data.Width
	d["height"] = s.data.Height
	d["defaultSkin"] = s.data.DefaultSkin
	d["skins"] = s.data.Skins
	d["animations"] = s.data.Animations
	d["bones"] = s.data.Bones
	d["slots"] = s.data.Slots
	return d
}

func (s *skeletonState) emit(typ string, e *entry, ev *TimelineEvent) {
	if !s.listening {
		return
	}
	n := map[string]any{"type": typ, "skeletonId": s.id, "entry": e.wire()}
	if ev != nil {
		n["event"] = map[string]any{
			"name":        ev.Name,
			"intValue":    ev.Int,
			"floatValue":  ev.Float,
			"stringValue": ev.String,
		}
	}
	s.notices = append(s.notices, n)
}

func (s *skeletonState) drain() []map[string]any {
	n := s.notices
	s.notices = nil
	return n
}

func (s *skeletonState) track(i int) *trackState {
	t, ok := s.tracks[i]
	if !ok {
		t = &trackState{}
		s.tracks[i] = t
	}
	return t
}

func (s *skeletonState) trackIndices() []int {
	out := make([]int, 0, len(s.tracks))
	for i := range s.tracks {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func (s *skeletonState) hasAnimation(name string) bool {
	return slices.Contains(s.data.Animations, name)
}

func (s *skeletonState) newEntry(track int, name string, loop bool) *entry {
	return &entry{track: track, anim: name, loop: loop, timeScale: 1}
}

func (s *skeletonState) setCurrent(t *trackState, e *entry) {
	if cur := t.current; cur != nil {
		s.emit("interrupt", cur, nil)
		if cur.from != nil {
			s.emit("end", cur.from, nil)
			s.emit("dispose", cur.from, nil)
			cur.from = nil
		}
		if e.mix > 0 {
			e.from = cur
		} else {
			s.emit("end", cur, nil)
			s.emit("dispose", cur, nil)
		}
	}
	t.current = e
	s.emit("start", e, nil)
}

func (s *skeletonState) setAnimation(track int, name string, loop bool) *entry {
	t := s.track(track)
	for _, q := range t.queue {
		s.emit("dispose", q, nil)
	}
	t.queue = nil

	e := s.newEntry(track, name, loop)
	if t.current != nil {
		e.mix = s.defaultMix
	}
	s.setCurrent(t, e)
	return e
}

func (s *skeletonState) addAnimation(track int, name string, loop bool, delay float64) *entry {
	t := s.track(track)
	e := s.newEntry(track, name, loop)

	last := t.current
	if n := len(t.queue); n > 0 {
		last = t.queue[n-1]
	}
	if last == nil {
		s.setCurrent(t, e)
		return e
	}

	e.mix = s.defaultMix
	if delay <= 0 {
		delay = math.Max(delay+s.data.duration(last.anim)-e.mix, 0)
	}
	e.delay = delay
	t.queue = append(t.queue, e)
	return e
}

func (s *skeletonState) clearTrack(i int) {
	t, ok := s.tracks[i]
	if !ok {
		return
	}
	for _, q := range t.queue {
		s.emit("dispose", q, nil)
	}
	if cur := t.current; cur != nil {
		if cur.from != nil {
			s.emit("end", cur.from, nil)
			s.emit("dispose", cur.from, nil)
		}
		s.emit("end", cur, nil)
		s.emit("dispose", cur, nil)
	}
	delete(s.tracks, i)
}

func (s *skeletonState) clearTracks() {
	for _, i := range s.trackIndices() {
		s.clearTrack(i)
	}
}

// resetState drops all tracks without callbacks, as when a deferred
// skeleton's native view goes away.
func (s *skeletonState) resetState() {
	s.tracks = make(map[int]*trackState)
	s.listening = false
	s.notices = nil
}

func (s *skeletonState) current(i int) *entry {
	if t, ok := s.tracks[i]; ok {
		return t.current
	}
	return nil
}

func (s *skeletonState) update(delta float64) {
	s.updates = append(s.updates, delta)
	delta *= s.timeScale
	for _, i := range s.trackIndices() {
		t := s.tracks[i]
		cur := t.current
		if cur == nil {
			continue
		}
		d := delta * cur.timeScale

		if from := cur.from; from != nil {
			cur.mixTime += d
			if cur.mixTime >= cur.mix {
				s.emit("end", from, nil)
				s.emit("dispose", from, nil)
				cur.from = nil
			}
		}

		prev := cur.trackTime
		cur.trackTime += d
		s.fireTimeline(cur, prev)
		s.fireComplete(cur, prev)

		if d > 0 && len(t.queue) > 0 && cur.trackTime >= t.queue[0].delay {
			next := t.queue[0]
			t.queue = t.queue[1:]
			next.trackTime = cur.trackTime - next.delay
			next.delay = 0
			s.setCurrent(t, next)
		}
	}
}

func (s *skeletonState) fireTimeline(e *entry, prev float64) {
	events := s.data.Events[e.anim]
	if len(events) == 0 || e.trackTime <= prev {
		return
	}
	dur := s.data.duration(e.anim)
	if !e.loop {
		for i := range events {
			ev := &events[i]
			if ev.Time >= prev && ev.Time < e.trackTime && ev.Time <= dur {
				s.emit("event", e, ev)
			}
		}
		return
	}
	for k := math.Floor(prev / dur); k <= math.Floor(e.trackTime/dur); k++ {
		for i := range events {
			ev := &events[i]
			at := k*dur + ev.Time
			if at >= prev && at < e.trackTime {
				s.emit("event", e, ev)
			}
		}
	}
}

func (s *skeletonState) fireComplete(e *entry, prev float64) {
	dur := s.data.duration(e.anim)
	if e.loop {
		if math.Floor(e.trackTime/dur) > math.Floor(prev/dur) {
			s.emit("complete", e, nil)
		}
		return
	}
	if prev < dur && e.trackTime >= dur {
		s.emit("complete", e, nil)
	}
}

// pose derives bone transforms from the skin and track times only, so an
// update with a zero delta leaves it unchanged.
func (s *skeletonState) pose() map[string]any {
	bones := make([]any, 0, len(s.data.Bones))
	for bi, name := range s.data.Bones {
		var rot, y float64
		for _, i := range s.trackIndices() {
			cur := s.tracks[i].current
			if cur == nil {
				continue
			}
			rot += cur.trackTime*90*float64(bi+1) + float64(len(cur.anim))
			y += math.Sin(cur.trackTime) * float64(i+1)
		}
		bones = append(bones, map[string]any{
			"name":     name,
			"x":        float64(bi*10 + len(s.skin)),
			"y":        y,
			"rotation": math.Mod(rot, 360),
			"scaleX":   1.0,
			"scaleY":   1.0,
		})
	}
	return map[string]any{"skin": s.skin, "bones": bones}
}
