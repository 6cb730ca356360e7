package spinetest

import (
	"fmt"
	"sync"

	"github.com/go-drift/drift-spine/pkg/animation"
	"github.com/go-drift/drift-spine/pkg/spine"
)

// Frames hands a fresh ManualSource to every loop start and ticks the latest
// one.
type Frames struct {
	mu  sync.Mutex
	cur *animation.ManualSource
}

// Source is a constructor for spine.WithFrameSource.
func (f *Frames) Source() animation.FrameSource {
	m := animation.NewManualSource()
	f.mu.Lock()
	f.cur = m
	f.mu.Unlock()
	return m
}

// Tick delivers one frame and waits for it to be processed. It returns false
// when no loop is running.
func (f *Frames) Tick() bool {
	f.mu.Lock()
	m := f.cur
	f.mu.Unlock()
	if m == nil {
		return false
	}
	return m.Tick()
}

// Recorder collects listener callbacks as "type animation" strings, with the
// event name appended for timeline events.
type Recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *Recorder) add(typ string, e spine.TrackEntry) {
	r.mu.Lock()
	r.events = append(r.events, fmt.Sprintf("%s %s", typ, e.Animation))
	r.mu.Unlock()
}

// Listener returns a listener feeding r.
func (r *Recorder) Listener() *spine.Listener {
	return &spine.Listener{
		OnAnimationStart:     func(e spine.TrackEntry) { r.add("start", e) },
		OnAnimationInterrupt: func(e spine.TrackEntry) { r.add("interrupt", e) },
		OnAnimationEnd:       func(e spine.TrackEntry) { r.add("end", e) },
		OnAnimationComplete:  func(e spine.TrackEntry) { r.add("complete", e) },
		OnAnimationDispose:   func(e spine.TrackEntry) { r.add("dispose", e) },
		OnAnimationEvent: func(e spine.TrackEntry, ev spine.Event) {
			r.add("event "+ev.Name, e)
		},
	}
}

// Events returns the callbacks seen so far.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// Reset forgets recorded callbacks.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
