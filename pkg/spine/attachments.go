package spine

import (
	"sync"

	"github.com/go-drift/drift-spine/pkg/platform"
)

// attachmentTable relates skeletons to the views they are attached to by id,
// so neither holds a reference to the other.
type attachmentTable struct {
	mu             sync.Mutex
	viewBySkeleton map[int64]int64
	skeletonByView map[int64]int64
	views          map[int64]*View
}

var attachments = newAttachmentTable()

func init() {
	platform.RegisterResetHook(attachments.reset)
}

func newAttachmentTable() *attachmentTable {
	t := &attachmentTable{}
	t.reset()
	return t
}

func (t *attachmentTable) reset() {
	t.mu.Lock()
	t.viewBySkeleton = make(map[int64]int64)
	t.skeletonByView = make(map[int64]int64)
	t.views = make(map[int64]*View)
	t.mu.Unlock()
}

func (t *attachmentTable) register(v *View) {
	t.mu.Lock()
	t.views[v.id] = v
	t.mu.Unlock()
}

func (t *attachmentTable) unregister(viewID int64) {
	t.mu.Lock()
	delete(t.views, viewID)
	t.mu.Unlock()
}

// link attaches skeletonID to viewID. A skeleton attached to a different view
// is refused.
func (t *attachmentTable) link(skeletonID, viewID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.viewBySkeleton[skeletonID]; ok && cur != viewID {
		return ErrAlreadyAttached
	}
	if old, ok := t.skeletonByView[viewID]; ok && old != skeletonID {
		delete(t.viewBySkeleton, old)
	}
	t.viewBySkeleton[skeletonID] = viewID
	t.skeletonByView[viewID] = skeletonID
	return nil
}

func (t *attachmentTable) unlink(viewID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if sid, ok := t.skeletonByView[viewID]; ok {
		delete(t.viewBySkeleton, sid)
		delete(t.skeletonByView, viewID)
	}
}

// viewOf returns the view skeletonID is attached to, or nil.
func (t *attachmentTable) viewOf(skeletonID int64) *View {
	t.mu.Lock()
	defer t.mu.Unlock()
	vid, ok := t.viewBySkeleton[skeletonID]
	if !ok {
		return nil
	}
	return t.views[vid]
}
