package spinetest

import "sync"

// eventQueue delivers native events in order on its own goroutine, the way a
// host engine posts them, so listeners never run under a fake lock.
type eventQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []func()
	busy    bool
	closed  bool
	stopped chan struct{}
}

func newEventQueue() *eventQueue {
	q := &eventQueue{stopped: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

func (q *eventQueue) push(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, fn)
	q.cond.Broadcast()
}

func (q *eventQueue) run() {
	defer close(q.stopped)
	q.mu.Lock()
	for {
		for len(q.items) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.items) == 0 {
			q.mu.Unlock()
			return
		}
		fn := q.items[0]
		q.items = q.items[1:]
		q.busy = true
		q.mu.Unlock()

		fn()

		q.mu.Lock()
		q.busy = false
		q.cond.Broadcast()
	}
}

// flush waits until every queued event, including ones queued while
// flushing, has been delivered. It must not be called from a listener.
func (q *eventQueue) flush() {
	q.mu.Lock()
	for len(q.items) > 0 || q.busy {
		q.cond.Wait()
	}
	q.mu.Unlock()
}

func (q *eventQueue) close() {
	q.flush()
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
	<-q.stopped
}
