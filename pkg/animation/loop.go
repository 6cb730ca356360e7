package animation

import (
	"context"
	"sync"
	"time"
)

// FrameLoop is a cancellable repeating task that calls onFrame once per
// frame with the elapsed time since the previous frame.
//
// The loop suspends in FrameSource.Next between frames. Stop cancels that
// wait and returns only after the loop goroutine has exited, so no callback
// runs after Stop returns. Stop must not be called from inside onFrame.
type FrameLoop struct {
	newSource func() FrameSource
	onFrame   func(dt time.Duration)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewFrameLoop creates a stopped loop. newSource is called on every Start so
// a restarted loop never shares a source with a previous run.
func NewFrameLoop(newSource func() FrameSource, onFrame func(dt time.Duration)) *FrameLoop {
	return &FrameLoop{newSource: newSource, onFrame: onFrame}
}

// Start launches the loop. Starting a running loop is a no-op.
func (l *FrameLoop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done
	go l.run(ctx, l.newSource(), done)
}

// Stop cancels the loop and waits for it to exit. Safe to call when the
// loop is not running.
func (l *FrameLoop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// IsRunning reports whether the loop goroutine is active.
func (l *FrameLoop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}

func (l *FrameLoop) run(ctx context.Context, source FrameSource, done chan struct{}) {
	defer close(done)
	defer source.Close()

	last := Now()
	for {
		frame, err := source.Next(ctx)
		if err != nil {
			return
		}
		if ctx.Err() != nil {
			frame.finish()
			return
		}
		dt := frame.Time.Sub(last)
		if dt < 0 {
			dt = 0
		}
		last = frame.Time
		l.onFrame(dt)
		frame.finish()
	}
}
