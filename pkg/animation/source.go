package animation

import (
	"context"
	"time"
)

// DefaultFrameInterval is the fixed step used by IntervalSource when none is
// configured (~60fps).
const DefaultFrameInterval = 16 * time.Millisecond

// Frame is one tick delivered by a FrameSource.
type Frame struct {
	// Time is when the frame was produced.
	Time time.Time

	done chan struct{}
}

func (f Frame) finish() {
	if f.done != nil {
		close(f.done)
	}
}

// FrameSource produces frame ticks for a FrameLoop.
type FrameSource interface {
	// Next blocks until the next frame or until ctx is done.
	Next(ctx context.Context) (Frame, error)
	// Close releases the source. Next must not be called afterwards.
	Close()
}

// DisplaySource delivers one frame per engine display refresh. Refreshes that
// arrive while the previous frame is still being processed are coalesced.
type DisplaySource struct {
	ticker *Ticker
	ticks  chan time.Time
}

// NewDisplaySource registers a ticker with the engine frame loop.
func NewDisplaySource() *DisplaySource {
	s := &DisplaySource{ticks: make(chan time.Time, 1)}
	s.ticker = NewTicker(func(time.Duration) {
		select {
		case s.ticks <- Now():
		default:
		}
	})
	s.ticker.Start()
	return s
}

// Next implements FrameSource.
func (s *DisplaySource) Next(ctx context.Context) (Frame, error) {
	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case t := <-s.ticks:
		return Frame{Time: t}, nil
	}
}

// Close implements FrameSource.
func (s *DisplaySource) Close() {
	s.ticker.Stop()
}

// IntervalSource delivers frames at a fixed interval, independent of the
// display refresh.
type IntervalSource struct {
	ticker *time.Ticker
}

// NewIntervalSource creates an IntervalSource. Non-positive intervals use
// DefaultFrameInterval.
func NewIntervalSource(interval time.Duration) *IntervalSource {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &IntervalSource{ticker: time.NewTicker(interval)}
}

// Next implements FrameSource.
func (s *IntervalSource) Next(ctx context.Context) (Frame, error) {
	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-s.ticker.C:
		return Frame{Time: Now()}, nil
	}
}

// Close implements FrameSource.
func (s *IntervalSource) Close() {
	s.ticker.Stop()
}

// ManualSource delivers a frame each time Tick is called.
type ManualSource struct {
	frames chan Frame
	closed chan struct{}
}

// NewManualSource creates a ManualSource.
func NewManualSource() *ManualSource {
	return &ManualSource{
		frames: make(chan Frame),
		closed: make(chan struct{}),
	}
}

// Tick delivers one frame and waits for the loop to finish processing it.
// It returns false if no loop picked the frame up within a second or the
// source was closed.
func (s *ManualSource) Tick() bool {
	f := Frame{Time: Now(), done: make(chan struct{})}
	select {
	case s.frames <- f:
	case <-s.closed:
		return false
	case <-time.After(time.Second):
		return false
	}
	<-f.done
	return true
}

// Next implements FrameSource.
func (s *ManualSource) Next(ctx context.Context) (Frame, error) {
	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case f := <-s.frames:
		return f, nil
	}
}

// Close implements FrameSource. Closing twice is safe.
func (s *ManualSource) Close() {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
}
