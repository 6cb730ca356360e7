package animation

import (
	"sync"
	"time"
)

// Clock provides time for frame scheduling. The default implementation uses
// system time. Tests inject a fake clock via SetClock to control frame
// deltas deterministically.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

var (
	clockMu sync.RWMutex
	clock   Clock = realClock{}
)

// SetClock replaces the frame clock. Returns the previous clock so callers
// can restore it during cleanup. Passing nil restores system time.
func SetClock(c Clock) Clock {
	clockMu.Lock()
	defer clockMu.Unlock()
	prev := clock
	if c == nil {
		c = realClock{}
	}
	clock = c
	return prev
}

// Now returns the current time from the active clock.
func Now() time.Time {
	clockMu.RLock()
	c := clock
	clockMu.RUnlock()
	return c.Now()
}

// FakeClock is a manually advanced Clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock returns a FakeClock starting at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now implements Clock.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
