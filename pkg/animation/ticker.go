// Package animation schedules per-frame work for Spine views.
//
// A [FrameLoop] waits on a [FrameSource] and hands the real elapsed time
// since the previous frame to its callback. Two sources mirror the native
// hosts: [DisplaySource] follows the engine's display refresh (ticked through
// [StepTickers]) and [IntervalSource] sleeps a fixed interval on its own
// goroutine. [ManualSource] drives frames from tests.
package animation

import (
	"sync"
	"time"
)

var (
	tickerMu      sync.Mutex
	activeTickers = make(map[*Ticker]struct{})
)

// Ticker calls a callback on each engine frame while active.
//
// The callback receives the elapsed time since Start was called. Tickers are
// driven by the engine's frame loop via [StepTickers].
type Ticker struct {
	callback func(elapsed time.Duration)
	isActive bool
	start    time.Time
}

// NewTicker creates a new ticker with the given callback.
func NewTicker(callback func(elapsed time.Duration)) *Ticker {
	return &Ticker{callback: callback}
}

// Start activates the ticker.
func (t *Ticker) Start() {
	tickerMu.Lock()
	defer tickerMu.Unlock()
	if t.isActive {
		return
	}
	t.isActive = true
	t.start = Now()
	activeTickers[t] = struct{}{}
}

// Stop deactivates the ticker.
func (t *Ticker) Stop() {
	tickerMu.Lock()
	defer tickerMu.Unlock()
	if !t.isActive {
		return
	}
	t.isActive = false
	delete(activeTickers, t)
}

// IsActive returns whether the ticker is currently running.
func (t *Ticker) IsActive() bool {
	tickerMu.Lock()
	defer tickerMu.Unlock()
	return t.isActive
}

// StepTickers advances all active tickers.
// The host engine calls this once per display refresh.
func StepTickers() {
	tickerMu.Lock()
	if len(activeTickers) == 0 {
		tickerMu.Unlock()
		return
	}
	type step struct {
		cb    func(time.Duration)
		start time.Time
	}
	steps := make([]step, 0, len(activeTickers))
	for t := range activeTickers {
		if t.callback != nil {
			steps = append(steps, step{cb: t.callback, start: t.start})
		}
	}
	tickerMu.Unlock()

	now := Now()
	for _, s := range steps {
		s.cb(now.Sub(s.start))
	}
}

// HasActiveTickers returns true if any tickers are active. Engines use this
// to decide whether to keep requesting display refreshes.
func HasActiveTickers() bool {
	tickerMu.Lock()
	defer tickerMu.Unlock()
	return len(activeTickers) > 0
}
