package timeutil

import (
	"sync"
	"time"
)

var _ Timer = (*FakeTimer)(nil)

// FakeTimer fires only when Fire is called.
type FakeTimer struct {
	ch       chan time.Time
	duration time.Duration

	mu      sync.Mutex
	fired   bool
	stopped bool
}

func (t *FakeTimer) Chan() <-chan time.Time {
	return t.ch
}

func (t *FakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	active := !t.fired && !t.stopped
	t.stopped = true
	return active
}

// Fire delivers a tick unless the timer already fired or was stopped.
func (t *FakeTimer) Fire() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fired || t.stopped {
		return
	}
	t.fired = true
	t.ch <- time.Now()
}

// Duration is the duration the timer was created with.
func (t *FakeTimer) Duration() time.Duration {
	return t.duration
}

func (t *FakeTimer) pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.fired && !t.stopped
}

// FakeTimers is a `NewTimerFunc` source that records every timer it creates.
type FakeTimers struct {
	created chan *FakeTimer

	mu  sync.Mutex
	all []*FakeTimer
}

func NewFakeTimers() *FakeTimers {
	return &FakeTimers{created: make(chan *FakeTimer, 256)}
}

// Func returns the factory to inject into the code under test.
func (f *FakeTimers) Func() NewTimerFunc {
	return func(d time.Duration) Timer {
		t := &FakeTimer{ch: make(chan time.Time, 1), duration: d}
		f.mu.Lock()
		f.all = append(f.all, t)
		f.mu.Unlock()
		f.created <- t
		return t
	}
}

// Next waits up to timeout for the next created timer.
func (f *FakeTimers) Next(timeout time.Duration) (*FakeTimer, bool) {
	select {
	case t := <-f.created:
		return t, true
	case <-time.After(timeout):
		return nil, false
	}
}

// Count returns the number of timers created so far.
func (f *FakeTimers) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.all)
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (f *FakeTimers) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.all {
		if t.pending() {
			n++
		}
	}
	return n
}
