package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/waabox/autofixdeck/internal/util/timeutil"
)

// loop owns the single polling goroutine of a tracker.
type loop struct {
	ops sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// restart stops the running goroutine, if any, and starts run in a new one.
func (l *loop) restart(parent context.Context, run func(ctx context.Context)) {
	l.ops.Lock()
	defer l.ops.Unlock()
	l.stopRunning()

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	l.mu.Lock()
	l.cancel = cancel
	l.done = done
	l.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		run(ctx)
	}()
}

// stop cancels the running goroutine and waits for it to exit.
// It must not be called from the polling goroutine.
func (l *loop) stop() {
	l.ops.Lock()
	defer l.ops.Unlock()
	l.stopRunning()
}

func (l *loop) stopRunning() {
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

// wait blocks until the running goroutine exits or ctx is done.
func (l *loop) wait(ctx context.Context) error {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// schedule calls tick after delay and then after every interval() until ctx is
// done or tick returns false. Exactly one timer is pending at a time.
func schedule(ctx context.Context, newTimer timeutil.NewTimerFunc, delay time.Duration, interval func() time.Duration, tick func(ctx context.Context) bool) {
	wait := delay
	for {
		timer := newTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
		}
		if !tick(ctx) {
			return
		}
		wait = interval()
	}
}
