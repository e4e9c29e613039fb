package timeutil

import "time"

var _ Timer = (*timeTimer)(nil)

type timeTimer struct {
	*time.Timer
}

func (t *timeTimer) Chan() <-chan time.Time {
	return t.C
}

// NewTimer creates a new `Timer` wrapping `time.NewTimer`.
func NewTimer(d time.Duration) Timer {
	return &timeTimer{time.NewTimer(d)}
}
