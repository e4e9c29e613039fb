package timeutil

import "time"

// Timer wraps `time.Timer` in an interface for testing.
type Timer interface {
	Chan() <-chan time.Time
	Stop() bool
}

// NewTimerFunc is a factory function that creates a new `Timer`.
type NewTimerFunc func(d time.Duration) Timer
