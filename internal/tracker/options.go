package tracker

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/waabox/autofixdeck/internal/util/timeutil"
)

const (
	defaultStartSettle  = 2 * time.Second
	defaultAttachSettle = 1 * time.Second
)

type options struct {
	newTimer     timeutil.NewTimerFunc
	logger       zerolog.Logger
	onUpdate     func()
	startSettle  time.Duration
	attachSettle time.Duration
}

func defaultOptions() options {
	return options{
		newTimer:     timeutil.NewTimer,
		logger:       zerolog.Nop(),
		onUpdate:     func() {},
		startSettle:  defaultStartSettle,
		attachSettle: defaultAttachSettle,
	}
}

// Option configures a tracker.
type Option func(*options)

// WithNewTimerFunc replaces the timer factory used to schedule polls.
func WithNewTimerFunc(f timeutil.NewTimerFunc) Option {
	return func(o *options) { o.newTimer = f }
}

// WithLogger sets the tracker logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithOnUpdate registers a callback invoked after every state change.
// It is called from the polling goroutine and must not block.
func WithOnUpdate(f func()) Option {
	return func(o *options) {
		if f != nil {
			o.onUpdate = f
		}
	}
}

// WithSettleDelays sets the delay before the first fetch after a start and after an attach.
func WithSettleDelays(start, attach time.Duration) Option {
	return func(o *options) {
		o.startSettle = start
		o.attachSettle = attach
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	return o
}
