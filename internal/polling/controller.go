// Package polling decides whether trackers keep polling and detects the terminal
// and fatal conditions that stop them.
package polling

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/waabox/autofixdeck/internal/domain"
)

// StopKind classifies why polling stopped.
type StopKind int

const (
	StopNone StopKind = iota
	StopTerminalStatus
	StopFatalMessage
	StopAdvisoryMessage
	StopFailedStep
	StopStatusCode
	StopFatalLog
	StopForced
)

func (k StopKind) String() string {
	switch k {
	case StopTerminalStatus:
		return "terminal_status"
	case StopFatalMessage:
		return "fatal_message"
	case StopAdvisoryMessage:
		return "advisory_message"
	case StopFailedStep:
		return "failed_step"
	case StopStatusCode:
		return "status_code"
	case StopFatalLog:
		return "fatal_log"
	case StopForced:
		return "forced"
	default:
		return "none"
	}
}

// Stop records the first condition that stopped polling.
type Stop struct {
	Kind    StopKind
	Reason  string
	Context string
	Status  string
	Line    string
}

// Err returns the stop as a typed error: *domain.TerminalError for a terminal
// status, *domain.FatalLogError for a fatal log line, a plain error otherwise.
func (s Stop) Err() error {
	switch s.Kind {
	case StopNone:
		return nil
	case StopTerminalStatus:
		return &domain.TerminalError{Context: s.Context, Status: s.Status}
	case StopFatalLog:
		return &domain.FatalLogError{Line: s.Line}
	default:
		return errors.New(s.Reason)
	}
}

// Controller is the single authority on whether pollers keep running.
// It is safe for concurrent use by several trackers.
type Controller struct {
	mu        sync.RWMutex
	enabled   bool
	stop      Stop
	window    *logWindow
	intervals Intervals
	logger    zerolog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for stop transitions.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithIntervals sets the interval table. Defaults to DefaultIntervals.
func WithIntervals(iv Intervals) Option {
	return func(c *Controller) { c.intervals = iv.Clone() }
}

// NewController returns an enabled controller with no stop reason.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		enabled:   true,
		window:    newLogWindow(LogWindowSize),
		intervals: DefaultIntervals(),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsPolling reports enabled && no stop reason.
func (c *Controller) IsPolling() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled && c.stop.Kind == StopNone
}

// Enabled reports the user toggle, independently of any stop reason.
func (c *Controller) Enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// SetEnabled sets the user toggle.
func (c *Controller) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
	c.logger.Debug().Bool("enabled", enabled).Msg("polling toggled")
}

// Toggle flips the user toggle and returns the new value.
func (c *Controller) Toggle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = !c.enabled
	c.logger.Debug().Bool("enabled", c.enabled).Msg("polling toggled")
	return c.enabled
}

// StoppedReason returns the sticky stop reason, or "" while polling may continue.
func (c *Controller) StoppedReason() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stop.Reason
}

// Stopped returns the stop record and whether polling has been stopped.
func (c *Controller) Stopped() (Stop, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stop, c.stop.Kind != StopNone
}

// Inspect examines a response payload for termination signals and stops polling on
// the first match. Once stopped, further calls are no-ops until Reset.
// It reports whether polling is stopped after the call.
func (c *Controller) Inspect(payload any, context string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop.Kind != StopNone {
		return true
	}
	normalized := normalize(payload)
	if normalized == nil {
		return false
	}
	for _, match := range Predicates {
		if s, ok := match(normalized, context); ok {
			c.setStopLocked(s)
			return true
		}
	}
	return false
}

// InspectLogs appends lines to the rolling window and scans the window for a
// fatal keyword. It does not stop polling on its own.
func (c *Controller) InspectLogs(lines []string) LogVerdict {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.window.append(lines)
	return c.window.scan()
}

// StopOnFatalLog stops polling because of a fatal log line.
func (c *Controller) StopOnFatalLog(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop.Kind != StopNone {
		return
	}
	c.setStopLocked(Stop{Kind: StopFatalLog, Reason: "fatal error in logs: " + line, Line: line})
}

// ForceStop stops polling with reason unless it is already stopped.
func (c *Controller) ForceStop(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop.Kind != StopNone {
		return
	}
	c.setStopLocked(Stop{Kind: StopForced, Reason: reason})
}

// Reset clears the stop reason and the log window and re-enables polling.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stop = Stop{}
	c.window.reset()
	c.enabled = true
	c.logger.Info().Msg("polling reset")
}

// Intervals returns a copy of the interval table.
func (c *Controller) Intervals() Intervals {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.intervals.Clone()
}

// SetIntervals replaces the interval table.
func (c *Controller) SetIntervals(iv Intervals) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.intervals = iv.Clone()
}

// Interval returns the effective interval for ch.
func (c *Controller) Interval(ch Channel) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.intervals.Effective(ch)
}

func (c *Controller) setStopLocked(s Stop) {
	c.stop = s
	c.logger.Info().
		Str("kind", s.Kind.String()).
		Str("context", s.Context).
		Str("reason", s.Reason).
		Msg("polling stopped")
}
