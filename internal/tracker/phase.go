// Package tracker polls the backend for workflow, recovery and pipeline state and
// exposes snapshots for the dashboard.
package tracker

// Phase is the lifecycle phase of a tracker.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhasePolling
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhasePolling:
		return "polling"
	case PhaseStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Event drives phase transitions.
type Event int

const (
	// EventBegin starts a start, attach or load request.
	EventBegin Event = iota
	// EventBeginFailed reports that the start or load request failed.
	EventBeginFailed
	// EventPolled reports a fetch after which polling continues.
	EventPolled
	// EventHalted reports a terminal status, a stopped controller or a user stop.
	EventHalted
	// EventReset clears the tracker.
	EventReset
)

// Reduce returns the phase that follows p on e.
func Reduce(p Phase, e Event) Phase {
	switch e {
	case EventBegin:
		return PhaseLoading
	case EventBeginFailed:
		if p == PhaseLoading {
			return PhaseIdle
		}
		return p
	case EventPolled:
		if p == PhaseLoading || p == PhasePolling {
			return PhasePolling
		}
		return p
	case EventHalted:
		if p == PhaseIdle {
			return p
		}
		return PhaseStopped
	case EventReset:
		return PhaseIdle
	}
	return p
}
