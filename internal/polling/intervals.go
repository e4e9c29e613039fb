package polling

import (
	"time"

	"github.com/waabox/autofixdeck/internal/domain"
)

// Channel names a logical polling cadence.
type Channel string

const (
	ChannelDashboard Channel = "dashboard"
	ChannelPipeline  Channel = "pipeline"
	ChannelLogs      Channel = "logs"
	ChannelStatus    Channel = "status"
	ChannelWorkflow  Channel = "workflow"
)

// Channels lists every channel in display order.
var Channels = []Channel{ChannelDashboard, ChannelPipeline, ChannelLogs, ChannelStatus, ChannelWorkflow}

const (
	minInterval     = 2 * time.Second
	minSlowInterval = 5 * time.Second
)

// Intervals maps each channel to its configured interval in seconds.
// Configured values may be below the floors; Effective applies them.
type Intervals map[Channel]int

// DefaultIntervals is used when the backend polling config cannot be fetched.
func DefaultIntervals() Intervals {
	return Intervals{
		ChannelDashboard: 5,
		ChannelPipeline:  2,
		ChannelLogs:      10,
		ChannelStatus:    3,
		ChannelWorkflow:  3,
	}
}

// IntervalsFromConfig maps the backend /config/polling payload onto channels.
// workflow_interval is optional on older backends and falls back to default_interval.
func IntervalsFromConfig(cfg domain.PollingConfig) Intervals {
	workflow := cfg.WorkflowInterval
	if workflow <= 0 {
		workflow = cfg.DefaultInterval
	}
	return Intervals{
		ChannelDashboard: cfg.DefaultInterval,
		ChannelPipeline:  cfg.PipelineInterval,
		ChannelLogs:      cfg.LogInterval,
		ChannelStatus:    cfg.DefaultInterval,
		ChannelWorkflow:  workflow,
	}
}

// Floor returns the minimum interval allowed for a channel.
func Floor(ch Channel) time.Duration {
	switch ch {
	case ChannelWorkflow, ChannelLogs:
		return minSlowInterval
	default:
		return minInterval
	}
}

// Effective returns the interval for ch clamped to its floor.
// Channels missing from the table use the default table.
func (iv Intervals) Effective(ch Channel) time.Duration {
	seconds, ok := iv[ch]
	if !ok {
		seconds = DefaultIntervals()[ch]
	}
	d := time.Duration(seconds) * time.Second
	if floor := Floor(ch); d < floor {
		return floor
	}
	return d
}

// Clone returns a copy of the table.
func (iv Intervals) Clone() Intervals {
	out := make(Intervals, len(iv))
	for k, v := range iv {
		out[k] = v
	}
	return out
}
