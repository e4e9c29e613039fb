package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/waabox/autofixdeck/internal/domain"
	"github.com/waabox/autofixdeck/internal/polling"
)

// PipelineSnapshot is a copy of the pipeline tracker state.
type PipelineSnapshot struct {
	Phase         Phase
	SessionID     string
	Status        *domain.PipelineSummary
	Jobs          []domain.Job
	Monitor       *domain.MonitorData
	Err           error
	StoppedReason string
}

// FailedJobs returns the jobs whose status is failed.
func (s PipelineSnapshot) FailedJobs() []domain.Job {
	var out []domain.Job
	for _, j := range s.Jobs {
		if j.Status == domain.PipelineFailed {
			out = append(out, j)
		}
	}
	return out
}

// PipelineTracker polls pipeline status, jobs and monitor data for a session.
type PipelineTracker struct {
	provider   domain.PipelineProvider
	controller *polling.Controller
	opts       options
	loop       loop

	mu        sync.Mutex
	phase     Phase
	sessionID string
	status    *domain.PipelineSummary
	jobs      []domain.Job
	monitor   *domain.MonitorData
	err       error
	epoch     uint64
}

// NewPipelineTracker creates an idle tracker.
func NewPipelineTracker(provider domain.PipelineProvider, controller *polling.Controller, opts ...Option) *PipelineTracker {
	return &PipelineTracker{
		provider:   provider,
		controller: controller,
		opts:       buildOptions(opts),
	}
}

// Start polls the session right away and then on the pipeline interval.
func (t *PipelineTracker) Start(ctx context.Context, sessionID string) {
	t.mu.Lock()
	if sessionID != t.sessionID {
		t.sessionID = sessionID
		t.status, t.jobs, t.monitor, t.err = nil, nil, nil, nil
	}
	t.epoch++
	epoch := t.epoch
	t.phase = Reduce(Reduce(t.phase, EventBegin), EventPolled)
	t.mu.Unlock()
	t.opts.onUpdate()

	t.loop.restart(ctx, func(ctx context.Context) {
		schedule(ctx, t.opts.newTimer, 0,
			func() time.Duration { return t.controller.Interval(polling.ChannelPipeline) },
			func(ctx context.Context) bool { return t.tick(ctx, sessionID, epoch) },
		)
	})
}

// Refresh fetches all three payloads once, whether or not polling is active.
func (t *PipelineTracker) Refresh(ctx context.Context) error {
	t.mu.Lock()
	sessionID, epoch := t.sessionID, t.epoch
	t.mu.Unlock()
	if sessionID == "" {
		return errors.New("no pipeline session")
	}
	return t.fetch(ctx, sessionID, epoch)
}

// RetryFailedJobs asks the backend to retry failed jobs. It does not change polling state.
func (t *PipelineTracker) RetryFailedJobs(ctx context.Context) error {
	t.mu.Lock()
	sessionID := t.sessionID
	t.mu.Unlock()
	if sessionID == "" {
		return errors.New("no pipeline session")
	}
	if err := t.provider.RetryFailedJobs(ctx, sessionID); err != nil {
		return fmt.Errorf("retrying failed jobs: %w", err)
	}
	t.opts.logger.Info().Str("session_id", sessionID).Msg("failed jobs retried")
	return nil
}

// JobTrace returns the log text of a single job.
func (t *PipelineTracker) JobTrace(ctx context.Context, jobID int64) (string, error) {
	t.mu.Lock()
	sessionID := t.sessionID
	t.mu.Unlock()
	if sessionID == "" {
		return "", errors.New("no pipeline session")
	}
	trace, err := t.provider.JobTrace(ctx, sessionID, jobID)
	if err != nil {
		return "", fmt.Errorf("fetching trace of job %d: %w", jobID, err)
	}
	return trace, nil
}

// Close stops polling and discards any in-flight result.
func (t *PipelineTracker) Close() {
	t.loop.stop()
	t.mu.Lock()
	t.epoch++
	t.mu.Unlock()
}

// Wait blocks until the polling goroutine exits or ctx is done.
func (t *PipelineTracker) Wait(ctx context.Context) error {
	return t.loop.wait(ctx)
}

// Snapshot returns a copy of the current state.
func (t *PipelineTracker) Snapshot() PipelineSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := PipelineSnapshot{
		Phase:         t.phase,
		SessionID:     t.sessionID,
		Jobs:          append([]domain.Job(nil), t.jobs...),
		Err:           t.err,
		StoppedReason: t.controller.StoppedReason(),
	}
	if t.status != nil {
		st := *t.status
		s.Status = &st
	}
	if t.monitor != nil {
		m := *t.monitor
		m.Jobs = append([]domain.Job(nil), t.monitor.Jobs...)
		if t.monitor.Pipeline != nil {
			p := *t.monitor.Pipeline
			m.Pipeline = &p
		}
		s.Monitor = &m
	}
	return s
}

func (t *PipelineTracker) tick(ctx context.Context, sessionID string, epoch uint64) bool {
	if !t.keepPolling(epoch) {
		return false
	}
	t.opts.logger.Debug().Str("session_id", sessionID).Msg("polling pipeline")
	_ = t.fetch(ctx, sessionID, epoch)
	return t.keepPolling(epoch)
}

func (t *PipelineTracker) keepPolling(epoch uint64) bool {
	t.mu.Lock()
	if epoch != t.epoch {
		t.mu.Unlock()
		return false
	}
	if t.controller.IsPolling() {
		t.mu.Unlock()
		return true
	}
	changed := t.phase != PhaseStopped
	t.phase = Reduce(t.phase, EventHalted)
	t.mu.Unlock()

	if changed {
		t.opts.onUpdate()
	}
	return false
}

// fetch runs the three sub-fetches concurrently. Each failure is independent:
// a failed status fetch is recorded as the tracker error, jobs default to
// empty and monitor data to nil.
func (t *PipelineTracker) fetch(ctx context.Context, sessionID string, epoch uint64) error {
	var (
		status    domain.PipelineSummary
		statusErr error
		jobs      []domain.Job
		monitor   domain.MonitorData
		monitorOK bool
	)
	var g errgroup.Group
	g.Go(func() error {
		status, statusErr = t.provider.PipelineStatus(ctx, sessionID)
		return nil
	})
	g.Go(func() error {
		j, err := t.provider.PipelineJobs(ctx, sessionID)
		if err != nil {
			t.opts.logger.Debug().Err(err).Str("session_id", sessionID).Msg("pipeline jobs unavailable")
			return nil
		}
		jobs = j
		return nil
	})
	g.Go(func() error {
		m, err := t.provider.PipelineMonitor(ctx, sessionID)
		if err != nil {
			t.opts.logger.Debug().Err(err).Str("session_id", sessionID).Msg("pipeline monitor unavailable")
			return nil
		}
		monitor, monitorOK = m, true
		return nil
	})
	_ = g.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	t.mu.Lock()
	if epoch != t.epoch {
		t.mu.Unlock()
		return nil
	}
	if statusErr != nil {
		t.status = nil
		t.err = statusErr
	} else {
		t.status = &status
		t.err = nil
	}
	t.jobs = jobs
	if monitorOK {
		t.monitor = &monitor
	} else {
		t.monitor = nil
	}
	t.mu.Unlock()
	t.opts.onUpdate()

	if statusErr != nil {
		t.opts.logger.Warn().Err(statusErr).Str("session_id", sessionID).Msg("pipeline status fetch failed")
	}
	return statusErr
}
