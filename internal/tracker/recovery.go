package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/waabox/autofixdeck/internal/domain"
	"github.com/waabox/autofixdeck/internal/polling"
)

// RecoverySnapshot is a copy of the recovery tracker state.
type RecoverySnapshot struct {
	Phase         Phase
	Project       string
	MRID          string
	Status        *domain.WorkflowStatus
	CI            *domain.CIStatus
	MRExists      bool
	IsRecovered   bool
	ShouldStop    bool
	Err           error
	StoppedReason string
}

// RecoveryTracker rebuilds a workflow view for a merge request when no session id is known.
type RecoveryTracker struct {
	workflows  domain.WorkflowProvider
	ci         domain.CIStatusProvider
	controller *polling.Controller
	opts       options
	loop       loop

	mu          sync.Mutex
	phase       Phase
	project     string
	mrID        string
	status      *domain.WorkflowStatus
	ciStatus    *domain.CIStatus
	mrExists    bool
	isRecovered bool
	shouldStop  bool
	err         error
	epoch       uint64
}

// NewRecoveryTracker creates an idle tracker.
func NewRecoveryTracker(workflows domain.WorkflowProvider, ci domain.CIStatusProvider, controller *polling.Controller, opts ...Option) *RecoveryTracker {
	return &RecoveryTracker{
		workflows:  workflows,
		ci:         ci,
		controller: controller,
		opts:       buildOptions(opts),
	}
}

// Load resolves the merge request and starts polling a recovered view.
// A merge request already known not to exist is not fetched again until Refresh.
func (t *RecoveryTracker) Load(ctx context.Context, project, mrID string) error {
	t.mu.Lock()
	if project != t.project || mrID != t.mrID {
		t.epoch++
		t.project, t.mrID = project, mrID
		t.clearLocked()
		t.status, t.ciStatus = nil, nil
	} else if t.shouldStop {
		err := t.err
		t.mu.Unlock()
		return err
	}
	t.phase = Reduce(t.phase, EventBegin)
	epoch := t.epoch
	t.mu.Unlock()
	t.opts.onUpdate()

	ci, err := t.ci.MergeRequestCIStatus(ctx, project, mrID)
	if ctx.Err() != nil {
		return t.abortLoad(epoch, ctx.Err())
	}
	if err != nil {
		return t.markNotFound(project, mrID, epoch, err)
	}

	stored, storedErr := t.workflows.WorkflowStatusByMR(ctx, project, mrID)
	if ctx.Err() != nil {
		return t.abortLoad(epoch, ctx.Err())
	}

	t.mu.Lock()
	if epoch != t.epoch {
		t.mu.Unlock()
		return nil
	}
	t.mrExists = true
	t.ciStatus = &ci
	if storedErr == nil {
		t.status = &stored
		t.isRecovered = stored.Status == domain.WorkflowRecovered
	} else {
		if !errors.Is(storedErr, domain.ErrNotFound) {
			t.opts.logger.Warn().Err(storedErr).Str("project", project).Str("mr", mrID).Msg("stored workflow status unavailable")
		}
		derived := RecoveredStatusFromCI(project, mrID, ci)
		t.status = &derived
		t.isRecovered = true
	}
	if t.status.Status.IsTerminal() {
		t.shouldStop = true
	}
	t.err = nil
	cont := t.continueLocked()
	if cont {
		t.phase = Reduce(t.phase, EventPolled)
	} else {
		t.phase = Reduce(t.phase, EventHalted)
	}
	t.mu.Unlock()

	t.opts.logger.Info().
		Str("project", project).
		Str("mr", mrID).
		Bool("recovered", storedErr != nil).
		Msg("merge request workflow loaded")
	t.opts.onUpdate()

	if cont {
		t.startLoop(ctx, project, mrID, epoch)
	}
	return nil
}

// abortLoad leaves the loading phase when Load is cancelled before it finishes.
func (t *RecoveryTracker) abortLoad(epoch uint64, err error) error {
	t.mu.Lock()
	if epoch == t.epoch {
		t.phase = Reduce(t.phase, EventBeginFailed)
	}
	t.mu.Unlock()
	t.opts.onUpdate()
	return err
}

// Refresh clears the stop state, resets the polling controller and loads again.
func (t *RecoveryTracker) Refresh(ctx context.Context) error {
	t.loop.stop()
	t.controller.Reset()

	t.mu.Lock()
	t.epoch++
	project, mrID := t.project, t.mrID
	t.clearLocked()
	t.mu.Unlock()

	if project == "" || mrID == "" {
		return errors.New("no merge request loaded")
	}
	return t.Load(ctx, project, mrID)
}

// Close stops polling and discards any in-flight result.
func (t *RecoveryTracker) Close() {
	t.loop.stop()
	t.mu.Lock()
	t.epoch++
	t.mu.Unlock()
}

// Wait blocks until the polling goroutine exits or ctx is done.
func (t *RecoveryTracker) Wait(ctx context.Context) error {
	return t.loop.wait(ctx)
}

// Snapshot returns a copy of the current state.
func (t *RecoveryTracker) Snapshot() RecoverySnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := RecoverySnapshot{
		Phase:         t.phase,
		Project:       t.project,
		MRID:          t.mrID,
		MRExists:      t.mrExists,
		IsRecovered:   t.isRecovered,
		ShouldStop:    t.shouldStop,
		Err:           t.err,
		StoppedReason: t.controller.StoppedReason(),
	}
	if t.status != nil {
		c := t.status.Clone()
		s.Status = &c
	}
	if t.ciStatus != nil {
		c := *t.ciStatus
		c.Jobs = append([]domain.Job(nil), t.ciStatus.Jobs...)
		if t.ciStatus.Pipeline != nil {
			p := *t.ciStatus.Pipeline
			c.Pipeline = &p
		}
		s.CI = &c
	}
	return s
}

func (t *RecoveryTracker) markNotFound(project, mrID string, epoch uint64, cause error) error {
	t.mu.Lock()
	if epoch != t.epoch {
		t.mu.Unlock()
		return nil
	}
	status := NotFoundStatus(project, mrID)
	t.status = &status
	t.ciStatus = nil
	t.mrExists = false
	t.isRecovered = false
	t.shouldStop = true
	t.err = fmt.Errorf("merge request !%s not found in %s: %w", mrID, project, cause)
	t.phase = Reduce(t.phase, EventHalted)
	err := t.err
	t.mu.Unlock()

	t.controller.ForceStop(status.ErrorMessage)
	t.opts.logger.Info().Err(cause).Str("project", project).Str("mr", mrID).Msg("merge request not found")
	t.opts.onUpdate()
	return err
}

func (t *RecoveryTracker) startLoop(ctx context.Context, project, mrID string, epoch uint64) {
	interval := func() time.Duration { return t.controller.Interval(polling.ChannelDashboard) }
	t.loop.restart(ctx, func(ctx context.Context) {
		schedule(ctx, t.opts.newTimer, interval(), interval,
			func(ctx context.Context) bool { return t.tick(ctx, project, mrID, epoch) },
		)
	})
}

// tick re-fetches the CI status and re-derives the view from scratch.
func (t *RecoveryTracker) tick(ctx context.Context, project, mrID string, epoch uint64) bool {
	if !t.keepPolling(epoch) {
		return false
	}

	t.opts.logger.Debug().Str("project", project).Str("mr", mrID).Msg("polling merge request CI status")
	ci, err := t.ci.MergeRequestCIStatus(ctx, project, mrID)
	if ctx.Err() != nil {
		return false
	}

	t.mu.Lock()
	if epoch != t.epoch {
		t.mu.Unlock()
		return false
	}
	if err != nil {
		t.err = err
		t.shouldStop = true
		t.phase = Reduce(t.phase, EventHalted)
		t.mu.Unlock()
		t.controller.ForceStop("Recovery polling failed: " + err.Error())
		t.opts.onUpdate()
		return false
	}
	derived := RecoveredStatusFromCI(project, mrID, ci)
	t.status = &derived
	t.ciStatus = &ci
	t.err = nil
	if derived.Status.IsTerminal() {
		t.shouldStop = true
	}
	t.mu.Unlock()
	t.opts.onUpdate()

	return t.keepPolling(epoch)
}

func (t *RecoveryTracker) keepPolling(epoch uint64) bool {
	t.mu.Lock()
	if epoch != t.epoch {
		t.mu.Unlock()
		return false
	}
	if t.continueLocked() {
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

func (t *RecoveryTracker) continueLocked() bool {
	return t.isRecovered && !t.shouldStop && t.mrExists && t.controller.IsPolling()
}

func (t *RecoveryTracker) clearLocked() {
	t.shouldStop = false
	t.mrExists = false
	t.isRecovered = false
	t.err = nil
	t.phase = Reduce(t.phase, EventReset)
}
