package tracker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/waabox/autofixdeck/internal/domain"
	"github.com/waabox/autofixdeck/internal/polling"
)

// criticalSteps stop polling as soon as they fail with a message.
var criticalSteps = []domain.StepName{domain.StepPrepareProject, domain.StepMergeMR}

// WorkflowSnapshot is a copy of the workflow tracker state.
type WorkflowSnapshot struct {
	Phase         Phase
	SessionID     string
	Status        *domain.WorkflowStatus
	Logs          []string
	MR            *domain.MRLink
	Err           error
	StoppedReason string
}

// WorkflowTracker follows one workflow session.
type WorkflowTracker struct {
	provider   domain.WorkflowProvider
	controller *polling.Controller
	opts       options
	loop       loop

	mu        sync.Mutex
	phase     Phase
	sessionID string
	status    *domain.WorkflowStatus
	logs      []string
	seen      map[string]struct{}
	mr        *domain.MRLink
	err       error
	epoch     uint64
}

// NewWorkflowTracker creates an idle tracker.
func NewWorkflowTracker(provider domain.WorkflowProvider, controller *polling.Controller, opts ...Option) *WorkflowTracker {
	return &WorkflowTracker{
		provider:   provider,
		controller: controller,
		opts:       buildOptions(opts),
		seen:       make(map[string]struct{}),
	}
}

// StartWorkflow starts a session and begins polling it after the start settle delay.
// A failed start is returned and recorded but leaves the shared polling state alone.
// The polling goroutine lives until ctx is done, the tracker stops or Close is called.
func (t *WorkflowTracker) StartWorkflow(ctx context.Context, req domain.StartRequest) (domain.StartResponse, error) {
	t.mu.Lock()
	t.phase = Reduce(t.phase, EventBegin)
	t.err = nil
	epoch := t.epoch
	t.mu.Unlock()
	t.opts.onUpdate()

	resp, err := t.provider.StartWorkflow(ctx, req)
	if err != nil {
		t.mu.Lock()
		t.phase = Reduce(t.phase, EventBeginFailed)
		t.err = err
		t.mu.Unlock()
		t.opts.onUpdate()
		return domain.StartResponse{}, fmt.Errorf("starting workflow: %w", err)
	}

	t.mu.Lock()
	if epoch != t.epoch {
		t.mu.Unlock()
		return resp, nil
	}
	t.setSessionLocked(resp.SessionID)
	t.phase = Reduce(t.phase, EventPolled)
	t.mu.Unlock()

	t.opts.logger.Info().Str("session_id", resp.SessionID).Msg("workflow started")
	t.opts.onUpdate()

	if resp.SessionID != "" {
		t.startLoop(ctx, t.opts.startSettle)
	}
	return resp, nil
}

// Attach follows an existing session, polling after the attach settle delay.
func (t *WorkflowTracker) Attach(ctx context.Context, sessionID string) {
	t.mu.Lock()
	t.setSessionLocked(sessionID)
	t.phase = Reduce(Reduce(t.phase, EventBegin), EventPolled)
	t.err = nil
	t.mu.Unlock()
	t.opts.onUpdate()

	t.startLoop(ctx, t.opts.attachSettle)
}

// Resume resets the polling controller and the tracker error state and restarts
// polling the current session.
func (t *WorkflowTracker) Resume(ctx context.Context) {
	t.loop.stop()
	t.controller.Reset()

	t.mu.Lock()
	t.epoch++
	t.err = nil
	sessionID := t.sessionID
	if sessionID == "" {
		t.phase = Reduce(t.phase, EventReset)
	} else {
		t.phase = Reduce(Reduce(t.phase, EventBegin), EventPolled)
	}
	t.mu.Unlock()
	t.opts.onUpdate()

	if sessionID != "" {
		t.startLoop(ctx, t.opts.attachSettle)
	}
}

// StopWorkflow asks the backend to stop the session and stops local polling
// whatever the backend answers.
func (t *WorkflowTracker) StopWorkflow(ctx context.Context, force bool) error {
	t.mu.Lock()
	sessionID := t.sessionID
	t.mu.Unlock()
	if sessionID == "" {
		return errors.New("no workflow session to stop")
	}

	err := t.provider.StopWorkflow(ctx, sessionID, force)
	t.controller.ForceStop("Workflow stopped by user")
	t.loop.stop()

	t.mu.Lock()
	t.epoch++
	t.phase = Reduce(t.phase, EventHalted)
	t.err = err
	t.mu.Unlock()
	t.opts.onUpdate()

	if err != nil {
		return fmt.Errorf("stopping workflow %s: %w", sessionID, err)
	}
	t.opts.logger.Info().Str("session_id", sessionID).Bool("force", force).Msg("workflow stopped")
	return nil
}

// FetchOnce fetches and applies the current session state once.
// The error is also kept in the snapshot.
func (t *WorkflowTracker) FetchOnce(ctx context.Context) error {
	t.mu.Lock()
	sessionID, epoch := t.sessionID, t.epoch
	t.mu.Unlock()
	if sessionID == "" {
		return errors.New("no workflow session")
	}
	return t.fetch(ctx, sessionID, epoch)
}

// Close stops polling and discards any in-flight result.
func (t *WorkflowTracker) Close() {
	t.loop.stop()
	t.mu.Lock()
	t.epoch++
	t.mu.Unlock()
}

// Wait blocks until the polling goroutine exits or ctx is done.
func (t *WorkflowTracker) Wait(ctx context.Context) error {
	return t.loop.wait(ctx)
}

// Snapshot returns a copy of the current state.
func (t *WorkflowTracker) Snapshot() WorkflowSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := WorkflowSnapshot{
		Phase:         t.phase,
		SessionID:     t.sessionID,
		Logs:          append([]string(nil), t.logs...),
		Err:           t.err,
		StoppedReason: t.controller.StoppedReason(),
	}
	if t.status != nil {
		c := t.status.Clone()
		s.Status = &c
	}
	if t.mr != nil {
		mr := *t.mr
		s.MR = &mr
	}
	return s
}

func (t *WorkflowTracker) startLoop(ctx context.Context, settle time.Duration) {
	t.mu.Lock()
	sessionID, epoch := t.sessionID, t.epoch
	t.mu.Unlock()

	t.loop.restart(ctx, func(ctx context.Context) {
		schedule(ctx, t.opts.newTimer, settle,
			func() time.Duration { return t.controller.Interval(polling.ChannelWorkflow) },
			func(ctx context.Context) bool { return t.tick(ctx, sessionID, epoch) },
		)
	})
}

// tick runs one poll and reports whether polling continues.
func (t *WorkflowTracker) tick(ctx context.Context, sessionID string, epoch uint64) bool {
	if !t.keepPolling(epoch) {
		return false
	}
	t.opts.logger.Debug().Str("session_id", sessionID).Msg("polling workflow status")
	_ = t.fetch(ctx, sessionID, epoch)
	return t.keepPolling(epoch)
}

func (t *WorkflowTracker) keepPolling(epoch uint64) bool {
	t.mu.Lock()
	if epoch != t.epoch {
		t.mu.Unlock()
		return false
	}
	terminal := t.status != nil && t.status.Status.IsTerminal()
	if t.controller.IsPolling() && !terminal {
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

func (t *WorkflowTracker) fetch(ctx context.Context, sessionID string, epoch uint64) error {
	var (
		status  domain.WorkflowStatus
		logs    []string
		logsErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := t.provider.WorkflowStatus(gctx, sessionID)
		if err != nil {
			return err
		}
		status = s
		return nil
	})
	g.Go(func() error {
		logs, logsErr = t.provider.WorkflowLogs(gctx, sessionID)
		return nil
	})
	err := g.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	t.mu.Lock()
	if epoch != t.epoch {
		t.mu.Unlock()
		return nil
	}
	if err != nil {
		t.err = err
		t.mu.Unlock()
		t.opts.logger.Warn().Err(err).Str("session_id", sessionID).Msg("workflow status fetch failed")
		t.controller.Inspect(map[string]any{"error": err.Error()}, "workflow API error")
		t.opts.onUpdate()
		return err
	}
	if logsErr != nil {
		t.opts.logger.Debug().Err(logsErr).Str("session_id", sessionID).Msg("workflow logs unavailable")
		logs = status.Logs
	}
	t.applyLocked(status, logs)
	t.mu.Unlock()
	t.opts.onUpdate()
	return nil
}

// applyLocked merges logs, amends the status on a fatal log line, inspects the
// status and updates the merge request link. Callers hold t.mu.
func (t *WorkflowTracker) applyLocked(status domain.WorkflowStatus, logs []string) {
	status = status.Clone()
	t.err = nil

	fresh := t.mergeLogsLocked(logs)
	if verdict := t.controller.InspectLogs(fresh); verdict.Fatal {
		markFailed(&status, verdict.Message)
		t.err = &domain.FatalLogError{Line: verdict.Message}
		t.controller.StopOnFatalLog(verdict.Message)
	}

	t.controller.Inspect(status, "workflow status")

	if status.ErrorMessage != "" {
		if t.err == nil {
			t.err = errors.New(status.ErrorMessage)
		}
		t.controller.ForceStop("Workflow error: " + status.ErrorMessage)
	}
	for _, step := range status.OrderedSteps() {
		if step.Status != domain.StepFailed || step.ErrorMessage == "" {
			continue
		}
		if t.err == nil {
			t.err = errors.New(step.ErrorMessage)
		}
		if slices.Contains(criticalSteps, step.Name) {
			t.controller.ForceStop(fmt.Sprintf("Step %s failed: %s", step.Name, step.ErrorMessage))
			break
		}
	}

	t.status = &status
	t.mr = mrLinkOf(status)

	if !t.controller.IsPolling() || status.Status.IsTerminal() {
		t.phase = Reduce(t.phase, EventHalted)
	} else {
		t.phase = Reduce(t.phase, EventPolled)
	}
}

// mergeLogsLocked appends lines not already held and returns them.
func (t *WorkflowTracker) mergeLogsLocked(lines []string) []string {
	var fresh []string
	for _, line := range lines {
		if _, ok := t.seen[line]; ok {
			continue
		}
		t.seen[line] = struct{}{}
		fresh = append(fresh, line)
	}
	t.logs = append(t.logs, fresh...)
	return fresh
}

func (t *WorkflowTracker) setSessionLocked(sessionID string) {
	if sessionID == t.sessionID {
		return
	}
	t.epoch++
	t.sessionID = sessionID
	t.status = nil
	t.logs = nil
	t.seen = make(map[string]struct{})
	t.mr = nil
}

// markFailed folds a fatal log line into the structured status.
func markFailed(status *domain.WorkflowStatus, message string) {
	status.Status = domain.WorkflowFailed
	status.ErrorMessage = message
	if status.CurrentStep == "" {
		return
	}
	step, ok := status.Steps[status.CurrentStep]
	if !ok {
		return
	}
	step.Status = domain.StepFailed
	step.ErrorMessage = message
	status.Steps[status.CurrentStep] = step
}

func mrLinkOf(status domain.WorkflowStatus) *domain.MRLink {
	if status.PipelineInfo == nil || status.PipelineInfo.MergeRequest == nil {
		return nil
	}
	mr := status.PipelineInfo.MergeRequest
	link := &domain.MRLink{WebURL: mr.WebURL}
	switch {
	case mr.IID != 0:
		link.MRID = strconv.FormatInt(mr.IID, 10)
	case mr.ID != 0:
		link.MRID = strconv.FormatInt(mr.ID, 10)
	}
	if status.ProjectInfo != nil && status.ProjectInfo.ProjectName != "" {
		link.ProjectNameForURL = domain.ProjectNameForURL(status.ProjectInfo.ProjectName)
	}
	return link
}
