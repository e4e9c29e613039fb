package tracker_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/autofixdeck/internal/apiclient"
	"github.com/waabox/autofixdeck/internal/domain"
	"github.com/waabox/autofixdeck/internal/polling"
	"github.com/waabox/autofixdeck/internal/tracker"
	"github.com/waabox/autofixdeck/internal/util/timeutil"
)

func newWorkflowTracker(t *testing.T, provider *fakeWorkflows) (*tracker.WorkflowTracker, *polling.Controller, *timeutil.FakeTimers) {
	t.Helper()
	controller := polling.NewController()
	timers := timeutil.NewFakeTimers()
	wt := tracker.NewWorkflowTracker(provider, controller, tracker.WithNewTimerFunc(timers.Func()))
	t.Cleanup(wt.Close)
	return wt, controller, timers
}

func TestWorkflowTracker_StartThenFirstFetch(t *testing.T) {
	var gotReq domain.StartRequest
	provider := &fakeWorkflows{
		start: func(req domain.StartRequest) (domain.StartResponse, error) {
			gotReq = req
			return domain.StartResponse{SessionID: "s1", Status: "started", Message: "Workflow started"}, nil
		},
		status: func(string) (domain.WorkflowStatus, error) { return runningStatus("s1"), nil },
		logs:   func(string) ([]string, error) { return []string{"init"}, nil },
	}
	wt, controller, timers := newWorkflowTracker(t, provider)
	ctx := testContext(t)

	resp, err := wt.StartWorkflow(ctx, domain.StartRequest{ProjectName: "g/p", SourceBranch: "ai", TargetBranch: "dev"})
	require.NoError(t, err)
	assert.Equal(t, "s1", resp.SessionID)
	assert.Equal(t, "g/p", gotReq.ProjectName)

	settle := nextTimer(t, timers)
	assert.Equal(t, 2*time.Second, settle.Duration())
	assert.Equal(t, 0, provider.count("status"))

	settle.Fire()
	next := nextTimer(t, timers)
	assert.Equal(t, 5*time.Second, next.Duration())

	snap := wt.Snapshot()
	assert.Equal(t, tracker.PhasePolling, snap.Phase)
	assert.Equal(t, "s1", snap.SessionID)
	assert.NoError(t, snap.Err)
	assert.Equal(t, []string{"init"}, snap.Logs)
	require.NotNil(t, snap.Status)
	assert.Equal(t, domain.WorkflowRunning, snap.Status.Status)
	assert.True(t, controller.IsPolling())
}

func TestWorkflowTracker_StartFailureIsReturned(t *testing.T) {
	provider := &fakeWorkflows{
		start: func(domain.StartRequest) (domain.StartResponse, error) {
			return domain.StartResponse{}, domain.ErrServiceUnavailable
		},
	}
	wt, _, timers := newWorkflowTracker(t, provider)

	_, err := wt.StartWorkflow(testContext(t), domain.StartRequest{ProjectName: "g/p"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	assert.Equal(t, tracker.PhaseIdle, wt.Snapshot().Phase)
	assert.Equal(t, 0, timers.Count())
}

func TestWorkflowTracker_StartFailureLeavesPollingAlone(t *testing.T) {
	provider := &fakeWorkflows{
		start: func(domain.StartRequest) (domain.StartResponse, error) {
			return domain.StartResponse{}, &apiclient.Error{Kind: apiclient.KindConnection, Message: "Cannot connect to server: connection failed"}
		},
	}
	wt, controller, _ := newWorkflowTracker(t, provider)

	_, err := wt.StartWorkflow(testContext(t), domain.StartRequest{ProjectName: "g/p"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConnection)

	snap := wt.Snapshot()
	assert.Error(t, snap.Err)
	assert.Empty(t, snap.StoppedReason)
	assert.True(t, controller.IsPolling())
	assert.Empty(t, controller.StoppedReason())
}

func TestWorkflowTracker_FatalLogLineFailsTheWorkflow(t *testing.T) {
	provider := &fakeWorkflows{
		status: func(string) (domain.WorkflowStatus, error) { return runningStatus("s1"), nil },
		logs: func(string) ([]string, error) {
			return []string{"Cloning into 'app'...", "fatal: unencrypted HTTP is not supported", "cleanup"}, nil
		},
	}
	wt, controller, timers := newWorkflowTracker(t, provider)
	ctx := testContext(t)

	wt.Attach(ctx, "s1")
	settle := nextTimer(t, timers)
	assert.Equal(t, time.Second, settle.Duration())
	settle.Fire()
	require.NoError(t, wt.Wait(ctx))

	snap := wt.Snapshot()
	require.NotNil(t, snap.Status)
	assert.Equal(t, domain.WorkflowFailed, snap.Status.Status)
	assert.Contains(t, snap.Status.ErrorMessage, "unencrypted HTTP")
	assert.Equal(t, domain.StepFailed, snap.Status.Steps[domain.StepPrepareProject].Status)
	assert.Equal(t, tracker.PhaseStopped, snap.Phase)
	assert.False(t, controller.IsPolling())
	assert.Equal(t, "fatal error in logs: fatal: unencrypted HTTP is not supported", snap.StoppedReason)

	var fatal *domain.FatalLogError
	require.True(t, errors.As(snap.Err, &fatal))
	noTimer(t, timers)
}

func TestWorkflowTracker_TerminalStatusSchedulesNothingMore(t *testing.T) {
	calls := 0
	provider := &fakeWorkflows{
		status: func(string) (domain.WorkflowStatus, error) {
			calls++
			s := runningStatus("s1")
			if calls == 2 {
				s.Status = domain.WorkflowCompleted
			}
			return s, nil
		},
	}
	wt, _, timers := newWorkflowTracker(t, provider)
	ctx := testContext(t)

	wt.Attach(ctx, "s1")
	nextTimer(t, timers).Fire()
	nextTimer(t, timers).Fire()
	require.NoError(t, wt.Wait(ctx))

	noTimer(t, timers)
	assert.Equal(t, 2, timers.Count())
	assert.Equal(t, 0, timers.Pending())
	assert.Equal(t, 2, provider.count("status"))
	assert.Equal(t, tracker.PhaseStopped, wt.Snapshot().Phase)
}

func TestWorkflowTracker_FetchOnceDeduplicatesLogs(t *testing.T) {
	batches := [][]string{{"a", "b"}, {"a", "b"}, {"b", "c"}}
	i := 0
	provider := &fakeWorkflows{
		status: func(string) (domain.WorkflowStatus, error) { return runningStatus("s1"), nil },
		logs: func(string) ([]string, error) {
			b := batches[i]
			i++
			return b, nil
		},
	}
	wt, _, _ := newWorkflowTracker(t, provider)
	ctx := testContext(t)
	wt.Attach(ctx, "s1")

	require.NoError(t, wt.FetchOnce(ctx))
	require.NoError(t, wt.FetchOnce(ctx))
	assert.Equal(t, []string{"a", "b"}, wt.Snapshot().Logs)

	require.NoError(t, wt.FetchOnce(ctx))
	assert.Equal(t, []string{"a", "b", "c"}, wt.Snapshot().Logs)
}

func TestWorkflowTracker_LogsAreBestEffort(t *testing.T) {
	provider := &fakeWorkflows{
		status: func(string) (domain.WorkflowStatus, error) {
			s := runningStatus("s1")
			s.Logs = []string{"from status"}
			return s, nil
		},
		logs: func(string) ([]string, error) { return nil, domain.ErrNotFound },
	}
	wt, controller, _ := newWorkflowTracker(t, provider)
	ctx := testContext(t)
	wt.Attach(ctx, "s1")

	require.NoError(t, wt.FetchOnce(ctx))
	snap := wt.Snapshot()
	assert.NoError(t, snap.Err)
	assert.Equal(t, []string{"from status"}, snap.Logs)
	assert.True(t, controller.IsPolling())
}

func TestWorkflowTracker_FetchErrorStopsPolling(t *testing.T) {
	provider := &fakeWorkflows{
		status: func(string) (domain.WorkflowStatus, error) {
			return domain.WorkflowStatus{}, errors.New("Cannot connect to backend service. Please check if the server is running and accessible.")
		},
	}
	wt, controller, timers := newWorkflowTracker(t, provider)
	ctx := testContext(t)

	wt.Attach(ctx, "s1")
	nextTimer(t, timers).Fire()
	require.NoError(t, wt.Wait(ctx))

	snap := wt.Snapshot()
	require.Error(t, snap.Err)
	assert.Nil(t, snap.Status)
	assert.False(t, controller.IsPolling())
	assert.Contains(t, snap.StoppedReason, "Cannot connect")
	assert.Equal(t, tracker.PhaseStopped, snap.Phase)
}

func TestWorkflowTracker_CriticalStepFailureStopsPolling(t *testing.T) {
	provider := &fakeWorkflows{
		status: func(string) (domain.WorkflowStatus, error) {
			s := runningStatus("s1")
			s.CurrentStep = domain.StepMergeMR
			s.Steps[domain.StepMergeMR] = domain.StepState{Name: domain.StepMergeMR, Status: domain.StepFailed, ErrorMessage: "merge conflict"}
			return s, nil
		},
	}
	wt, controller, _ := newWorkflowTracker(t, provider)
	ctx := testContext(t)
	wt.Attach(ctx, "s1")

	require.NoError(t, wt.FetchOnce(ctx))
	assert.False(t, controller.IsPolling())
	assert.Equal(t, "Step merge_mr failed: merge conflict", controller.StoppedReason())
	assert.EqualError(t, wt.Snapshot().Err, "merge conflict")
}

func TestWorkflowTracker_ErrorMessageStopsPolling(t *testing.T) {
	provider := &fakeWorkflows{
		status: func(string) (domain.WorkflowStatus, error) {
			s := runningStatus("s1")
			s.ErrorMessage = "LLM quota reached"
			return s, nil
		},
	}
	wt, controller, _ := newWorkflowTracker(t, provider)
	ctx := testContext(t)
	wt.Attach(ctx, "s1")

	require.NoError(t, wt.FetchOnce(ctx))
	assert.Equal(t, "Workflow error: LLM quota reached", controller.StoppedReason())
}

func TestWorkflowTracker_MergeRequestLink(t *testing.T) {
	provider := &fakeWorkflows{
		status: func(string) (domain.WorkflowStatus, error) {
			s := runningStatus("s1")
			s.ProjectInfo = &domain.ProjectInfo{ProjectName: "group/app"}
			s.PipelineInfo = &domain.PipelineInfo{MergeRequest: &domain.MergeRequestRef{ID: 900, WebURL: "https://gitlab/mr"}}
			return s, nil
		},
	}
	wt, _, _ := newWorkflowTracker(t, provider)
	ctx := testContext(t)
	wt.Attach(ctx, "s1")

	require.NoError(t, wt.FetchOnce(ctx))
	mr := wt.Snapshot().MR
	require.NotNil(t, mr)
	assert.Equal(t, domain.MRLink{MRID: "900", ProjectNameForURL: "group-app", WebURL: "https://gitlab/mr"}, *mr)
}

func TestWorkflowTracker_StopAlwaysStopsLocally(t *testing.T) {
	provider := &fakeWorkflows{
		stop: func(id string, force bool) error {
			assert.Equal(t, "s1", id)
			assert.True(t, force)
			return domain.ErrServiceUnavailable
		},
	}
	wt, controller, timers := newWorkflowTracker(t, provider)
	ctx := testContext(t)
	wt.Attach(ctx, "s1")
	nextTimer(t, timers)

	err := wt.StopWorkflow(ctx, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	assert.False(t, controller.IsPolling())
	assert.Equal(t, "Workflow stopped by user", controller.StoppedReason())
	assert.Equal(t, tracker.PhaseStopped, wt.Snapshot().Phase)
	assert.Equal(t, 0, timers.Pending())
}

func TestWorkflowTracker_ResumeResetsAndPollsAgain(t *testing.T) {
	provider := &fakeWorkflows{
		status: func(string) (domain.WorkflowStatus, error) { return runningStatus("s1"), nil },
	}
	wt, controller, timers := newWorkflowTracker(t, provider)
	ctx := testContext(t)
	wt.Attach(ctx, "s1")
	nextTimer(t, timers)
	require.NoError(t, wt.StopWorkflow(ctx, false))

	wt.Resume(ctx)
	assert.True(t, controller.IsPolling())
	assert.Equal(t, tracker.PhasePolling, wt.Snapshot().Phase)

	nextTimer(t, timers).Fire()
	nextTimer(t, timers)
	assert.Equal(t, 1, provider.count("status"))
}

func TestWorkflowTracker_DiscardsStaleResult(t *testing.T) {
	release := make(chan struct{})
	provider := &fakeWorkflows{
		status: func(string) (domain.WorkflowStatus, error) {
			<-release
			return runningStatus("s1"), nil
		},
	}
	wt, _, _ := newWorkflowTracker(t, provider)
	ctx := testContext(t)
	wt.Attach(ctx, "s1")

	done := make(chan error, 1)
	go func() { done <- wt.FetchOnce(ctx) }()
	require.Eventually(t, func() bool { return provider.count("status") == 1 }, time.Second, time.Millisecond)

	wt.Close()
	close(release)
	require.NoError(t, <-done)
	assert.Nil(t, wt.Snapshot().Status)
}

func TestWorkflowTracker_OnUpdateIsCalled(t *testing.T) {
	var updates atomic.Int32
	provider := &fakeWorkflows{
		status: func(string) (domain.WorkflowStatus, error) { return runningStatus("s1"), nil },
	}
	timers := timeutil.NewFakeTimers()
	wt := tracker.NewWorkflowTracker(provider, polling.NewController(),
		tracker.WithNewTimerFunc(timers.Func()),
		tracker.WithOnUpdate(func() { updates.Add(1) }),
	)
	t.Cleanup(wt.Close)
	ctx := testContext(t)

	wt.Attach(ctx, "s1")
	require.NoError(t, wt.FetchOnce(ctx))
	assert.GreaterOrEqual(t, updates.Load(), int32(2))
}
