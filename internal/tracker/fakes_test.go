package tracker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/waabox/autofixdeck/internal/domain"
	"github.com/waabox/autofixdeck/internal/util/timeutil"
)

type counter struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *counter) hit(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[name]++
}

func (c *counter) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

type fakeWorkflows struct {
	counter
	start  func(domain.StartRequest) (domain.StartResponse, error)
	status func(string) (domain.WorkflowStatus, error)
	logs   func(string) ([]string, error)
	byMR   func(project, mrID string) (domain.WorkflowStatus, error)
	stop   func(string, bool) error
}

func (f *fakeWorkflows) StartWorkflow(_ context.Context, req domain.StartRequest) (domain.StartResponse, error) {
	f.hit("start")
	if f.start == nil {
		return domain.StartResponse{}, nil
	}
	return f.start(req)
}

func (f *fakeWorkflows) WorkflowStatus(_ context.Context, id string) (domain.WorkflowStatus, error) {
	f.hit("status")
	if f.status == nil {
		return domain.WorkflowStatus{}, nil
	}
	return f.status(id)
}

func (f *fakeWorkflows) WorkflowLogs(_ context.Context, id string) ([]string, error) {
	f.hit("logs")
	if f.logs == nil {
		return nil, nil
	}
	return f.logs(id)
}

func (f *fakeWorkflows) WorkflowStatusByMR(_ context.Context, project, mrID string) (domain.WorkflowStatus, error) {
	f.hit("byMR")
	if f.byMR == nil {
		return domain.WorkflowStatus{}, domain.ErrNotFound
	}
	return f.byMR(project, mrID)
}

func (f *fakeWorkflows) StopWorkflow(_ context.Context, id string, force bool) error {
	f.hit("stop")
	if f.stop == nil {
		return nil
	}
	return f.stop(id, force)
}

type fakeCI struct {
	counter
	stateMu sync.Mutex
	status  domain.CIStatus
	err     error
}

func (f *fakeCI) set(status domain.CIStatus, err error) {
	f.stateMu.Lock()
	defer f.stateMu.Unlock()
	f.status, f.err = status, err
}

func (f *fakeCI) MergeRequestCIStatus(_ context.Context, _, _ string) (domain.CIStatus, error) {
	f.hit("ci")
	f.stateMu.Lock()
	defer f.stateMu.Unlock()
	return f.status, f.err
}

type fakePipelines struct {
	counter
	status  func() (domain.PipelineSummary, error)
	jobs    func() ([]domain.Job, error)
	monitor func() (domain.MonitorData, error)
	retry   func() error
	trace   func(int64) (string, error)
}

func (f *fakePipelines) PipelineStatus(context.Context, string) (domain.PipelineSummary, error) {
	f.hit("status")
	if f.status == nil {
		return domain.PipelineSummary{}, nil
	}
	return f.status()
}

func (f *fakePipelines) PipelineJobs(context.Context, string) ([]domain.Job, error) {
	f.hit("jobs")
	if f.jobs == nil {
		return nil, nil
	}
	return f.jobs()
}

func (f *fakePipelines) PipelineMonitor(context.Context, string) (domain.MonitorData, error) {
	f.hit("monitor")
	if f.monitor == nil {
		return domain.MonitorData{}, nil
	}
	return f.monitor()
}

func (f *fakePipelines) RetryFailedJobs(context.Context, string) error {
	f.hit("retry")
	if f.retry == nil {
		return nil
	}
	return f.retry()
}

func (f *fakePipelines) JobTrace(_ context.Context, _ string, jobID int64) (string, error) {
	f.hit("trace")
	if f.trace == nil {
		return "", nil
	}
	return f.trace(jobID)
}

func nextTimer(t *testing.T, timers *timeutil.FakeTimers) *timeutil.FakeTimer {
	t.Helper()
	timer, ok := timers.Next(2 * time.Second)
	require.True(t, ok, "expected a poll to be scheduled")
	return timer
}

func noTimer(t *testing.T, timers *timeutil.FakeTimers) {
	t.Helper()
	_, ok := timers.Next(50 * time.Millisecond)
	require.False(t, ok, "expected no further poll to be scheduled")
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func runningStatus(sessionID string) domain.WorkflowStatus {
	return domain.WorkflowStatus{
		SessionID:   sessionID,
		Status:      domain.WorkflowRunning,
		CurrentStep: domain.StepPrepareProject,
		Steps: map[domain.StepName]domain.StepState{
			domain.StepPrepareProject: {Name: domain.StepPrepareProject, Status: domain.StepRunning},
			domain.StepCreateMR:       {Name: domain.StepCreateMR, Status: domain.StepPending},
		},
	}
}
