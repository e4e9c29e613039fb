package tracker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/waabox/autofixdeck/internal/domain"
	"github.com/waabox/autofixdeck/internal/tracker"
)

func ciStatus(state domain.MergeRequestState, overall domain.PipelineStatus) domain.CIStatus {
	return domain.CIStatus{
		MergeRequest:  domain.CIMergeRequest{ID: 1007, IID: 7, State: state, WebURL: "https://gitlab/group/app/-/merge_requests/7"},
		Pipeline:      &domain.CIPipeline{ID: 555, Status: overall, CreatedAt: "2026-01-02T10:00:00Z", UpdatedAt: "2026-01-02T10:05:00Z"},
		OverallStatus: overall,
	}
}

func stepStatuses(s domain.WorkflowStatus) map[domain.StepName]domain.StepStatus {
	out := make(map[domain.StepName]domain.StepStatus)
	for name, step := range s.Steps {
		out[name] = step.Status
	}
	return out
}

func TestRecoveredStatusFromCI_OpenedAndGreen(t *testing.T) {
	s := tracker.RecoveredStatusFromCI("group/app", "7", ciStatus(domain.MergeRequestOpened, domain.PipelineSuccess))

	assert.Equal(t, domain.WorkflowRunning, s.Status)
	assert.Equal(t, domain.StepMergeMR, s.CurrentStep)
	assert.Equal(t, map[domain.StepName]domain.StepStatus{
		domain.StepPrepareProject:   domain.StepCompleted,
		domain.StepCreateMR:         domain.StepCompleted,
		domain.StepDebugLoop:        domain.StepCompleted,
		domain.StepMergeMR:          domain.StepPending,
		domain.StepPostMergeMonitor: domain.StepPending,
	}, stepStatuses(s))
	assert.Equal(t, "recovered-group-app-7", s.SessionID)
	assert.Equal(t, int64(555), s.PipelineInfo.PipelineID)
	assert.Equal(t, int64(7), s.PipelineInfo.MergeRequest.IID)
	assert.Equal(t, "2026-01-02T10:00:00Z", s.StartedAt)
}

func TestRecoveredStatusFromCI_IsPure(t *testing.T) {
	ci := ciStatus(domain.MergeRequestMerged, domain.PipelineRunning)
	first := tracker.RecoveredStatusFromCI("group/app", "7", ci)
	second := tracker.RecoveredStatusFromCI("group/app", "7", ci)
	assert.Equal(t, first, second)
}

func TestRecoveredStatusFromCI_BeforeMerge(t *testing.T) {
	tests := []struct {
		overall domain.PipelineStatus
		debug   domain.StepStatus
	}{
		{domain.PipelineSuccess, domain.StepCompleted},
		{domain.PipelineRunning, domain.StepRunning},
		{domain.PipelinePending, domain.StepRunning},
		{domain.PipelineFailed, domain.StepRunning},
		{domain.PipelineNone, domain.StepPending},
	}
	for _, tt := range tests {
		t.Run(string(tt.overall), func(t *testing.T) {
			s := tracker.RecoveredStatusFromCI("g/p", "1", ciStatus(domain.MergeRequestOpened, tt.overall))
			assert.Equal(t, tt.debug, s.Steps[domain.StepDebugLoop].Status)
			assert.Equal(t, domain.WorkflowRunning, s.Status)
		})
	}
}

func TestRecoveredStatusFromCI_AfterMerge(t *testing.T) {
	tests := []struct {
		overall  domain.PipelineStatus
		monitor  domain.StepStatus
		workflow domain.WorkflowState
	}{
		{domain.PipelineSuccess, domain.StepCompleted, domain.WorkflowCompleted},
		{domain.PipelineRunning, domain.StepRunning, domain.WorkflowRunning},
		{domain.PipelineFailed, domain.StepFailed, domain.WorkflowFailed},
		{domain.PipelineNone, domain.StepPending, domain.WorkflowRunning},
	}
	for _, tt := range tests {
		t.Run(string(tt.overall), func(t *testing.T) {
			s := tracker.RecoveredStatusFromCI("g/p", "1", ciStatus(domain.MergeRequestMerged, tt.overall))
			assert.Equal(t, domain.StepCompleted, s.Steps[domain.StepDebugLoop].Status)
			assert.Equal(t, domain.StepCompleted, s.Steps[domain.StepMergeMR].Status)
			assert.Equal(t, tt.monitor, s.Steps[domain.StepPostMergeMonitor].Status)
			assert.Equal(t, tt.workflow, s.Status)
			assert.Equal(t, domain.StepPostMergeMonitor, s.CurrentStep)
		})
	}
}

func TestRecoveredStatusFromCI_ClosedIsDerivedLikeOpen(t *testing.T) {
	for _, overall := range []domain.PipelineStatus{domain.PipelineSuccess, domain.PipelineFailed, domain.PipelineRunning} {
		t.Run(string(overall), func(t *testing.T) {
			closed := tracker.RecoveredStatusFromCI("g/p", "1", ciStatus(domain.MergeRequestClosed, overall))
			opened := tracker.RecoveredStatusFromCI("g/p", "1", ciStatus(domain.MergeRequestOpened, overall))
			assert.Equal(t, domain.WorkflowRunning, closed.Status)
			assert.Equal(t, opened.Steps, closed.Steps)
			assert.Equal(t, opened.CurrentStep, closed.CurrentStep)
			assert.Equal(t, domain.StepPending, closed.Steps[domain.StepMergeMR].Status)
		})
	}
}

func TestRecoveredStatusFromCI_WithoutPipeline(t *testing.T) {
	ci := domain.CIStatus{
		MergeRequest:  domain.CIMergeRequest{IID: 3, State: domain.MergeRequestOpened},
		OverallStatus: domain.PipelineNone,
	}
	s := tracker.RecoveredStatusFromCI("g/p", "3", ci)
	assert.Equal(t, domain.StepDebugLoop, s.CurrentStep)
	assert.Zero(t, s.PipelineInfo.PipelineID)
	assert.Empty(t, s.StartedAt)
}

func TestNotFoundStatus(t *testing.T) {
	s := tracker.NotFoundStatus("group/app", "42")
	assert.Equal(t, domain.WorkflowFailed, s.Status)
	assert.Equal(t, domain.StepPrepareProject, s.CurrentStep)
	prepare := s.Steps[domain.StepPrepareProject]
	assert.Equal(t, domain.StepFailed, prepare.Status)
	assert.Contains(t, prepare.ErrorMessage, "!42")
	assert.Len(t, s.OrderedSteps(), 5)
}
