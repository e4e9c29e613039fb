package tracker

import (
	"fmt"

	"github.com/waabox/autofixdeck/internal/domain"
)

// RecoveredStatusFromCI derives a workflow view from the CI status of a merge
// request alone. It is a pure function of its inputs.
func RecoveredStatusFromCI(project, mrID string, ci domain.CIStatus) domain.WorkflowStatus {
	overall := ci.OverallStatus
	mr := ci.MergeRequest

	steps := map[domain.StepName]domain.StepState{
		domain.StepPrepareProject: recoveredStep(domain.StepPrepareProject, domain.StepCompleted, "Project exists"),
		domain.StepCreateMR:       recoveredStep(domain.StepCreateMR, domain.StepCompleted, fmt.Sprintf("Merge request !%s exists", mrID)),
	}

	status := domain.WorkflowRunning
	switch mr.State {
	case domain.MergeRequestMerged:
		steps[domain.StepDebugLoop] = recoveredStep(domain.StepDebugLoop, domain.StepCompleted, "Pipeline passed before merge")
		steps[domain.StepMergeMR] = recoveredStep(domain.StepMergeMR, domain.StepCompleted, "Merge request merged")
		monitor := recoveredStep(domain.StepPostMergeMonitor, postMergeStepStatus(overall), "Post-merge pipeline "+pipelineLabel(overall))
		switch monitor.Status {
		case domain.StepFailed:
			monitor.ErrorMessage = "Post-merge pipeline failed"
			status = domain.WorkflowFailed
		case domain.StepCompleted:
			status = domain.WorkflowCompleted
		}
		steps[domain.StepPostMergeMonitor] = monitor
	default:
		steps[domain.StepDebugLoop] = recoveredStep(domain.StepDebugLoop, debugLoopStepStatus(overall), "Pipeline "+pipelineLabel(overall))
		steps[domain.StepMergeMR] = recoveredStep(domain.StepMergeMR, domain.StepPending, "")
		steps[domain.StepPostMergeMonitor] = recoveredStep(domain.StepPostMergeMonitor, domain.StepPending, "")
	}

	out := domain.WorkflowStatus{
		SessionID:   fmt.Sprintf("recovered-%s-%s", domain.ProjectNameForURL(project), mrID),
		Status:      status,
		CurrentStep: currentStepOf(steps),
		Steps:       steps,
		ProjectInfo: &domain.ProjectInfo{ProjectName: project},
		PipelineInfo: &domain.PipelineInfo{
			MergeRequest: &domain.MergeRequestRef{
				ID:     mr.ID,
				IID:    mr.IID,
				WebURL: mr.WebURL,
				Title:  mr.Title,
			},
		},
	}
	if p := ci.Pipeline; p != nil {
		out.PipelineInfo.PipelineID = p.ID
		out.StartedAt = p.CreatedAt
		out.UpdatedAt = p.UpdatedAt
	}
	return out
}

// NotFoundStatus is the terminal view shown when the merge request does not exist.
func NotFoundStatus(project, mrID string) domain.WorkflowStatus {
	msg := fmt.Sprintf("Merge request !%s was not found in project %s", mrID, project)
	steps := map[domain.StepName]domain.StepState{}
	for _, name := range domain.StepOrder() {
		steps[name] = recoveredStep(name, domain.StepPending, "")
	}
	prepare := steps[domain.StepPrepareProject]
	prepare.Status = domain.StepFailed
	prepare.ErrorMessage = msg
	steps[domain.StepPrepareProject] = prepare

	return domain.WorkflowStatus{
		SessionID:    fmt.Sprintf("not-found-%s-%s", domain.ProjectNameForURL(project), mrID),
		Status:       domain.WorkflowFailed,
		CurrentStep:  domain.StepPrepareProject,
		Steps:        steps,
		ProjectInfo:  &domain.ProjectInfo{ProjectName: project},
		ErrorMessage: msg,
	}
}

func recoveredStep(name domain.StepName, status domain.StepStatus, description string) domain.StepState {
	return domain.StepState{
		Name:        name,
		DisplayName: name.DisplayName(),
		Status:      status,
		Description: description,
	}
}

// debugLoopStepStatus maps the pre-merge pipeline. A failed pipeline keeps the
// debug loop running because the backend is expected to still be iterating.
func debugLoopStepStatus(overall domain.PipelineStatus) domain.StepStatus {
	switch {
	case overall == domain.PipelineSuccess:
		return domain.StepCompleted
	case overall == domain.PipelineFailed, overall.IsActive():
		return domain.StepRunning
	default:
		return domain.StepPending
	}
}

func postMergeStepStatus(overall domain.PipelineStatus) domain.StepStatus {
	switch {
	case overall == domain.PipelineSuccess:
		return domain.StepCompleted
	case overall == domain.PipelineFailed:
		return domain.StepFailed
	case overall.IsActive():
		return domain.StepRunning
	default:
		return domain.StepPending
	}
}

func pipelineLabel(overall domain.PipelineStatus) string {
	if overall == "" {
		return string(domain.PipelineNone)
	}
	return string(overall)
}

func currentStepOf(steps map[domain.StepName]domain.StepState) domain.StepName {
	for _, name := range domain.StepOrder() {
		if steps[name].Status != domain.StepCompleted {
			return name
		}
	}
	return domain.StepPostMergeMonitor
}
