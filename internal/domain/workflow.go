package domain

import "slices"

// WorkflowState is the lifecycle state of a backend-tracked workflow session.
type WorkflowState string

const (
	WorkflowPending   WorkflowState = "pending"
	WorkflowRunning   WorkflowState = "running"
	WorkflowCompleted WorkflowState = "completed"
	WorkflowFailed    WorkflowState = "failed"
	WorkflowCancelled WorkflowState = "cancelled"
	WorkflowRecovered WorkflowState = "recovered"
)

// IsTerminal reports whether the backend is expected to stop mutating a session in this state.
func (s WorkflowState) IsTerminal() bool {
	switch s {
	case WorkflowCompleted, WorkflowFailed, WorkflowCancelled:
		return true
	}
	return false
}

// StepStatus is the execution state of a single workflow step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// StepName identifies one of the fixed workflow stages.
type StepName string

const (
	StepPrepareProject   StepName = "prepare_project"
	StepCreateMR         StepName = "create_mr"
	StepDebugLoop        StepName = "debug_loop"
	StepMergeMR          StepName = "merge_mr"
	StepPostMergeMonitor StepName = "post_merge_monitor"
)

var stepOrder = []StepName{
	StepPrepareProject,
	StepCreateMR,
	StepDebugLoop,
	StepMergeMR,
	StepPostMergeMonitor,
}

// StepOrder returns the canonical step order. The returned slice is a copy.
func StepOrder() []StepName {
	out := make([]StepName, len(stepOrder))
	copy(out, stepOrder)
	return out
}

// DisplayName returns a human readable label for the step.
func (n StepName) DisplayName() string {
	switch n {
	case StepPrepareProject:
		return "Prepare project"
	case StepCreateMR:
		return "Create merge request"
	case StepDebugLoop:
		return "Debug loop"
	case StepMergeMR:
		return "Merge"
	case StepPostMergeMonitor:
		return "Post-merge monitor"
	default:
		return string(n)
	}
}

// StepState is one pipeline stage as reported by the backend.
type StepState struct {
	Name         StepName   `json:"name"`
	DisplayName  string     `json:"display_name,omitempty"`
	Status       StepStatus `json:"status"`
	Description  string     `json:"description,omitempty"`
	StartedAt    string     `json:"started_at,omitempty"`
	CompletedAt  string     `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// ProjectInfo describes the project a workflow operates on.
type ProjectInfo struct {
	ProjectName string `json:"project_name,omitempty"`
	ProjectID   int64  `json:"project_id,omitempty"`
	LocalDir    string `json:"local_dir,omitempty"`
}

// MergeRequestRef is the merge request a workflow created.
type MergeRequestRef struct {
	ID     int64  `json:"id,omitempty"`
	IID    int64  `json:"iid,omitempty"`
	WebURL string `json:"web_url,omitempty"`
	Title  string `json:"title,omitempty"`
}

// PipelineInfo links a workflow to its CI pipeline, merge request and deployment.
type PipelineInfo struct {
	PipelineID    int64            `json:"pipeline_id,omitempty"`
	MergeRequest  *MergeRequestRef `json:"merge_request,omitempty"`
	DeploymentURL string           `json:"deployment_url,omitempty"`
}

// WorkflowStatus is the structured view of one workflow execution.
type WorkflowStatus struct {
	SessionID    string                 `json:"session_id"`
	Status       WorkflowState          `json:"status"`
	CurrentStep  StepName               `json:"current_step"`
	Steps        map[StepName]StepState `json:"steps"`
	ProjectInfo  *ProjectInfo           `json:"project_info,omitempty"`
	PipelineInfo *PipelineInfo          `json:"pipeline_info,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	StartedAt    string                 `json:"started_at,omitempty"`
	UpdatedAt    string                 `json:"updated_at,omitempty"`
	Logs         []string               `json:"logs,omitempty"`
}

// OrderedSteps returns the known steps in canonical order, skipping any the payload lacks.
// Steps with non-canonical names are appended after the canonical ones in name order.
func (w WorkflowStatus) OrderedSteps() []StepState {
	out := make([]StepState, 0, len(w.Steps))
	for _, name := range stepOrder {
		if s, ok := w.Steps[name]; ok {
			if s.Name == "" {
				s.Name = name
			}
			out = append(out, s)
		}
	}
	var extra []StepName
	for name := range w.Steps {
		if !isCanonical(name) {
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	for _, name := range extra {
		out = append(out, w.Steps[name])
	}
	return out
}

// Clone returns a deep copy safe to hand to another goroutine.
func (w WorkflowStatus) Clone() WorkflowStatus {
	c := w
	if w.Steps != nil {
		c.Steps = make(map[StepName]StepState, len(w.Steps))
		for k, v := range w.Steps {
			c.Steps[k] = v
		}
	}
	if w.ProjectInfo != nil {
		p := *w.ProjectInfo
		c.ProjectInfo = &p
	}
	if w.PipelineInfo != nil {
		p := *w.PipelineInfo
		if w.PipelineInfo.MergeRequest != nil {
			mr := *w.PipelineInfo.MergeRequest
			p.MergeRequest = &mr
		}
		c.PipelineInfo = &p
	}
	if w.Logs != nil {
		c.Logs = append([]string(nil), w.Logs...)
	}
	return c
}

// MRLink is the merge request linkage a dashboard needs for deep links.
type MRLink struct {
	MRID              string
	ProjectNameForURL string
	WebURL            string
}

func isCanonical(name StepName) bool {
	return slices.Contains(stepOrder, name)
}
