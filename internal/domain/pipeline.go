package domain

// PipelineStatus is the CI status string reported by GitLab for a pipeline or job.
// Values are passed through unchanged ("success", "failed", "running", "pending",
// "canceled", "skipped", "manual", "created", ...).
type PipelineStatus string

const (
	PipelineSuccess  PipelineStatus = "success"
	PipelineFailed   PipelineStatus = "failed"
	PipelineRunning  PipelineStatus = "running"
	PipelinePending  PipelineStatus = "pending"
	PipelineCanceled PipelineStatus = "canceled"
	PipelineSkipped  PipelineStatus = "skipped"
	PipelineNone     PipelineStatus = "no_pipeline"
)

// IsActive reports whether the pipeline is still queued or executing.
func (s PipelineStatus) IsActive() bool {
	switch s {
	case PipelineRunning, PipelinePending, "created", "waiting_for_resource", "preparing", "scheduled":
		return true
	}
	return false
}

// MergeRequestState is the GitLab merge request state.
type MergeRequestState string

const (
	MergeRequestOpened MergeRequestState = "opened"
	MergeRequestMerged MergeRequestState = "merged"
	MergeRequestClosed MergeRequestState = "closed"
)

// CIMergeRequest describes a merge request inside a CI status payload.
type CIMergeRequest struct {
	ID           int64             `json:"id"`
	IID          int64             `json:"iid"`
	Title        string            `json:"title,omitempty"`
	State        MergeRequestState `json:"state"`
	SourceBranch string            `json:"source_branch,omitempty"`
	TargetBranch string            `json:"target_branch,omitempty"`
	WebURL       string            `json:"web_url,omitempty"`
}

// CIPipeline is the latest pipeline of a merge request.
type CIPipeline struct {
	ID        int64          `json:"id"`
	Status    PipelineStatus `json:"status"`
	Ref       string         `json:"ref,omitempty"`
	WebURL    string         `json:"web_url,omitempty"`
	CreatedAt string         `json:"created_at,omitempty"`
	UpdatedAt string         `json:"updated_at,omitempty"`
}

// Job is a single CI job.
type Job struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	Status     PipelineStatus `json:"status"`
	Stage      string         `json:"stage"`
	CreatedAt  string         `json:"created_at,omitempty"`
	StartedAt  string         `json:"started_at,omitempty"`
	FinishedAt string         `json:"finished_at,omitempty"`
	WebURL     string         `json:"web_url,omitempty"`
}

// CIStatus is the read-only CI projection of a merge request used for recovery.
type CIStatus struct {
	MergeRequest  CIMergeRequest `json:"merge_request"`
	Pipeline      *CIPipeline    `json:"pipeline"`
	Jobs          []Job          `json:"jobs"`
	OverallStatus PipelineStatus `json:"overall_status"`
}

// PipelineSummary is the pipeline status payload of a workflow session.
type PipelineSummary struct {
	PipelineID int64          `json:"pipeline_id,omitempty"`
	Status     PipelineStatus `json:"status,omitempty"`
	Ref        string         `json:"ref,omitempty"`
	WebURL     string         `json:"web_url,omitempty"`
	CreatedAt  string         `json:"created_at,omitempty"`
	UpdatedAt  string         `json:"updated_at,omitempty"`
}

// MonitorData is the aggregate pipeline monitor payload of a workflow session.
type MonitorData struct {
	Pipeline      *PipelineSummary `json:"pipeline,omitempty"`
	Jobs          []Job            `json:"jobs,omitempty"`
	DeploymentURL string           `json:"deployment_url,omitempty"`
}
