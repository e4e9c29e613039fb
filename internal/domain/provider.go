package domain

import "context"

// StartRequest is the configuration a workflow is started with.
type StartRequest struct {
	ProjectName     string         `json:"project_name"`
	SourceBranch    string         `json:"source_branch"`
	TargetBranch    string         `json:"target_branch"`
	AutoMerge       bool           `json:"auto_merge"`
	ConfigOverrides map[string]any `json:"config_overrides,omitempty"`
}

// StartResponse is returned by the backend when a workflow session is created.
type StartResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

// WorkflowProvider is the port the workflow and recovery trackers consume.
// The trackers do not know about HTTP; internal/backend implements it.
type WorkflowProvider interface {
	StartWorkflow(ctx context.Context, req StartRequest) (StartResponse, error)
	WorkflowStatus(ctx context.Context, sessionID string) (WorkflowStatus, error)
	WorkflowLogs(ctx context.Context, sessionID string) ([]string, error)
	WorkflowStatusByMR(ctx context.Context, project string, mrID string) (WorkflowStatus, error)
	StopWorkflow(ctx context.Context, sessionID string, force bool) error
}

// CIStatusProvider exposes the GitLab collaborator's merge request CI projection.
type CIStatusProvider interface {
	MergeRequestCIStatus(ctx context.Context, project string, mrID string) (CIStatus, error)
}

// PipelineProvider is the port the pipeline tracker consumes.
type PipelineProvider interface {
	PipelineStatus(ctx context.Context, sessionID string) (PipelineSummary, error)
	PipelineJobs(ctx context.Context, sessionID string) ([]Job, error)
	PipelineMonitor(ctx context.Context, sessionID string) (MonitorData, error)
	RetryFailedJobs(ctx context.Context, sessionID string) error
	JobTrace(ctx context.Context, sessionID string, jobID int64) (string, error)
}
