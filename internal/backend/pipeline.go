package backend

import (
	"context"
	"fmt"
	"net/url"

	"github.com/waabox/autofixdeck/internal/domain"
)

// PipelineStatus returns the pipeline status of a workflow session.
func (a *Adapter) PipelineStatus(ctx context.Context, sessionID string) (domain.PipelineSummary, error) {
	var summary domain.PipelineSummary
	if err := a.client.Get(ctx, pipelinePath(sessionID, "status"), &summary); err != nil {
		return domain.PipelineSummary{}, err
	}
	return summary, nil
}

// PipelineJobs returns the job list of the session's pipeline.
func (a *Adapter) PipelineJobs(ctx context.Context, sessionID string) ([]domain.Job, error) {
	var resp struct {
		Jobs []domain.Job `json:"jobs"`
	}
	if err := a.client.Get(ctx, pipelinePath(sessionID, "jobs"), &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// PipelineMonitor returns the aggregate monitor payload.
func (a *Adapter) PipelineMonitor(ctx context.Context, sessionID string) (domain.MonitorData, error) {
	var data domain.MonitorData
	if err := a.client.Get(ctx, pipelinePath(sessionID, "monitor"), &data); err != nil {
		return domain.MonitorData{}, err
	}
	return data, nil
}

// RetryFailedJobs retries the failed jobs of the session's pipeline.
func (a *Adapter) RetryFailedJobs(ctx context.Context, sessionID string) error {
	return a.client.Post(ctx, pipelinePath(sessionID, "retry"), nil, nil)
}

// JobTrace returns the log text of a single job.
// The backend answers with either a JSON object holding "trace" or plain text.
func (a *Adapter) JobTrace(ctx context.Context, sessionID string, jobID int64) (string, error) {
	raw, err := a.client.GetText(ctx, pipelinePath(sessionID, fmt.Sprintf("trace/%d", jobID)))
	if err != nil {
		return "", err
	}
	return decodeTrace(raw), nil
}

func pipelinePath(sessionID string, suffix string) string {
	return fmt.Sprintf("/pipeline/%s/%s", url.PathEscape(sessionID), suffix)
}
