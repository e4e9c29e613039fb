package backend

import (
	"context"
	"fmt"
	"net/url"

	"github.com/waabox/autofixdeck/internal/domain"
)

// StartWorkflow posts a new workflow session.
func (a *Adapter) StartWorkflow(ctx context.Context, req domain.StartRequest) (domain.StartResponse, error) {
	var resp domain.StartResponse
	if err := a.client.Post(ctx, "/workflow/start", req, &resp); err != nil {
		return domain.StartResponse{}, err
	}
	return resp, nil
}

// WorkflowStatus returns the structured status of a session.
func (a *Adapter) WorkflowStatus(ctx context.Context, sessionID string) (domain.WorkflowStatus, error) {
	var status domain.WorkflowStatus
	path := fmt.Sprintf("/workflow/status/%s", url.PathEscape(sessionID))
	if err := a.client.Get(ctx, path, &status); err != nil {
		return domain.WorkflowStatus{}, err
	}
	return status, nil
}

// WorkflowLogs returns the current log window of a session.
func (a *Adapter) WorkflowLogs(ctx context.Context, sessionID string) ([]string, error) {
	var resp struct {
		Logs []string `json:"logs"`
	}
	path := fmt.Sprintf("/workflow/logs/%s", url.PathEscape(sessionID))
	if err := a.client.Get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Logs, nil
}

// WorkflowStatusByMR returns the stored status keyed by merge request. It may fail with domain.ErrNotFound.
func (a *Adapter) WorkflowStatusByMR(ctx context.Context, project string, mrID string) (domain.WorkflowStatus, error) {
	var status domain.WorkflowStatus
	path := fmt.Sprintf("/workflow/mr/%s/%s", domain.ProjectSegment(project), url.PathEscape(mrID))
	if err := a.client.Get(ctx, path, &status); err != nil {
		return domain.WorkflowStatus{}, err
	}
	return status, nil
}

// StopWorkflow asks the backend to stop a session.
func (a *Adapter) StopWorkflow(ctx context.Context, sessionID string, force bool) error {
	path := fmt.Sprintf("/workflow/stop/%s", url.PathEscape(sessionID))
	return a.client.Post(ctx, path, map[string]bool{"force": force}, nil)
}
