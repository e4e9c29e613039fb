package backend

import (
	"context"
	"fmt"
	"net/url"

	"github.com/waabox/autofixdeck/internal/domain"
)

// MergeRequestCIStatus returns the CI projection of a merge request from the GitLab proxy.
// A missing project or merge request fails with domain.ErrNotFound.
func (a *Adapter) MergeRequestCIStatus(ctx context.Context, project string, mrID string) (domain.CIStatus, error) {
	var status domain.CIStatus
	path := fmt.Sprintf("/gitlab/projects/%s/merge_requests/%s/ci_status",
		domain.ProjectSegment(project), url.PathEscape(mrID))
	if err := a.client.Get(ctx, path, &status); err != nil {
		return domain.CIStatus{}, err
	}
	if status.OverallStatus == "" {
		status.OverallStatus = domain.PipelineNone
	}
	return status, nil
}
