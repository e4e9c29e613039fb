package backend

import (
	"github.com/waabox/autofixdeck/internal/apiclient"
	"github.com/waabox/autofixdeck/internal/domain"
)

// Adapter implements the tracker ports on top of the auto-fix backend REST API.
type Adapter struct {
	client *apiclient.Client
}

// Ensure Adapter fully implements the ports the trackers consume.
var (
	_ domain.WorkflowProvider = (*Adapter)(nil)
	_ domain.CIStatusProvider = (*Adapter)(nil)
	_ domain.PipelineProvider = (*Adapter)(nil)
)

// NewAdapter creates a backend adapter using the given client.
func NewAdapter(client *apiclient.Client) *Adapter {
	return &Adapter{client: client}
}

// Client exposes the underlying HTTP client for one-off calls such as health checks.
func (a *Adapter) Client() *apiclient.Client {
	return a.client
}
