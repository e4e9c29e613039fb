package domain

import (
	"net/url"
	"strings"
)

// Repository represents the git repository a workflow targets.
type Repository struct {
	Owner     string
	Name      string
	RemoteURL string
}

// Path returns the "owner/name" project path.
func (r Repository) Path() string {
	if r.Owner == "" {
		return r.Name
	}
	return r.Owner + "/" + r.Name
}

// ProjectSegment encodes a project path as a single URL path segment ("group/app" -> "group%2Fapp").
func ProjectSegment(project string) string {
	return url.PathEscape(project)
}

// ProjectNameForURL is the dashboard-friendly project name ("group/app" -> "group-app").
// Only the first separator is replaced, matching the backend route convention.
func ProjectNameForURL(project string) string {
	return strings.Replace(project, "/", "-", 1)
}
