package tui

import (
	"fmt"
	"strings"

	"github.com/waabox/autofixdeck/internal/domain"
)

// JobListModel is an immutable model for the CI jobs panel.
type JobListModel struct {
	jobs   []domain.Job
	cursor int
}

// NewJobListModel creates a job list model.
func NewJobListModel(jobs []domain.Job) JobListModel {
	return JobListModel{jobs: jobs}
}

// UpdateJobs replaces the jobs and keeps the cursor on the same job id when possible.
func (m JobListModel) UpdateJobs(jobs []domain.Job) JobListModel {
	selected, ok := m.Selected()
	m.jobs = jobs
	m.cursor = 0
	if !ok {
		return m
	}
	for i, j := range jobs {
		if j.ID == selected.ID {
			m.cursor = i
			break
		}
	}
	return m
}

// MoveDown returns a new model with the cursor moved down by one.
func (m JobListModel) MoveDown() JobListModel {
	if m.cursor < len(m.jobs)-1 {
		m.cursor++
	}
	return m
}

// MoveUp returns a new model with the cursor moved up by one.
func (m JobListModel) MoveUp() JobListModel {
	if m.cursor > 0 {
		m.cursor--
	}
	return m
}

// Cursor returns the current cursor position.
func (m JobListModel) Cursor() int {
	return m.cursor
}

// Jobs returns the full job slice.
func (m JobListModel) Jobs() []domain.Job {
	return m.jobs
}

// Selected returns the highlighted job.
func (m JobListModel) Selected() (domain.Job, bool) {
	if len(m.jobs) == 0 {
		return domain.Job{}, false
	}
	return m.jobs[m.cursor], true
}

// View renders the job list as a string.
func (m JobListModel) View() string {
	return m.render(false)
}

// ViewFocused renders the job list with cursor indicators.
func (m JobListModel) ViewFocused() string {
	return m.render(true)
}

func (m JobListModel) render(focused bool) string {
	if len(m.jobs) == 0 {
		return "No jobs reported yet."
	}
	var sb strings.Builder
	for i, j := range m.jobs {
		prefix := "  "
		if focused && i == m.cursor {
			prefix = cursorMark
		}
		sb.WriteString(fmt.Sprintf("%s%s %-25s %-10s %s\n",
			prefix,
			statusIcon(j.Status),
			truncate(j.Name, 25),
			truncate(j.Stage, 10),
			dimStyle.Render(fmt.Sprintf("#%d", j.ID)),
		))
	}
	return sb.String()
}
