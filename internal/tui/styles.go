package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/waabox/autofixdeck/internal/domain"
)

// styles

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	helpStyle  = lipgloss.NewStyle().Faint(true)
	cursorMark = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render("> ")
)

const separator = "────────────────────────────────────────────────────────────\n"

// status badges

func stepIcon(s domain.StepStatus) string {
	switch s {
	case domain.StepCompleted:
		return okStyle.Render("✓")
	case domain.StepFailed:
		return errStyle.Render("✗")
	case domain.StepRunning:
		return warnStyle.Render("●")
	case domain.StepSkipped:
		return dimStyle.Render("↷")
	default:
		return dimStyle.Render("○")
	}
}

func statusIcon(s domain.PipelineStatus) string {
	switch s {
	case domain.PipelineSuccess:
		return okStyle.Render("✓")
	case domain.PipelineFailed:
		return errStyle.Render("✗")
	case domain.PipelineCanceled, domain.PipelineSkipped:
		return dimStyle.Render("○")
	}
	if s.IsActive() {
		return warnStyle.Render("●")
	}
	return "?"
}

func workflowBadge(s domain.WorkflowState) string {
	label := string(s)
	if label == "" {
		label = "unknown"
	}
	switch s {
	case domain.WorkflowCompleted:
		return okStyle.Render(label)
	case domain.WorkflowFailed:
		return errStyle.Render(label)
	case domain.WorkflowRunning, domain.WorkflowRecovered:
		return warnStyle.Render(label)
	default:
		return dimStyle.Render(label)
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
