package tui

import (
	"fmt"
	"strings"

	"github.com/waabox/autofixdeck/internal/domain"
)

// StepListModel is an immutable model for the workflow steps panel.
type StepListModel struct {
	steps   []domain.StepState
	current domain.StepName
	cursor  int
}

// NewStepListModel creates a step list model. Steps are expected in canonical order.
func NewStepListModel(steps []domain.StepState, current domain.StepName) StepListModel {
	return StepListModel{steps: steps, current: current}
}

// UpdateSteps replaces the steps and keeps the cursor on the same step name when possible.
func (m StepListModel) UpdateSteps(steps []domain.StepState, current domain.StepName) StepListModel {
	selected := m.Selected().Name
	m.steps = steps
	m.current = current
	m.cursor = 0
	for i, s := range steps {
		if s.Name == selected {
			m.cursor = i
			break
		}
	}
	return m
}

// MoveDown returns a new model with the cursor moved down by one.
func (m StepListModel) MoveDown() StepListModel {
	if m.cursor < len(m.steps)-1 {
		m.cursor++
	}
	return m
}

// MoveUp returns a new model with the cursor moved up by one.
func (m StepListModel) MoveUp() StepListModel {
	if m.cursor > 0 {
		m.cursor--
	}
	return m
}

// Cursor returns the current cursor position.
func (m StepListModel) Cursor() int {
	return m.cursor
}

// Steps returns the full step slice.
func (m StepListModel) Steps() []domain.StepState {
	return m.steps
}

// Selected returns the highlighted step, or a zero StepState when the list is empty.
func (m StepListModel) Selected() domain.StepState {
	if len(m.steps) == 0 {
		return domain.StepState{}
	}
	return m.steps[m.cursor]
}

// View renders the steps without a cursor.
func (m StepListModel) View() string {
	return m.render(false)
}

// ViewFocused renders the steps with the cursor and the selected step's error, if any.
func (m StepListModel) ViewFocused() string {
	return m.render(true)
}

func (m StepListModel) render(focused bool) string {
	if len(m.steps) == 0 {
		return "No steps reported yet."
	}
	var sb strings.Builder
	for i, s := range m.steps {
		prefix := "  "
		if focused && i == m.cursor {
			prefix = cursorMark
		}
		label := s.DisplayName
		if label == "" {
			label = s.Name.DisplayName()
		}
		marker := ""
		if s.Name == m.current {
			marker = dimStyle.Render(" ◀ current")
		}
		sb.WriteString(fmt.Sprintf("%s%s %-24s %-10s%s\n",
			prefix,
			stepIcon(s.Status),
			truncate(label, 24),
			s.Status,
			marker,
		))
	}
	if focused {
		if sel := m.Selected(); sel.ErrorMessage != "" {
			sb.WriteString("    " + errStyle.Render(sel.ErrorMessage) + "\n")
		}
	}
	return sb.String()
}
