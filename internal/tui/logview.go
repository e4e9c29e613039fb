package tui

import (
	"strings"
)

// LogViewModel is an immutable scrollable text pane used for job traces and workflow logs.
type LogViewModel struct {
	title  string
	lines  []string
	offset int
}

// NewLogViewModel splits content into lines and starts at the top.
func NewLogViewModel(title, content string) LogViewModel {
	return LogViewModel{title: title, lines: strings.Split(strings.TrimRight(content, "\n"), "\n")}
}

// Title returns the pane title.
func (m LogViewModel) Title() string {
	return m.title
}

// Offset returns the index of the first visible line.
func (m LogViewModel) Offset() int {
	return m.offset
}

func (m LogViewModel) maxOffset() int {
	if len(m.lines) == 0 {
		return 0
	}
	return len(m.lines) - 1
}

// ScrollDown moves one line down.
func (m LogViewModel) ScrollDown() LogViewModel {
	if m.offset < m.maxOffset() {
		m.offset++
	}
	return m
}

// ScrollUp moves one line up.
func (m LogViewModel) ScrollUp() LogViewModel {
	if m.offset > 0 {
		m.offset--
	}
	return m
}

// PageUp moves one page of the given height up.
func (m LogViewModel) PageUp(page int) LogViewModel {
	m.offset -= page
	if m.offset < 0 {
		m.offset = 0
	}
	return m
}

// PageDown moves one page of the given height down.
func (m LogViewModel) PageDown(page int) LogViewModel {
	m.offset += page
	if m.offset > m.maxOffset() {
		m.offset = m.maxOffset()
	}
	return m
}

// Top jumps to the first line.
func (m LogViewModel) Top() LogViewModel {
	m.offset = 0
	return m
}

// Bottom jumps to the last line.
func (m LogViewModel) Bottom() LogViewModel {
	m.offset = m.maxOffset()
	return m
}

// View renders at most visible lines starting at the current offset.
func (m LogViewModel) View(visible int) string {
	if len(m.lines) == 0 {
		return ""
	}
	start := min(max(m.offset, 0), len(m.lines)-1)
	end := min(start+visible, len(m.lines))
	return strings.Join(m.lines[start:end], "\n")
}

// tail returns the last n lines of logs.
func tail(logs []string, n int) []string {
	if len(logs) <= n {
		return logs
	}
	return logs[len(logs)-n:]
}
