package tui_test

import (
	"strings"
	"testing"

	"github.com/waabox/autofixdeck/internal/tui"
)

const tenLines = "line1\nline2\nline3\nline4\nline5\nline6\nline7\nline8\nline9\nline10\n"

func TestLogViewModel_ViewShowsWindow(t *testing.T) {
	m := tui.NewLogViewModel("trace", tenLines)
	view := m.View(3)
	if view != "line1\nline2\nline3" {
		t.Errorf("unexpected window:\n%s", view)
	}
}

func TestLogViewModel_ScrollDown_MovesOffset(t *testing.T) {
	m := tui.NewLogViewModel("trace", tenLines).ScrollDown()
	if !strings.HasPrefix(m.View(3), "line2") {
		t.Errorf("expected line2 at the top after scroll down, got:\n%s", m.View(3))
	}
}

func TestLogViewModel_ScrollStaysInBounds(t *testing.T) {
	m := tui.NewLogViewModel("trace", tenLines).ScrollUp()
	if m.Offset() != 0 {
		t.Errorf("expected offset 0, got %d", m.Offset())
	}
	m = m.PageDown(50)
	if m.Offset() != 9 {
		t.Errorf("expected offset clamped to last line, got %d", m.Offset())
	}
	m = m.PageUp(4)
	if m.Offset() != 5 {
		t.Errorf("expected offset 5, got %d", m.Offset())
	}
	m = m.PageUp(50)
	if m.Offset() != 0 {
		t.Errorf("expected offset clamped to 0, got %d", m.Offset())
	}
}

func TestLogViewModel_TopAndBottom(t *testing.T) {
	m := tui.NewLogViewModel("trace", tenLines).Bottom()
	if m.View(5) != "line10" {
		t.Errorf("expected only the last line at the bottom, got:\n%s", m.View(5))
	}
	if m.Top().Offset() != 0 {
		t.Errorf("expected top offset 0, got %d", m.Top().Offset())
	}
}
