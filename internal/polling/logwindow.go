package polling

import "strings"

// LogWindowSize is the number of most recent log lines scanned for fatal errors.
const LogWindowSize = 20

// LogVerdict is the result of scanning the log window.
type LogVerdict struct {
	Fatal   bool
	Message string
}

// logWindow keeps the most recent lines across calls.
type logWindow struct {
	lines []string
	size  int
}

func newLogWindow(size int) *logWindow {
	return &logWindow{size: size}
}

func (w *logWindow) append(lines []string) {
	w.lines = append(w.lines, lines...)
	if over := len(w.lines) - w.size; over > 0 {
		w.lines = append([]string(nil), w.lines[over:]...)
	}
}

// scan returns the oldest line in the window that matches a fatal keyword.
func (w *logWindow) scan() LogVerdict {
	for _, line := range w.lines {
		if matchKeyword(line, fatalKeywords) {
			return LogVerdict{Fatal: true, Message: line}
		}
	}
	return LogVerdict{}
}

func (w *logWindow) reset() {
	w.lines = nil
}

func matchKeyword(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
