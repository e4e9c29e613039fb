package polling

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/waabox/autofixdeck/internal/domain"
)

var terminalStatuses = []string{"completed", "failed", "cancelled", "timeout", "expired"}

var fatalKeywords = []string{
	"fatal:",
	"unencrypted http is not supported",
	"authentication failed",
	"permission denied",
	"repository not found",
	"connection refused",
	"access denied",
	"could not read from remote repository",
	"unauthorized",
	"forbidden",
}

// advisoryKeywords stop polling exactly like fatal keywords. They match broadly, so
// an ordinary sentence containing "cannot" or "error" in one of the inspected
// message fields halts polling too.
var advisoryKeywords = []string{
	"not found",
	"failed",
	"error",
	"timeout",
	"invalid",
	"cannot",
	"unable",
	"expired",
}

var messageFields = []string{"error", "error_message", "message"}

// Predicate inspects a normalised payload and reports a stop when it matches.
type Predicate func(payload map[string]any, context string) (Stop, bool)

// Predicates is the ordered detection pipeline applied by Inspect. The first match wins.
var Predicates = []Predicate{
	TerminalStatus,
	FatalMessage,
	AdvisoryMessage,
	FailedStep,
	ErrorStatusCode,
}

// TerminalStatus matches a known terminal "status" value.
func TerminalStatus(payload map[string]any, context string) (Stop, bool) {
	status, ok := payload["status"].(string)
	if !ok || !slices.Contains(terminalStatuses, strings.ToLower(status)) {
		return Stop{}, false
	}
	return Stop{
		Kind:    StopTerminalStatus,
		Reason:  fmt.Sprintf("%s reported status %s", context, status),
		Context: context,
		Status:  status,
	}, true
}

// FatalMessage matches a fatal keyword in the error, error_message or message field.
func FatalMessage(payload map[string]any, context string) (Stop, bool) {
	return messageStop(payload, context, fatalKeywords, StopFatalMessage)
}

// AdvisoryMessage matches an advisory keyword in the same fields as FatalMessage.
func AdvisoryMessage(payload map[string]any, context string) (Stop, bool) {
	return messageStop(payload, context, advisoryKeywords, StopAdvisoryMessage)
}

func messageStop(payload map[string]any, context string, keywords []string, kind StopKind) (Stop, bool) {
	for _, field := range messageFields {
		text, ok := payload[field].(string)
		if !ok || text == "" {
			continue
		}
		if matchKeyword(text, keywords) {
			return Stop{Kind: kind, Reason: text, Context: context}, true
		}
	}
	return Stop{}, false
}

// FailedStep matches any step with status failed and a populated error message.
// Steps are visited in canonical order so the reported step is deterministic.
func FailedStep(payload map[string]any, context string) (Stop, bool) {
	for _, step := range stepsOf(payload) {
		status, _ := step.state["status"].(string)
		if status != string(domain.StepFailed) {
			continue
		}
		msg, _ := step.state["error_message"].(string)
		if msg == "" {
			msg, _ = step.state["errorMessage"].(string)
		}
		if msg == "" {
			continue
		}
		return Stop{
			Kind:    StopFailedStep,
			Reason:  fmt.Sprintf("Step %s failed: %s", step.name, msg),
			Context: context,
		}, true
	}
	return Stop{}, false
}

// ErrorStatusCode matches a numeric statusCode or status_code of 400 or more.
func ErrorStatusCode(payload map[string]any, context string) (Stop, bool) {
	for _, field := range []string{"statusCode", "status_code"} {
		code, ok := number(payload[field])
		if !ok || code < 400 {
			continue
		}
		return Stop{
			Kind:    StopStatusCode,
			Reason:  fmt.Sprintf("%s returned status code %d", context, int(code)),
			Context: context,
		}, true
	}
	return Stop{}, false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

type namedStep struct {
	name  string
	state map[string]any
}

func stepsOf(payload map[string]any) []namedStep {
	var out []namedStep
	switch steps := payload["steps"].(type) {
	case map[string]any:
		names := make([]string, 0, len(steps))
		for name := range steps {
			names = append(names, name)
		}
		slices.SortFunc(names, func(a, b string) int {
			if d := stepRank(a) - stepRank(b); d != 0 {
				return d
			}
			return strings.Compare(a, b)
		})
		for _, name := range names {
			if state, ok := steps[name].(map[string]any); ok {
				out = append(out, namedStep{name: name, state: state})
			}
		}
	case []any:
		for _, raw := range steps {
			state, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			name, _ := state["name"].(string)
			out = append(out, namedStep{name: name, state: state})
		}
	}
	return out
}

// stepRank orders canonical steps first, then unknown names alphabetically.
func stepRank(name string) int {
	if i := slices.Index(domain.StepOrder(), domain.StepName(name)); i >= 0 {
		return i
	}
	return len(domain.StepOrder())
}

// normalize converts any payload into the generic JSON object shape the predicates read.
func normalize(payload any) map[string]any {
	switch p := payload.(type) {
	case nil:
		return nil
	case map[string]any:
		return p
	case error:
		return map[string]any{"error": p.Error()}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}
