package backend

import (
	"encoding/json"
	"strings"
)

func decodeTrace(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "\"") {
		return raw
	}
	var asString string
	if err := json.Unmarshal([]byte(trimmed), &asString); err == nil {
		return asString
	}
	var obj struct {
		Trace string `json:"trace"`
		Logs  string `json:"logs"`
	}
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return raw
	}
	if obj.Trace != "" {
		return obj.Trace
	}
	return obj.Logs
}
