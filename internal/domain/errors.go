package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the backend client. Callers check them with errors.Is.
var (
	ErrConnection         = errors.New("backend unreachable")
	ErrTimeout            = errors.New("request timed out")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
)

// TerminalError describes a structured terminal status that stopped polling.
type TerminalError struct {
	Context string
	Status  string
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("%s reported status %s", e.Context, e.Status)
}

// FatalLogError describes a fatal log line seen before the structured status caught up.
type FatalLogError struct {
	Line string
}

func (e *FatalLogError) Error() string {
	return "fatal error in logs: " + e.Line
}
