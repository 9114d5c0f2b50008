package audio

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProbeFailed matches any *ProbeError via errors.Is
	ErrProbeFailed = errors.New("probe failed")

	// ErrCommandFailed matches any *CommandExecutionError via errors.Is
	ErrCommandFailed = errors.New("command execution failed")
)

// ProbeError reports a probing tool failure or unparseable probe output
type ProbeError struct {
	Path   string
	Stderr string // diagnostic output from the probing tool
	Err    error
}

func (e *ProbeError) Error() string {
	msg := fmt.Sprintf("probe %s: %v", e.Path, e.Err)
	if diag := strings.TrimSpace(e.Stderr); diag != "" {
		msg += ": " + diag
	}
	return msg
}

// Unwrap exposes the underlying cause
func (e *ProbeError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrProbeFailed) match
func (e *ProbeError) Is(target error) bool {
	return target == ErrProbeFailed
}

// CommandExecutionError reports a failed encoder invocation
type CommandExecutionError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandExecutionError) Error() string {
	msg := fmt.Sprintf("%s failed with code %d", e.Command, e.ExitCode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if diag := strings.TrimSpace(e.Stderr); diag != "" {
		msg += "\n" + diag
	}
	return msg
}

// Unwrap exposes the underlying cause
func (e *CommandExecutionError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrCommandFailed) match
func (e *CommandExecutionError) Is(target error) bool {
	return target == ErrCommandFailed
}
