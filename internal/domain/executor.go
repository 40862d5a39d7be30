package domain

import (
	"github.com/runbookhq/opsagent/internal/errors"
)

// ExecutorType identifies the command executor family.
// Dynamic duck-typed dispatch in earlier designs is modeled here as a
// closed enum behind one Executor interface.
type ExecutorType string

// Executor type values.
const (
	// ExecutorCloud runs commands through the aws CLI.
	ExecutorCloud ExecutorType = "aws"

	// ExecutorPowerShell runs commands through powershell -Command.
	ExecutorPowerShell ExecutorType = "powershell"

	// ExecutorBash runs commands through bash -c.
	ExecutorBash ExecutorType = "bash"

	// ExecutorSystem defers to the host's native shell family.
	ExecutorSystem ExecutorType = "system"
)

// ParseExecutorType converts a string into an ExecutorType.
// Returns ErrUnknownExecutor for unrecognized values.
func ParseExecutorType(s string) (ExecutorType, error) {
	switch ExecutorType(s) {
	case ExecutorCloud, ExecutorPowerShell, ExecutorBash, ExecutorSystem:
		return ExecutorType(s), nil
	default:
		return "", errors.Wrapf(errors.ErrUnknownExecutor, "%q", s)
	}
}

// CommandPolicy controls which commands executor validation accepts.
type CommandPolicy string

// Command policy values.
const (
	// PolicyAll accepts any non-empty command string.
	PolicyAll CommandPolicy = "all"

	// PolicyRestricted additionally rejects commands matching the fixed
	// destructive-pattern denylist (recursive delete, forced deletion,
	// raw disk format).
	PolicyRestricted CommandPolicy = "restricted"
)

// ExecutionResult captures the outcome of one executor call.
// Results are returned synchronously and never persisted. Execution is
// at-most-one-shot per call; retries are a caller concern.
//
// Example JSON representation:
//
//	{
//	    "success": false,
//	    "output": "",
//	    "error": "permission denied: iam:UpdateLoginProfile",
//	    "exit_code": 254,
//	    "error_type": "permission_error",
//	    "error_details": {"command": "aws iam update-login-profile ..."}
//	}
type ExecutionResult struct {
	// Success indicates the command completed with exit code zero
	// (or that a dry run validated cleanly).
	Success bool `json:"success"`

	// Output is the captured stdout. If it parses as JSON it is carried
	// as structured data instead of raw text (best-effort).
	Output any `json:"output"`

	// Error is the failure message, empty on success.
	Error string `json:"error,omitempty"`

	// ExitCode is the process exit code. Nil when no process ran
	// (validation failures, timeouts, dry runs report 0).
	ExitCode *int `json:"exit_code"`

	// ErrorType tags the failure kind. Substring-heuristic, advisory only.
	ErrorType errors.Kind `json:"error_type,omitempty"`

	// ErrorDetails holds structured failure context.
	ErrorDetails map[string]any `json:"error_details,omitempty"`
}
