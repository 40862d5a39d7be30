package domain

import (
	"github.com/runbookhq/opsagent/internal/errors"
)

// Framework identifies an agent orchestration framework adapter.
// One interface, four variants; only the tool-loop variant is fully
// implemented. The others are declared placeholders that report an
// explicit "unsupported" result rather than silently no-op — a legitimate
// terminal state, not a bug.
type Framework string

// Framework values.
const (
	// FrameworkToolLoop is the fully implemented native function-calling
	// agent (retrieve / execute-cloud / execute-shell tools).
	FrameworkToolLoop Framework = "toolloop"

	// FrameworkGraph is a declared placeholder for a graph-style adapter.
	FrameworkGraph Framework = "graph"

	// FrameworkCrew is a declared placeholder for a crew-style adapter.
	FrameworkCrew Framework = "crew"

	// FrameworkMultiAgent is a declared placeholder for a multi-agent adapter.
	FrameworkMultiAgent Framework = "multiagent"
)

// ParseFramework converts a string into a Framework.
// Returns ErrUnknownFramework for unrecognized values.
func ParseFramework(s string) (Framework, error) {
	switch Framework(s) {
	case FrameworkToolLoop, FrameworkGraph, FrameworkCrew, FrameworkMultiAgent:
		return Framework(s), nil
	default:
		return "", errors.Wrapf(errors.ErrUnknownFramework, "%q", s)
	}
}

// Frameworks returns all known framework names in declaration order.
func Frameworks() []Framework {
	return []Framework{FrameworkToolLoop, FrameworkGraph, FrameworkCrew, FrameworkMultiAgent}
}

// AgentResult is the outcome of one agent invocation
// (process-query or execute-task).
type AgentResult struct {
	// Response is the agent's natural-language answer.
	Response string `json:"response"`

	// Success reports whether the task was considered successful.
	// For the tool-loop agent this is a text heuristic: the response is
	// successful unless it contains "error" or "failed" (case-insensitive).
	Success bool `json:"success"`

	// Steps lists the tool invocations taken, in order.
	Steps []AgentStep `json:"steps"`

	// Error is the failure message, empty on success.
	Error string `json:"error,omitempty"`
}

// AgentStep records one tool invocation inside the agent loop.
type AgentStep struct {
	// Tool is the invoked tool name.
	Tool string `json:"tool"`

	// Input is the argument the model supplied to the tool.
	Input string `json:"input"`

	// Output is the tool's formatted result handed back to the model.
	Output string `json:"output"`
}
