// Package agent wires retrieval, decomposition, and command execution
// behind one framework-agnostic orchestration interface. Only the
// tool-loop adapter is fully implemented; the remaining adapters are
// declared placeholders that report an explicit unsupported result.
package agent

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/runbookhq/opsagent/internal/config"
	"github.com/runbookhq/opsagent/internal/decompose"
	"github.com/runbookhq/opsagent/internal/domain"
	"github.com/runbookhq/opsagent/internal/errors"
	"github.com/runbookhq/opsagent/internal/executor"
	"github.com/runbookhq/opsagent/internal/llm"
)

// Retriever is the slice of the instruction store agents need.
// *store.Store satisfies it.
type Retriever interface {
	Retrieve(ctx context.Context, query, taskType string, k int) ([]domain.ScoredInstruction, error)
}

// Agent is the framework-agnostic orchestration contract.
type Agent interface {
	// DecomposeTask breaks a task into subtasks. Like the decomposer it
	// never fails; malformed model output degrades to a single subtask.
	DecomposeTask(ctx context.Context, task string, taskContext map[string]any) []domain.Subtask

	// RetrieveInstructions searches the instruction store.
	RetrieveInstructions(ctx context.Context, query, taskType string, n int) ([]domain.ScoredInstruction, error)

	// ExecuteTask runs a typed task with parameters through the agent.
	ExecuteTask(ctx context.Context, taskType string, params map[string]any, dryRun bool) domain.AgentResult

	// ProcessQuery handles one free-text request, optionally continuing
	// a conversation.
	ProcessQuery(ctx context.Context, query string, chatHistory []domain.Message, dryRun bool) domain.AgentResult

	// FrameworkName identifies the adapter.
	FrameworkName() string
}

// Deps bundles the collaborators an adapter needs.
type Deps struct {
	Client     llm.Client
	Store      Retriever
	Decomposer *decompose.Decomposer
	CloudExec  executor.Executor
	ShellExec  executor.Executor
	Config     config.AgentConfig
	Logger     zerolog.Logger
}

// New builds the adapter selected by the framework name.
func New(framework domain.Framework, deps Deps) (Agent, error) {
	switch framework {
	case domain.FrameworkToolLoop:
		return NewToolAgent(deps), nil
	case domain.FrameworkGraph, domain.FrameworkCrew, domain.FrameworkMultiAgent:
		return NewPlaceholderAgent(framework, deps), nil
	default:
		return nil, errors.Wrapf(errors.ErrUnknownFramework, "%q", framework)
	}
}
