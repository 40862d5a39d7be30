package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runbookhq/opsagent/internal/config"
	"github.com/runbookhq/opsagent/internal/decompose"
	"github.com/runbookhq/opsagent/internal/domain"
	"github.com/runbookhq/opsagent/internal/llm"
	"github.com/runbookhq/opsagent/internal/script"
)

// MockPlanClient implements llm.Client with configurable functions.
type MockPlanClient struct {
	CompleteFunc func(ctx context.Context, prompt string) (string, error)
}

func (m *MockPlanClient) Chat(context.Context, llm.ChatRequest) (*llm.ChatResponse, error) {
	return nil, errors.New("not implemented")
}

func (m *MockPlanClient) Complete(ctx context.Context, prompt string) (string, error) {
	return m.CompleteFunc(ctx, prompt)
}

func (m *MockPlanClient) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("not implemented")
}

// MockPlanRetriever records retrieval calls and returns canned results.
type MockPlanRetriever struct {
	RetrieveFunc func(ctx context.Context, query, taskType string, k int) ([]domain.ScoredInstruction, error)
	TaskTypes    []string
}

func (m *MockPlanRetriever) Retrieve(ctx context.Context, query, taskType string, k int) ([]domain.ScoredInstruction, error) {
	m.TaskTypes = append(m.TaskTypes, taskType)
	if m.RetrieveFunc != nil {
		return m.RetrieveFunc(ctx, query, taskType, k)
	}
	return nil, nil
}

func TestQueryCommand_PrintPlan(t *testing.T) {
	client := &MockPlanClient{
		CompleteFunc: func(_ context.Context, prompt string) (string, error) {
			if strings.HasPrefix(prompt, "Break down") {
				return `[
  {"subtask": "disable the AD account", "task_type": "account_locked", "dependencies": [], "priority": 9},
  {"subtask": "remove AWS access keys", "task_type": "aws_iam", "dependencies": ["0"], "priority": 5}
]`, nil
			}
			if strings.Contains(prompt, "AWS CLI command") {
				return "aws iam list-access-keys --user-name alice", nil
			}
			return "Disable-ADAccount -Identity alice", nil
		},
	}
	retriever := &MockPlanRetriever{
		RetrieveFunc: func(_ context.Context, query, _ string, _ int) ([]domain.ScoredInstruction, error) {
			return []domain.ScoredInstruction{{
				Instruction: domain.Instruction{ID: "inst-1", Text: "Procedure for: " + query},
			}}, nil
		},
	}

	app := &app{
		decomposer: decompose.New(client, retriever, zerolog.Nop()),
		generator:  script.NewGenerator(client, config.ExecutorConfig{Environment: "windows"}, zerolog.Nop()),
	}

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	require.NoError(t, printPlan(context.Background(), cmd, app, "offboard alice"))

	text := out.String()
	assert.Contains(t, text, "Execution plan (2 steps):")
	assert.Contains(t, text, "disable the AD account")
	assert.Contains(t, text, "remove AWS access keys")
	assert.Contains(t, text, "aws iam list-access-keys --user-name alice")
	assert.Contains(t, text, "Disable-ADAccount -Identity alice")

	// Higher priority steps are printed first.
	assert.Less(t, strings.Index(text, "disable the AD account"), strings.Index(text, "remove AWS access keys"))

	// Each subtask's retrieval is filtered by its task type.
	assert.Equal(t, []string{"account_locked", "aws_iam"}, retriever.TaskTypes)
}

func TestQueryCommand_PrintPlanRetrievalError(t *testing.T) {
	client := &MockPlanClient{
		CompleteFunc: func(context.Context, string) (string, error) {
			return "", errors.New("model down")
		},
	}
	retriever := &MockPlanRetriever{
		RetrieveFunc: func(context.Context, string, string, int) ([]domain.ScoredInstruction, error) {
			return nil, errors.New("index unavailable")
		},
	}

	app := &app{
		decomposer: decompose.New(client, retriever, zerolog.Nop()),
		generator:  script.NewGenerator(client, config.ExecutorConfig{}, zerolog.Nop()),
	}

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	err := printPlan(context.Background(), cmd, app, "restart the web servers")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index unavailable")
}
