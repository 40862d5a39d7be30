// Package decompose turns one free-text operations task into an ordered
// list of subtasks through a single model call, pairs each subtask with
// retrieved instructions, and arranges the result into an execution plan.
package decompose

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/runbookhq/opsagent/internal/domain"
	"github.com/runbookhq/opsagent/internal/llm"
)

// Retriever is the slice of the instruction store the decomposer needs.
// *store.Store satisfies it.
type Retriever interface {
	Retrieve(ctx context.Context, query, taskType string, k int) ([]domain.ScoredInstruction, error)
}

// defaultInstructionsPerSubtask bounds retrieval when the caller passes
// a non-positive count.
const defaultInstructionsPerSubtask = 3

// Decomposer breaks complex tasks into subtasks. The model is optional:
// without one every task decomposes to a single general subtask.
type Decomposer struct {
	client    llm.Client
	retriever Retriever
	logger    zerolog.Logger
}

// New returns a Decomposer. client may be nil, which disables model
// decomposition and makes the single-subtask fallback unconditional.
func New(client llm.Client, retriever Retriever, logger zerolog.Logger) *Decomposer {
	return &Decomposer{
		client:    client,
		retriever: retriever,
		logger:    logger.With().Str("component", "decompose").Logger(),
	}
}

const decompositionPrompt = `Break down the following IT ops task into logical subtasks.

Task: %s
%s
For each subtask, provide:
- A clear description
- The task type (e.g., password_reset, vpn_troubleshooting, account_locked, etc.)
- Any dependencies on other subtasks (by subtask index)
- Priority (1-10, 10 is highest)

Return a JSON array of subtasks with this structure:
[
    {
        "subtask": "description",
        "task_type": "task_type",
        "dependencies": [],
        "priority": 5
    }
]

Only return the JSON array, no additional text.`

// subtaskWire is the shape the model is asked to return. Ids the model
// supplies are ignored; Decompose assigns position-based ids.
type subtaskWire struct {
	Subtask      string   `json:"subtask"`
	TaskType     string   `json:"task_type"`
	Dependencies []string `json:"dependencies"`
	Priority     int      `json:"priority"`
}

// Decompose breaks a task into subtasks with one model call. On ANY
// failure (no model configured, call error, no JSON array in the reply,
// parse error) it degrades to a single subtask covering the whole task
// rather than surfacing an error. Malformed model output therefore never
// fails a request; it only collapses the plan to one step.
func (d *Decomposer) Decompose(ctx context.Context, task string, taskContext map[string]any) []domain.Subtask {
	if d.client == nil {
		return d.fallback(task, "no model configured")
	}

	contextLine := ""
	if len(taskContext) > 0 {
		encoded, err := json.Marshal(taskContext)
		if err == nil {
			contextLine = fmt.Sprintf("Context: %s\n", encoded)
		}
	}

	response, err := d.client.Complete(ctx, fmt.Sprintf(decompositionPrompt, task, contextLine))
	if err != nil {
		return d.fallback(task, "model call failed: "+err.Error())
	}

	payload, ok := extractJSONArray(response)
	if !ok {
		return d.fallback(task, "no JSON array in model response")
	}

	var wires []subtaskWire
	if err := json.Unmarshal([]byte(payload), &wires); err != nil {
		return d.fallback(task, "model response parse failed: "+err.Error())
	}

	subtasks := make([]domain.Subtask, len(wires))
	for i, w := range wires {
		if w.TaskType == "" {
			w.TaskType = domain.GeneralTaskType
		}
		if w.Priority == 0 {
			w.Priority = domain.DefaultPriority
		}
		if w.Dependencies == nil {
			w.Dependencies = []string{}
		}
		subtasks[i] = domain.Subtask{
			ID:           strconv.Itoa(i),
			Subtask:      w.Subtask,
			TaskType:     w.TaskType,
			Dependencies: w.Dependencies,
			Priority:     w.Priority,
		}
	}

	d.logger.Debug().Int("subtasks", len(subtasks)).Msg("task decomposed")
	return subtasks
}

// fallback is the total-degradation path: the whole task becomes one
// general subtask with the default priority.
func (d *Decomposer) fallback(task, reason string) []domain.Subtask {
	d.logger.Warn().Str("reason", reason).Msg("decomposition fell back to a single subtask")
	return []domain.Subtask{{
		ID:           "0",
		Subtask:      task,
		TaskType:     domain.GeneralTaskType,
		Dependencies: []string{},
		Priority:     domain.DefaultPriority,
	}}
}

// extractJSONArray returns the substring from the first '[' to the last
// ']' in s. The match is greedy, so prose around the array is tolerated
// but a reply with multiple separate arrays yields one spanning slice
// (which then fails to parse and triggers the fallback).
func extractJSONArray(s string) (string, bool) {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

// InstructionsForSubtasks retrieves up to nPerSubtask instructions for
// each subtask, keyed by subtask id. The subtask's task type is used as
// a retrieval filter except for general subtasks, which search the whole
// store.
func (d *Decomposer) InstructionsForSubtasks(ctx context.Context, subtasks []domain.Subtask, nPerSubtask int) (map[string][]domain.ScoredInstruction, error) {
	if nPerSubtask <= 0 {
		nPerSubtask = defaultInstructionsPerSubtask
	}

	instructions := make(map[string][]domain.ScoredInstruction, len(subtasks))
	for _, st := range subtasks {
		filter := st.TaskType
		if filter == domain.GeneralTaskType {
			filter = ""
		}
		results, err := d.retriever.Retrieve(ctx, st.Subtask, filter, nPerSubtask)
		if err != nil {
			return nil, fmt.Errorf("retrieve instructions for subtask %s: %w", st.ID, err)
		}
		instructions[st.ID] = results
	}
	return instructions, nil
}

// ExecutionPlan arranges subtasks into ordered steps, pairing each with
// its retrieved instructions. Steps are stably sorted by descending
// (priority, dependency count); equal keys keep their input order.
//
// Note that declared dependencies do NOT constrain ordering: only their
// count feeds the sort key, so a subtask can be scheduled before a
// subtask it lists as a dependency. Dependencies are carried as data for
// the caller to inspect.
func ExecutionPlan(subtasks []domain.Subtask, instructions map[string][]domain.ScoredInstruction) []domain.PlanStep {
	ordered := make([]domain.Subtask, len(subtasks))
	copy(ordered, subtasks)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		return len(ordered[i].Dependencies) > len(ordered[j].Dependencies)
	})

	plan := make([]domain.PlanStep, len(ordered))
	for i, st := range ordered {
		plan[i] = domain.PlanStep{
			StepID:       st.ID,
			Order:        i + 1,
			Subtask:      st,
			Instructions: instructions[st.ID],
		}
	}
	return plan
}
