package domain

// Subtask is one unit of decomposed work produced by the task decomposer.
// Subtasks are transient per decomposition call and are not persisted;
// their ids are position-based ("0", "1", ...) and only unique within one
// decomposition.
type Subtask struct {
	// ID is the position-based identifier assigned by the decomposer,
	// overwriting anything the model supplied.
	ID string `json:"id"`

	// Subtask is the free-text description of the work unit.
	Subtask string `json:"subtask"`

	// TaskType categorizes the subtask (e.g., "password_reset").
	// "general" means uncategorized; retrieval omits the type filter for it.
	TaskType string `json:"task_type"`

	// Dependencies lists ids of subtasks this one declares it depends on.
	// Dependencies are carried as data; plan ordering uses only their count,
	// not a topological constraint.
	Dependencies []string `json:"dependencies"`

	// Priority is 1-10 with 10 highest.
	Priority int `json:"priority"`
}

// DefaultPriority is assigned to fallback subtasks and subtasks whose
// priority the model omitted.
const DefaultPriority = 5

// GeneralTaskType marks an uncategorized subtask.
const GeneralTaskType = "general"

// PlanStep is one step of an execution plan: a subtask paired with the
// instructions retrieved for it. Transient, derived per request.
type PlanStep struct {
	// StepID is the id of the underlying subtask.
	StepID string `json:"step_id"`

	// Order is the 1-based position after priority sorting.
	Order int `json:"order"`

	// Subtask is the work unit this step executes.
	Subtask Subtask `json:"subtask"`

	// Instructions are the runbook entries retrieved for this subtask,
	// most similar first.
	Instructions []ScoredInstruction `json:"instructions"`
}
