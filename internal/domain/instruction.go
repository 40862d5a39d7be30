// Package domain provides shared domain types for the opsagent runbook
// automation system. These types are used across all internal packages to
// ensure consistent data structures.
//
// This package follows strict import rules:
//   - CAN import: internal/errors, standard library
//   - MUST NOT import: any other internal packages
//
// All JSON field names use snake_case.
package domain

// Instruction is a stored runbook/procedure text tagged with a task type,
// searchable by semantic similarity.
//
// Identity is assigned at creation and is stable for the life of the
// instruction. Instructions are immutable except for explicit update
// (text replacement and/or metadata merge).
//
// Example JSON representation:
//
//	{
//	    "id": "8f14e45f-ceea-4e4c-89ab-1d2f3a4b5c6d",
//	    "text": "aws iam update-login-profile --user-name USERNAME --password NEW_PASSWORD",
//	    "task_type": "password_reset",
//	    "metadata": {"platform": "aws"}
//	}
type Instruction struct {
	// ID is the opaque unique identifier assigned at creation.
	ID string `json:"id"`

	// Text is the runbook/procedure text.
	Text string `json:"text"`

	// TaskType tags the instruction with a task category
	// (e.g., "password_reset", "vpn_troubleshooting").
	TaskType string `json:"task_type"`

	// Metadata holds free-form attributes (platform, complexity, etc.).
	// TaskType is mirrored into Metadata["task_type"] by the store so the
	// backing index can filter on it.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ScoredInstruction is an instruction returned from a semantic query,
// annotated with its similarity distance.
type ScoredInstruction struct {
	Instruction

	// Distance is the similarity distance reported by the backing index.
	// Lower is more similar; results are ordered by ascending distance.
	Distance float64 `json:"distance"`
}

// MinInstructionTextLen is the minimum accepted instruction text length.
const MinInstructionTextLen = 10
