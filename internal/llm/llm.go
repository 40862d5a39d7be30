// Package llm provides the language-model client used for task
// decomposition, script generation, and the agent tool loop.
//
// The hosted model is an external collaborator: this package is a thin,
// typed call-through to an OpenAI-compatible chat-completions API plus its
// embeddings endpoint. Everything above it treats the model as a black-box
// text-completion function.
package llm

import (
	"context"
	"encoding/json"
)

// Roles in a chat exchange.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one turn in a chat-completions exchange.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`

	// ToolCalls is set on assistant messages that request tool use.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a tool-role message to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolCall is the model's request to invoke one tool.
type ToolCall struct {
	// ID identifies this call within the exchange.
	ID string `json:"id"`

	// Name is the requested tool.
	Name string `json:"name"`

	// Arguments is the model-supplied argument payload (JSON object text).
	Arguments string `json:"arguments"`
}

// Tool declares a callable function to the model.
type Tool struct {
	// Name is the function name exposed to the model.
	Name string `json:"name"`

	// Description tells the model when to use the tool.
	Description string `json:"description"`

	// Parameters is the JSON schema of the arguments object.
	Parameters json.RawMessage `json:"parameters"`
}

// ChatRequest is one model invocation.
type ChatRequest struct {
	// Messages is the full exchange so far, system prompt included.
	Messages []Message `json:"messages"`

	// Tools declares the callable functions, empty for plain completion.
	Tools []Tool `json:"tools,omitempty"`

	// Temperature controls sampling. Zero for deterministic-ish output.
	Temperature float64 `json:"temperature"`
}

// ChatResponse is the model's reply to one ChatRequest.
type ChatResponse struct {
	// Content is the assistant's text, empty when only tools were called.
	Content string `json:"content"`

	// ToolCalls are the tool invocations the model requested, if any.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Client is the language-model contract consumed by the decomposer,
// script generator, and agent. Implementations must be safe for
// concurrent use.
type Client interface {
	// Chat sends one chat-completions request and returns the reply.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Complete is the single-prompt convenience form of Chat.
	Complete(ctx context.Context, prompt string) (string, error)

	// Embed returns one embedding vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
