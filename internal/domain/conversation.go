package domain

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a conversation session.
type Message struct {
	// Role is "user" or "assistant".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`

	// Timestamp is when the message was recorded.
	Timestamp time.Time `json:"timestamp"`

	// Metadata holds free-form per-message attributes.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Conversation is an in-memory chat session: an id plus an ordered list of
// messages. Held only in process memory; no persistence is guaranteed
// across restarts.
type Conversation struct {
	// SessionID uniquely identifies the session (generated or supplied).
	SessionID string `json:"session_id"`

	// CreatedAt is when the session was opened.
	CreatedAt time.Time `json:"created_at"`

	// Messages is the ordered turn history.
	Messages []Message `json:"messages"`

	// Metadata holds free-form per-session attributes.
	Metadata map[string]any `json:"metadata,omitempty"`
}
