// Package conversation holds per-session chat history in process
// memory. Sessions do not survive a restart. Access is serialized with
// a mutex so concurrent HTTP requests can share one Manager.
package conversation

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/runbookhq/opsagent/internal/domain"
	"github.com/runbookhq/opsagent/internal/errors"
)

// DefaultContextMessages bounds the history window rendered into a
// model prompt when the caller does not say otherwise.
const DefaultContextMessages = 10

// Summary is the lightweight view of a session returned by listings.
type Summary struct {
	SessionID    string         `json:"session_id"`
	CreatedAt    time.Time      `json:"created_at"`
	MessageCount int            `json:"message_count"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Manager owns all in-memory conversation sessions.
type Manager struct {
	mu            sync.RWMutex
	conversations map[string]*domain.Conversation
	logger        zerolog.Logger

	timeNow func() time.Time
}

// NewManager returns an empty Manager.
func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{
		conversations: make(map[string]*domain.Conversation),
		logger:        logger.With().Str("component", "conversation").Logger(),
		timeNow:       time.Now,
	}
}

// Create starts a new session. An empty sessionID gets a generated one.
// An existing session with the same id is replaced.
func (m *Manager) Create(sessionID string, metadata map[string]any) *domain.Conversation {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	conv := &domain.Conversation{
		SessionID: sessionID,
		CreatedAt: m.timeNow(),
		Metadata:  metadata,
	}
	m.conversations[sessionID] = conv

	m.logger.Debug().Str("session_id", sessionID).Msg("conversation created")
	return conv
}

// GetOrCreate returns the session with the given id, creating it when
// missing or when no id is supplied.
func (m *Manager) GetOrCreate(sessionID string, metadata map[string]any) *domain.Conversation {
	if sessionID != "" {
		m.mu.RLock()
		conv, ok := m.conversations[sessionID]
		m.mu.RUnlock()
		if ok {
			return conv
		}
	}
	return m.Create(sessionID, metadata)
}

// Get returns a snapshot of the session with the given id. The
// message slice is copied so callers can read or encode it without
// racing a concurrent AddMessage.
func (m *Manager) Get(sessionID string) (domain.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conv, ok := m.conversations[sessionID]
	if !ok {
		return domain.Conversation{}, errors.Wrap(errors.ErrSessionNotFound, sessionID)
	}
	snapshot := *conv
	snapshot.Messages = make([]domain.Message, len(conv.Messages))
	copy(snapshot.Messages, conv.Messages)
	return snapshot, nil
}

// AddMessage appends one message to an existing session.
func (m *Manager) AddMessage(sessionID, role, content string, metadata map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[sessionID]
	if !ok {
		return errors.Wrap(errors.ErrSessionNotFound, sessionID)
	}
	conv.Messages = append(conv.Messages, domain.Message{
		Role:      role,
		Content:   content,
		Timestamp: m.timeNow(),
		Metadata:  metadata,
	})
	return nil
}

// Messages returns a copy of a session's message history.
func (m *Manager) Messages(sessionID string) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conv, ok := m.conversations[sessionID]
	if !ok {
		return nil, errors.Wrap(errors.ErrSessionNotFound, sessionID)
	}
	out := make([]domain.Message, len(conv.Messages))
	copy(out, conv.Messages)
	return out, nil
}

// Context renders the last maxMessages of a session as "ROLE: content"
// lines for inclusion in a model prompt. maxMessages <= 0 uses the
// default window.
func (m *Manager) Context(sessionID string, maxMessages int) (string, error) {
	if maxMessages <= 0 {
		maxMessages = DefaultContextMessages
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	conv, ok := m.conversations[sessionID]
	if !ok {
		return "", errors.Wrap(errors.ErrSessionNotFound, sessionID)
	}

	messages := conv.Messages
	if len(messages) > maxMessages {
		messages = messages[len(messages)-maxMessages:]
	}

	lines := make([]string, len(messages))
	for i, msg := range messages {
		lines[i] = strings.ToUpper(msg.Role) + ": " + msg.Content
	}
	return strings.Join(lines, "\n"), nil
}

// Clear removes all messages from a session but keeps the session.
func (m *Manager) Clear(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[sessionID]
	if !ok {
		return errors.Wrap(errors.ErrSessionNotFound, sessionID)
	}
	conv.Messages = nil
	return nil
}

// Delete removes a session entirely.
func (m *Manager) Delete(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conversations[sessionID]; !ok {
		return errors.Wrap(errors.ErrSessionNotFound, sessionID)
	}
	delete(m.conversations, sessionID)
	m.logger.Debug().Str("session_id", sessionID).Msg("conversation deleted")
	return nil
}

// List returns the ids of all live sessions, in no particular order.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.conversations))
	for id := range m.conversations {
		ids = append(ids, id)
	}
	return ids
}

// Summarize returns the lightweight view of one session.
func (m *Manager) Summarize(sessionID string) (Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conv, ok := m.conversations[sessionID]
	if !ok {
		return Summary{}, errors.Wrap(errors.ErrSessionNotFound, sessionID)
	}
	return Summary{
		SessionID:    conv.SessionID,
		CreatedAt:    conv.CreatedAt,
		MessageCount: len(conv.Messages),
		Metadata:     conv.Metadata,
	}, nil
}
