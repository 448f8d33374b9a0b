package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"support-desk/internal/domain"
	"support-desk/internal/ports/output"
)

// Compile-time check to ensure ConversationStore implements the output port
var _ output.ConversationStore = (*ConversationStore)(nil)

// ConversationStore struct - Output adapter keeping conversations in process memory.
// Contents are lost on restart. Used with database.driver=memory and in tests.
type ConversationStore struct {
	mu       sync.RWMutex
	turns    map[string][]domain.Turn
	sessions map[string]*domain.Session
	nextID   domain.TurnID
	now      func() time.Time
}

// NewConversationStore creates an empty in-memory conversation store
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		turns:    make(map[string][]domain.Turn),
		sessions: make(map[string]*domain.Session),
		now:      time.Now,
	}
}

// AppendTurn stores a turn. IDs increase across all sessions.
func (m *ConversationStore) AppendTurn(ctx context.Context, sessionID string, role domain.Role, content string) (domain.TurnID, error) {
	if !role.Valid() {
		return 0, &domain.ValidationError{Field: "role", Reason: "must be user or assistant"}
	}
	if err := ctx.Err(); err != nil {
		return 0, &domain.StorageError{Op: "append turn", Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.turns[sessionID] = append(m.turns[sessionID], domain.Turn{
		ID:        m.nextID,
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: m.now(),
	})
	return m.nextID, nil
}

// History returns a copy of the session's turns in insertion order
func (m *ConversationStore) History(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.StorageError{Op: "history", Err: err}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	turns := m.turns[sessionID]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	history := make([]domain.Turn, len(turns))
	copy(history, turns)
	return history, nil
}

// TouchSession upserts the session and refreshes UpdatedAt
func (m *ConversationStore) TouchSession(ctx context.Context, sessionID string) error {
	_, err := m.upsert(ctx, "touch session", sessionID)
	return err
}

// CreateSession registers a session; an existing one is only touched
func (m *ConversationStore) CreateSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	return m.upsert(ctx, "create session", sessionID)
}

func (m *ConversationStore) upsert(ctx context.Context, op, sessionID string) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.StorageError{Op: op, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	session, exists := m.sessions[sessionID]
	if !exists {
		session = &domain.Session{ID: sessionID, CreatedAt: now}
		m.sessions[sessionID] = session
	}
	session.UpdatedAt = now

	result := *session
	return &result, nil
}

// ListSessions returns sessions ordered by UpdatedAt descending, ties by ID
func (m *ConversationStore) ListSessions(ctx context.Context) ([]domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.StorageError{Op: "list sessions", Err: err}
	}

	m.mu.RLock()
	sessions := make([]domain.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, *session)
	}
	m.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].UpdatedAt.Equal(sessions[j].UpdatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// Ping always succeeds for the in-memory store
func (m *ConversationStore) Ping(ctx context.Context) error {
	return ctx.Err()
}
