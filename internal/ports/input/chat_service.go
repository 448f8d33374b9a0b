package input

import (
	"context"

	"support-desk/internal/domain"
)

// ChatService interface - Input port (use case)
// Defines what callers can do with support conversations
type ChatService interface {
	// Chat stores the user message, resolves a reply, stores the reply and
	// bumps the session timestamp.
	Chat(ctx context.Context, request domain.ChatRequest) (*domain.ChatReply, error)

	// Conversation returns the full history of a session in chronological order
	Conversation(ctx context.Context, sessionID string) ([]domain.Turn, error)

	// Sessions lists every session, most recently active first
	Sessions(ctx context.Context) ([]domain.Session, error)

	// StartSession generates and registers a new session identifier
	StartSession(ctx context.Context) (*domain.Session, error)
}
