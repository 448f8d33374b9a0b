package output

import (
	"context"

	"support-desk/internal/domain"
)

// ConversationStore interface - Output port
// Defines what the application needs from durable conversation storage: an
// append-only turn log keyed by session and a session registry with
// last-activity timestamps. Implementations must be safe for concurrent use.
type ConversationStore interface {
	// AppendTurn stores a new turn and returns its identifier.
	// An unknown sessionID is not an error. Write failures are returned as
	// *domain.StorageError.
	AppendTurn(ctx context.Context, sessionID string, role domain.Role, content string) (domain.TurnID, error)

	// History returns turns of a session in ascending creation order.
	// When limit > 0 only the most recent limit turns are returned, still in
	// ascending order.
	History(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error)

	// TouchSession inserts the session if absent and sets its UpdatedAt to now.
	// CreatedAt is only set on insert.
	TouchSession(ctx context.Context, sessionID string) error

	// CreateSession registers a session with the same upsert semantics as
	// TouchSession and returns the stored row.
	CreateSession(ctx context.Context, sessionID string) (*domain.Session, error)

	// ListSessions returns every session, most recently updated first.
	ListSessions(ctx context.Context) ([]domain.Session, error)

	// Ping checks that the storage backend is reachable.
	Ping(ctx context.Context) error
}
