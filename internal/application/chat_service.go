package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"support-desk/internal/domain"
	"support-desk/internal/ports/input"
	"support-desk/internal/ports/output"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Compile-time check to ensure ChatService implements the input port
var _ input.ChatService = (*ChatService)(nil)

// ChatService struct - Application service implementing the support chat use cases
type ChatService struct {
	store         output.ConversationStore
	resolver      ReplyResolver
	metrics       output.Metrics
	historyWindow int
}

// NewChatService func - Creates new chat service
func NewChatService(store output.ConversationStore, resolver ReplyResolver, historyWindow int, metrics output.Metrics) *ChatService {
	if historyWindow <= 0 {
		historyWindow = DefaultHistoryWindow
	}
	return &ChatService{
		store:         store,
		resolver:      resolver,
		metrics:       metricsOrNoop(metrics),
		historyWindow: historyWindow,
	}
}

// Chat func - Use case: answer one user message.
// Steps run sequentially; a failure after the user turn is stored leaves that turn in place.
func (s *ChatService) Chat(ctx context.Context, request domain.ChatRequest) (*domain.ChatReply, error) {
	if err := validateChatRequest(request); err != nil {
		s.metrics.ChatHandled("invalid")
		return nil, err
	}

	reply, err := s.chat(ctx, request)
	if err != nil {
		logrus.Errorf("Failed to process chat message for session %s: %v", request.SessionID, err)
		s.metrics.ChatHandled("error")
		return nil, err
	}

	s.metrics.ChatHandled("ok")
	return reply, nil
}

func (s *ChatService) chat(ctx context.Context, request domain.ChatRequest) (*domain.ChatReply, error) {
	userTurnID, err := s.store.AppendTurn(ctx, request.SessionID, domain.RoleUser, request.Message)
	if err != nil {
		return nil, fmt.Errorf("store user turn: %w", err)
	}

	// One extra row so the window stays full after dropping the turn just stored
	recent, err := s.store.History(ctx, request.SessionID, s.historyWindow+1)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	history := priorTurns(recent, userTurnID, s.historyWindow)

	reply := s.resolver.Resolve(ctx, request.Message, history)
	logrus.Debugf("Resolved reply for session %s via %s (rule=%q, tokens=%d)",
		request.SessionID, s.resolver.Strategy(), reply.Rule, reply.TokensUsed)

	if _, err := s.store.AppendTurn(ctx, request.SessionID, domain.RoleAssistant, reply.Text); err != nil {
		return nil, fmt.Errorf("store assistant turn: %w", err)
	}

	if err := s.store.TouchSession(ctx, request.SessionID); err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}

	return &domain.ChatReply{Reply: reply.Text, TokensUsed: reply.TokensUsed}, nil
}

// priorTurns drops the turn with id exclude and keeps the last window turns
func priorTurns(turns []domain.Turn, exclude domain.TurnID, window int) []domain.Turn {
	history := make([]domain.Turn, 0, len(turns))
	for _, turn := range turns {
		if turn.ID == exclude {
			continue
		}
		history = append(history, turn)
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}
	return history
}

func validateChatRequest(request domain.ChatRequest) error {
	if strings.TrimSpace(request.SessionID) == "" {
		return &domain.ValidationError{Field: "sessionId", Reason: "is required"}
	}
	if strings.TrimSpace(request.Message) == "" {
		return &domain.ValidationError{Field: "message", Reason: "is required"}
	}
	return nil
}

// Conversation func - Use case: read the whole history of a session
func (s *ChatService) Conversation(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, &domain.ValidationError{Field: "sessionId", Reason: "is required"}
	}
	turns, err := s.store.History(ctx, sessionID, 0)
	if err != nil {
		logrus.Errorln(err)
		return nil, err
	}
	return turns, nil
}

// Sessions func - Use case: list sessions by recent activity
func (s *ChatService) Sessions(ctx context.Context) ([]domain.Session, error) {
	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		logrus.Errorln(err)
		return nil, err
	}
	return sessions, nil
}

// StartSession func - Use case: hand out a fresh session identifier
func (s *ChatService) StartSession(ctx context.Context) (*domain.Session, error) {
	id := NewSessionID(time.Now())
	session, err := s.store.CreateSession(ctx, id)
	if err != nil {
		logrus.Errorln(err)
		return nil, err
	}
	logrus.Infof("Started session %s", id)
	return session, nil
}

// NewSessionID formats a session identifier as session_<unix millis>_<random suffix>
func NewSessionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("session_%d_%s", now.UnixMilli(), suffix)
}
