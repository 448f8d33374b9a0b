package application

import (
	"context"
	"sync"

	"support-desk/internal/domain"
)

// Mock implementations for testing

// MockConversationStore implements output.ConversationStore for testing.
// Without overrides it behaves as a small in-memory store.
type MockConversationStore struct {
	AppendTurnFunc    func(ctx context.Context, sessionID string, role domain.Role, content string) (domain.TurnID, error)
	HistoryFunc       func(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error)
	TouchSessionFunc  func(ctx context.Context, sessionID string) error
	CreateSessionFunc func(ctx context.Context, sessionID string) (*domain.Session, error)
	ListSessionsFunc  func(ctx context.Context) ([]domain.Session, error)
	PingFunc          func(ctx context.Context) error

	mu      sync.Mutex
	Turns   []domain.Turn
	Touched []string
	nextID  domain.TurnID

	// Captured values for assertions
	LastHistoryLimit int
	HistoryCalls     int
}

func (m *MockConversationStore) AppendTurn(ctx context.Context, sessionID string, role domain.Role, content string) (domain.TurnID, error) {
	if m.AppendTurnFunc != nil {
		return m.AppendTurnFunc(ctx, sessionID, role, content)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.Turns = append(m.Turns, domain.Turn{ID: m.nextID, SessionID: sessionID, Role: role, Content: content})
	return m.nextID, nil
}

func (m *MockConversationStore) History(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	m.mu.Lock()
	m.LastHistoryLimit = limit
	m.HistoryCalls++
	m.mu.Unlock()
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, sessionID, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var turns []domain.Turn
	for _, turn := range m.Turns {
		if turn.SessionID == sessionID {
			turns = append(turns, turn)
		}
	}
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns, nil
}

func (m *MockConversationStore) TouchSession(ctx context.Context, sessionID string) error {
	if m.TouchSessionFunc != nil {
		return m.TouchSessionFunc(ctx, sessionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Touched = append(m.Touched, sessionID)
	return nil
}

func (m *MockConversationStore) CreateSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, sessionID)
	}
	return &domain.Session{ID: sessionID}, nil
}

func (m *MockConversationStore) ListSessions(ctx context.Context) ([]domain.Session, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return nil, nil
}

func (m *MockConversationStore) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

// MockCompletionClient implements output.CompletionClient for testing
type MockCompletionClient struct {
	ChatCompletionFunc func(ctx context.Context, request domain.ChatCompletionRequest) (*domain.ChatCompletionResponse, error)

	// Captured values for assertions
	LastChatRequest *domain.ChatCompletionRequest
	Calls           int
}

func (m *MockCompletionClient) ChatCompletion(ctx context.Context, request domain.ChatCompletionRequest) (*domain.ChatCompletionResponse, error) {
	m.LastChatRequest = &request
	m.Calls++
	if m.ChatCompletionFunc != nil {
		return m.ChatCompletionFunc(ctx, request)
	}
	return &domain.ChatCompletionResponse{Content: "AI response", TotalTokens: 10}, nil
}

// MockLineClient implements output.LineClient for testing
type MockLineClient struct {
	ReplyMessageFunc func(ctx context.Context, request domain.LineReplyMessageRequest) (*domain.LineMessageResponse, error)
	PushMessageFunc  func(ctx context.Context, request domain.LinePushMessageRequest) (*domain.LineMessageResponse, error)

	// Captured values for assertions
	LastReplyRequest *domain.LineReplyMessageRequest
	LastPushRequest  *domain.LinePushMessageRequest
	ReplyCalls       int
}

func (m *MockLineClient) ReplyMessage(ctx context.Context, request domain.LineReplyMessageRequest) (*domain.LineMessageResponse, error) {
	m.LastReplyRequest = &request
	m.ReplyCalls++
	if m.ReplyMessageFunc != nil {
		return m.ReplyMessageFunc(ctx, request)
	}
	return &domain.LineMessageResponse{Status: "ok"}, nil
}

func (m *MockLineClient) PushMessage(ctx context.Context, request domain.LinePushMessageRequest) (*domain.LineMessageResponse, error) {
	m.LastPushRequest = &request
	if m.PushMessageFunc != nil {
		return m.PushMessageFunc(ctx, request)
	}
	return &domain.LineMessageResponse{Status: "ok"}, nil
}

// recordingMetrics implements output.Metrics and keeps every call
type recordingMetrics struct {
	mu         sync.Mutex
	outcomes   []string
	rules      []string
	strategies []string
	tokens     []int
	failures   []string
}

func (r *recordingMetrics) ChatHandled(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingMetrics) ReplyResolved(strategy, rule string, tokensUsed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies = append(r.strategies, strategy)
	r.rules = append(r.rules, rule)
	r.tokens = append(r.tokens, tokensUsed)
}

func (r *recordingMetrics) GenerationFailed(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, provider)
}

// stubResolver implements ReplyResolver with a fixed reply
type stubResolver struct {
	reply       domain.Reply
	lastMessage string
	lastHistory []domain.Turn
}

func (s *stubResolver) Resolve(_ context.Context, message string, history []domain.Turn) domain.Reply {
	s.lastMessage = message
	s.lastHistory = history
	return s.reply
}

func (s *stubResolver) Strategy() Strategy {
	return StrategyDemo
}

// supportDocs is the documentation set used across resolver tests
func supportDocs() domain.DocumentSet {
	return domain.NewDocumentSet([]domain.Document{
		{Title: "Password Reset", Content: "Go to Settings > Security and click Reset Password."},
		{Title: "Refund Policy", Content: "Refunds within 30 days."},
		{Title: "Subscription Plans", Content: "We offer Basic, Pro and Enterprise plans."},
		{Title: "Account Setup", Content: "Click Sign Up and confirm your email."},
		{Title: "Payment Methods", Content: "We accept credit cards and PayPal."},
		{Title: "API Integration", Content: "Generate a key under Developer Settings."},
	})
}
