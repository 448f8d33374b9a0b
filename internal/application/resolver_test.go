package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"support-desk/internal/domain"
)

func TestRuleResolver_Resolve(t *testing.T) {
	docs := supportDocs()

	tests := []struct {
		name       string
		message    string
		wantText   string
		wantTokens int
		wantRule   string
	}{
		{
			name:       "password reset",
			message:    "How do I reset my password?",
			wantText:   "Go to Settings > Security and click Reset Password.",
			wantTokens: 45,
			wantRule:   "password_reset",
		},
		{
			name:       "password change is case insensitive",
			message:    "HOW CAN I CHANGE MY PASSWORD",
			wantText:   "Go to Settings > Security and click Reset Password.",
			wantTokens: 45,
			wantRule:   "password_reset",
		},
		{
			name:       "password alone does not match",
			message:    "My password is weird",
			wantText:   FallbackReply,
			wantTokens: FallbackTokens,
			wantRule:   "fallback",
		},
		{
			name:       "refund",
			message:    "Can I get a refund?",
			wantText:   "Refunds within 30 days.",
			wantTokens: 38,
			wantRule:   "refund",
		},
		{
			name:       "money back phrase",
			message:    "I want my money back",
			wantText:   "Refunds within 30 days.",
			wantTokens: 38,
			wantRule:   "refund",
		},
		{
			name:       "subscription pricing",
			message:    "What is your pricing?",
			wantText:   "We offer Basic, Pro and Enterprise plans.",
			wantTokens: 52,
			wantRule:   "subscription",
		},
		{
			name:       "account setup",
			message:    "How do I create an account?",
			wantText:   "Click Sign Up and confirm your email.",
			wantTokens: 41,
			wantRule:   "account_setup",
		},
		{
			name:       "payment wins over api by order",
			message:    "Can I pay by credit card through the API?",
			wantText:   "We accept credit cards and PayPal.",
			wantTokens: 44,
			wantRule:   "payment",
		},
		{
			name:       "api integration",
			message:    "Do you have an API for developers?",
			wantText:   "Generate a key under Developer Settings.",
			wantTokens: 48,
			wantRule:   "api_integration",
		},
		{
			name:       "no rule matches",
			message:    "What is the weather today?",
			wantText:   FallbackReply,
			wantTokens: FallbackTokens,
			wantRule:   "fallback",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			resolver := NewRuleResolver(docs, nil)

			// Act
			reply := resolver.Resolve(context.Background(), tt.message, nil)

			// Assert
			if reply.Text != tt.wantText {
				t.Errorf("Expected text %q, got %q", tt.wantText, reply.Text)
			}
			if reply.TokensUsed != tt.wantTokens {
				t.Errorf("Expected %d tokens, got %d", tt.wantTokens, reply.TokensUsed)
			}
			if reply.Rule != tt.wantRule {
				t.Errorf("Expected rule %q, got %q", tt.wantRule, reply.Rule)
			}
		})
	}
}

func TestRuleResolver_FallsThroughWhenDocumentMissing(t *testing.T) {
	// Arrange
	docs := domain.NewDocumentSet([]domain.Document{
		{Title: "Refund Policy", Content: "Refunds within 30 days."},
	})
	resolver := NewRuleResolver(docs, nil)

	// Act
	reply := resolver.Resolve(context.Background(), "Reset my password and refund me", nil)

	// Assert
	if reply.Text != "Refunds within 30 days." || reply.TokensUsed != 38 {
		t.Errorf("Expected refund reply with 38 tokens, got %q (%d)", reply.Text, reply.TokensUsed)
	}
}

func TestRuleResolver_EmptyDocumentSet(t *testing.T) {
	// Arrange
	resolver := NewRuleResolver(domain.NewDocumentSet(nil), nil)

	// Act
	reply := resolver.Resolve(context.Background(), "How do I reset my password?", nil)

	// Assert
	if reply.Text != FallbackReply {
		t.Errorf("Expected fallback reply, got %q", reply.Text)
	}
	if reply.TokensUsed != FallbackTokens {
		t.Errorf("Expected %d tokens, got %d", FallbackTokens, reply.TokensUsed)
	}
}

func TestRuleResolver_RecordsMetrics(t *testing.T) {
	// Arrange
	metrics := &recordingMetrics{}
	resolver := NewRuleResolver(supportDocs(), metrics)

	// Act
	resolver.Resolve(context.Background(), "refund please", nil)
	resolver.Resolve(context.Background(), "hello", nil)

	// Assert
	if len(metrics.rules) != 2 || metrics.rules[0] != "refund" || metrics.rules[1] != "fallback" {
		t.Errorf("Expected rules [refund fallback], got %v", metrics.rules)
	}
	if metrics.strategies[0] != string(StrategyDemo) {
		t.Errorf("Expected demo strategy, got %s", metrics.strategies[0])
	}
}

func TestSelectStrategy(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ResolverConfig
		want    Strategy
		wantErr bool
	}{
		{name: "empty mode defaults to auto without key", cfg: ResolverConfig{}, want: StrategyDemo},
		{name: "auto with valid key", cfg: ResolverConfig{Mode: ModeAuto, Credential: "sk-live-1234567890"}, want: StrategyExternal},
		{name: "auto with placeholder key", cfg: ResolverConfig{Mode: ModeAuto, Credential: "sk-REPLACE-ME"}, want: StrategyDemo},
		{name: "demo ignores valid key", cfg: ResolverConfig{Mode: ModeDemo, Credential: "sk-live-1234567890"}, want: StrategyDemo},
		{name: "external with valid key", cfg: ResolverConfig{Mode: ModeExternal, Credential: "sk-live-1234567890"}, want: StrategyExternal},
		{name: "external without key", cfg: ResolverConfig{Mode: ModeExternal}, wantErr: true},
		{name: "unknown mode", cfg: ResolverConfig{Mode: "turbo"}, wantErr: true},
		{name: "mode is case insensitive", cfg: ResolverConfig{Mode: " DEMO "}, want: StrategyDemo},
		{name: "lmstudio with base url", cfg: ResolverConfig{Mode: ModeAuto, Provider: ProviderLMStudio, BaseURL: "http://localhost:1234/v1"}, want: StrategyExternal},
		{name: "lmstudio without base url", cfg: ResolverConfig{Mode: ModeAuto, Provider: ProviderLMStudio}, want: StrategyDemo},
		{name: "unknown provider", cfg: ResolverConfig{Mode: ModeAuto, Provider: "acme", Credential: "sk-live-1234567890"}, want: StrategyDemo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectStrategy(tt.cfg)

			if tt.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Fatalf("Expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected strategy %s, got %s", tt.want, got)
			}
		})
	}
}

func TestNewReplyResolver(t *testing.T) {
	t.Run("demo strategy", func(t *testing.T) {
		resolver, err := NewReplyResolver(ResolverConfig{Mode: ModeDemo}, supportDocs(), nil, nil)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if _, ok := resolver.(*RuleResolver); !ok {
			t.Errorf("Expected *RuleResolver, got %T", resolver)
		}
	})

	t.Run("external strategy", func(t *testing.T) {
		cfg := ResolverConfig{Mode: ModeExternal, Credential: "sk-live-1234567890"}
		resolver, err := NewReplyResolver(cfg, supportDocs(), &MockCompletionClient{}, nil)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if resolver.Strategy() != StrategyExternal {
			t.Errorf("Expected external strategy, got %s", resolver.Strategy())
		}
	})

	t.Run("external strategy without client", func(t *testing.T) {
		cfg := ResolverConfig{Mode: ModeExternal, Credential: "sk-live-1234567890"}
		_, err := NewReplyResolver(cfg, supportDocs(), nil, nil)
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("Expected validation error, got %v", err)
		}
	})
}

func TestBuildSystemPrompt(t *testing.T) {
	// Arrange
	docs := domain.NewDocumentSet([]domain.Document{
		{Title: "Refund Policy", Content: "Refunds within 30 days."},
		{Title: "Payment Methods", Content: "We accept credit cards."},
	})

	// Act
	prompt := BuildSystemPrompt(docs)

	// Assert
	want := "Refund Policy: Refunds within 30 days.\n\nPayment Methods: We accept credit cards."
	if !strings.Contains(prompt, want) {
		t.Errorf("Expected prompt to contain %q, got:\n%s", want, prompt)
	}
	if !strings.Contains(prompt, FallbackReply) {
		t.Error("Expected prompt to contain the fallback reply")
	}
}

func TestBuildSystemPrompt_IncludesUntitledDocuments(t *testing.T) {
	// Arrange
	docs := domain.NewDocumentSet([]domain.Document{
		{Title: "Refund Policy", Content: "Refunds within 30 days."},
		{Title: "", Content: "Support hours are 9 to 5."},
	})

	// Act
	prompt := BuildSystemPrompt(docs)

	// Assert
	want := "Refund Policy: Refunds within 30 days.\n\n: Support hours are 9 to 5."
	if !strings.Contains(prompt, want) {
		t.Errorf("Expected prompt to contain %q, got:\n%s", want, prompt)
	}
}

func historyTurns(n int) []domain.Turn {
	turns := make([]domain.Turn, 0, n)
	for i := 1; i <= n; i++ {
		role := domain.RoleUser
		if i%2 == 0 {
			role = domain.RoleAssistant
		}
		turns = append(turns, domain.Turn{ID: domain.TurnID(i), SessionID: "s1", Role: role, Content: fmt.Sprintf("turn %d", i)})
	}
	return turns
}

func TestGenerativeResolver_BuildMessages(t *testing.T) {
	// Arrange
	resolver := NewGenerativeResolver(ResolverConfig{}, supportDocs(), &MockCompletionClient{}, nil)

	// Act
	messages := resolver.BuildMessages("latest question", historyTurns(15))

	// Assert
	if len(messages) != 12 {
		t.Fatalf("Expected 12 messages, got %d", len(messages))
	}
	if messages[0].Role != domain.ChatMessageRoleSystem {
		t.Errorf("Expected first message to be system, got %s", messages[0].Role)
	}
	if messages[1].Content != "turn 6" {
		t.Errorf("Expected window to start at turn 6, got %q", messages[1].Content)
	}
	if messages[1].Role != domain.ChatMessageRoleAssistant {
		t.Errorf("Expected turn 6 to keep the assistant role, got %s", messages[1].Role)
	}
	if messages[10].Content != "turn 15" {
		t.Errorf("Expected window to end at turn 15, got %q", messages[10].Content)
	}
	last := messages[11]
	if last.Role != domain.ChatMessageRoleUser || last.Content != "latest question" {
		t.Errorf("Expected trailing user message, got %+v", last)
	}
}

func TestGenerativeResolver_Resolve(t *testing.T) {
	// Arrange
	client := &MockCompletionClient{
		ChatCompletionFunc: func(ctx context.Context, request domain.ChatCompletionRequest) (*domain.ChatCompletionResponse, error) {
			return &domain.ChatCompletionResponse{Content: "Refunds within 30 days.", TotalTokens: 87}, nil
		},
	}
	metrics := &recordingMetrics{}
	resolver := NewGenerativeResolver(ResolverConfig{Model: "gpt-4o-mini"}, supportDocs(), client, metrics)

	// Act
	reply := resolver.Resolve(context.Background(), "Can I get a refund?", historyTurns(2))

	// Assert
	if reply.Text != "Refunds within 30 days." || reply.TokensUsed != 87 {
		t.Errorf("Unexpected reply %+v", reply)
	}
	req := client.LastChatRequest
	if req == nil {
		t.Fatal("Expected completion request to be sent")
	}
	if req.Model != "gpt-4o-mini" {
		t.Errorf("Expected model gpt-4o-mini, got %s", req.Model)
	}
	if req.MaxTokens != 500 {
		t.Errorf("Expected max tokens 500, got %d", req.MaxTokens)
	}
	if req.Temperature == nil || *req.Temperature != 0.7 {
		t.Errorf("Expected temperature 0.7, got %v", req.Temperature)
	}
	if len(req.Messages) != 4 {
		t.Errorf("Expected 4 messages, got %d", len(req.Messages))
	}
	if len(metrics.tokens) != 1 || metrics.tokens[0] != 87 {
		t.Errorf("Expected recorded tokens [87], got %v", metrics.tokens)
	}
}

func TestGenerativeResolver_Temperature(t *testing.T) {
	zero, custom, negative := 0.0, 1.2, -1.0
	tests := []struct {
		name        string
		temperature *float64
		want        float64
	}{
		{name: "unset uses default", temperature: nil, want: 0.7},
		{name: "zero is honored", temperature: &zero, want: 0},
		{name: "custom value", temperature: &custom, want: 1.2},
		{name: "negative uses default", temperature: &negative, want: 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			client := &MockCompletionClient{}
			resolver := NewGenerativeResolver(ResolverConfig{Temperature: tt.temperature}, supportDocs(), client, nil)

			// Act
			resolver.Resolve(context.Background(), "hello", nil)

			// Assert
			req := client.LastChatRequest
			if req == nil || req.Temperature == nil {
				t.Fatal("Expected completion request with a temperature")
			}
			if *req.Temperature != tt.want {
				t.Errorf("Expected temperature %v, got %v", tt.want, *req.Temperature)
			}
		})
	}
}

func TestGenerativeResolver_FailuresBecomeTechnicalDifficulties(t *testing.T) {
	tests := []struct {
		name     string
		response *domain.ChatCompletionResponse
		err      error
	}{
		{name: "provider unavailable", err: domain.ErrLLMUnavailable},
		{name: "invalid request", err: domain.ErrInvalidRequest},
		{name: "empty content", response: &domain.ChatCompletionResponse{Content: "  "}},
		{name: "nil response", response: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			client := &MockCompletionClient{
				ChatCompletionFunc: func(ctx context.Context, request domain.ChatCompletionRequest) (*domain.ChatCompletionResponse, error) {
					return tt.response, tt.err
				},
			}
			metrics := &recordingMetrics{}
			resolver := NewGenerativeResolver(ResolverConfig{}, supportDocs(), client, metrics)

			// Act
			reply := resolver.Resolve(context.Background(), "hello", nil)

			// Assert
			if reply.Text != TechnicalDifficultiesReply {
				t.Errorf("Expected technical difficulties reply, got %q", reply.Text)
			}
			if reply.TokensUsed != 0 {
				t.Errorf("Expected 0 tokens, got %d", reply.TokensUsed)
			}
			if len(metrics.failures) != 1 || metrics.failures[0] != ProviderOpenAI {
				t.Errorf("Expected one openai failure, got %v", metrics.failures)
			}
		})
	}
}

func TestGenerativeResolver_Timeout(t *testing.T) {
	// Arrange
	client := &MockCompletionClient{
		ChatCompletionFunc: func(ctx context.Context, request domain.ChatCompletionRequest) (*domain.ChatCompletionResponse, error) {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", domain.ErrLLMTimeout, ctx.Err())
			case <-time.After(2 * time.Second):
				return &domain.ChatCompletionResponse{Content: "too late"}, nil
			}
		},
	}
	resolver := NewGenerativeResolver(ResolverConfig{Timeout: 20 * time.Millisecond}, supportDocs(), client, nil)

	// Act
	reply := resolver.Resolve(context.Background(), "hello", nil)

	// Assert
	if reply.Text != TechnicalDifficultiesReply {
		t.Errorf("Expected technical difficulties reply, got %q", reply.Text)
	}
}
