package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"support-desk/internal/domain"
	"support-desk/internal/ports/output"

	"github.com/sirupsen/logrus"
)

const (
	defaultMaxTokens   = 500
	defaultTemperature = 0.7
)

const systemPromptTemplate = `You are a helpful support assistant. Answer questions using ONLY the documentation below. If the documentation does not contain the answer, reply with exactly: "%[1]s"

Documentation:
%[2]s

Rules:
1. Use only information from the provided documentation
2. When the information is not in the documentation, reply "%[1]s"
3. Be helpful and concise
4. Never invent or guess information`

// BuildSystemPrompt renders the grounding instruction for the language model.
// Documents appear as "{title}: {content}" separated by blank lines.
func BuildSystemPrompt(docs domain.DocumentSet) string {
	entries := make([]string, 0, docs.Len())
	for _, doc := range docs.All() {
		entries = append(entries, fmt.Sprintf("%s: %s", doc.Title, doc.Content))
	}
	return fmt.Sprintf(systemPromptTemplate, FallbackReply, strings.Join(entries, "\n\n"))
}

// GenerativeResolver struct - Resolver delegating to an external language model
type GenerativeResolver struct {
	client        output.CompletionClient
	metrics       output.Metrics
	provider      string
	model         string
	maxTokens     int
	temperature   float64
	historyWindow int
	timeout       time.Duration
	systemPrompt  string
}

// NewGenerativeResolver func - Creates a resolver grounded on docs.
// The system prompt is rendered once here.
func NewGenerativeResolver(cfg ResolverConfig, docs domain.DocumentSet, client output.CompletionClient, metrics output.Metrics) *GenerativeResolver {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := defaultTemperature
	if cfg.Temperature != nil && *cfg.Temperature >= 0 {
		temperature = *cfg.Temperature
	}
	window := cfg.HistoryWindow
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	provider := cfg.Provider
	if provider == "" {
		provider = ProviderOpenAI
	}

	return &GenerativeResolver{
		client:        client,
		metrics:       metricsOrNoop(metrics),
		provider:      provider,
		model:         cfg.Model,
		maxTokens:     maxTokens,
		temperature:   temperature,
		historyWindow: window,
		timeout:       cfg.Timeout,
		systemPrompt:  BuildSystemPrompt(docs),
	}
}

// Strategy func
func (g *GenerativeResolver) Strategy() Strategy {
	return StrategyExternal
}

// BuildMessages assembles system prompt, the most recent history window and the new message
func (g *GenerativeResolver) BuildMessages(message string, history []domain.Turn) []domain.ChatMessage {
	if len(history) > g.historyWindow {
		history = history[len(history)-g.historyWindow:]
	}

	messages := make([]domain.ChatMessage, 0, len(history)+2)
	messages = append(messages, domain.ChatMessage{Role: domain.ChatMessageRoleSystem, Content: g.systemPrompt})
	for _, turn := range history {
		messages = append(messages, domain.ChatMessage{Role: domain.ChatMessageRole(turn.Role), Content: turn.Content})
	}
	messages = append(messages, domain.ChatMessage{Role: domain.ChatMessageRoleUser, Content: message})
	return messages
}

// Resolve func - Asks the language model for a reply.
// Provider failures are logged and turned into the technical difficulties reply.
func (g *GenerativeResolver) Resolve(ctx context.Context, message string, history []domain.Turn) domain.Reply {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	temperature := g.temperature
	request := domain.ChatCompletionRequest{
		Model:       g.model,
		Messages:    g.BuildMessages(message, history),
		MaxTokens:   g.maxTokens,
		Temperature: &temperature,
	}

	response, err := g.client.ChatCompletion(ctx, request)
	if err == nil && (response == nil || strings.TrimSpace(response.Content) == "") {
		err = fmt.Errorf("%w: empty completion content", domain.ErrLLMUnavailable)
	}
	if err != nil {
		genErr := &domain.GenerationError{Provider: g.provider, Err: err}
		logrus.Errorf("Failed to generate reply: %v", genErr)
		g.metrics.GenerationFailed(g.provider)
		return domain.Reply{Text: TechnicalDifficultiesReply, TokensUsed: 0}
	}

	g.metrics.ReplyResolved(string(StrategyExternal), "", response.TotalTokens)
	return domain.Reply{Text: response.Content, TokensUsed: response.TotalTokens}
}
