package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"support-desk/internal/domain"
	"support-desk/internal/ports/output"
)

const (
	// FallbackReply is returned when no documentation answers the question
	FallbackReply = "Sorry, I don't have information about that."
	// FallbackTokens is the usage reported with FallbackReply in demo mode
	FallbackTokens = 12
	// TechnicalDifficultiesReply is returned when the generation provider fails
	TechnicalDifficultiesReply = "Sorry, I'm experiencing technical difficulties. Please try again later."
	// DefaultHistoryWindow is the number of prior turns forwarded to the language model
	DefaultHistoryWindow = 10
)

// Strategy names the reply resolution strategy
type Strategy string

const (
	// StrategyDemo - keyword rules over the documentation set
	StrategyDemo Strategy = "demo"
	// StrategyExternal - external language model grounded on the documentation set
	StrategyExternal Strategy = "external"
)

// Resolver modes accepted in configuration
const (
	ModeAuto     = "auto"
	ModeDemo     = "demo"
	ModeExternal = "external"
)

// Generation providers accepted in configuration
const (
	ProviderOpenAI   = "openai"
	ProviderLMStudio = "lmstudio"
)

// ReplyResolver produces a reply for a user message given prior history.
// Resolve never fails: absence of an answer is a defined reply.
type ReplyResolver interface {
	Resolve(ctx context.Context, message string, history []domain.Turn) domain.Reply
	Strategy() Strategy
}

// ResolverConfig struct - Settings that decide and tune the resolution strategy
type ResolverConfig struct {
	Mode          string
	Provider      string
	Credential    domain.Credential
	BaseURL       string
	Model         string
	MaxTokens     int
	// Temperature nil means the default; zero is a valid setting
	Temperature   *float64
	HistoryWindow int
	Timeout       time.Duration
}

// SelectStrategy decides the resolution strategy from configuration alone.
// It is evaluated once at startup.
func SelectStrategy(cfg ResolverConfig) (Strategy, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = ModeAuto
	}

	switch mode {
	case ModeDemo:
		return StrategyDemo, nil
	case ModeAuto:
		if externalUsable(cfg) {
			return StrategyExternal, nil
		}
		return StrategyDemo, nil
	case ModeExternal:
		if !externalUsable(cfg) {
			return "", fmt.Errorf("%w: llm mode external requires a valid credential for provider %q", domain.ErrValidation, cfg.Provider)
		}
		return StrategyExternal, nil
	default:
		return "", fmt.Errorf("%w: unknown llm mode %q", domain.ErrValidation, cfg.Mode)
	}
}

// externalUsable - local OpenAI-compatible servers need a base URL instead of a key
func externalUsable(cfg ResolverConfig) bool {
	switch strings.ToLower(cfg.Provider) {
	case ProviderLMStudio:
		return strings.TrimSpace(cfg.BaseURL) != ""
	case ProviderOpenAI, "":
		return cfg.Credential.Valid()
	default:
		return false
	}
}

// NewReplyResolver builds the resolver for the selected strategy.
// client may be nil when the demo strategy is selected.
func NewReplyResolver(cfg ResolverConfig, docs domain.DocumentSet, client output.CompletionClient, metrics output.Metrics) (ReplyResolver, error) {
	strategy, err := SelectStrategy(cfg)
	if err != nil {
		return nil, err
	}
	if strategy == StrategyDemo {
		return NewRuleResolver(docs, metrics), nil
	}
	if client == nil {
		return nil, fmt.Errorf("%w: external strategy selected without a completion client", domain.ErrValidation)
	}
	return NewGenerativeResolver(cfg, docs, client, metrics), nil
}

type noopMetrics struct{}

func (noopMetrics) ChatHandled(string)                {}
func (noopMetrics) ReplyResolved(string, string, int) {}
func (noopMetrics) GenerationFailed(string)           {}

func metricsOrNoop(m output.Metrics) output.Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
