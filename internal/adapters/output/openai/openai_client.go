package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"support-desk/internal/domain"
	"support-desk/internal/ports/output"

	sdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sirupsen/logrus"
)

// Compile-time check to ensure ClientAdapter implements CompletionClient interface
var _ output.CompletionClient = (*ClientAdapter)(nil)

// DefaultModel is used when no model is configured
const DefaultModel = "gpt-3.5-turbo"

// Config struct - Settings for the OpenAI chat completion API
type Config struct {
	APIKey     domain.Credential
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// ClientAdapter struct - Output adapter backed by the official OpenAI SDK
type ClientAdapter struct {
	client sdk.Client
	model  string
}

// NewClientAdapter func - Creates new OpenAI client adapter
func NewClientAdapter(config Config) *ClientAdapter {
	opts := []option.RequestOption{
		option.WithAPIKey(string(config.APIKey)),
	}
	if config.BaseURL != "" {
		baseURL := config.BaseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if config.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(config.MaxRetries))
	}
	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.Timeout))
	}

	model := config.Model
	if model == "" {
		model = DefaultModel
	}

	logrus.Infof("OpenAI client adapter initialized with model: %s, key: %s", model, config.APIKey)

	return &ClientAdapter{
		client: sdk.NewClient(opts...),
		model:  model,
	}
}

// ChatCompletion sends a chat completion request through the SDK
func (a *ClientAdapter) ChatCompletion(ctx context.Context, request domain.ChatCompletionRequest) (*domain.ChatCompletionResponse, error) {
	model := request.Model
	if model == "" {
		model = a.model
	}

	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(model),
		Messages: make([]sdk.ChatCompletionMessageParamUnion, 0, len(request.Messages)),
	}
	for _, msg := range request.Messages {
		switch msg.Role {
		case domain.ChatMessageRoleSystem:
			params.Messages = append(params.Messages, sdk.SystemMessage(msg.Content))
		case domain.ChatMessageRoleAssistant:
			params.Messages = append(params.Messages, sdk.AssistantMessage(msg.Content))
		default:
			params.Messages = append(params.Messages, sdk.UserMessage(msg.Content))
		}
	}
	if request.MaxTokens > 0 {
		params.MaxTokens = sdk.Int(int64(request.MaxTokens))
	}
	if request.Temperature != nil {
		params.Temperature = sdk.Float(*request.Temperature)
	}

	completion, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyError(err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", domain.ErrLLMUnavailable)
	}

	response := &domain.ChatCompletionResponse{
		Content:          completion.Choices[0].Message.Content,
		Model:            completion.Model,
		PromptTokens:     int(completion.Usage.PromptTokens),
		CompletionTokens: int(completion.Usage.CompletionTokens),
		TotalTokens:      int(completion.Usage.TotalTokens),
	}

	logrus.Infof("Chat completion successful, model: %s, tokens: %d", response.Model, response.TotalTokens)

	return response, nil
}

// classifyError maps SDK failures onto the completion port's error kinds
func classifyError(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return fmt.Errorf("%w: status %d: %v", domain.ErrInvalidRequest, apiErr.StatusCode, err)
		}
		return fmt.Errorf("%w: status %d: %v", domain.ErrLLMUnavailable, apiErr.StatusCode, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrLLMTimeout, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrLLMUnavailable, err)
}
