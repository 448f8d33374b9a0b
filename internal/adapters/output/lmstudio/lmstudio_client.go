package lmstudio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"support-desk/internal/domain"
	"support-desk/internal/ports/output"

	"github.com/sirupsen/logrus"
)

// Compile-time check to ensure LMStudioClientAdapter implements CompletionClient interface
var _ output.CompletionClient = (*LMStudioClientAdapter)(nil)

// Config struct - Connection settings for an OpenAI-compatible local server
type Config struct {
	BaseURL    string
	APIKey     domain.Credential
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// LMStudioClientAdapter struct - Output adapter for LM Studio's OpenAI-compatible API
type LMStudioClientAdapter struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       domain.Credential
	configModel  string
	timeout      time.Duration
	maxAttempts  int
	initialDelay time.Duration

	// Model caching
	cachedModel string
	modelMu     sync.RWMutex
}

// Retry configuration constants
const (
	defaultMaxRetries = 2
	initialDelay      = 1 * time.Second
	maxDelay          = 30 * time.Second
	backoffMultiplier = 2
)

// NewLMStudioClientAdapter func - Creates new LM Studio client adapter
func NewLMStudioClientAdapter(config Config) (*LMStudioClientAdapter, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:1234"
	}

	// Endpoints below carry the /v1 prefix themselves
	baseURL = strings.TrimSuffix(baseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/v1")

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	maxRetries := config.MaxRetries
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}

	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	adapter := &LMStudioClientAdapter{
		httpClient:   httpClient,
		baseURL:      baseURL,
		apiKey:       config.APIKey,
		configModel:  config.Model,
		timeout:      timeout,
		maxAttempts:  maxRetries + 1,
		initialDelay: initialDelay,
	}

	logrus.Infof("LM Studio client adapter initialized with base URL: %s, timeout: %v, retries: %d", baseURL, timeout, maxRetries)

	return adapter, nil
}

// newRequest builds a request with JSON and optional bearer headers
func (a *LMStudioClientAdapter) newRequest(ctx context.Context, method, url string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(string(a.apiKey)) != "" {
		req.Header.Set("Authorization", "Bearer "+string(a.apiKey))
	}
	return req, nil
}

// retryWithBackoff executes an operation with exponential backoff retry logic
func (a *LMStudioClientAdapter) retryWithBackoff(ctx context.Context, operation func() (*http.Response, error)) (*http.Response, error) {
	var lastErr error
	delay := a.initialDelay

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		resp, err := operation()

		// Check if we should retry
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, contextError(ctxErr)
			}
			if !a.isTransientError(err, 0) {
				return nil, fmt.Errorf("%w: %v", domain.ErrLLMUnavailable, err)
			}
			lastErr = err
			logrus.Warnf("LM Studio request attempt %d/%d failed with error: %v, retrying in %v", attempt, a.maxAttempts, err, delay)
		} else if resp != nil {
			// Check status code
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return resp, nil
			}

			// Don't retry on 4xx client errors
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				body, _ := io.ReadAll(resp.Body)
				resp.Body.Close()
				return nil, fmt.Errorf("%w: status %d - %s", domain.ErrInvalidRequest, resp.StatusCode, string(body))
			}

			// Retry on 5xx server errors
			if a.isTransientError(nil, resp.StatusCode) {
				body, _ := io.ReadAll(resp.Body)
				resp.Body.Close()
				lastErr = fmt.Errorf("server error: status %d - %s", resp.StatusCode, string(body))
				logrus.Warnf("LM Studio request attempt %d/%d failed with status %d, retrying in %v", attempt, a.maxAttempts, resp.StatusCode, delay)
			} else {
				return resp, nil
			}
		}

		// Check context before sleeping
		if attempt < a.maxAttempts {
			select {
			case <-ctx.Done():
				return nil, contextError(ctx.Err())
			case <-time.After(delay):
			}

			// Calculate next delay with exponential backoff
			delay = delay * backoffMultiplier
			if delay > maxDelay {
				delay = maxDelay
			}
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v after %d attempts", domain.ErrLLMUnavailable, lastErr, a.maxAttempts)
	}
	return nil, fmt.Errorf("%w: max retries exceeded", domain.ErrLLMUnavailable)
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrLLMTimeout, err)
	}
	return fmt.Errorf("%w: context cancelled: %v", domain.ErrLLMUnavailable, err)
}

// isTransientError determines if an error or status code is transient and should be retried
func (a *LMStudioClientAdapter) isTransientError(err error, statusCode int) bool {
	// Check for transient status codes (5xx server errors)
	if statusCode >= 500 && statusCode < 600 {
		return true
	}

	// 4xx errors are NOT transient
	if statusCode >= 400 && statusCode < 500 {
		return false
	}

	if err == nil {
		return false
	}

	// Check for network-related errors
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true
		}
	}

	// Check for connection refused or other network issues
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	// Check for DNS errors
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	// Check error message for common transient patterns
	errMsg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection refused",
		"connection reset",
		"no such host",
		"network is unreachable",
		"i/o timeout",
		"eof",
	}
	for _, pattern := range transientPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}

	return false
}

// ListModels queries the /v1/models endpoint to retrieve available models from LM Studio
func (a *LMStudioClientAdapter) ListModels(ctx context.Context) ([]domain.ModelInfo, error) {
	url := fmt.Sprintf("%s/v1/models", a.baseURL)

	resp, err := a.retryWithBackoff(ctx, func() (*http.Response, error) {
		req, err := a.newRequest(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		return a.httpClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer resp.Body.Close()

	// Parse response
	var modelsResp modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&modelsResp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse models response: %v", domain.ErrLLMUnavailable, err)
	}

	// Convert to domain models
	models := make([]domain.ModelInfo, len(modelsResp.Data))
	for i, m := range modelsResp.Data {
		models[i] = domain.ModelInfo{
			ID:      m.ID,
			Object:  m.Object,
			OwnedBy: m.OwnedBy,
		}
	}

	logrus.Infof("Listed %d models from LM Studio", len(models))

	return models, nil
}

// getModel returns the model to use for requests, with caching
func (a *LMStudioClientAdapter) getModel(ctx context.Context) (string, error) {
	// Fast path: check if model is already cached
	a.modelMu.RLock()
	if a.cachedModel != "" {
		model := a.cachedModel
		a.modelMu.RUnlock()
		return model, nil
	}
	a.modelMu.RUnlock()

	// Slow path: need to determine and cache the model
	a.modelMu.Lock()
	defer a.modelMu.Unlock()

	// Double-check after acquiring write lock
	if a.cachedModel != "" {
		return a.cachedModel, nil
	}

	if a.configModel != "" {
		a.cachedModel = a.configModel
		logrus.Infof("Using configured model: %s", a.cachedModel)
		return a.cachedModel, nil
	}

	// Query available models and select the first one
	models, err := a.ListModels(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get models for selection: %w", err)
	}

	if len(models) == 0 {
		return "", fmt.Errorf("%w: no models available in LM Studio", domain.ErrLLMUnavailable)
	}

	a.cachedModel = models[0].ID
	logrus.Infof("Selected first available model: %s", a.cachedModel)

	return a.cachedModel, nil
}

// ChatCompletion sends a non-streaming chat completion request to LM Studio
func (a *LMStudioClientAdapter) ChatCompletion(ctx context.Context, request domain.ChatCompletionRequest) (*domain.ChatCompletionResponse, error) {
	model := request.Model
	if model == "" {
		var err error
		model, err = a.getModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get model: %w", err)
		}
	}

	// Build request body
	reqBody := chatCompletionAPIRequest{
		Model:       model,
		Messages:    make([]chatMessageAPI, len(request.Messages)),
		Stream:      false,
		Temperature: request.Temperature,
	}
	if request.MaxTokens > 0 {
		reqBody.MaxTokens = request.MaxTokens
	}

	for i, msg := range request.Messages {
		reqBody.Messages[i] = chatMessageAPI{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/chat/completions", a.baseURL)

	// Execute request with retry
	resp, err := a.retryWithBackoff(ctx, func() (*http.Response, error) {
		req, err := a.newRequest(ctx, http.MethodPost, url, bodyBytes)
		if err != nil {
			return nil, err
		}
		return a.httpClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send chat completion request: %w", err)
	}
	defer resp.Body.Close()

	// Parse response
	var apiResp chatCompletionAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse chat completion response: %v", domain.ErrLLMUnavailable, err)
	}

	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", domain.ErrLLMUnavailable)
	}

	response := &domain.ChatCompletionResponse{
		Content:          apiResp.Choices[0].Message.Content,
		Model:            apiResp.Model,
		PromptTokens:     apiResp.Usage.PromptTokens,
		CompletionTokens: apiResp.Usage.CompletionTokens,
		TotalTokens:      apiResp.Usage.TotalTokens,
	}

	logrus.Infof("Chat completion successful, model: %s, tokens: %d", response.Model, response.TotalTokens)

	return response, nil
}

// API request/response structures for LM Studio's OpenAI-compatible API

// chatMessageAPI represents a message in the API request
type chatMessageAPI struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionAPIRequest represents the request body for chat completions
type chatCompletionAPIRequest struct {
	Model       string           `json:"model"`
	Messages    []chatMessageAPI `json:"messages"`
	Stream      bool             `json:"stream"`
	Temperature *float64         `json:"temperature,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
}

// chatCompletionAPIResponse represents the response from non-streaming chat completions
type chatCompletionAPIResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// modelsResponse represents the response from the /v1/models endpoint
type modelsResponse struct {
	Object string `json:"object"`
	Data   []struct {
		ID      string `json:"id"`
		Object  string `json:"object"`
		OwnedBy string `json:"owned_by"`
	} `json:"data"`
}
