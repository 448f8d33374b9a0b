package domain

import "strings"

// ChatMessageRole represents the role of a message sent to the language model
type ChatMessageRole string

const (
	// ChatMessageRoleSystem - System instruction
	ChatMessageRoleSystem ChatMessageRole = "system"
	// ChatMessageRoleUser - User message
	ChatMessageRoleUser ChatMessageRole = "user"
	// ChatMessageRoleAssistant - Assistant message
	ChatMessageRoleAssistant ChatMessageRole = "assistant"
)

// ChatMessage is a single message of a completion request
type ChatMessage struct {
	Role    ChatMessageRole
	Content string
}

// ChatCompletionRequest struct - Provider independent completion request
type ChatCompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature *float64
}

// ChatCompletionResponse struct - Provider independent completion response
type ChatCompletionResponse struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ModelInfo describes a model advertised by an OpenAI-compatible server
type ModelInfo struct {
	ID      string
	Object  string
	OwnedBy string
}

// Credential is an API key for the external generation provider.
type Credential string

// Markers found in sample keys shipped with example configuration files.
var placeholderMarkers = []string{"REPLACE", "AbCdEf", "your-api-key", "sk-xxx"}

// Valid reports whether the credential is set and is not a known placeholder.
// This only guards against running with sample configuration.
func (c Credential) Valid() bool {
	key := strings.TrimSpace(string(c))
	if key == "" {
		return false
	}
	for _, marker := range placeholderMarkers {
		if strings.Contains(key, marker) {
			return false
		}
	}
	return true
}

// String masks the credential for logging
func (c Credential) String() string {
	if len(c) <= 8 {
		return "****"
	}
	return string(c[:4]) + "****" + string(c[len(c)-4:])
}
