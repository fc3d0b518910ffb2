package services

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a provider-neutral chat completion request. MaxTokens of
// zero leaves the limit to the provider.
type ChatRequest struct {
	Messages    []ChatMessage
	Temperature float32
	MaxTokens   int
}

// ChatClient is the seam between the oracle and a language model provider.
type ChatClient interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
	Model() string
}
