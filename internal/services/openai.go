package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/logger"
)

const maxErrorBodyBytes = 2048

// APIStatusError is a non-2xx reply from a chat completion endpoint.
type APIStatusError struct {
	StatusCode int
	Body       string
}

func (e *APIStatusError) Error() string {
	return fmt.Sprintf("chat completion returned %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether retrying the same request may succeed.
func (e *APIStatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

type openAIChatClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	model      string
	log        *zap.Logger
}

type openAIRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewOpenAIChatClient talks to any OpenAI-compatible chat completion API
// (OpenAI, LM Studio, vLLM, Ollama). baseURL is the API root, e.g.
// http://localhost:1234/v1.
func NewOpenAIChatClient(baseURL, apiKey, model string, httpClient *http.Client, log *zap.Logger) ChatClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &openAIChatClient{
		httpClient: httpClient,
		endpoint:   strings.TrimRight(baseURL, "/") + "/chat/completions",
		apiKey:     apiKey,
		model:      model,
		log:        logger.OrNop(log),
	}
}

func (c *openAIChatClient) Model() string { return c.model }

func (c *openAIChatClient) Complete(ctx context.Context, req ChatRequest) (string, error) {
	body, err := json.Marshal(openAIRequest{
		Model:       c.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		c.log.Warn("chat completion error response",
			zap.Int("status", resp.StatusCode),
			zap.String("body", logger.TruncateForLog(string(snippet), 300)))
		return "", &APIStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	var decoded openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}

	if len(decoded.Choices) == 0 {
		return "", errors.New("chat response has no choices")
	}

	return decoded.Choices[0].Message.Content, nil
}
