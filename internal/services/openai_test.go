package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIChatClientComplete(t *testing.T) {
	var got openAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer lm-studio", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"true"}}]}`))
	}))
	defer server.Close()

	client := NewOpenAIChatClient(server.URL+"/v1/", "lm-studio", "qwen2.5-coder-7b-instruct", server.Client(), nil)

	reply, err := client.Complete(context.Background(), ChatRequest{
		Messages:    []ChatMessage{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "hi"}},
		Temperature: 0.1,
		MaxTokens:   10,
	})
	require.NoError(t, err)
	assert.Equal(t, "true", reply)

	assert.Equal(t, "qwen2.5-coder-7b-instruct", got.Model)
	assert.Equal(t, float32(0.1), got.Temperature)
	assert.Equal(t, 10, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, RoleSystem, got.Messages[0].Role)
}

func TestOpenAIChatClientStatusErrors(t *testing.T) {
	status := http.StatusTooManyRequests
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer server.Close()

	client := NewOpenAIChatClient(server.URL, "", "m", server.Client(), nil)

	_, err := client.Complete(context.Background(), ChatRequest{})
	var statusErr *APIStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "slow down")
	assert.True(t, statusErr.Temporary())

	status = http.StatusUnauthorized
	_, err = client.Complete(context.Background(), ChatRequest{})
	require.ErrorAs(t, err, &statusErr)
	assert.False(t, statusErr.Temporary())
}

func TestOpenAIChatClientEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	_, err := NewOpenAIChatClient(server.URL, "", "m", server.Client(), nil).Complete(context.Background(), ChatRequest{})
	assert.Error(t, err)
}
