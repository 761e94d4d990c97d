package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMService(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *LLMConfig
		expectError bool
	}{
		{name: "OpenAI config", cfg: &LLMConfig{Provider: "openai", Model: "gpt-4o-mini", APIKey: "k"}},
		{name: "DeepSeek config", cfg: &LLMConfig{Provider: "deepseek", Model: "deepseek-chat", APIKey: "k", BaseURL: "https://api.deepseek.com/v1"}},
		{name: "Grok config", cfg: &LLMConfig{Provider: "grok", Model: "grok-2-latest", APIKey: "k"}},
		{name: "Unsupported provider", cfg: &LLMConfig{Provider: "ollama"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLLMService(tt.cfg)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

// newChatServer answers chat completions with content and records requests.
func newChatServer(t *testing.T, content string, failures int32) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var calls atomic.Int32
	var requests []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		requests = append(requests, body)

		if calls.Add(1) <= failures {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}}},
			"usage":   map[string]any{"total_tokens": 12},
		})
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func TestLLMService_Chat(t *testing.T) {
	server, requests := newChatServer(t, "hello", 0)
	svc, err := NewLLMService(&LLMConfig{Provider: "openai", Model: "m", APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	got, err := svc.Chat(context.Background(), []Message{SystemPrompt("sys"), UserMessage("hi"), AssistantMessage("prev")})
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	require.Len(t, *requests, 1)
	msgs := (*requests)[0]["messages"].([]any)
	require.Len(t, msgs, 3)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "assistant", msgs[2].(map[string]any)["role"])
}

func TestLLMService_ChatJSON(t *testing.T) {
	server, requests := newChatServer(t, "```json\n{\"type\":\"swap\"}\n```", 0)
	svc, err := NewLLMService(&LLMConfig{Provider: "deepseek", Model: "m", APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	got, err := svc.ChatJSON(context.Background(), []Message{UserMessage("x")}, JSONFormat{
		Name:   "probe",
		Schema: &JSONSchema{Type: "object", Properties: map[string]*JSONSchema{"type": {Type: "string"}}, Required: []string{"type"}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"swap"}`, got)

	format := (*requests)[0]["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	schema := format["json_schema"].(map[string]any)
	assert.Equal(t, "probe", schema["name"])
	assert.Equal(t, true, schema["strict"])
}

func TestLLMService_Retry(t *testing.T) {
	server, requests := newChatServer(t, "ok", 1)
	svc, err := NewLLMService(&LLMConfig{Provider: "openai", Model: "m", APIKey: "test-key", BaseURL: server.URL, MaxRetries: 2})
	require.NoError(t, err)
	svc.(*llmService).backoff = 0

	got, err := svc.Chat(context.Background(), []Message{UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Len(t, *requests, 2)
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: `{"a":1}`, want: `{"a":1}`},
		{in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{in: "```\n{\"a\":1}```", want: `{"a":1}`},
		{in: "  {\"a\":1}  ", want: `{"a":1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripCodeFence(tt.in))
	}
}
