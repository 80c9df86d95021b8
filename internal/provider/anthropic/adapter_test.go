package anthropic_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/barista/internal/domain"
	"github.com/davidbz/barista/internal/provider/anthropic"
)

const toolUseResponse = `{
  "id": "msg_01",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4-5",
  "content": [
    {"type": "text", "text": "Let me check that price."},
    {"type": "tool_use", "id": "toolu_01", "name": "calculate_drink_price", "input": {"drink_type": "coffee", "size": "large"}}
  ],
  "stop_reason": "tool_use",
  "stop_sequence": null,
  "usage": {"input_tokens": 120, "output_tokens": 30}
}`

func newTestProvider(t *testing.T, handler http.HandlerFunc) *anthropic.Provider {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider, err := anthropic.NewProvider(anthropic.Config{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		Timeout:    5,
		MaxRetries: 0,
	})
	require.NoError(t, err)
	return provider
}

func pricingToolDefinition() domain.ToolDefinition {
	return domain.ToolDefinition{
		Name:        "calculate_drink_price",
		Description: "Calculate the price of a drink",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"drink_type": map[string]any{"type": "string"},
				"size":       map[string]any{"type": "string"},
			},
			"required": []string{"drink_type", "size"},
		},
	}
}

func TestNewProvider_MissingAPIKey(t *testing.T) {
	provider, err := anthropic.NewProvider(anthropic.Config{})

	require.Error(t, err)
	require.Nil(t, provider)
	require.Contains(t, err.Error(), "Anthropic API key is required")
}

func TestProvider_Name(t *testing.T) {
	provider, err := anthropic.NewProvider(anthropic.Config{APIKey: "test-key"})
	require.NoError(t, err)

	require.Equal(t, "anthropic", provider.Name())
}

func TestProvider_IsModelSupported(t *testing.T) {
	provider, err := anthropic.NewProvider(anthropic.Config{APIKey: "test-key"})
	require.NoError(t, err)

	tests := []struct {
		name      string
		model     string
		supported bool
	}{
		{name: "Sonnet alias", model: "claude-sonnet-4-5", supported: true},
		{name: "Dated snapshot", model: "claude-opus-4-1-20250805", supported: true},
		{name: "Future Claude model", model: "claude-sonnet-9", supported: true},
		{name: "OpenAI model", model: "gpt-4o", supported: false},
		{name: "Empty model", model: "", supported: false},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.supported, provider.IsModelSupported(ctx, tt.model))
		})
	}
}

func TestProvider_SupportedModels(t *testing.T) {
	provider, err := anthropic.NewProvider(anthropic.Config{APIKey: "test-key"})
	require.NoError(t, err)

	models := provider.SupportedModels(context.Background())

	require.Contains(t, models, "claude-sonnet-4-5")
	require.IsNonDecreasing(t, models)
	require.Len(t, models, len(anthropic.Rates()))
}

func TestRates_Positive(t *testing.T) {
	for model, rate := range anthropic.Rates() {
		require.Positive(t, rate.InputCostPer1K, model)
		require.Greater(t, rate.OutputCostPer1K, rate.InputCostPer1K, model)
	}
}

func TestProvider_Converse_NilRequest(t *testing.T) {
	provider, err := anthropic.NewProvider(anthropic.Config{APIKey: "test-key"})
	require.NoError(t, err)

	resp, err := provider.Converse(context.Background(), nil)

	require.Error(t, err)
	require.Nil(t, resp)
	require.Contains(t, err.Error(), "request cannot be nil")
}

func TestProvider_Converse_ToolUse(t *testing.T) {
	var captured map[string]any

	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(toolUseResponse))
	})

	resp, err := provider.Converse(context.Background(), &domain.TurnRequest{
		Model:    "claude-sonnet-4-5",
		System:   "You are a barista.",
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "How much is a large coffee?"}},
		Tools:    []domain.ToolDefinition{pricingToolDefinition()},
	})

	require.NoError(t, err)
	require.Equal(t, "msg_01", resp.ID)
	require.Equal(t, "anthropic", resp.Provider)
	require.Equal(t, "claude-sonnet-4-5", resp.Model)
	require.Equal(t, "Let me check that price.", resp.Text)
	require.Equal(t, domain.StopToolUse, resp.StopReason)
	require.Equal(t, 120, resp.Usage.PromptTokens)
	require.Equal(t, 30, resp.Usage.CompletionTokens)
	require.Equal(t, 150, resp.Usage.TotalTokens)

	require.Len(t, resp.ToolCalls, 1)
	call := resp.ToolCalls[0]
	require.Equal(t, "toolu_01", call.ID)
	require.Equal(t, "calculate_drink_price", call.Name)
	require.JSONEq(t, `{"drink_type":"coffee","size":"large"}`, string(call.Input))

	require.Equal(t, "claude-sonnet-4-5", captured["model"])
	require.InDelta(t, 1024, captured["max_tokens"], 0)

	tools, ok := captured["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 1)
	tool, ok := tools[0].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "calculate_drink_price", tool["name"])
}

func TestProvider_Converse_SendsToolResults(t *testing.T) {
	var captured struct {
		Messages []struct {
			Role    string           `json:"role"`
			Content []map[string]any `json:"content"`
		} `json:"messages"`
	}

	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "id": "msg_02",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4-5",
  "content": [{"type": "text", "text": "A large coffee is $5.50."}],
  "stop_reason": "end_turn",
  "stop_sequence": null,
  "usage": {"input_tokens": 200, "output_tokens": 12}
}`))
	})

	resp, err := provider.Converse(context.Background(), &domain.TurnRequest{
		Model:     "claude-sonnet-4-5",
		MaxTokens: 256,
		Messages: []domain.Message{
			{Role: domain.RoleUser, Content: "How much is a large coffee?"},
			{
				Role: domain.RoleAssistant,
				ToolCalls: []domain.ToolCall{{
					ID:    "toolu_01",
					Name:  "calculate_drink_price",
					Input: json.RawMessage(`{"drink_type":"coffee","size":"large"}`),
				}},
			},
			{
				Role: domain.RoleUser,
				ToolResults: []domain.ToolResultMessage{{
					ToolCallID: "toolu_01",
					Name:       "calculate_drink_price",
					Result:     domain.TextResult(`{"price":"$5.50"}`),
				}},
			},
		},
	})

	require.NoError(t, err)
	require.Equal(t, "A large coffee is $5.50.", resp.Text)
	require.Equal(t, domain.StopEndTurn, resp.StopReason)
	require.Empty(t, resp.ToolCalls)

	require.Len(t, captured.Messages, 3)
	require.Equal(t, "assistant", captured.Messages[1].Role)
	require.Equal(t, "tool_use", captured.Messages[1].Content[0]["type"])
	require.Equal(t, "toolu_01", captured.Messages[1].Content[0]["id"])

	require.Equal(t, "user", captured.Messages[2].Role)
	require.Equal(t, "tool_result", captured.Messages[2].Content[0]["type"])
	require.Equal(t, "toolu_01", captured.Messages[2].Content[0]["tool_use_id"])
}

func TestProvider_Converse_SkipsEmptyAssistantTurns(t *testing.T) {
	var captured struct {
		Messages []struct {
			Role    string           `json:"role"`
			Content []map[string]any `json:"content"`
		} `json:"messages"`
	}

	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "id": "msg_03",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4-5",
  "content": [{"type": "text", "text": "Hello again."}],
  "stop_reason": "end_turn",
  "stop_sequence": null,
  "usage": {"input_tokens": 20, "output_tokens": 4}
}`))
	})

	resp, err := provider.Converse(context.Background(), &domain.TurnRequest{
		Model: "claude-sonnet-4-5",
		Messages: []domain.Message{
			{Role: domain.RoleUser, Content: "hi"},
			{Role: domain.RoleAssistant},
			{Role: domain.RoleUser, Content: "again"},
		},
	})

	require.NoError(t, err)
	require.Equal(t, "Hello again.", resp.Text)

	require.Len(t, captured.Messages, 2)
	for _, msg := range captured.Messages {
		require.Equal(t, "user", msg.Role)
		require.NotEmpty(t, msg.Content)
	}
}

func TestProvider_Converse_APIError(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad model"}}`))
	})

	resp, err := provider.Converse(context.Background(), &domain.TurnRequest{
		Model:    "claude-unknown",
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
	})

	require.Error(t, err)
	require.Nil(t, resp)
	require.Contains(t, err.Error(), "Anthropic API call failed")
}
