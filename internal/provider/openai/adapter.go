// Package openai provides an adapter for the OpenAI API using the official SDK.
// It implements the domain.Provider interface and handles conversion between
// the provider-neutral conversation and chat completion messages, including
// function tool calls and tool replies.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/davidbz/barista/internal/domain"
	"github.com/davidbz/barista/internal/observability"
)

// Finish reasons reported by chat completions.
const (
	finishToolCalls = "tool_calls"
	finishLength    = "length"
)

// Provider implements the domain.Provider interface for OpenAI
type Provider struct {
	client openai.Client
	name   string
	models map[string]bool
}

// NewProvider creates a new OpenAI provider.
func NewProvider(config Config) (*Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
	}

	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(config.Timeout)*time.Second))
	}

	if config.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(config.MaxRetries))
	}

	return &Provider{
		client: openai.NewClient(opts...),
		name:   "openai",
		models: buildModelSet(SupportedModels()),
	}, nil
}

// Converse sends one turn as a chat completion request.
func (p *Provider) Converse(ctx context.Context, req *domain.TurnRequest) (*domain.TurnResponse, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	logger := observability.FromContext(ctx)
	logger.Debug("calling OpenAI API", observability.Int("tools", len(req.Tools)))

	params := p.toSDKParams(req)

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		logger.Error("OpenAI API call failed", observability.Error(err))
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("OpenAI returned no choices")
	}

	logger.Debug("OpenAI API call succeeded",
		observability.Int("prompt_tokens", int(resp.Usage.PromptTokens)),
		observability.Int("completion_tokens", int(resp.Usage.CompletionTokens)),
		observability.String("finish_reason", resp.Choices[0].FinishReason),
	)

	return p.toDomainResponse(resp), nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// IsModelSupported checks if the provider supports the given model.
func (p *Provider) IsModelSupported(_ context.Context, model string) bool {
	return p.models[model]
}

// SupportedModels returns the models with known rates.
func (p *Provider) SupportedModels(_ context.Context) []string {
	return SupportedModels()
}

// toSDKParams converts a domain turn to SDK ChatCompletionNewParams.
func (p *Provider) toSDKParams(req *domain.TurnRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)

	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case domain.RoleAssistant:
			messages = append(messages, toAssistantMessage(msg))
		default:
			// Tool replies go first so they directly follow the assistant tool calls.
			for _, res := range msg.ToolResults {
				messages = append(messages, openai.ToolMessage(res.Result.Text(), res.ToolCallID))
			}
			if msg.Content != "" {
				messages = append(messages, openai.UserMessage(msg.Content))
			}
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
	}

	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	if len(req.Tools) > 0 {
		params.Tools = toSDKTools(req.Tools)
	}

	return params
}

func toAssistantMessage(msg domain.Message) openai.ChatCompletionMessageParamUnion {
	assistant := openai.ChatCompletionAssistantMessageParam{}

	if msg.Content != "" {
		assistant.Content.OfString = openai.String(msg.Content)
	}

	for _, call := range msg.ToolCalls {
		arguments := string(call.Input)
		if arguments == "" {
			arguments = "{}"
		}
		assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
			ID: call.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      call.Name,
				Arguments: arguments,
			},
		})
	}

	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}

func toSDKTools(definitions []domain.ToolDefinition) []openai.ChatCompletionToolParam {
	tools := make([]openai.ChatCompletionToolParam, 0, len(definitions))
	for _, def := range definitions {
		tools = append(tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  openai.FunctionParameters(def.InputSchema),
			},
		})
	}
	return tools
}

// toDomainResponse converts SDK response to domain response
func (p *Provider) toDomainResponse(resp *openai.ChatCompletion) *domain.TurnResponse {
	choice := resp.Choices[0]

	var calls []domain.ToolCall
	for _, call := range choice.Message.ToolCalls {
		calls = append(calls, domain.ToolCall{
			ID:    call.ID,
			Name:  call.Function.Name,
			Input: []byte(call.Function.Arguments),
		})
	}

	return &domain.TurnResponse{
		ID:         resp.ID,
		Model:      resp.Model,
		Provider:   p.name,
		Text:       choice.Message.Content,
		ToolCalls:  calls,
		StopReason: toStopReason(choice.FinishReason),
		Usage: domain.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
			Cost:             0,
		},
	}
}

func toStopReason(reason string) domain.StopReason {
	switch reason {
	case finishToolCalls:
		return domain.StopToolUse
	case finishLength:
		return domain.StopMaxTokens
	default:
		return domain.StopEndTurn
	}
}
