// Package anthropic provides an adapter for the Anthropic Messages API using
// the official SDK. It implements domain.Provider and converts between the
// provider-neutral conversation and Anthropic content blocks, including
// tool_use and tool_result blocks.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/davidbz/barista/internal/domain"
	"github.com/davidbz/barista/internal/observability"
)

const defaultMaxTokens = 1024

// Provider implements the domain.Provider interface for Anthropic.
type Provider struct {
	client anthropic.Client
	name   string
}

// NewProvider creates a new Anthropic provider.
func NewProvider(config Config) (*Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("Anthropic API key is required")
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
		client: anthropic.NewClient(opts...),
		name:   "anthropic",
	}, nil
}

// Converse sends one turn to the Messages API.
func (p *Provider) Converse(ctx context.Context, req *domain.TurnRequest) (*domain.TurnResponse, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	logger := observability.FromContext(ctx)
	logger.Debug("calling Anthropic API", observability.Int("tools", len(req.Tools)))

	params, err := toSDKParams(req)
	if err != nil {
		return nil, err
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		logger.Error("Anthropic API call failed", observability.Error(err))
		return nil, fmt.Errorf("Anthropic API call failed: %w", err)
	}

	logger.Debug("Anthropic API call succeeded",
		observability.Int64("input_tokens", msg.Usage.InputTokens),
		observability.Int64("output_tokens", msg.Usage.OutputTokens),
		observability.String("stop_reason", string(msg.StopReason)),
	)

	return p.toDomainResponse(msg), nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// IsModelSupported checks if the provider supports the given model.
func (p *Provider) IsModelSupported(_ context.Context, model string) bool {
	return isClaudeModel(model)
}

// SupportedModels returns the models with known rates.
func (p *Provider) SupportedModels(_ context.Context) []string {
	return SupportedModels()
}

// toSDKParams converts a domain turn into MessageNewParams.
func toSDKParams(req *domain.TurnRequest) (anthropic.MessageNewParams, error) {
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))

	for _, msg := range req.Messages {
		switch msg.Role {
		case domain.RoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.ToolCalls)+1)
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				input, err := decodeInput(call.Input)
				if err != nil {
					return anthropic.MessageNewParams{}, fmt.Errorf("invalid input for tool call %s: %w", call.ID, err)
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, input, call.Name))
			}
			// The API rejects empty assistant turns; consecutive user turns are merged.
			if len(blocks) == 0 {
				continue
			}
			messages = append(messages, anthropic.NewAssistantMessage(blocks...))
		default:
			// Tool results must lead the user message that answers a tool_use turn.
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.ToolResults)+1)
			for _, res := range msg.ToolResults {
				blocks = append(blocks, anthropic.NewToolResultBlock(res.ToolCallID, res.Result.Text(), res.Result.IsError))
			}
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			messages = append(messages, anthropic.NewUserMessage(blocks...))
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}

	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	if len(req.Tools) > 0 {
		params.Tools = toSDKTools(req.Tools)
	}

	return params, nil
}

func toSDKTools(definitions []domain.ToolDefinition) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, 0, len(definitions))
	for _, def := range definitions {
		tool := anthropic.ToolParam{
			Name:        def.Name,
			Description: anthropic.String(def.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: def.Properties(),
				Required:   def.Required(),
			},
		}
		tools = append(tools, anthropic.ToolUnionParam{OfTool: &tool})
	}
	return tools
}

// decodeInput turns raw tool input into a value the SDK re-encodes as an object.
func decodeInput(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	var input any
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, err
	}
	return input, nil
}

// toDomainResponse converts an SDK message into a domain turn response.
func (p *Provider) toDomainResponse(msg *anthropic.Message) *domain.TurnResponse {
	texts := make([]string, 0, len(msg.Content))
	var calls []domain.ToolCall

	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			texts = append(texts, variant.Text)
		case anthropic.ToolUseBlock:
			calls = append(calls, domain.ToolCall{
				ID:    variant.ID,
				Name:  variant.Name,
				Input: variant.Input,
			})
		}
	}

	promptTokens := int(msg.Usage.InputTokens)
	completionTokens := int(msg.Usage.OutputTokens)

	return &domain.TurnResponse{
		ID:         msg.ID,
		Model:      string(msg.Model),
		Provider:   p.name,
		Text:       strings.Join(texts, "\n"),
		ToolCalls:  calls,
		StopReason: toStopReason(msg.StopReason),
		Usage: domain.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
			Cost:             0,
		},
	}
}

func toStopReason(reason anthropic.StopReason) domain.StopReason {
	switch reason {
	case anthropic.StopReasonToolUse:
		return domain.StopToolUse
	case anthropic.StopReasonMaxTokens:
		return domain.StopMaxTokens
	default:
		return domain.StopEndTurn
	}
}
