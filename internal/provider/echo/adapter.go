// Package echo provides an offline provider that needs no API key.
// It echoes plain messages back and, when the pricing tool is offered,
// turns drink orders into calculate_drink_price calls. Responses are
// deterministic, which makes it the provider of choice for tests and demos.
package echo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/davidbz/barista/internal/domain"
	"github.com/davidbz/barista/internal/observability"
	"github.com/davidbz/barista/internal/tool/drinkprice"
)

const providerName = "echo"

// ModelName is the only model served by the echo provider.
const ModelName = "echo-barista"

// Provider implements the domain.Provider interface without network access.
type Provider struct {
	name            string
	supportedModels map[string]bool
}

// NewProvider creates a new echo provider.
func NewProvider() *Provider {
	return &Provider{
		name: providerName,
		supportedModels: map[string]bool{
			ModelName: true,
		},
	}
}

// Converse answers one turn.
func (p *Provider) Converse(ctx context.Context, req *domain.TurnRequest) (*domain.TurnResponse, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	if !p.supportedModels[req.Model] {
		return nil, fmt.Errorf("model %s is not supported by echo provider", req.Model)
	}

	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}

	logger := observability.FromContext(ctx)

	last := req.Messages[len(req.Messages)-1]

	var (
		text  string
		calls []domain.ToolCall
	)

	switch {
	case len(last.ToolResults) > 0:
		text = summarizeResults(last.ToolResults)
	case offersTool(req.Tools, drinkprice.Name):
		order, found := parseOrder(last.Content)
		switch {
		case !found:
			text = "Echo: " + last.Content
		case order.Size == "":
			text = fmt.Sprintf("Which size would you like your %s: small, medium or large?", order.DrinkType)
		default:
			input, err := json.Marshal(order)
			if err != nil {
				return nil, fmt.Errorf("failed to encode tool input: %w", err)
			}
			calls = []domain.ToolCall{{
				ID:    fmt.Sprintf("call_%d", len(req.Messages)),
				Name:  drinkprice.Name,
				Input: input,
			}}
			text = fmt.Sprintf("Let me price a %s %s for you.", order.Size, order.DrinkType)
		}
	default:
		text = "Echo: " + last.Content
	}

	promptTokens := countTokens(buildEchoContent(req.Messages))
	completionTokens := countTokens(text)
	for _, call := range calls {
		completionTokens += countTokens(string(call.Input))
	}

	stop := domain.StopEndTurn
	if len(calls) > 0 {
		stop = domain.StopToolUse
	}

	logger.Debug("echo turn completed",
		observability.Int("prompt_tokens", promptTokens),
		observability.Int("completion_tokens", completionTokens),
		observability.Int("tool_calls", len(calls)),
	)

	return &domain.TurnResponse{
		ID:         fmt.Sprintf("echo-%d", time.Now().UnixNano()),
		Model:      req.Model,
		Provider:   p.name,
		Text:       text,
		ToolCalls:  calls,
		StopReason: stop,
		Usage: domain.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
			Cost:             0.0,
		},
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// IsModelSupported checks if the provider supports the given model.
func (p *Provider) IsModelSupported(_ context.Context, model string) bool {
	return p.supportedModels[model]
}

// SupportedModels returns a list of all models this provider supports.
func (p *Provider) SupportedModels(_ context.Context) []string {
	models := make([]string, 0, len(p.supportedModels))
	for model := range p.supportedModels {
		models = append(models, model)
	}
	slices.Sort(models)
	return models
}

// Rates returns the token rates of echo models. Echo is free.
func Rates() map[string]domain.ModelRate {
	return map[string]domain.ModelRate{
		ModelName: {InputCostPer1K: 0, OutputCostPer1K: 0},
	}
}

func offersTool(tools []domain.ToolDefinition, name string) bool {
	return slices.ContainsFunc(tools, func(def domain.ToolDefinition) bool {
		return def.Name == name
	})
}

// summarizeResults turns tool results into a reply, quoting successful
// prices and relaying failures.
func summarizeResults(results []domain.ToolResultMessage) string {
	lines := make([]string, 0, len(results))
	for _, res := range results {
		text := res.Result.Text()
		if res.Result.IsError {
			lines = append(lines, "Sorry, I could not price that order. "+text)
			continue
		}

		var quote struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal([]byte(text), &quote); err != nil || quote.Message == "" {
			lines = append(lines, text)
			continue
		}
		lines = append(lines, quote.Message+".")
	}
	return strings.Join(lines, "\n")
}

// buildEchoContent flattens the conversation for token counting.
func buildEchoContent(messages []domain.Message) string {
	var builder strings.Builder
	for _, msg := range messages {
		builder.WriteString(fmt.Sprintf("[%s]: %s\n", msg.Role, msg.Content))
		for _, res := range msg.ToolResults {
			builder.WriteString(res.Result.Text())
			builder.WriteString("\n")
		}
	}
	return builder.String()
}

// countTokens performs simple word-based token counting.
func countTokens(content string) int {
	if content == "" {
		return 0
	}
	return len(strings.Fields(content))
}
