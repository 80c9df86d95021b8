package domain

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/davidbz/barista/internal/observability"
)

const defaultMaxTurns = 10

// ErrEmptyPrompt is returned when a query carries no prompt.
var ErrEmptyPrompt = errors.New("prompt cannot be empty")

// AgentService runs tool-using conversations against a provider.
type AgentService struct {
	providers      ProviderRegistry
	tools          ToolRegistry
	costCalculator CostCalculator
	publisher      EventPublisher
	options        QueryOptions
}

// NewAgentService creates a new agent service (DI constructor).
func NewAgentService(
	providers ProviderRegistry,
	tools ToolRegistry,
	costCalculator CostCalculator,
	publisher EventPublisher,
	options QueryOptions,
) *AgentService {
	if options.MaxTurns <= 0 {
		options.MaxTurns = defaultMaxTurns
	}

	return &AgentService{
		providers:      providers,
		tools:          tools,
		costCalculator: costCalculator,
		publisher:      publisher,
		options:        options,
	}
}

// Options returns the defaults applied to every query.
func (a *AgentService) Options() QueryOptions {
	return a.options
}

// Query starts an agent run and streams its events. The channel is closed
// after the result event, or early if ctx is cancelled.
func (a *AgentService) Query(ctx context.Context, req *QueryRequest) (<-chan Event, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	if strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	model := req.Model
	if model == "" {
		model = a.options.Model
	}
	if model == "" {
		return nil, errors.New("model cannot be empty")
	}

	provider, err := a.providers.GetByModel(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("provider routing failed: %w", err)
	}

	definitions, err := a.tools.Definitions(ctx, a.options.AllowedTools)
	if err != nil {
		return nil, fmt.Errorf("failed to load tool definitions: %w", err)
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = observability.GenerateSessionID()
	}

	ctx = observability.WithSessionID(ctx, sessionID)
	ctx = observability.WithProvider(ctx, provider.Name())
	ctx = observability.WithModel(ctx, model)

	r := &run{
		agent:     a,
		provider:  provider,
		model:     model,
		sessionID: sessionID,
		tools:     definitions,
		events:    make(chan Event),
	}

	messages := make([]Message, 0, len(req.History)+1)
	messages = append(messages, req.History...)
	messages = append(messages, Message{Role: RoleUser, Content: req.Prompt})

	go r.loop(ctx, messages)

	return r.events, nil
}

// QuerySync runs a query to completion and returns its result.
func (a *AgentService) QuerySync(ctx context.Context, req *QueryRequest) (*RunResult, error) {
	events, err := a.Query(ctx, req)
	if err != nil {
		return nil, err
	}

	var result *RunResult
	for event := range events {
		if event.Type == EventResult {
			result = event.Result
		}
	}

	if result == nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("query interrupted: %w", ctxErr)
		}
		return nil, errors.New("query ended without a result")
	}

	return result, nil
}

// run holds the state of one agent conversation.
type run struct {
	agent     *AgentService
	provider  Provider
	model     string
	sessionID string
	tools     []ToolDefinition
	events    chan Event
}

func (r *run) loop(ctx context.Context, messages []Message) {
	defer close(r.events)

	logger := observability.FromContext(ctx)
	start := time.Now()
	maxTurns := r.agent.options.MaxTurns

	var (
		usage    Usage
		lastText string
	)

	finish := func(subtype ResultSubtype, turns int, runErr error) {
		elapsed := time.Since(start)
		result := &RunResult{
			Subtype:    subtype,
			SessionID:  r.sessionID,
			Result:     lastText,
			IsError:    subtype != ResultSuccess,
			NumTurns:   turns,
			Model:      r.model,
			Provider:   r.provider.Name(),
			Usage:      usage,
			Duration:   elapsed,
			DurationMS: elapsed.Milliseconds(),
			Messages:   messages,
		}
		if runErr != nil {
			result.Error = runErr.Error()
		}

		r.publish(ctx, string(EventResult), map[string]any{
			"subtype":   string(subtype),
			"num_turns": turns,
			"tokens":    usage.TotalTokens,
			"cost":      usage.Cost,
		})

		r.emit(ctx, Event{Type: EventResult, SessionID: r.sessionID, Result: result})
	}

	for turn := 1; ; turn++ {
		if turn > maxTurns {
			logger.Warn("agent reached max turns", observability.Int("max_turns", maxTurns))
			finish(ResultMaxTurns, maxTurns, fmt.Errorf("reached maximum number of turns (%d)", maxTurns))
			return
		}

		resp, err := r.provider.Converse(ctx, &TurnRequest{
			Model:     r.model,
			System:    r.agent.options.SystemPrompt,
			Messages:  messages,
			Tools:     r.tools,
			MaxTokens: r.agent.options.MaxTokens,
		})
		if err != nil {
			logger.Error("provider turn failed", observability.Int("turn", turn), observability.Error(err))
			finish(ResultExecutionError, turn, fmt.Errorf("turn %d failed: %w", turn, err))
			return
		}

		usage = usage.Add(r.priced(ctx, resp))

		messages = append(messages, Message{
			Role:      RoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})

		if resp.Text != "" {
			lastText = resp.Text
			if !r.emit(ctx, Event{Type: EventAssistant, SessionID: r.sessionID, Text: resp.Text}) {
				return
			}
		}

		if len(resp.ToolCalls) == 0 {
			logger.Info("agent run completed",
				observability.Int("turns", turn),
				observability.Int("tokens", usage.TotalTokens),
				observability.Float64("cost", usage.Cost),
			)
			finish(ResultSuccess, turn, nil)
			return
		}

		results := make([]ToolResultMessage, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			if !r.emit(ctx, Event{Type: EventToolUse, SessionID: r.sessionID, ToolCall: &call}) {
				return
			}

			result := r.invoke(ctx, call)

			if !r.emit(ctx, Event{Type: EventToolResult, SessionID: r.sessionID, ToolCall: &call, ToolResult: &result}) {
				return
			}

			results = append(results, ToolResultMessage{
				ToolCallID: call.ID,
				Name:       call.Name,
				Result:     result,
			})
		}

		messages = append(messages, Message{Role: RoleUser, ToolResults: results})
	}
}

// priced returns the turn usage with its cost filled in.
func (r *run) priced(ctx context.Context, resp *TurnResponse) Usage {
	usage := resp.Usage
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}

	if r.agent.costCalculator == nil {
		return usage
	}

	// Responses may name a dated snapshot; the requested model is priced first.
	for _, model := range []string{r.model, resp.Model} {
		if model == "" {
			continue
		}
		cost, err := r.agent.costCalculator.Calculate(ctx, model, usage)
		if err != nil {
			observability.FromContext(ctx).Warn("cost calculation failed",
				observability.String("model", model),
				observability.Error(err),
			)
			continue
		}
		if cost > 0 {
			usage.Cost = cost
			break
		}
	}

	return usage
}

// invoke runs one tool call, refusing tools outside the allow-list.
func (r *run) invoke(ctx context.Context, call ToolCall) ToolResult {
	ctx = observability.WithTool(ctx, call.Name)
	logger := observability.FromContext(ctx)

	r.publish(ctx, string(EventToolUse), map[string]any{
		"tool_call_id": call.ID,
		"input":        string(call.Input),
	})

	var result ToolResult
	if !r.allowed(call.Name) {
		logger.Warn("model requested a tool that is not allowed")
		result = ErrorResult(fmt.Errorf("tool %s is not allowed", call.Name))
	} else {
		result = r.agent.tools.Invoke(ctx, call.Name, call.Input)
	}

	r.publish(ctx, string(EventToolResult), map[string]any{
		"tool_call_id": call.ID,
		"is_error":     result.IsError,
	})

	return result
}

func (r *run) allowed(name string) bool {
	return slices.ContainsFunc(r.tools, func(def ToolDefinition) bool {
		return def.Name == name
	})
}

func (r *run) emit(ctx context.Context, event Event) bool {
	select {
	case r.events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *run) publish(ctx context.Context, eventType string, data map[string]any) {
	if r.agent.publisher == nil {
		return
	}
	r.agent.publisher.Publish(ctx, eventType, data)
}
