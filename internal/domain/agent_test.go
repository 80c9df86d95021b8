package domain_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/barista/internal/domain"
	"github.com/davidbz/barista/internal/provider/echo"
	"github.com/davidbz/barista/internal/provider/registry"
	"github.com/davidbz/barista/internal/tool/drinkprice"
	toolregistry "github.com/davidbz/barista/internal/tool/registry"
)

const testModel = "test-model"

// scriptedProvider answers each turn with the next scripted function.
type scriptedProvider struct {
	mu       sync.Mutex
	turns    []func(req *domain.TurnRequest) (*domain.TurnResponse, error)
	requests []*domain.TurnRequest
}

func (p *scriptedProvider) Converse(_ context.Context, req *domain.TurnRequest) (*domain.TurnResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)
	idx := len(p.requests) - 1
	if idx >= len(p.turns) {
		idx = len(p.turns) - 1
	}
	return p.turns[idx](req)
}

func (p *scriptedProvider) Name() string {
	return "scripted"
}

func (p *scriptedProvider) IsModelSupported(_ context.Context, model string) bool {
	return model == testModel
}

func (p *scriptedProvider) SupportedModels(_ context.Context) []string {
	return []string{testModel}
}

func (p *scriptedProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// recordingPublisher collects published event types.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingPublisher) Publish(_ context.Context, eventType string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

// stubTool is a tool that always succeeds with a fixed text.
type stubTool struct {
	name string
}

func (s stubTool) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{Name: s.name, Description: "stub", InputSchema: map[string]any{"type": "object"}}
}

func (s stubTool) Call(_ context.Context, _ json.RawMessage) domain.ToolResult {
	return domain.TextResult("stub called")
}

func toolCallTurn(id, name, input string) func(*domain.TurnRequest) (*domain.TurnResponse, error) {
	return func(req *domain.TurnRequest) (*domain.TurnResponse, error) {
		return &domain.TurnResponse{
			ID:         "resp-" + id,
			Model:      req.Model,
			Text:       "Let me check.",
			ToolCalls:  []domain.ToolCall{{ID: id, Name: name, Input: json.RawMessage(input)}},
			StopReason: domain.StopToolUse,
			Usage:      domain.Usage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
		}, nil
	}
}

func textTurn(text string) func(*domain.TurnRequest) (*domain.TurnResponse, error) {
	return func(req *domain.TurnRequest) (*domain.TurnResponse, error) {
		return &domain.TurnResponse{
			ID:         "resp-final",
			Model:      req.Model,
			Text:       text,
			StopReason: domain.StopEndTurn,
			Usage:      domain.Usage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
		}, nil
	}
}

type agentFixture struct {
	service   *domain.AgentService
	provider  *scriptedProvider
	publisher *recordingPublisher
}

func newAgentFixture(t *testing.T, options domain.QueryOptions, turns ...func(*domain.TurnRequest) (*domain.TurnResponse, error)) agentFixture {
	t.Helper()
	ctx := context.Background()

	provider := &scriptedProvider{turns: turns}
	providers := registry.NewRegistry()
	require.NoError(t, providers.Register(ctx, provider))

	tools := toolregistry.NewRegistry()
	require.NoError(t, tools.Register(ctx, drinkprice.NewTool(domain.NewDefaultPriceCalculator())))
	require.NoError(t, tools.Register(ctx, stubTool{name: "secret"}))

	rates := domain.NewInMemoryModelRateRegistry()
	require.NoError(t, rates.RegisterRate(ctx, testModel, domain.ModelRate{InputCostPer1K: 0.01, OutputCostPer1K: 0.02}))

	publisher := &recordingPublisher{}

	if options.Model == "" {
		options.Model = testModel
	}

	service := domain.NewAgentService(providers, tools, domain.NewStandardCostCalculator(rates), publisher, options)

	return agentFixture{service: service, provider: provider, publisher: publisher}
}

func collect(t *testing.T, events <-chan domain.Event) []domain.Event {
	t.Helper()
	var out []domain.Event
	for event := range events {
		out = append(out, event)
	}
	return out
}

func eventTypes(events []domain.Event) []domain.EventType {
	types := make([]domain.EventType, 0, len(events))
	for _, event := range events {
		types = append(types, event.Type)
	}
	return types
}

func TestAgentService_Query_ToolRoundTrip(t *testing.T) {
	fx := newAgentFixture(t,
		domain.QueryOptions{AllowedTools: []string{drinkprice.Name}},
		toolCallTurn("call_1", drinkprice.Name, `{"drink_type":"coffee","size":"large"}`),
		textTurn("A large coffee costs $5.50."),
	)

	events, err := fx.service.Query(context.Background(), &domain.QueryRequest{Prompt: "How much is a large coffee?"})
	require.NoError(t, err)

	got := collect(t, events)
	require.Equal(t, []domain.EventType{
		domain.EventAssistant,
		domain.EventToolUse,
		domain.EventToolResult,
		domain.EventAssistant,
		domain.EventResult,
	}, eventTypes(got))

	toolResult := got[2].ToolResult
	require.NotNil(t, toolResult)
	require.False(t, toolResult.IsError)
	require.Contains(t, toolResult.Text(), "Your large coffee costs $5.50 USD")

	result := got[4].Result
	require.NotNil(t, result)
	require.Equal(t, domain.ResultSuccess, result.Subtype)
	require.False(t, result.IsError)
	require.Equal(t, 2, result.NumTurns)
	require.Equal(t, "A large coffee costs $5.50.", result.Result)
	require.Equal(t, "scripted", result.Provider)
	require.Equal(t, testModel, result.Model)
	require.Equal(t, 240, result.Usage.TotalTokens)
	require.InDelta(t, 0.0028, result.Usage.Cost, 1e-9)
	require.NotEmpty(t, result.SessionID)

	for _, event := range got {
		require.Equal(t, result.SessionID, event.SessionID)
	}

	// The second turn must see the tool result answering the first call.
	second := fx.provider.requests[1]
	last := second.Messages[len(second.Messages)-1]
	require.Equal(t, domain.RoleUser, last.Role)
	require.Len(t, last.ToolResults, 1)
	require.Equal(t, "call_1", last.ToolResults[0].ToolCallID)

	require.Contains(t, fx.publisher.events, string(domain.EventToolUse))
	require.Contains(t, fx.publisher.events, string(domain.EventResult))
}

func TestAgentService_QuerySync_PricesRequestedModel(t *testing.T) {
	snapshotTurn := func(req *domain.TurnRequest) (*domain.TurnResponse, error) {
		return &domain.TurnResponse{
			ID:         "resp-snapshot",
			Model:      req.Model + "-2024-08-06",
			Text:       "Done.",
			StopReason: domain.StopEndTurn,
			Usage:      domain.Usage{PromptTokens: 1000, CompletionTokens: 1000},
		}, nil
	}

	fx := newAgentFixture(t, domain.QueryOptions{}, snapshotTurn)

	result, err := fx.service.QuerySync(context.Background(), &domain.QueryRequest{Prompt: "hi"})
	require.NoError(t, err)
	require.Equal(t, domain.ResultSuccess, result.Subtype)
	require.Equal(t, 2000, result.Usage.TotalTokens)
	require.InDelta(t, 0.03, result.Usage.Cost, 1e-9)
	require.Equal(t, result.Duration.Milliseconds(), result.DurationMS)
}

func TestAgentService_Query_OnlyAllowedToolsAreOffered(t *testing.T) {
	fx := newAgentFixture(t,
		domain.QueryOptions{AllowedTools: []string{drinkprice.Name}},
		textTurn("Hello."),
	)

	_, err := fx.service.QuerySync(context.Background(), &domain.QueryRequest{Prompt: "hi"})
	require.NoError(t, err)

	tools := fx.provider.requests[0].Tools
	require.Len(t, tools, 1)
	require.Equal(t, drinkprice.Name, tools[0].Name)
}

func TestAgentService_Query_RefusesDisallowedTool(t *testing.T) {
	fx := newAgentFixture(t,
		domain.QueryOptions{AllowedTools: []string{drinkprice.Name}},
		toolCallTurn("call_1", "secret", `{}`),
		textTurn("I cannot do that."),
	)

	events, err := fx.service.Query(context.Background(), &domain.QueryRequest{Prompt: "run secret"})
	require.NoError(t, err)

	got := collect(t, events)
	require.Equal(t, domain.EventToolResult, got[2].Type)
	require.True(t, got[2].ToolResult.IsError)
	require.Equal(t, "Error: tool secret is not allowed", got[2].ToolResult.Text())

	result := got[len(got)-1].Result
	require.Equal(t, domain.ResultSuccess, result.Subtype)
}

func TestAgentService_Query_ToolFailureIsReturnedToModel(t *testing.T) {
	fx := newAgentFixture(t,
		domain.QueryOptions{},
		toolCallTurn("call_1", drinkprice.Name, `{"drink_type":"coffee"}`),
		textTurn("Which size?"),
	)

	result, err := fx.service.QuerySync(context.Background(), &domain.QueryRequest{Prompt: "a coffee"})
	require.NoError(t, err)
	require.Equal(t, domain.ResultSuccess, result.Subtype)

	toolMsg := fx.provider.requests[1].Messages[2]
	require.Len(t, toolMsg.ToolResults, 1)
	require.True(t, toolMsg.ToolResults[0].Result.IsError)
	require.Contains(t, toolMsg.ToolResults[0].Result.Text(), domain.ErrorMarker)
}

func TestAgentService_Query_MaxTurns(t *testing.T) {
	fx := newAgentFixture(t,
		domain.QueryOptions{MaxTurns: 2},
		toolCallTurn("call_loop", drinkprice.Name, `{"drink_type":"tea","size":"small"}`),
	)

	result, err := fx.service.QuerySync(context.Background(), &domain.QueryRequest{Prompt: "loop forever"})
	require.NoError(t, err)

	require.Equal(t, domain.ResultMaxTurns, result.Subtype)
	require.True(t, result.IsError)
	require.Equal(t, 2, result.NumTurns)
	require.Contains(t, result.Error, "maximum number of turns (2)")
	require.Equal(t, 2, fx.provider.calls())
}

func TestAgentService_DefaultMaxTurns(t *testing.T) {
	fx := newAgentFixture(t, domain.QueryOptions{}, textTurn("ok"))

	require.Equal(t, 10, fx.service.Options().MaxTurns)
}

func TestAgentService_Query_ProviderError(t *testing.T) {
	fx := newAgentFixture(t,
		domain.QueryOptions{},
		func(*domain.TurnRequest) (*domain.TurnResponse, error) {
			return nil, errors.New("upstream unavailable")
		},
	)

	result, err := fx.service.QuerySync(context.Background(), &domain.QueryRequest{Prompt: "hi"})
	require.NoError(t, err)

	require.Equal(t, domain.ResultExecutionError, result.Subtype)
	require.True(t, result.IsError)
	require.Equal(t, 1, result.NumTurns)
	require.Contains(t, result.Error, "turn 1 failed: upstream unavailable")
}

func TestAgentService_Query_PassesOptionsAndHistory(t *testing.T) {
	fx := newAgentFixture(t,
		domain.QueryOptions{SystemPrompt: "You are a barista.", MaxTokens: 256},
		textTurn("Sure."),
	)

	history := []domain.Message{
		{Role: domain.RoleUser, Content: "Hi"},
		{Role: domain.RoleAssistant, Content: "Hello!"},
	}

	result, err := fx.service.QuerySync(context.Background(), &domain.QueryRequest{
		SessionID: "session-42",
		Prompt:    "A tea please",
		History:   history,
	})
	require.NoError(t, err)
	require.Equal(t, "session-42", result.SessionID)
	require.Len(t, result.Messages, 4)

	req := fx.provider.requests[0]
	require.Equal(t, testModel, req.Model)
	require.Equal(t, "You are a barista.", req.System)
	require.Equal(t, 256, req.MaxTokens)
	require.Len(t, req.Messages, 3)
	require.Equal(t, "A tea please", req.Messages[2].Content)
}

func TestAgentService_Query_Validation(t *testing.T) {
	fx := newAgentFixture(t, domain.QueryOptions{}, textTurn("unused"))
	ctx := context.Background()

	tests := []struct {
		name    string
		req     *domain.QueryRequest
		wantErr string
	}{
		{name: "nil request", req: nil, wantErr: "request cannot be nil"},
		{name: "empty prompt", req: &domain.QueryRequest{Prompt: "  "}, wantErr: "prompt cannot be empty"},
		{
			name:    "unknown model",
			req:     &domain.QueryRequest{Prompt: "hi", Model: "nope"},
			wantErr: "provider routing failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := fx.service.Query(ctx, tt.req)
			require.Error(t, err)
			require.Nil(t, events)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := fx.service.Query(ctx, &domain.QueryRequest{Prompt: ""})
	require.ErrorIs(t, err, domain.ErrEmptyPrompt)
	require.Zero(t, fx.provider.calls())
}

func TestAgentService_Query_NoModel(t *testing.T) {
	service := domain.NewAgentService(registry.NewRegistry(), toolregistry.NewRegistry(), nil, nil, domain.QueryOptions{})

	_, err := service.Query(context.Background(), &domain.QueryRequest{Prompt: "hi"})

	require.Error(t, err)
	require.Contains(t, err.Error(), "model cannot be empty")
}

func TestAgentService_QuerySync_WithEchoProvider(t *testing.T) {
	ctx := context.Background()

	providers := registry.NewRegistry()
	require.NoError(t, providers.Register(ctx, echo.NewProvider()))

	tools := toolregistry.NewRegistry()
	require.NoError(t, tools.Register(ctx, drinkprice.NewTool(domain.NewDefaultPriceCalculator())))

	service := domain.NewAgentService(providers, tools, nil, nil, domain.QueryOptions{
		Model:        "echo-barista",
		AllowedTools: []string{drinkprice.Name},
	})

	tests := []struct {
		prompt string
		want   string
	}{
		{prompt: "How much is a large coffee?", want: "Your large coffee costs $5.50 USD."},
		{prompt: "A small tea in TWD please", want: "Your small tea costs NT$94.50 TWD."},
		{prompt: "medium smoothie in euros", want: "Your medium smoothie costs €5.98 EUR."},
		{prompt: "large juice, yen, extra ice", want: "Your large juice costs ¥897.00 JPY."},
	}

	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			result, err := service.QuerySync(ctx, &domain.QueryRequest{Prompt: tt.prompt})
			require.NoError(t, err)
			require.Equal(t, domain.ResultSuccess, result.Subtype, result.Error)
			require.Equal(t, tt.want, result.Result)
			require.Equal(t, 2, result.NumTurns)
			require.Equal(t, "echo", result.Provider)
		})
	}
}

func TestAgentService_Query_ConcurrentRuns(t *testing.T) {
	fx := newAgentFixture(t, domain.QueryOptions{}, textTurn("ok"))

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := fx.service.QuerySync(context.Background(), &domain.QueryRequest{
				SessionID: fmt.Sprintf("s-%d", i),
				Prompt:    "hi",
			})
			if err != nil {
				errs <- err
				return
			}
			if result.SessionID != fmt.Sprintf("s-%d", i) {
				errs <- fmt.Errorf("session mismatch: %s", result.SessionID)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, 8, fx.provider.calls())
}
