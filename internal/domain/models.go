package domain

import (
	"encoding/json"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// StopReason explains why a model ended its turn.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
)

// Message is one provider-neutral conversation entry.
// Assistant messages may carry tool calls; user messages may carry tool results.
type Message struct {
	Role        string              `json:"role"`
	Content     string              `json:"content,omitempty"`
	ToolCalls   []ToolCall          `json:"tool_calls,omitempty"`
	ToolResults []ToolResultMessage `json:"tool_results,omitempty"`
}

// ToolCall is a model's request to run a tool.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResultMessage answers a ToolCall.
type ToolResultMessage struct {
	ToolCallID string     `json:"tool_call_id"`
	Name       string     `json:"name"`
	Result     ToolResult `json:"result"`
}

// TurnRequest is one round trip to a provider.
type TurnRequest struct {
	Model     string           `json:"model"`
	System    string           `json:"system,omitempty"`
	Messages  []Message        `json:"messages"`
	Tools     []ToolDefinition `json:"tools,omitempty"`
	MaxTokens int              `json:"max_tokens,omitempty"`
}

// TurnResponse is the provider's answer to a TurnRequest.
type TurnResponse struct {
	ID         string     `json:"id"`
	Model      string     `json:"model"`
	Provider   string     `json:"provider"`
	Text       string     `json:"text"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	StopReason StopReason `json:"stop_reason"`
	Usage      Usage      `json:"usage"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	Cost             float64 `json:"cost,omitempty"`
}

// Add returns the sum of two usages.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
		Cost:             u.Cost + other.Cost,
	}
}

// QueryOptions control an agent run.
type QueryOptions struct {
	Model        string
	SystemPrompt string
	MaxTurns     int
	AllowedTools []string
	MaxTokens    int
}

// QueryRequest starts an agent run.
type QueryRequest struct {
	SessionID string    `json:"session_id,omitempty"`
	Prompt    string    `json:"prompt"`
	Model     string    `json:"model,omitempty"`
	History   []Message `json:"history,omitempty"`
}

// EventType identifies an agent event.
type EventType string

const (
	EventAssistant  EventType = "assistant"
	EventToolUse    EventType = "tool_use"
	EventToolResult EventType = "tool_result"
	EventResult     EventType = "result"
)

// ResultSubtype tells how a run ended.
type ResultSubtype string

const (
	ResultSuccess        ResultSubtype = "success"
	ResultMaxTurns       ResultSubtype = "error_max_turns"
	ResultExecutionError ResultSubtype = "error_during_execution"
)

// Event is one item of an agent run stream.
type Event struct {
	Type       EventType   `json:"type"`
	SessionID  string      `json:"session_id"`
	Text       string      `json:"text,omitempty"`
	ToolCall   *ToolCall   `json:"tool_call,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
	Result     *RunResult  `json:"result,omitempty"`
}

// RunResult is the terminal summary of an agent run.
type RunResult struct {
	Subtype    ResultSubtype `json:"subtype"`
	SessionID  string        `json:"session_id"`
	Result     string        `json:"result"`
	IsError    bool          `json:"is_error"`
	Error      string        `json:"error,omitempty"`
	NumTurns   int           `json:"num_turns"`
	Model      string        `json:"model"`
	Provider   string        `json:"provider"`
	Usage      Usage         `json:"usage"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
	Messages   []Message     `json:"-"`
}
