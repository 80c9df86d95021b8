package domain

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// ErrorMarker prefixes the text of every failed tool result.
const ErrorMarker = "Error: "

// ErrToolNotFound is returned when a tool name is not registered.
var ErrToolNotFound = errors.New("tool not found")

// ToolDefinition describes a tool to a model or an MCP client.
// InputSchema is a JSON Schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Properties returns the "properties" member of the input schema.
func (d ToolDefinition) Properties() map[string]any {
	props, _ := d.InputSchema["properties"].(map[string]any)
	return props
}

// Required returns the "required" member of the input schema.
func (d ToolDefinition) Required() []string {
	required, _ := d.InputSchema["required"].([]string)
	return required
}

// ContentBlock is one block of a tool result.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ToolResult is the envelope returned by every tool invocation.
type ToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"is_error"`
}

// TextResult builds a successful single-text envelope.
func TextResult(text string) ToolResult {
	return ToolResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: false,
	}
}

// ErrorResult builds a failed envelope whose text carries the error marker.
func ErrorResult(err error) ToolResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return ToolResult{
		Content: []ContentBlock{{Type: "text", Text: ErrorMarker + msg}},
		IsError: true,
	}
}

// Text joins the text blocks of the envelope.
func (r ToolResult) Text() string {
	texts := make([]string, 0, len(r.Content))
	for _, block := range r.Content {
		texts = append(texts, block.Text)
	}
	return strings.Join(texts, "\n")
}

// Tool is a named callable the agent may invoke.
type Tool interface {
	// Definition returns the tool name, description and input schema.
	Definition() ToolDefinition

	// Call runs the tool. Failures are reported in the envelope, not as Go errors.
	Call(ctx context.Context, args json.RawMessage) ToolResult
}

// ToolRegistry manages the tools available to agents.
type ToolRegistry interface {
	// Register adds a tool to the registry.
	Register(ctx context.Context, tool Tool) error

	// Get retrieves a tool by name.
	Get(ctx context.Context, name string) (Tool, error)

	// List returns the registered tool names in sorted order.
	List(ctx context.Context) ([]string, error)

	// Definitions returns definitions of the allowed tools. An empty allow-list means all.
	Definitions(ctx context.Context, allowed []string) ([]ToolDefinition, error)

	// Invoke calls a tool by name. An unknown tool yields an error envelope.
	Invoke(ctx context.Context, name string, args json.RawMessage) ToolResult
}
