// Package mcpserver publishes registered tools over the Model Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/davidbz/barista/internal/domain"
	"github.com/davidbz/barista/internal/observability"
)

const (
	// ServerName is the name announced to MCP clients.
	ServerName = "custom-tools"

	// ServerVersion is the version announced to MCP clients.
	ServerVersion = "1.0.0"
)

// Server exposes a tool registry as an MCP server.
type Server struct {
	mcp      *server.MCPServer
	registry domain.ToolRegistry
	tools    []mcp.Tool
}

// New creates the MCP server and registers every allowed tool.
func New(ctx context.Context, registry domain.ToolRegistry, allowed []string) (*Server, error) {
	definitions, err := registry.Definitions(ctx, allowed)
	if err != nil {
		return nil, fmt.Errorf("failed to load tool definitions: %w", err)
	}

	s := &Server{
		mcp: server.NewMCPServer(
			ServerName,
			ServerVersion,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		registry: registry,
		tools:    make([]mcp.Tool, 0, len(definitions)),
	}

	names := make([]string, 0, len(definitions))
	for _, def := range definitions {
		tool, err := toMCPTool(def)
		if err != nil {
			return nil, err
		}
		s.mcp.AddTool(tool, s.handler(def.Name))
		s.tools = append(s.tools, tool)
		names = append(names, def.Name)
	}

	observability.FromContext(ctx).Debug("mcp server ready",
		observability.String("name", ServerName),
		observability.Strings("tools", names),
	)

	return s, nil
}

// Tools returns the tools announced to clients.
func (s *Server) Tools() []mcp.Tool {
	return s.tools
}

// Serve speaks MCP over the given streams until ctx is done or in is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(observability.FromContext(ctx)))

	if err := stdio.Listen(ctx, in, out); err != nil {
		return fmt.Errorf("mcp server stopped: %w", err)
	}
	return nil
}

func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx = observability.WithTool(ctx, name)

		args, err := json.Marshal(req.Params.Arguments)
		if err != nil {
			return toCallToolResult(domain.ErrorResult(fmt.Errorf("invalid arguments: %w", err))), nil
		}

		result := s.registry.Invoke(ctx, name, args)

		observability.FromContext(ctx).Debug("mcp tool call handled",
			observability.Bool("is_error", result.IsError),
		)

		return toCallToolResult(result), nil
	}
}

func toMCPTool(def domain.ToolDefinition) (mcp.Tool, error) {
	schema, err := json.Marshal(def.InputSchema)
	if err != nil {
		return mcp.Tool{}, fmt.Errorf("failed to encode schema of tool %s: %w", def.Name, err)
	}
	return mcp.NewToolWithRawSchema(def.Name, def.Description, schema), nil
}

func toCallToolResult(result domain.ToolResult) *mcp.CallToolResult {
	content := make([]mcp.Content, 0, len(result.Content))
	for _, block := range result.Content {
		content = append(content, mcp.NewTextContent(block.Text))
	}
	return &mcp.CallToolResult{
		Content: content,
		IsError: result.IsError,
	}
}
