// Package registry holds the tools an agent or MCP client may call.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/davidbz/barista/internal/domain"
	"github.com/davidbz/barista/internal/observability"
)

// Registry implements the ToolRegistry interface.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]domain.Tool
}

// NewRegistry creates a new tool registry.
func NewRegistry() *Registry {
	return &Registry{
		mu:    sync.RWMutex{},
		tools: make(map[string]domain.Tool),
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(_ context.Context, tool domain.Tool) error {
	if tool == nil {
		return errors.New("tool cannot be nil")
	}

	name := tool.Definition().Name
	if name == "" {
		return errors.New("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}

	r.tools[name] = tool
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(_ context.Context, name string) (domain.Tool, error) {
	if name == "" {
		return nil, errors.New("tool name cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrToolNotFound, name)
	}

	return tool, nil
}

// List returns the registered tool names in sorted order.
func (r *Registry) List(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

// Definitions returns the definitions of the allowed tools in name order.
// Allowed names that are not registered are skipped.
func (r *Registry) Definitions(ctx context.Context, allowed []string) ([]domain.ToolDefinition, error) {
	names, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	allowSet := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		allowSet[name] = true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	definitions := make([]domain.ToolDefinition, 0, len(names))
	for _, name := range names {
		if len(allowSet) > 0 && !allowSet[name] {
			continue
		}
		definitions = append(definitions, r.tools[name].Definition())
	}

	for name := range allowSet {
		if _, exists := r.tools[name]; !exists {
			observability.FromContext(ctx).Debug("allowed tool is not registered", observability.String("tool", name))
		}
	}

	return definitions, nil
}

// Invoke calls a tool by name. Lookup failures become error envelopes.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) domain.ToolResult {
	tool, err := r.Get(ctx, name)
	if err != nil {
		return domain.ErrorResult(err)
	}

	ctx = observability.WithTool(ctx, name)
	logger := observability.FromContext(ctx)
	logger.Debug("invoking tool", observability.String("args", string(args)))

	result := tool.Call(ctx, args)
	if result.IsError {
		logger.Warn("tool returned an error", observability.String("result", result.Text()))
	}

	return result
}
