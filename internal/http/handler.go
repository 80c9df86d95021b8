package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"

	"github.com/davidbz/barista/internal/domain"
	"github.com/davidbz/barista/internal/observability"
	"github.com/davidbz/barista/internal/provider/registry"
)

const maxBodyBytes = 1 << 20

// queryBody is the request body of POST /v1/query.
type queryBody struct {
	Prompt    string `json:"prompt"`
	SessionID string `json:"session_id,omitempty"`
	Model     string `json:"model,omitempty"`
}

// Handler handles HTTP requests.
type Handler struct {
	agent *domain.AgentService
	tools domain.ToolRegistry
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(agent *domain.AgentService, tools domain.ToolRegistry) *Handler {
	return &Handler{
		agent: agent,
		tools: tools,
	}
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// HandleListTools returns the definitions of the tools agents may use.
func (h *Handler) HandleListTools(w http.ResponseWriter, r *http.Request) {
	definitions, err := h.tools.Definitions(r.Context(), h.agent.Options().AllowedTools)
	if err != nil {
		observability.FromContext(r.Context()).Error("failed to list tools", observability.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"tools": definitions,
	})
}

// HandleCallTool invokes one tool with the request body as its arguments.
// Tool failures are reported in the envelope with status 200.
func (h *Handler) HandleCallTool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	ctx := observability.WithTool(r.Context(), name)
	logger := observability.FromContext(ctx)

	if !h.callable(r, name) {
		http.Error(w, fmt.Sprintf("%s: %s", domain.ErrToolNotFound, name), http.StatusNotFound)
		return
	}

	args, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	result := h.tools.Invoke(ctx, name, args)

	logger.Info("tool call handled", observability.Bool("is_error", result.IsError))

	writeJSON(w, r, http.StatusOK, result)
}

// HandleQuery runs an agent query to completion.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body queryBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	logger := observability.FromContext(ctx)
	logger.Info("query request received", observability.String("model", body.Model))

	result, err := h.agent.QuerySync(ctx, &domain.QueryRequest{
		SessionID: body.SessionID,
		Prompt:    body.Prompt,
		Model:     body.Model,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrEmptyPrompt) || errors.Is(err, registry.ErrProviderNotFound) {
			status = http.StatusBadRequest
		}
		logger.Error("query failed", observability.Error(err))
		http.Error(w, err.Error(), status)
		return
	}

	logger.Info("query completed",
		observability.String("subtype", string(result.Subtype)),
		observability.Int("turns", result.NumTurns),
		observability.Float64("cost", result.Usage.Cost),
	)

	writeJSON(w, r, http.StatusOK, result)
}

// callable reports whether name is a registered tool agents may use.
func (h *Handler) callable(r *http.Request, name string) bool {
	if _, err := h.tools.Get(r.Context(), name); err != nil {
		return false
	}

	allowed := h.agent.Options().AllowedTools
	return len(allowed) == 0 || slices.Contains(allowed, name)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Already written status, can't change it, just log.
		observability.FromContext(r.Context()).Error("failed to encode response", observability.Error(err))
	}
}
