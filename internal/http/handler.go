package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/davidbz/kodama/internal/agents"
	"github.com/davidbz/kodama/internal/batch"
	"github.com/davidbz/kodama/internal/domain"
	"github.com/davidbz/kodama/internal/observability"
)

// Handler handles HTTP requests. It is a thin transport wrapper over the
// orchestrator and search engine; no API contract beyond this file.
type Handler struct {
	orchestrator *agents.Orchestrator
	searcher     domain.Searcher
	batcher      *batch.Processor
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(orchestrator *agents.Orchestrator, searcher domain.Searcher, batcher *batch.Processor) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		searcher:     searcher,
		batcher:      batcher,
	}
}

type agentRequest struct {
	Agent        string               `json:"agent"`
	Context      *domain.AgentContext `json:"context"`
	HandleErrors bool                 `json:"handle_errors"`
}

// HandleAgent executes a single agent.
func (h *Handler) HandleAgent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req agentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Agent == "" {
		http.Error(w, "agent name is required", http.StatusBadRequest)
		return
	}

	ctx = observability.WithAgent(ctx, req.Agent)

	result, err := h.orchestrator.ExecuteAgent(ctx, req.Agent, req.Context, req.HandleErrors)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(ctx, w, result)
}

type parallelRequest struct {
	Agents  []string             `json:"agents"`
	Context *domain.AgentContext `json:"context"`
}

// HandleParallel fans out several agents and returns every result, keyed
// by agent name.
func (h *Handler) HandleParallel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req parallelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if len(req.Agents) == 0 {
		http.Error(w, "at least one agent is required", http.StatusBadRequest)
		return
	}

	results := h.orchestrator.ExecuteParallel(ctx, req.Agents, req.Context)
	writeJSON(ctx, w, results)
}

type processRequest struct {
	DocumentID string `json:"document_id"`
	Text       string `json:"text"`
}

// HandleProcess runs the fixed document pipeline.
func (h *Handler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	report, err := h.orchestrator.ProcessDocument(ctx, req.DocumentID, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(ctx, w, report)
}

type searchRequest struct {
	Query      string  `json:"query"`
	OwnerID    string  `json:"owner_id"`
	DocumentID string  `json:"document_id,omitempty"`
	Limit      int     `json:"limit,omitempty"`
	Threshold  float64 `json:"threshold,omitempty"`
}

// HandleSearch runs a similarity search and returns ranked results.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	scope := domain.SearchScope{OwnerID: req.OwnerID, DocumentID: req.DocumentID}
	results, err := h.searcher.Search(ctx, req.Query, scope, req.Limit, req.Threshold)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(ctx, w, map[string]any{"results": results, "total": len(results)})
}

type batchRequest struct {
	Task  string `json:"task"`
	Input string `json:"input"`
}

// HandleBatch enqueues work on the batch processor and waits for its
// batch to be processed. Single-item batches ship after the wait window.
func (h *Handler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Task == "" || req.Input == "" {
		http.Error(w, "task and input are required", http.StatusBadRequest)
		return
	}

	done, err := h.batcher.Submit(ctx, domain.TaskType(req.Task), req.Input)
	if err != nil {
		writeError(w, err)
		return
	}

	select {
	case payload, ok := <-done:
		if !ok {
			http.Error(w, "request dropped by batch handler", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(payload)
	case <-ctx.Done():
		http.Error(w, "request cancelled", http.StatusServiceUnavailable)
	}
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, map[string]string{"status": "ok"})
}

// writeError maps the error taxonomy onto status codes: validation
// failures are the caller's fault, exhausted transient failures mean the
// provider is unavailable.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case domain.IsTransient(err):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(ctx context.Context, w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		observability.FromContext(ctx).Error("failed to encode response",
			observability.Error(err))
	}
}
