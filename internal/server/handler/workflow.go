package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/moneymaker/moneymaker/internal/domain"
)

// WorkflowService defines the orchestrator methods the workflow handler
// requires.
type WorkflowService interface {
	RunDiscovery(ctx context.Context, mode domain.Mode) (domain.RunResult, error)
	RunMonitor(ctx context.Context, mode domain.Mode) (domain.RunResult, error)
	ToggleWorkflow(ctx context.Context, workflowID string, mode domain.Mode, enabled bool) (domain.WorkflowState, error)
	WorkflowState(ctx context.Context, workflowID string, mode domain.Mode) (domain.WorkflowState, error)
	WorkflowEnabled(ctx context.Context, workflowID string, mode domain.Mode) bool
}

// WorkflowHandler serves workflow trigger and state endpoints.
type WorkflowHandler struct {
	orchestrator WorkflowService
	logger       *slog.Logger
}

// NewWorkflowHandler creates a WorkflowHandler.
func NewWorkflowHandler(orchestrator WorkflowService, logger *slog.Logger) *WorkflowHandler {
	return &WorkflowHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// runRequest is the body for the run and toggle endpoints.
type runRequest struct {
	Mode    domain.Mode `json:"mode"`
	Enabled *bool       `json:"enabled,omitempty"`
}

// RunWorkflow triggers one pipeline run and returns its result. A run
// that completes with success=false is still a 200; only transport and
// validation failures map to error statuses.
// POST /api/workflows/{id}/run
func (h *WorkflowHandler) RunWorkflow(w http.ResponseWriter, r *http.Request) {
	workflowID := pathParam(r, "id")

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Mode.Valid() {
		writeError(w, http.StatusBadRequest, "invalid trading mode")
		return
	}

	if !h.orchestrator.WorkflowEnabled(r.Context(), workflowID, req.Mode) {
		writeError(w, http.StatusConflict, "workflow is disabled")
		return
	}

	var (
		result domain.RunResult
		err    error
	)
	switch workflowID {
	case domain.WorkflowDiscovery:
		result, err = h.orchestrator.RunDiscovery(r.Context(), req.Mode)
	case domain.WorkflowMonitor:
		result, err = h.orchestrator.RunMonitor(r.Context(), req.Mode)
	default:
		writeError(w, http.StatusNotFound, "unknown workflow")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: workflow run failed",
			slog.String("workflow_id", workflowID),
			slog.String("mode", string(req.Mode)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "workflow run failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ToggleWorkflow enables or disables a workflow for a mode.
// POST /api/workflows/{id}/toggle
func (h *WorkflowHandler) ToggleWorkflow(w http.ResponseWriter, r *http.Request) {
	workflowID := pathParam(r, "id")

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Mode.Valid() {
		writeError(w, http.StatusBadRequest, "invalid trading mode")
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled flag required")
		return
	}

	state, err := h.orchestrator.ToggleWorkflow(r.Context(), workflowID, req.Mode, *req.Enabled)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: workflow toggle failed",
			slog.String("workflow_id", workflowID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to toggle workflow")
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// GetWorkflow returns the recorded state for a workflow and mode.
// GET /api/workflows/{id}?mode=paper
func (h *WorkflowHandler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	workflowID := pathParam(r, "id")
	mode := domain.Mode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = domain.ModePaper
	}
	if !mode.Valid() {
		writeError(w, http.StatusBadRequest, "invalid trading mode")
		return
	}

	state, err := h.orchestrator.WorkflowState(r.Context(), workflowID, mode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "workflow state not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get workflow failed",
			slog.String("workflow_id", workflowID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get workflow state")
		return
	}

	writeJSON(w, http.StatusOK, state)
}
