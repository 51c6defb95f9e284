package handler

import (
	"context"
	"net/http"

	"github.com/moneymaker/moneymaker/internal/workflow"
)

// StatusService provides the system status snapshot.
type StatusService interface {
	Status(ctx context.Context) workflow.SystemStatus
}

// StatusHandler serves the system status endpoint for the dashboard.
type StatusHandler struct {
	status StatusService
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(status StatusService) *StatusHandler {
	return &StatusHandler{status: status}
}

// GetStatus responds with balances, thresholds, and workflow states.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.status.Status(r.Context()))
}
