package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneymaker/moneymaker/internal/domain"
)

type fakeWorkflowService struct {
	discoveryResult domain.RunResult
	monitorResult   domain.RunResult
	runErr          error
	state           domain.WorkflowState
	stateErr        error
	disabled        map[string]bool

	toggled *domain.WorkflowState
}

func (f *fakeWorkflowService) RunDiscovery(context.Context, domain.Mode) (domain.RunResult, error) {
	return f.discoveryResult, f.runErr
}

func (f *fakeWorkflowService) RunMonitor(context.Context, domain.Mode) (domain.RunResult, error) {
	return f.monitorResult, f.runErr
}

func (f *fakeWorkflowService) ToggleWorkflow(_ context.Context, workflowID string, mode domain.Mode, enabled bool) (domain.WorkflowState, error) {
	state := domain.WorkflowState{WorkflowID: workflowID, Mode: mode, Enabled: enabled}
	f.toggled = &state
	return state, nil
}

func (f *fakeWorkflowService) WorkflowState(context.Context, string, domain.Mode) (domain.WorkflowState, error) {
	return f.state, f.stateErr
}

func (f *fakeWorkflowService) WorkflowEnabled(_ context.Context, workflowID string, _ domain.Mode) bool {
	return !f.disabled[workflowID]
}

func runWorkflowRequest(h *WorkflowHandler, id, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/workflows/"+id+"/run", strings.NewReader(body))
	req.SetPathValue("id", id)
	rec := httptest.NewRecorder()
	h.RunWorkflow(rec, req)
	return rec
}

func TestRunWorkflowDiscovery(t *testing.T) {
	svc := &fakeWorkflowService{
		discoveryResult: domain.RunResult{WorkflowID: domain.WorkflowDiscovery, Mode: domain.ModePaper, Success: true, OrdersPlaced: 2},
	}
	h := NewWorkflowHandler(svc, discardLogger())

	rec := runWorkflowRequest(h, "discovery", `{"mode":"paper"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.RunResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Success)
	assert.Equal(t, 2, got.OrdersPlaced)
}

func TestRunWorkflowFailedRunStillOK(t *testing.T) {
	svc := &fakeWorkflowService{
		monitorResult: domain.RunResult{WorkflowID: domain.WorkflowMonitor, Success: false, Errors: []string{"sell failed"}},
	}
	h := NewWorkflowHandler(svc, discardLogger())

	rec := runWorkflowRequest(h, "monitor", `{"mode":"paper"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.RunResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.False(t, got.Success)
}

func TestRunWorkflowDisabled(t *testing.T) {
	svc := &fakeWorkflowService{disabled: map[string]bool{"discovery": true}}
	h := NewWorkflowHandler(svc, discardLogger())

	rec := runWorkflowRequest(h, "discovery", `{"mode":"paper"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRunWorkflowUnknownID(t *testing.T) {
	h := NewWorkflowHandler(&fakeWorkflowService{}, discardLogger())

	rec := runWorkflowRequest(h, "rebalance", `{"mode":"paper"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunWorkflowInvalidMode(t *testing.T) {
	h := NewWorkflowHandler(&fakeWorkflowService{}, discardLogger())

	rec := runWorkflowRequest(h, "discovery", `{"mode":"sandbox"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToggleWorkflow(t *testing.T) {
	svc := &fakeWorkflowService{}
	h := NewWorkflowHandler(svc, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/workflows/monitor/toggle",
		strings.NewReader(`{"mode":"paper","enabled":false}`))
	req.SetPathValue("id", "monitor")
	rec := httptest.NewRecorder()
	h.ToggleWorkflow(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.toggled)
	assert.Equal(t, "monitor", svc.toggled.WorkflowID)
	assert.False(t, svc.toggled.Enabled)
}

func TestToggleWorkflowRequiresEnabledFlag(t *testing.T) {
	h := NewWorkflowHandler(&fakeWorkflowService{}, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/workflows/monitor/toggle",
		strings.NewReader(`{"mode":"paper"}`))
	req.SetPathValue("id", "monitor")
	rec := httptest.NewRecorder()
	h.ToggleWorkflow(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "enabled flag required")
}

func TestGetWorkflowDefaultsToPaper(t *testing.T) {
	svc := &fakeWorkflowService{
		state: domain.WorkflowState{WorkflowID: "discovery", Mode: domain.ModePaper, Enabled: true, RunCount: 4},
	}
	h := NewWorkflowHandler(svc, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/workflows/discovery", nil)
	req.SetPathValue("id", "discovery")
	rec := httptest.NewRecorder()
	h.GetWorkflow(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.WorkflowState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(4), got.RunCount)
}

func TestGetWorkflowNotFound(t *testing.T) {
	h := NewWorkflowHandler(&fakeWorkflowService{stateErr: domain.ErrNotFound}, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/workflows/discovery?mode=live", nil)
	req.SetPathValue("id", "discovery")
	rec := httptest.NewRecorder()
	h.GetWorkflow(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
