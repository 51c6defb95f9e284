package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneymaker/moneymaker/internal/domain"
)

type fakePositionService struct {
	positions []domain.Position
	err       error
	gotMode   domain.Mode
}

func (f *fakePositionService) GetPositions(_ context.Context, mode domain.Mode) ([]domain.Position, error) {
	f.gotMode = mode
	return f.positions, f.err
}

func openPosition(id string, entry, current float64) domain.Position {
	return domain.Position{
		ID:           id,
		Mode:         domain.ModePaper,
		MarketID:     "m-" + id,
		Outcome:      "Yes",
		EntryPrice:   entry,
		CurrentPrice: current,
		Quantity:     100,
	}
}

func TestListPositionsDerivesPnL(t *testing.T) {
	svc := &fakePositionService{positions: []domain.Position{openPosition("p1", 0.50, 0.60)}}
	h := NewPositionHandler(svc, -15, 30, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/positions", nil)
	rec := httptest.NewRecorder()
	h.ListPositions(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ModePaper, svc.gotMode)

	var got listPositionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, 1, got.Count)

	view := got.Positions[0]
	assert.Equal(t, 50.0, view.EntryValue)
	assert.Equal(t, 60.0, view.CurrentValue)
	assert.InDelta(t, 20.0, view.PnLPercent, 1e-9)
	assert.InDelta(t, 10.0, view.PnLAmount, 1e-9)
}

func TestListPositionsInvalidMode(t *testing.T) {
	h := NewPositionHandler(&fakePositionService{}, -15, 30, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/positions?mode=demo", nil)
	rec := httptest.NewRecorder()
	h.ListPositions(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSummaryAggregates(t *testing.T) {
	svc := &fakePositionService{positions: []domain.Position{
		openPosition("p1", 0.50, 0.65), // +30%, profitable, near take-profit
		openPosition("p2", 0.50, 0.44), // -12%, losing, near stop-loss
		openPosition("p3", 0.40, 0.40), // flat
	}}
	h := NewPositionHandler(svc, -15, 30, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/positions/summary?mode=paper", nil)
	rec := httptest.NewRecorder()
	h.GetSummary(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got positionsSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

	assert.Equal(t, 3, got.Count)
	assert.Equal(t, 1, got.Profitable)
	assert.Equal(t, 1, got.Losing)
	assert.Equal(t, 1, got.NearStopLoss)
	assert.Equal(t, 1, got.NearTakeProfit)
	assert.InDelta(t, 149.0, got.TotalValue, 1e-9)
	// (149 - 140) / 140 * 100
	assert.InDelta(t, 6.428571428571429, got.TotalPnLPercent, 1e-9)
}

func TestGetSummaryEmpty(t *testing.T) {
	h := NewPositionHandler(&fakePositionService{}, -15, 30, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/positions/summary", nil)
	rec := httptest.NewRecorder()
	h.GetSummary(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got positionsSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 0, got.Count)
	assert.Zero(t, got.TotalPnLPercent)
}

func TestListPositionsServiceError(t *testing.T) {
	h := NewPositionHandler(&fakePositionService{err: errors.New("db down")}, -15, 30, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/positions", nil)
	rec := httptest.NewRecorder()
	h.ListPositions(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
