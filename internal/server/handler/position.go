package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/moneymaker/moneymaker/internal/domain"
)

// PositionService defines the ledger methods the position handler
// requires.
type PositionService interface {
	GetPositions(ctx context.Context, mode domain.Mode) ([]domain.Position, error)
}

// PositionHandler serves position-related HTTP endpoints.
type PositionHandler struct {
	positions  PositionService
	stopLoss   float64
	takeProfit float64
	logger     *slog.Logger
}

// NewPositionHandler creates a PositionHandler. stopLoss and takeProfit
// are the exit thresholds used for the near-threshold counts in the
// summary endpoint.
func NewPositionHandler(positions PositionService, stopLoss, takeProfit float64, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{
		positions:  positions,
		stopLoss:   stopLoss,
		takeProfit: takeProfit,
		logger:     logger,
	}
}

// positionView augments a position with its derived P&L figures.
type positionView struct {
	domain.Position
	EntryValue   float64 `json:"entry_value"`
	CurrentValue float64 `json:"current_value"`
	PnLPercent   float64 `json:"pnl_percent"`
	PnLAmount    float64 `json:"pnl_amount"`
}

// listPositionsResponse wraps the list positions response.
type listPositionsResponse struct {
	Positions []positionView `json:"positions"`
	Count     int            `json:"count"`
}

// ListPositions returns all open positions for a trading mode.
// GET /api/positions?mode=paper
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	mode, ok := h.modeParam(w, r)
	if !ok {
		return
	}

	positions, err := h.positions.GetPositions(r.Context(), mode)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list positions failed",
			slog.String("mode", string(mode)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}

	views := make([]positionView, 0, len(positions))
	for _, p := range positions {
		views = append(views, positionView{
			Position:     p,
			EntryValue:   p.EntryValue(),
			CurrentValue: p.CurrentValue(),
			PnLPercent:   p.PnLPercent(),
			PnLAmount:    p.PnLAmount(),
		})
	}

	writeJSON(w, http.StatusOK, listPositionsResponse{Positions: views, Count: len(views)})
}

// positionsSummary aggregates open positions for the dashboard.
type positionsSummary struct {
	Mode            domain.Mode `json:"mode"`
	Count           int         `json:"count"`
	TotalValue      float64     `json:"total_value"`
	TotalPnLPercent float64     `json:"total_pnl_percent"`
	Profitable      int         `json:"profitable"`
	Losing          int         `json:"losing"`
	NearStopLoss    int         `json:"near_stop_loss"`
	NearTakeProfit  int         `json:"near_take_profit"`
}

// GetSummary aggregates open positions: counts, mark-to-market value,
// overall P&L, and how many sit near an exit threshold.
// GET /api/positions/summary?mode=paper
func (h *PositionHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	mode, ok := h.modeParam(w, r)
	if !ok {
		return
	}

	positions, err := h.positions.GetPositions(r.Context(), mode)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: positions summary failed",
			slog.String("mode", string(mode)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to summarize positions")
		return
	}

	summary := positionsSummary{Mode: mode, Count: len(positions)}

	var totalEntry, totalCurrent float64
	for _, p := range positions {
		totalEntry += p.EntryValue()
		totalCurrent += p.CurrentValue()

		pnl := p.PnLPercent()
		if pnl > 0 {
			summary.Profitable++
		} else if pnl < 0 {
			summary.Losing++
		}
		if pnl <= h.stopLoss+5 {
			summary.NearStopLoss++
		}
		if pnl >= h.takeProfit-10 {
			summary.NearTakeProfit++
		}
	}

	summary.TotalValue = totalCurrent
	if totalEntry > 0 {
		summary.TotalPnLPercent = (totalCurrent - totalEntry) / totalEntry * 100
	}

	writeJSON(w, http.StatusOK, summary)
}

func (h *PositionHandler) modeParam(w http.ResponseWriter, r *http.Request) (domain.Mode, bool) {
	mode := domain.Mode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = domain.ModePaper
	}
	if !mode.Valid() {
		writeError(w, http.StatusBadRequest, "invalid trading mode")
		return "", false
	}
	return mode, true
}
