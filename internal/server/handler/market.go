package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/moneymaker/moneymaker/internal/domain"
	"github.com/moneymaker/moneymaker/internal/engine"
)

// MarketService defines the methods the market handler requires from
// the service layer. It is declared locally so the handler package does
// not depend on the concrete service implementation.
type MarketService interface {
	GetMarkets(ctx context.Context, limit, offset int) ([]domain.Market, error)
	GetFilteredMarkets(ctx context.Context, limit, offset int) ([]domain.Market, []engine.FilterResult, error)
	GetMarket(ctx context.Context, id string) (domain.Market, error)
	FilterSummary(ctx context.Context, limit int) (engine.FilterSummary, error)
}

// MarketHandler serves market-related HTTP endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		logger:  logger,
	}
}

// listMarketsResponse wraps the list endpoint output with metadata.
type listMarketsResponse struct {
	Markets []domain.Market `json:"markets"`
	Count   int             `json:"count"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// ListMarkets returns active markets with pagination. With
// ?filtered=true only markets passing the filter chain are returned.
// GET /api/markets?limit=50&offset=0&filtered=true
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	var (
		markets []domain.Market
		err     error
	)
	if r.URL.Query().Get("filtered") == "true" {
		markets, _, err = h.markets.GetFilteredMarkets(r.Context(), opts.Limit, opts.Offset)
	} else {
		markets, err = h.markets.GetMarkets(r.Context(), opts.Limit, opts.Offset)
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list markets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to list markets")
		return
	}

	if markets == nil {
		markets = []domain.Market{}
	}
	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: markets,
		Count:   len(markets),
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// GetMarket returns a single market by its ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	market, err := h.markets.GetMarket(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get market failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to get market")
		return
	}

	writeJSON(w, http.StatusOK, market)
}

// GetSummary reports how the current market page fares against the
// filter chain, with failure counts grouped by reason.
// GET /api/markets/summary?limit=100
func (h *MarketHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	summary, err := h.markets.FilterSummary(r.Context(), opts.Limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: market summary failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to summarize markets")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
