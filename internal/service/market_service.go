package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/moneymaker/moneymaker/internal/domain"
	"github.com/moneymaker/moneymaker/internal/engine"
)

// MarketService fetches markets from the exchange, applies the filter
// chain, and serves lookups through the cache. Filtering is delegated
// entirely to the engine; this layer only arranges the data flow.
type MarketService struct {
	source   domain.MarketSource
	cache    domain.MarketCache
	filter   *engine.FilterEngine
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewMarketService creates a MarketService. cache may be nil, in which
// case every lookup goes to the source.
func NewMarketService(
	source domain.MarketSource,
	cache domain.MarketCache,
	filter *engine.FilterEngine,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *MarketService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &MarketService{
		source:   source,
		cache:    cache,
		filter:   filter,
		cacheTTL: cacheTTL,
		logger:   logger.With("component", "market_service"),
	}
}

// GetMarkets fetches a page of active markets from the source and
// refreshes the cache with them.
func (s *MarketService) GetMarkets(ctx context.Context, limit, offset int) ([]domain.Market, error) {
	markets, err := s.source.FetchMarkets(ctx, true, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("market_service: fetch markets: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetBatch(ctx, markets, s.cacheTTL); err != nil {
			s.logger.WarnContext(ctx, "market_service: cache batch set failed",
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.DebugContext(ctx, "market_service: fetched markets",
		slog.Int("count", len(markets)),
		slog.Int("limit", limit),
		slog.Int("offset", offset),
	)
	return markets, nil
}

// GetFilteredMarkets fetches a page of markets and runs the filter
// chain over it, returning the passing markets and the per-market
// results.
func (s *MarketService) GetFilteredMarkets(ctx context.Context, limit, offset int) ([]domain.Market, []engine.FilterResult, error) {
	markets, err := s.GetMarkets(ctx, limit, offset)
	if err != nil {
		return nil, nil, err
	}

	passed, results := s.filter.FilterAll(markets)

	s.logger.InfoContext(ctx, "market_service: filtered markets",
		slog.Int("fetched", len(markets)),
		slog.Int("passed", len(passed)),
	)
	return passed, results, nil
}

// GetMarket returns a single market, serving from the cache when it
// holds a fresh copy and falling through to the source otherwise.
func (s *MarketService) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	if s.cache != nil {
		m, err := s.cache.Get(ctx, id)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "market_service: cache get failed",
				slog.String("market_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	m, err := s.source.FetchMarket(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: fetch market %s: %w", id, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, m, s.cacheTTL); err != nil {
			s.logger.WarnContext(ctx, "market_service: cache set failed",
				slog.String("market_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	return m, nil
}

// GetTradeable returns up to maxMarkets filtered markets ranked by
// volume, most active first. It over-fetches threefold so the filter
// chain has enough candidates to work with.
func (s *MarketService) GetTradeable(ctx context.Context, maxMarkets int) ([]domain.Market, error) {
	fetchLimit := maxMarkets * 3

	passed, _, err := s.GetFilteredMarkets(ctx, fetchLimit, 0)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(passed, func(i, j int) bool {
		return passed[i].Volume > passed[j].Volume
	})

	if len(passed) > maxMarkets {
		passed = passed[:maxMarkets]
	}
	return passed, nil
}

// FilterSummary fetches a page of markets and reports how many passed
// the filter chain, with failure counts grouped by reason.
func (s *MarketService) FilterSummary(ctx context.Context, limit int) (engine.FilterSummary, error) {
	_, results, err := s.GetFilteredMarkets(ctx, limit, 0)
	if err != nil {
		return engine.FilterSummary{}, err
	}
	return engine.Summarize(results), nil
}
