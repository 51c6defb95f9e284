package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneymaker/moneymaker/internal/domain"
	"github.com/moneymaker/moneymaker/internal/engine"
)

type fakeSource struct {
	markets    []domain.Market
	fetchLimit int
	byID       map[string]domain.Market
}

func (f *fakeSource) FetchMarkets(ctx context.Context, activeOnly bool, limit, offset int) ([]domain.Market, error) {
	f.fetchLimit = limit
	if limit > len(f.markets) {
		limit = len(f.markets)
	}
	return f.markets[:limit], nil
}

func (f *fakeSource) FetchMarket(ctx context.Context, id string) (domain.Market, error) {
	if m, ok := f.byID[id]; ok {
		return m, nil
	}
	return domain.Market{}, domain.ErrNotFound
}

type fakeCache struct {
	store map[string]domain.Market
	gets  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: make(map[string]domain.Market)}
}

func (f *fakeCache) Set(ctx context.Context, m domain.Market, ttl time.Duration) error {
	f.store[m.ID] = m
	return nil
}

func (f *fakeCache) SetBatch(ctx context.Context, markets []domain.Market, ttl time.Duration) error {
	for _, m := range markets {
		f.store[m.ID] = m
	}
	return nil
}

func (f *fakeCache) Get(ctx context.Context, id string) (domain.Market, error) {
	f.gets++
	if m, ok := f.store[id]; ok {
		return m, nil
	}
	return domain.Market{}, domain.ErrNotFound
}

func (f *fakeCache) Invalidate(ctx context.Context, id string) error {
	delete(f.store, id)
	return nil
}

func tradeableMarket(id string, volume float64) domain.Market {
	end := time.Now().Add(30 * time.Minute)
	return domain.Market{
		ID:        id,
		Question:  "Q " + id,
		Category:  "Crypto",
		EndDate:   &end,
		Volume:    volume,
		Liquidity: 2000,
		Outcomes:  []domain.Outcome{{Name: "Yes", Price: 0.40}, {Name: "No", Price: 0.60}},
	}
}

func newTestFilter() *engine.FilterEngine {
	return engine.NewFilterEngine(engine.FilterConfig{
		MinVolume:            1000,
		MinLiquidity:         500,
		MaxHoursToResolution: 1.0,
		ExcludedCategories:   []string{"sports"},
		MinPrice:             0.05,
		MaxPrice:             0.95,
	})
}

func TestGetTradeableRanksByVolume(t *testing.T) {
	src := &fakeSource{markets: []domain.Market{
		tradeableMarket("m1", 1500),
		tradeableMarket("m2", 9000),
		tradeableMarket("m3", 4000),
		tradeableMarket("m4", 7000),
	}}

	svc := NewMarketService(src, nil, newTestFilter(), 0, slog.New(slog.DiscardHandler))
	markets, err := svc.GetTradeable(context.Background(), 2)
	require.NoError(t, err)

	require.Len(t, markets, 2)
	assert.Equal(t, "m2", markets[0].ID)
	assert.Equal(t, "m4", markets[1].ID)
	assert.Equal(t, 6, src.fetchLimit)
}

func TestGetTradeableExcludesFilteredMarkets(t *testing.T) {
	lowVolume := tradeableMarket("low", 100)
	sports := tradeableMarket("sports", 5000)
	sports.Category = "Sports"

	src := &fakeSource{markets: []domain.Market{
		lowVolume,
		sports,
		tradeableMarket("ok", 3000),
	}}

	svc := NewMarketService(src, nil, newTestFilter(), 0, slog.New(slog.DiscardHandler))
	markets, err := svc.GetTradeable(context.Background(), 5)
	require.NoError(t, err)

	require.Len(t, markets, 1)
	assert.Equal(t, "ok", markets[0].ID)
}

func TestGetMarketServesFromCache(t *testing.T) {
	cached := tradeableMarket("m1", 1500)
	cache := newFakeCache()
	cache.store["m1"] = cached

	src := &fakeSource{byID: map[string]domain.Market{}}
	svc := NewMarketService(src, cache, newTestFilter(), 0, slog.New(slog.DiscardHandler))

	m, err := svc.GetMarket(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, cached.ID, m.ID)
	assert.Equal(t, 1, cache.gets)
}

func TestGetMarketFallsThroughAndCaches(t *testing.T) {
	fresh := tradeableMarket("m2", 2500)
	cache := newFakeCache()
	src := &fakeSource{byID: map[string]domain.Market{"m2": fresh}}
	svc := NewMarketService(src, cache, newTestFilter(), 0, slog.New(slog.DiscardHandler))

	m, err := svc.GetMarket(context.Background(), "m2")
	require.NoError(t, err)
	assert.Equal(t, "m2", m.ID)

	_, ok := cache.store["m2"]
	assert.True(t, ok)
}

func TestGetMarketNotFound(t *testing.T) {
	src := &fakeSource{byID: map[string]domain.Market{}}
	svc := NewMarketService(src, nil, newTestFilter(), 0, slog.New(slog.DiscardHandler))

	_, err := svc.GetMarket(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFilterSummaryCountsReasons(t *testing.T) {
	src := &fakeSource{markets: []domain.Market{
		tradeableMarket("ok", 3000),
		tradeableMarket("thin1", 100),
		tradeableMarket("thin2", 200),
	}}

	svc := NewMarketService(src, nil, newTestFilter(), 0, slog.New(slog.DiscardHandler))
	summary, err := svc.FilterSummary(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Passed)
	assert.Equal(t, 2, summary.FilteredOut)
	assert.Equal(t, 2, summary.FailureReasons["Volume"])
}
