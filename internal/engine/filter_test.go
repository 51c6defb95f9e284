package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneymaker/moneymaker/internal/domain"
)

func testFilterConfig() FilterConfig {
	return FilterConfig{
		MinVolume:            1000,
		MinLiquidity:         500,
		MaxHoursToResolution: 1.0,
		ExcludedCategories:   []string{"sports", "entertainment"},
		MinPrice:             0.05,
		MaxPrice:             0.95,
	}
}

func testMarket(endIn time.Duration) domain.Market {
	end := time.Now().Add(endIn)
	return domain.Market{
		ID:        "mkt-1",
		Question:  "Will it rain tomorrow?",
		Category:  "weather",
		EndDate:   &end,
		Volume:    5000,
		Liquidity: 2000,
		Outcomes: []domain.Outcome{
			{Name: "Yes", Price: 0.60},
			{Name: "No", Price: 0.40},
		},
		Active: true,
	}
}

func TestFilterPasses(t *testing.T) {
	e := NewFilterEngine(testFilterConfig())

	r := e.Filter(testMarket(30 * time.Minute))
	assert.True(t, r.Passed)
	assert.Empty(t, r.Reason)
}

func TestFilterEndedMarket(t *testing.T) {
	e := NewFilterEngine(testFilterConfig())

	m := testMarket(-1 * time.Hour)
	r := e.Filter(m)
	require.False(t, r.Passed)
	assert.Equal(t, "Market has already ended", r.Reason)

	m.EndDate = nil
	r = e.Filter(m)
	require.False(t, r.Passed)
	assert.Equal(t, "Market has already ended", r.Reason)
}

func TestFilterResolutionWindow(t *testing.T) {
	e := NewFilterEngine(testFilterConfig())

	r := e.Filter(testMarket(3 * time.Hour))
	require.False(t, r.Passed)
	assert.Contains(t, r.Reason, "exceeds maximum")

	r = e.Filter(testMarket(2 * time.Minute))
	require.False(t, r.Passed)
	assert.Contains(t, r.Reason, "resolves too soon")
}

func TestFilterVolumeAndLiquidity(t *testing.T) {
	e := NewFilterEngine(testFilterConfig())

	m := testMarket(30 * time.Minute)
	m.Volume = 999
	r := e.Filter(m)
	require.False(t, r.Passed)
	assert.Contains(t, r.Reason, "Volume")

	m = testMarket(30 * time.Minute)
	m.Liquidity = 100
	r = e.Filter(m)
	require.False(t, r.Passed)
	assert.Contains(t, r.Reason, "Liquidity")
}

func TestFilterCategoryCaseInsensitive(t *testing.T) {
	e := NewFilterEngine(testFilterConfig())

	m := testMarket(30 * time.Minute)
	m.Category = "Sports"
	r := e.Filter(m)
	require.False(t, r.Passed)
	assert.Equal(t, "Category 'Sports' is excluded", r.Reason)
}

func TestFilterPriceBandIsOrAcrossOutcomes(t *testing.T) {
	e := NewFilterEngine(testFilterConfig())

	// Every outcome extreme: reject.
	m := testMarket(30 * time.Minute)
	m.Outcomes = []domain.Outcome{
		{Name: "Yes", Price: 0.98},
		{Name: "No", Price: 0.02},
	}
	r := e.Filter(m)
	require.False(t, r.Passed)
	assert.Contains(t, r.Reason, "extreme")

	// One extreme, one inside the band: pass.
	m.Outcomes = []domain.Outcome{
		{Name: "Yes", Price: 0.98},
		{Name: "No", Price: 0.40},
	}
	assert.True(t, e.Filter(m).Passed)
}

func TestFilterChainOrder(t *testing.T) {
	e := NewFilterEngine(testFilterConfig())

	// A market failing several rules reports the earliest one.
	m := testMarket(30 * time.Minute)
	m.Volume = 0
	m.Liquidity = 0
	m.Category = "sports"
	r := e.Filter(m)
	require.False(t, r.Passed)
	assert.Contains(t, r.Reason, "Volume")
}

func TestFilterAllAndSummary(t *testing.T) {
	e := NewFilterEngine(testFilterConfig())

	good := testMarket(30 * time.Minute)
	ended := testMarket(-1 * time.Hour)
	thin := testMarket(30 * time.Minute)
	thin.ID = "mkt-thin"
	thin.Volume = 10

	passing, results := e.FilterAll([]domain.Market{good, ended, thin})
	require.Len(t, passing, 1)
	assert.Equal(t, good.ID, passing[0].ID)
	require.Len(t, results, 3)

	s := Summarize(results)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Passed)
	assert.Equal(t, 2, s.FilteredOut)
	assert.Equal(t, 1, s.FailureReasons["Market has already ended"])
	assert.Equal(t, 1, s.FailureReasons["Volume"])
}
