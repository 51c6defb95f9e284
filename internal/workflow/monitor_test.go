package workflow

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneymaker/moneymaker/internal/domain"
	"github.com/moneymaker/moneymaker/internal/engine"
)

func testExit() *engine.ExitEngine {
	return engine.NewExitEngine(engine.ExitConfig{
		StopLossPercent:   -15,
		TakeProfitPercent: 30,
	})
}

func position(id, marketID string, entry, current float64) domain.Position {
	return domain.Position{
		ID:           id,
		Mode:         domain.ModePaper,
		MarketID:     marketID,
		Outcome:      "Yes",
		EntryPrice:   entry,
		CurrentPrice: current,
		Quantity:     100,
	}
}

func marketWithPrice(id string, yesPrice float64) domain.Market {
	return domain.Market{
		ID:       id,
		Outcomes: []domain.Outcome{{Name: "Yes", Price: yesPrice}, {Name: "No", Price: 1 - yesPrice}},
	}
}

func newMonitor(ledger *fakeLedger, markets *fakeMarkets) *MonitorWorkflow {
	return NewMonitorWorkflow(ledger, markets, nil, testExit(), slog.New(slog.DiscardHandler))
}

func TestMonitorSellsCrossedPositions(t *testing.T) {
	ledger := &fakeLedger{positions: []domain.Position{
		position("p1", "m1", 0.50, 0.50), // refreshed to 0.40 = -20% -> stop loss
		position("p2", "m2", 0.50, 0.50), // refreshed to 0.70 = +40% -> take profit
		position("p3", "m3", 0.50, 0.50), // refreshed to 0.55 = +10% -> hold
	}}
	markets := &fakeMarkets{byID: map[string]domain.Market{
		"m1": marketWithPrice("m1", 0.40),
		"m2": marketWithPrice("m2", 0.70),
		"m3": marketWithPrice("m3", 0.55),
	}}

	result := newMonitor(ledger, markets).Run(context.Background(), domain.ModePaper)

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.PositionsChecked)
	assert.Equal(t, 2, result.SellsTriggered)
	assert.Equal(t, 1, result.StopLosses)
	assert.Equal(t, 1, result.TakeProfits)
	assert.ElementsMatch(t, []string{"p1", "p2"}, ledger.sells)
}

func TestMonitorNoPositionsIsSuccess(t *testing.T) {
	ledger := &fakeLedger{}
	result := newMonitor(ledger, &fakeMarkets{}).Run(context.Background(), domain.ModePaper)

	assert.True(t, result.Success)
	assert.Zero(t, result.PositionsChecked)
	assert.Empty(t, result.Errors)
}

func TestMonitorSellErrorWithOtherSellStillSucceeds(t *testing.T) {
	ledger := &fakeLedger{
		positions: []domain.Position{
			position("p1", "m1", 0.50, 0.40),
			position("p2", "m2", 0.50, 0.40),
		},
		sellErrs: map[string]error{"p1": errors.New("store unavailable")},
	}
	markets := &fakeMarkets{byID: map[string]domain.Market{
		"m1": marketWithPrice("m1", 0.40),
		"m2": marketWithPrice("m2", 0.40),
	}}

	result := newMonitor(ledger, markets).Run(context.Background(), domain.ModePaper)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.SellsTriggered)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Failed to sell position p1")
}

func TestMonitorAllSellsFailingFailsRun(t *testing.T) {
	ledger := &fakeLedger{
		positions: []domain.Position{position("p1", "m1", 0.50, 0.40)},
		sellErrs:  map[string]error{"p1": errors.New("store unavailable")},
	}
	markets := &fakeMarkets{byID: map[string]domain.Market{"m1": marketWithPrice("m1", 0.40)}}

	result := newMonitor(ledger, markets).Run(context.Background(), domain.ModePaper)

	assert.False(t, result.Success)
	assert.Zero(t, result.SellsTriggered)
	require.Len(t, result.Errors, 1)
}

func TestMonitorRefreshFailureKeepsLastPrice(t *testing.T) {
	// m1 cannot be fetched; the position stays at its stored price,
	// which is already past the stop loss.
	ledger := &fakeLedger{positions: []domain.Position{position("p1", "m1", 0.50, 0.40)}}
	markets := &fakeMarkets{byID: map[string]domain.Market{}}

	result := newMonitor(ledger, markets).Run(context.Background(), domain.ModePaper)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.SellsTriggered)
	assert.Equal(t, 1, result.StopLosses)
}

func TestMonitorSellsAtRefreshedPrice(t *testing.T) {
	var soldAt float64
	ledger := &fakeLedger{positions: []domain.Position{position("p1", "m1", 0.50, 0.50)}}
	markets := &fakeMarkets{byID: map[string]domain.Market{"m1": marketWithPrice("m1", 0.70)}}

	w := NewMonitorWorkflow(&sellPriceRecorder{fakeLedger: ledger, price: &soldAt}, markets, nil, testExit(), slog.New(slog.DiscardHandler))
	result := w.Run(context.Background(), domain.ModePaper)

	assert.Equal(t, 1, result.TakeProfits)
	assert.Equal(t, 0.70, soldAt)
}

type sellPriceRecorder struct {
	*fakeLedger
	price *float64
}

func (s *sellPriceRecorder) Sell(ctx context.Context, pos domain.Position, price float64, mode domain.Mode) (domain.Order, error) {
	*s.price = price
	return s.fakeLedger.Sell(ctx, pos, price, mode)
}
