package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moneymaker/moneymaker/internal/domain"
)

func positionWithPnL(t *testing.T, pnlPercent float64) domain.Position {
	t.Helper()
	p := domain.Position{
		ID:         "pos-1",
		MarketID:   "mkt-1",
		Outcome:    "Yes",
		EntryPrice: 0.50,
		Quantity:   100,
	}
	p.CurrentPrice = p.EntryPrice * (1 + pnlPercent/100)
	return p
}

func TestExitEvaluate(t *testing.T) {
	e := NewExitEngine(ExitConfig{StopLossPercent: -15, TakeProfitPercent: 30})

	tests := []struct {
		name string
		pnl  float64
		want domain.ExitAction
	}{
		{"deep loss", -40, domain.ExitActionStopLoss},
		{"exactly on stop loss", -15, domain.ExitActionStopLoss},
		{"just above stop loss", -14.9, domain.ExitActionHold},
		{"flat", 0, domain.ExitActionHold},
		{"just below take profit", 29.9, domain.ExitActionHold},
		{"exactly on take profit", 30, domain.ExitActionTakeProfit},
		{"big win", 80, domain.ExitActionTakeProfit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Evaluate(positionWithPnL(t, tt.pnl))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExitStopLossWinsOnMisconfiguration(t *testing.T) {
	// stopLoss >= takeProfit makes both boundaries hit; stop loss is
	// checked first.
	e := NewExitEngine(ExitConfig{StopLossPercent: 10, TakeProfitPercent: 5})
	assert.Equal(t, domain.ExitActionStopLoss, e.Evaluate(positionWithPnL(t, 7)))
}

func TestZeroEntryPriceHolds(t *testing.T) {
	e := NewExitEngine(ExitConfig{StopLossPercent: -15, TakeProfitPercent: 30})
	p := domain.Position{EntryPrice: 0, CurrentPrice: 0.5, Quantity: 10}
	assert.Equal(t, domain.ExitActionHold, e.Evaluate(p))
}
