package engine

import "github.com/moneymaker/moneymaker/internal/domain"

// ExitConfig holds the percentage P&L thresholds that force a position
// close. StopLossPercent is negative, TakeProfitPercent positive.
type ExitConfig struct {
	StopLossPercent   float64
	TakeProfitPercent float64
}

// ExitEngine evaluates open positions against exit thresholds.
type ExitEngine struct {
	cfg ExitConfig
}

// NewExitEngine builds an exit engine over the given thresholds.
func NewExitEngine(cfg ExitConfig) *ExitEngine {
	return &ExitEngine{cfg: cfg}
}

// Evaluate returns the exit action for a position. Both boundaries are
// inclusive, and stop loss wins when a misconfiguration makes both
// thresholds hit at once because it is checked first.
func (e *ExitEngine) Evaluate(p domain.Position) domain.ExitAction {
	pnl := p.PnLPercent()
	if pnl <= e.cfg.StopLossPercent {
		return domain.ExitActionStopLoss
	}
	if pnl >= e.cfg.TakeProfitPercent {
		return domain.ExitActionTakeProfit
	}
	return domain.ExitActionHold
}
