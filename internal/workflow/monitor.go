package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/moneymaker/moneymaker/internal/domain"
	"github.com/moneymaker/moneymaker/internal/engine"
)

// MonitorWorkflow is one pass of the position monitoring pipeline:
// refresh prices, evaluate exit thresholds, sell what crossed them.
// Positions are evaluated sequentially so each sell lands on the
// ledger one at a time.
type MonitorWorkflow struct {
	ledger    TradingLedger
	markets   MarketProvider
	positions domain.PositionStore
	exit      *engine.ExitEngine
	logger    *slog.Logger
	now       func() time.Time
}

// NewMonitorWorkflow creates a MonitorWorkflow. positions may be nil
// when refreshed prices should not be written back (live mode setups
// where the custodial account owns position state).
func NewMonitorWorkflow(
	ledger TradingLedger,
	markets MarketProvider,
	positions domain.PositionStore,
	exit *engine.ExitEngine,
	logger *slog.Logger,
) *MonitorWorkflow {
	return &MonitorWorkflow{
		ledger:    ledger,
		markets:   markets,
		positions: positions,
		exit:      exit,
		logger:    logger.With("component", "monitor_workflow"),
		now:       time.Now,
	}
}

// Run executes one monitor pass for the given mode. A run with errors
// still reports success when at least one sell went through.
func (w *MonitorWorkflow) Run(ctx context.Context, mode domain.Mode) domain.RunResult {
	result := domain.RunResult{
		WorkflowID: domain.WorkflowMonitor,
		Mode:       mode,
		StartedAt:  w.now(),
	}

	w.logger.InfoContext(ctx, "monitor started", slog.String("mode", string(mode)))

	positions, err := w.ledger.GetPositions(ctx, mode)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("get positions: %v", err))
		return w.finish(ctx, result, false)
	}
	result.PositionsChecked = len(positions)
	if len(positions) == 0 {
		return w.finish(ctx, result, true)
	}

	positions = w.refreshPrices(ctx, mode, positions, &result)

	for _, pos := range positions {
		action := w.exit.Evaluate(pos)
		if action == domain.ExitActionHold {
			continue
		}

		order, err := w.ledger.Sell(ctx, pos, pos.CurrentPrice, mode)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to sell position %s: %v", pos.ID, err))
			w.logger.ErrorContext(ctx, "sell failed",
				slog.String("position_id", pos.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !order.Status.Placed() {
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to sell position %s: %s", pos.ID, order.Error))
			continue
		}

		result.SellsTriggered++
		switch action {
		case domain.ExitActionStopLoss:
			result.StopLosses++
		case domain.ExitActionTakeProfit:
			result.TakeProfits++
		}

		w.logger.InfoContext(ctx, "position sold",
			slog.String("position_id", pos.ID),
			slog.String("action", string(action)),
			slog.Float64("pnl_percent", pos.PnLPercent()),
		)
	}

	return w.finish(ctx, result, len(result.Errors) == 0 || result.SellsTriggered > 0)
}

// refreshPrices re-marks each position at the outcome's current market
// price. A market we cannot fetch leaves that position at its last
// known price; evaluation still proceeds on it.
func (w *MonitorWorkflow) refreshPrices(ctx context.Context, mode domain.Mode, positions []domain.Position, result *domain.RunResult) []domain.Position {
	prices := make(map[string]domain.Market)

	for i, pos := range positions {
		m, ok := prices[pos.MarketID]
		if !ok {
			var err error
			m, err = w.markets.GetMarket(ctx, pos.MarketID)
			if err != nil {
				if !errors.Is(err, domain.ErrNotFound) {
					result.Errors = append(result.Errors, fmt.Sprintf("refresh price for %s: %v", pos.MarketID, err))
				}
				w.logger.WarnContext(ctx, "price refresh failed",
					slog.String("market_id", pos.MarketID),
					slog.String("error", err.Error()),
				)
				continue
			}
			prices[pos.MarketID] = m
		}

		price, ok := m.OutcomePrice(pos.Outcome)
		if !ok {
			continue
		}
		positions[i].CurrentPrice = price

		if w.positions != nil && mode == domain.ModePaper {
			if err := w.positions.UpdatePrice(ctx, pos.ID, price); err != nil {
				w.logger.WarnContext(ctx, "price write-back failed",
					slog.String("position_id", pos.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	return positions
}

func (w *MonitorWorkflow) finish(ctx context.Context, result domain.RunResult, success bool) domain.RunResult {
	result.Success = success
	result.FinishedAt = w.now()

	w.logger.InfoContext(ctx, "monitor finished",
		slog.String("mode", string(result.Mode)),
		slog.Bool("success", result.Success),
		slog.Int("checked", result.PositionsChecked),
		slog.Int("sells", result.SellsTriggered),
		slog.Int("errors", len(result.Errors)),
	)
	return result
}
