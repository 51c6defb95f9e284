package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/moneymaker/moneymaker/internal/domain"
	"github.com/moneymaker/moneymaker/internal/engine"
)

// MarketProvider supplies filtered, volume-ranked candidate markets.
type MarketProvider interface {
	GetTradeable(ctx context.Context, maxMarkets int) ([]domain.Market, error)
	GetMarket(ctx context.Context, id string) (domain.Market, error)
}

// SuggestionProvider turns candidate markets into vetted suggestions.
type SuggestionProvider interface {
	Analyze(ctx context.Context, markets []domain.Market) ([]domain.Suggestion, error)
}

// TradingLedger is the slice of the ledger the pipelines drive.
type TradingLedger interface {
	CanTrade(ctx context.Context, mode domain.Mode, amount float64) (bool, string, error)
	GetBalance(ctx context.Context, mode domain.Mode) (float64, error)
	GetPositions(ctx context.Context, mode domain.Mode) ([]domain.Position, error)
	Buy(ctx context.Context, marketID, question, outcome string, amount, price float64, mode domain.Mode) (domain.Order, error)
	Sell(ctx context.Context, pos domain.Position, price float64, mode domain.Mode) (domain.Order, error)
}

// DiscoveryConfig holds the discovery pipeline parameters.
type DiscoveryConfig struct {
	MinBalanceToTrade float64
	MaxSuggestions    int
	MaxPositions      int
}

// DiscoveryWorkflow is one pass of the market discovery and betting
// pipeline: gate check, fetch, rank, suggest, size, buy. Suggestions
// are processed sequentially because each sizing decision depends on
// the running balance left by the previous buy.
type DiscoveryWorkflow struct {
	markets   MarketProvider
	suggester SuggestionProvider
	ledger    TradingLedger
	gate      *engine.Gate
	cfg       DiscoveryConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewDiscoveryWorkflow creates a DiscoveryWorkflow.
func NewDiscoveryWorkflow(
	markets MarketProvider,
	suggester SuggestionProvider,
	ledger TradingLedger,
	gate *engine.Gate,
	cfg DiscoveryConfig,
	logger *slog.Logger,
) *DiscoveryWorkflow {
	return &DiscoveryWorkflow{
		markets:   markets,
		suggester: suggester,
		ledger:    ledger,
		gate:      gate,
		cfg:       cfg,
		logger:    logger.With("component", "discovery_workflow"),
		now:       time.Now,
	}
}

// Run executes one discovery pass for the given mode. The result is
// always returned; per-suggestion failures are recorded in it rather
// than aborting the run.
func (w *DiscoveryWorkflow) Run(ctx context.Context, mode domain.Mode) domain.RunResult {
	result := domain.RunResult{
		WorkflowID: domain.WorkflowDiscovery,
		Mode:       mode,
		StartedAt:  w.now(),
	}

	w.logger.InfoContext(ctx, "discovery started", slog.String("mode", string(mode)))

	ok, reason, err := w.ledger.CanTrade(ctx, mode, w.cfg.MinBalanceToTrade)
	if err != nil {
		return w.finish(ctx, result, false, fmt.Sprintf("can trade check: %v", err))
	}
	if !ok {
		return w.finish(ctx, result, false, reason)
	}

	markets, err := w.markets.GetTradeable(ctx, w.cfg.MaxSuggestions*3)
	if err != nil {
		return w.finish(ctx, result, false, fmt.Sprintf("fetch markets: %v", err))
	}
	result.MarketsAnalyzed = len(markets)
	if len(markets) == 0 {
		return w.finish(ctx, result, true, "")
	}

	suggestions, err := w.suggester.Analyze(ctx, markets)
	if err != nil {
		return w.finish(ctx, result, false, fmt.Sprintf("analyze markets: %v", err))
	}
	if len(suggestions) > w.cfg.MaxSuggestions {
		suggestions = suggestions[:w.cfg.MaxSuggestions]
	}
	result.Suggestions = len(suggestions)
	if len(suggestions) == 0 {
		return w.finish(ctx, result, true, "")
	}

	balance, err := w.ledger.GetBalance(ctx, mode)
	if err != nil {
		return w.finish(ctx, result, false, fmt.Sprintf("get balance: %v", err))
	}

	// The balance is tracked locally across iterations, never re-read,
	// so each sizing decision accounts for the buys before it.
	limit := min(len(suggestions), w.cfg.MaxPositions)
	for _, s := range suggestions[:limit] {
		decision := w.gate.ShouldTrade(s, balance)
		if !decision.Trade {
			w.logger.DebugContext(ctx, "suggestion skipped",
				slog.String("market_id", s.MarketID),
				slog.String("reason", decision.Reason),
			)
			continue
		}

		order, err := w.ledger.Buy(ctx, s.MarketID, s.Question, s.Outcome, decision.Size, s.CurrentPrice, mode)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Order failed for %s: %v", s.MarketID, err))
			w.logger.ErrorContext(ctx, "order failed",
				slog.String("market_id", s.MarketID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if order.Status.Placed() {
			result.OrdersPlaced++
			balance -= decision.Size
		}
	}

	return w.finish(ctx, result, result.OrdersPlaced > 0 || result.Suggestions == 0, "")
}

func (w *DiscoveryWorkflow) finish(ctx context.Context, result domain.RunResult, success bool, errMsg string) domain.RunResult {
	if errMsg != "" {
		result.Errors = append(result.Errors, errMsg)
	}
	result.Success = success
	result.FinishedAt = w.now()

	w.logger.InfoContext(ctx, "discovery finished",
		slog.String("mode", string(result.Mode)),
		slog.Bool("success", result.Success),
		slog.Int("markets", result.MarketsAnalyzed),
		slog.Int("suggestions", result.Suggestions),
		slog.Int("orders", result.OrdersPlaced),
		slog.Int("errors", len(result.Errors)),
	)
	return result
}
