// Package ledger owns the trading ledger: wallet balance, open
// positions, and the transaction log for paper trading, plus the
// delegation path to the external custodial account for live trading.
// Buy and Sell are the only mutators.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/moneymaker/moneymaker/internal/domain"
)

// Config holds the ledger's trading limits and mode toggles.
type Config struct {
	PaperEnabled      bool
	LiveEnabled       bool
	InitialBalance    float64
	Currency          string
	MinBalanceToTrade float64
	MaxPositions      int
}

// Ledger coordinates balance reads and trade execution across the two
// trading modes. Paper mode owns its state through the store; live mode
// reads through to the custodial account and never caches its answers.
type Ledger struct {
	cfg       Config
	store     domain.LedgerStore
	positions domain.PositionStore
	live      domain.LiveAccount
	logger    *slog.Logger

	// mu serializes paper-mode mutations per mode. The store is already
	// atomic per call; the mutex keeps the read-check-mutate sequences
	// in CanTrade callers from interleaving.
	mu map[domain.Mode]*sync.Mutex
}

// New builds a Ledger. live may be nil when live trading is disabled.
func New(cfg Config, store domain.LedgerStore, positions domain.PositionStore, live domain.LiveAccount, logger *slog.Logger) *Ledger {
	return &Ledger{
		cfg:       cfg,
		store:     store,
		positions: positions,
		live:      live,
		logger:    logger.With(slog.String("component", "ledger")),
		mu: map[domain.Mode]*sync.Mutex{
			domain.ModePaper: {},
			domain.ModeLive:  {},
		},
	}
}

// Init ensures the paper wallet exists, creating it with the configured
// initial balance on first run.
func (l *Ledger) Init(ctx context.Context) error {
	_, err := l.store.GetOrCreateWallet(ctx, domain.ModePaper, l.cfg.InitialBalance, l.cfg.Currency)
	if err != nil {
		return fmt.Errorf("ledger: init paper wallet: %w", err)
	}
	return nil
}

func (l *Ledger) enabled(mode domain.Mode) bool {
	switch mode {
	case domain.ModePaper:
		return l.cfg.PaperEnabled
	case domain.ModeLive:
		return l.cfg.LiveEnabled && l.live != nil
	}
	return false
}

// GetBalance returns the available balance for the mode. Live mode
// reads through to the custodial account.
func (l *Ledger) GetBalance(ctx context.Context, mode domain.Mode) (float64, error) {
	if !mode.Valid() {
		return 0, domain.ErrInvalidMode
	}
	if mode == domain.ModeLive {
		if l.live == nil {
			return 0, domain.ErrModeDisabled
		}
		bal, err := l.live.Balance(ctx)
		if err != nil {
			return 0, fmt.Errorf("ledger: live balance: %w", err)
		}
		return bal, nil
	}

	w, err := l.store.GetWallet(ctx, mode)
	if err != nil {
		return 0, fmt.Errorf("ledger: get wallet: %w", err)
	}
	return w.Balance, nil
}

// GetWallet returns the paper wallet for the mode.
func (l *Ledger) GetWallet(ctx context.Context, mode domain.Mode) (domain.Wallet, error) {
	if !mode.Valid() {
		return domain.Wallet{}, domain.ErrInvalidMode
	}
	w, err := l.store.GetWallet(ctx, mode)
	if err != nil {
		return domain.Wallet{}, fmt.Errorf("ledger: get wallet: %w", err)
	}
	return w, nil
}

// GetPositions returns the open positions for the mode. Live positions
// come straight from the custodial account.
func (l *Ledger) GetPositions(ctx context.Context, mode domain.Mode) ([]domain.Position, error) {
	if !mode.Valid() {
		return nil, domain.ErrInvalidMode
	}
	if mode == domain.ModeLive {
		if l.live == nil {
			return nil, domain.ErrModeDisabled
		}
		positions, err := l.live.OpenPositions(ctx)
		if err != nil {
			return nil, fmt.Errorf("ledger: live positions: %w", err)
		}
		return positions, nil
	}

	positions, err := l.positions.ListOpen(ctx, mode)
	if err != nil {
		return nil, fmt.Errorf("ledger: list positions: %w", err)
	}
	return positions, nil
}

// CanTrade reports whether a trade of the given amount is currently
// allowed in the mode. A false answer carries a reason, not an error.
func (l *Ledger) CanTrade(ctx context.Context, mode domain.Mode, amount float64) (bool, string, error) {
	if !mode.Valid() {
		return false, "", domain.ErrInvalidMode
	}
	if !l.enabled(mode) {
		return false, fmt.Sprintf("Trading mode %s is disabled", mode), nil
	}

	balance, err := l.GetBalance(ctx, mode)
	if err != nil {
		return false, "", err
	}
	if balance < l.cfg.MinBalanceToTrade {
		return false, fmt.Sprintf("Balance $%.2f below minimum $%.2f", balance, l.cfg.MinBalanceToTrade), nil
	}
	if amount > balance {
		return false, fmt.Sprintf("Insufficient balance: $%.2f needed, $%.2f available", amount, balance), nil
	}

	if mode == domain.ModePaper {
		open, err := l.positions.CountOpen(ctx, mode)
		if err != nil {
			return false, "", fmt.Errorf("ledger: count positions: %w", err)
		}
		if open >= l.cfg.MaxPositions {
			return false, fmt.Sprintf("Maximum positions reached (%d)", l.cfg.MaxPositions), nil
		}
	}

	return true, "", nil
}

// Buy opens a position. Paper mode computes quantity = amount / price
// and performs the debit, transaction append, and position create as
// one atomic mutation; a wallet that cannot afford the amount yields a
// failed order and no state change. Live mode delegates to the
// custodial account.
func (l *Ledger) Buy(ctx context.Context, marketID, question, outcome string, amount, price float64, mode domain.Mode) (domain.Order, error) {
	if !mode.Valid() {
		return domain.Order{}, domain.ErrInvalidMode
	}
	if amount <= 0 || price <= 0 {
		return domain.Order{}, domain.ErrInvalidAmount
	}
	quantity := amount / price

	if mode == domain.ModeLive {
		if l.live == nil {
			return domain.Order{}, domain.ErrModeDisabled
		}
		order, err := l.live.PlaceOrder(ctx, marketID, outcome, domain.OrderSideBuy, price, quantity)
		if err != nil {
			return domain.Order{}, fmt.Errorf("ledger: live buy: %w", err)
		}
		return order, nil
	}

	l.mu[mode].Lock()
	defer l.mu[mode].Unlock()

	pos, txn, err := l.store.ExecuteBuy(ctx, domain.BuyRequest{
		Mode:     mode,
		MarketID: marketID,
		Question: question,
		Outcome:  outcome,
		Amount:   amount,
		Price:    price,
		Quantity: quantity,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			return domain.FailedOrder(marketID, outcome, domain.OrderSideBuy, price, quantity, "insufficient funds"), nil
		}
		return domain.Order{}, err
	}

	l.logger.Info("position opened",
		slog.String("mode", string(mode)),
		slog.String("position_id", pos.ID),
		slog.String("market_id", marketID),
		slog.String("outcome", outcome),
		slog.Float64("amount", amount),
		slog.Float64("price", price),
	)

	return domain.Order{
		ID:         txn.ID,
		MarketID:   marketID,
		Outcome:    outcome,
		Side:       domain.OrderSideBuy,
		Price:      price,
		Quantity:   quantity,
		TotalValue: amount,
		Status:     domain.OrderStatusFilled,
		CreatedAt:  txn.CreatedAt,
	}, nil
}

// Sell closes a position at the given price. Paper mode credits the
// proceeds, appends the sell transaction, and deletes the position as
// one atomic mutation. Live mode delegates to the custodial account and
// leaves position bookkeeping to it.
func (l *Ledger) Sell(ctx context.Context, pos domain.Position, price float64, mode domain.Mode) (domain.Order, error) {
	if !mode.Valid() {
		return domain.Order{}, domain.ErrInvalidMode
	}
	if price < 0 {
		return domain.Order{}, domain.ErrInvalidAmount
	}

	if mode == domain.ModeLive {
		if l.live == nil {
			return domain.Order{}, domain.ErrModeDisabled
		}
		order, err := l.live.PlaceOrder(ctx, pos.MarketID, pos.Outcome, domain.OrderSideSell, price, pos.Quantity)
		if err != nil {
			return domain.Order{}, fmt.Errorf("ledger: live sell: %w", err)
		}
		return order, nil
	}

	l.mu[mode].Lock()
	defer l.mu[mode].Unlock()

	proceeds := price * pos.Quantity
	txn, err := l.store.ExecuteSell(ctx, domain.SellRequest{
		Mode:       mode,
		PositionID: pos.ID,
		Price:      price,
		Proceeds:   proceeds,
	})
	if err != nil {
		return domain.Order{}, err
	}

	l.logger.Info("position closed",
		slog.String("mode", string(mode)),
		slog.String("position_id", pos.ID),
		slog.String("market_id", pos.MarketID),
		slog.Float64("price", price),
		slog.Float64("proceeds", proceeds),
	)

	return domain.Order{
		ID:         txn.ID,
		MarketID:   pos.MarketID,
		Outcome:    pos.Outcome,
		Side:       domain.OrderSideSell,
		Price:      price,
		Quantity:   pos.Quantity,
		TotalValue: proceeds,
		Status:     domain.OrderStatusFilled,
		CreatedAt:  txn.CreatedAt,
	}, nil
}

// Deposit credits the paper wallet.
func (l *Ledger) Deposit(ctx context.Context, mode domain.Mode, amount float64, description string) (domain.Wallet, error) {
	if mode != domain.ModePaper {
		return domain.Wallet{}, domain.ErrInvalidMode
	}
	l.mu[mode].Lock()
	defer l.mu[mode].Unlock()
	return l.store.Deposit(ctx, mode, amount, description)
}

// Withdraw debits the paper wallet; the debit fails without mutation
// when the balance is insufficient.
func (l *Ledger) Withdraw(ctx context.Context, mode domain.Mode, amount float64, description string) (domain.Wallet, error) {
	if mode != domain.ModePaper {
		return domain.Wallet{}, domain.ErrInvalidMode
	}
	l.mu[mode].Lock()
	defer l.mu[mode].Unlock()
	return l.store.Withdraw(ctx, mode, amount, description)
}
