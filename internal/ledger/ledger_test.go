package ledger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneymaker/moneymaker/internal/domain"
)

// memStore is an in-memory LedgerStore and PositionStore that mirrors
// the atomicity contract: each call either fully applies or leaves no
// trace.
type memStore struct {
	wallet    domain.Wallet
	positions map[string]domain.Position
	log       []domain.Transaction
	nextID    int
}

func newMemStore(balance float64) *memStore {
	return &memStore{
		wallet: domain.Wallet{
			ID:       "wallet-paper",
			Mode:     domain.ModePaper,
			Balance:  balance,
			Currency: "USDC",
		},
		positions: map[string]domain.Position{},
	}
}

func (m *memStore) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *memStore) GetOrCreateWallet(_ context.Context, _ domain.Mode, _ float64, _ string) (domain.Wallet, error) {
	return m.wallet, nil
}

func (m *memStore) GetWallet(_ context.Context, mode domain.Mode) (domain.Wallet, error) {
	if mode != domain.ModePaper {
		return domain.Wallet{}, domain.ErrNotFound
	}
	return m.wallet, nil
}

func (m *memStore) appendTxn(typ domain.TransactionType, amount, before float64, ref string) domain.Transaction {
	t := domain.Transaction{
		ID:            m.id("txn"),
		WalletID:      m.wallet.ID,
		Type:          typ,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  m.wallet.Balance,
		ReferenceID:   ref,
		CreatedAt:     time.Now().UTC(),
	}
	m.log = append(m.log, t)
	return t
}

func (m *memStore) Deposit(_ context.Context, _ domain.Mode, amount float64, _ string) (domain.Wallet, error) {
	before := m.wallet.Balance
	m.wallet.Balance += amount
	m.appendTxn(domain.TransactionTypeDeposit, amount, before, "")
	return m.wallet, nil
}

func (m *memStore) Withdraw(_ context.Context, _ domain.Mode, amount float64, _ string) (domain.Wallet, error) {
	if !m.wallet.CanAfford(amount) {
		return domain.Wallet{}, domain.ErrInsufficientFunds
	}
	before := m.wallet.Balance
	m.wallet.Balance -= amount
	m.appendTxn(domain.TransactionTypeWithdrawal, amount, before, "")
	return m.wallet, nil
}

func (m *memStore) ExecuteBuy(_ context.Context, req domain.BuyRequest) (domain.Position, domain.Transaction, error) {
	if !m.wallet.CanAfford(req.Amount) {
		return domain.Position{}, domain.Transaction{}, domain.ErrInsufficientFunds
	}
	before := m.wallet.Balance
	m.wallet.Balance -= req.Amount
	pos := domain.Position{
		ID:           m.id("pos"),
		WalletID:     m.wallet.ID,
		Mode:         req.Mode,
		MarketID:     req.MarketID,
		Question:     req.Question,
		Outcome:      req.Outcome,
		EntryPrice:   req.Price,
		CurrentPrice: req.Price,
		Quantity:     req.Quantity,
		OpenedAt:     time.Now().UTC(),
	}
	m.positions[pos.ID] = pos
	txn := m.appendTxn(domain.TransactionTypeBuy, req.Amount, before, pos.ID)
	return pos, txn, nil
}

func (m *memStore) ExecuteSell(_ context.Context, req domain.SellRequest) (domain.Transaction, error) {
	if _, ok := m.positions[req.PositionID]; !ok {
		return domain.Transaction{}, domain.ErrNotFound
	}
	delete(m.positions, req.PositionID)
	before := m.wallet.Balance
	m.wallet.Balance += req.Proceeds
	return m.appendTxn(domain.TransactionTypeSell, req.Proceeds, before, req.PositionID), nil
}

func (m *memStore) GetByID(_ context.Context, id string) (domain.Position, error) {
	p, ok := m.positions[id]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	return p, nil
}

func (m *memStore) ListOpen(_ context.Context, mode domain.Mode) ([]domain.Position, error) {
	var out []domain.Position
	for _, p := range m.positions {
		if p.Mode == mode {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) CountOpen(_ context.Context, mode domain.Mode) (int, error) {
	n := 0
	for _, p := range m.positions {
		if p.Mode == mode {
			n++
		}
	}
	return n, nil
}

func (m *memStore) UpdatePrice(_ context.Context, id string, price float64) error {
	p, ok := m.positions[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.CurrentPrice = price
	m.positions[id] = p
	return nil
}

func testLedger(store *memStore) *Ledger {
	cfg := Config{
		PaperEnabled:      true,
		InitialBalance:    1000,
		Currency:          "USDC",
		MinBalanceToTrade: 10,
		MaxPositions:      10,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(cfg, store, store, nil, logger)
}

func TestBuyDebitsAndOpensPosition(t *testing.T) {
	store := newMemStore(1000)
	l := testLedger(store)

	order, err := l.Buy(context.Background(), "mkt-1", "Will it rain?", "Yes", 50, 0.50, domain.ModePaper)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFilled, order.Status)
	assert.InDelta(t, 100.0, order.Quantity, 1e-9)

	assert.InDelta(t, 950.0, store.wallet.Balance, 1e-9)
	assert.Len(t, store.positions, 1)
	require.Len(t, store.log, 1)
	assert.Equal(t, domain.TransactionTypeBuy, store.log[0].Type)
	assert.InDelta(t, store.log[0].BalanceBefore-store.log[0].Amount, store.log[0].BalanceAfter, 1e-9)
}

func TestBuyInsufficientFundsIsFailedOrder(t *testing.T) {
	store := newMemStore(10)
	l := testLedger(store)

	order, err := l.Buy(context.Background(), "mkt-1", "q", "Yes", 50, 0.50, domain.ModePaper)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFailed, order.Status)
	assert.NotEmpty(t, order.Error)

	// No mutation happened.
	assert.InDelta(t, 10.0, store.wallet.Balance, 1e-9)
	assert.Empty(t, store.positions)
	assert.Empty(t, store.log)
}

func TestBuySellRoundTripRestoresBalance(t *testing.T) {
	store := newMemStore(1000)
	l := testLedger(store)
	ctx := context.Background()

	_, err := l.Buy(ctx, "mkt-1", "q", "Yes", 50, 0.50, domain.ModePaper)
	require.NoError(t, err)

	positions, err := l.GetPositions(ctx, domain.ModePaper)
	require.NoError(t, err)
	require.Len(t, positions, 1)

	order, err := l.Sell(ctx, positions[0], 0.50, domain.ModePaper)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFilled, order.Status)

	// Same price both ways: balance exactly restored.
	assert.InDelta(t, 1000.0, store.wallet.Balance, 1e-9)
	assert.Empty(t, store.positions)
	require.Len(t, store.log, 2)
	assert.Equal(t, domain.TransactionTypeSell, store.log[1].Type)
}

func TestSellDeletesPosition(t *testing.T) {
	store := newMemStore(1000)
	l := testLedger(store)
	ctx := context.Background()

	_, err := l.Buy(ctx, "mkt-1", "q", "Yes", 40, 0.40, domain.ModePaper)
	require.NoError(t, err)
	positions, _ := l.GetPositions(ctx, domain.ModePaper)
	require.Len(t, positions, 1)

	_, err = l.Sell(ctx, positions[0], 0.60, domain.ModePaper)
	require.NoError(t, err)

	positions, err = l.GetPositions(ctx, domain.ModePaper)
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestCanTrade(t *testing.T) {
	store := newMemStore(1000)
	l := testLedger(store)
	ctx := context.Background()

	ok, reason, err := l.CanTrade(ctx, domain.ModePaper, 50)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, reason)

	// Below minimum balance.
	store.wallet.Balance = 5
	ok, reason, err = l.CanTrade(ctx, domain.ModePaper, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, reason, "minimum")

	// Amount exceeds balance.
	store.wallet.Balance = 20
	ok, reason, err = l.CanTrade(ctx, domain.ModePaper, 30)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, reason, "Insufficient")

	// Live trading disabled.
	ok, reason, err = l.CanTrade(ctx, domain.ModeLive, 10)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, reason, "disabled")
}

func TestCanTradeMaxPositions(t *testing.T) {
	store := newMemStore(10000)
	l := testLedger(store)
	l.cfg.MaxPositions = 2
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := l.Buy(ctx, fmt.Sprintf("mkt-%d", i), "q", "Yes", 50, 0.50, domain.ModePaper)
		require.NoError(t, err)
	}

	ok, reason, err := l.CanTrade(ctx, domain.ModePaper, 50)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, reason, "Maximum positions")
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	store := newMemStore(100)
	l := testLedger(store)

	_, err := l.Withdraw(context.Background(), domain.ModePaper, 500, "test")
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.InDelta(t, 100.0, store.wallet.Balance, 1e-9)
}

func TestDepositCredits(t *testing.T) {
	store := newMemStore(100)
	l := testLedger(store)

	w, err := l.Deposit(context.Background(), domain.ModePaper, 250, "top up")
	require.NoError(t, err)
	assert.InDelta(t, 350.0, w.Balance, 1e-9)
}
