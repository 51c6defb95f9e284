package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moneymaker/moneymaker/internal/domain"
)

// LedgerStore implements domain.LedgerStore using PostgreSQL. Every
// multi-step mutation runs inside one transaction with the wallet row
// locked, so the debit/credit, transaction row, and position row become
// visible together or not at all.
type LedgerStore struct {
	pool *pgxpool.Pool
}

var _ domain.LedgerStore = (*LedgerStore)(nil)

// NewLedgerStore creates a LedgerStore backed by the given pool.
func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

const walletSelectCols = `id, mode, balance, currency, created_at, updated_at`

func scanWalletRow(row pgx.Row) (domain.Wallet, error) {
	var w domain.Wallet
	var mode string
	err := row.Scan(&w.ID, &mode, &w.Balance, &w.Currency, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return domain.Wallet{}, err
	}
	w.Mode = domain.Mode(mode)
	return w, nil
}

// GetOrCreateWallet returns the wallet for the mode, creating it with
// the initial balance on first use.
func (s *LedgerStore) GetOrCreateWallet(ctx context.Context, mode domain.Mode, initialBalance float64, currency string) (domain.Wallet, error) {
	const query = `
		INSERT INTO wallets (id, mode, balance, currency)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (mode) DO UPDATE SET updated_at = wallets.updated_at
		RETURNING ` + walletSelectCols

	row := s.pool.QueryRow(ctx, query, uuid.NewString(), string(mode), initialBalance, currency)
	w, err := scanWalletRow(row)
	if err != nil {
		return domain.Wallet{}, fmt.Errorf("postgres: get or create wallet %s: %w", mode, err)
	}
	return w, nil
}

// GetWallet returns the wallet for the mode.
func (s *LedgerStore) GetWallet(ctx context.Context, mode domain.Mode) (domain.Wallet, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+walletSelectCols+` FROM wallets WHERE mode = $1`, string(mode))
	w, err := scanWalletRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Wallet{}, domain.ErrNotFound
		}
		return domain.Wallet{}, fmt.Errorf("postgres: get wallet %s: %w", mode, err)
	}
	return w, nil
}

// lockWallet reads the mode's wallet row FOR UPDATE inside tx.
func lockWallet(ctx context.Context, tx pgx.Tx, mode domain.Mode) (domain.Wallet, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+walletSelectCols+` FROM wallets WHERE mode = $1 FOR UPDATE`, string(mode))
	w, err := scanWalletRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Wallet{}, domain.ErrNotFound
		}
		return domain.Wallet{}, fmt.Errorf("lock wallet %s: %w", mode, err)
	}
	return w, nil
}

// setBalance updates the locked wallet's balance inside tx.
func setBalance(ctx context.Context, tx pgx.Tx, walletID string, balance float64) error {
	_, err := tx.Exec(ctx,
		`UPDATE wallets SET balance = $2, updated_at = NOW() WHERE id = $1`,
		walletID, balance)
	return err
}

// insertTransaction appends one ledger row inside tx and returns it.
func insertTransaction(ctx context.Context, tx pgx.Tx, t domain.Transaction) (domain.Transaction, error) {
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now().UTC()
	_, err := tx.Exec(ctx, `
		INSERT INTO transactions (id, wallet_id, type, amount, balance_before, balance_after, reference_id, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.WalletID, string(t.Type), t.Amount, t.BalanceBefore, t.BalanceAfter,
		t.ReferenceID, t.Description, t.CreatedAt)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return t, nil
}

// Deposit credits the mode's wallet and records a deposit transaction.
func (s *LedgerStore) Deposit(ctx context.Context, mode domain.Mode, amount float64, description string) (domain.Wallet, error) {
	if amount <= 0 {
		return domain.Wallet{}, domain.ErrInvalidAmount
	}
	w, err := s.adjust(ctx, mode, domain.TransactionTypeDeposit, amount, description)
	if err != nil {
		return domain.Wallet{}, fmt.Errorf("postgres: deposit: %w", err)
	}
	return w, nil
}

// Withdraw debits the mode's wallet and records a withdrawal
// transaction. The debit fails without mutation when the balance is
// insufficient.
func (s *LedgerStore) Withdraw(ctx context.Context, mode domain.Mode, amount float64, description string) (domain.Wallet, error) {
	if amount <= 0 {
		return domain.Wallet{}, domain.ErrInvalidAmount
	}
	w, err := s.adjust(ctx, mode, domain.TransactionTypeWithdrawal, amount, description)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) || errors.Is(err, domain.ErrNotFound) {
			return domain.Wallet{}, err
		}
		return domain.Wallet{}, fmt.Errorf("postgres: withdraw: %w", err)
	}
	return w, nil
}

func (s *LedgerStore) adjust(ctx context.Context, mode domain.Mode, typ domain.TransactionType, amount float64, description string) (domain.Wallet, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Wallet{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	w, err := lockWallet(ctx, tx, mode)
	if err != nil {
		return domain.Wallet{}, err
	}

	before := w.Balance
	if typ.Debits() {
		if !w.CanAfford(amount) {
			return domain.Wallet{}, domain.ErrInsufficientFunds
		}
		w.Balance -= amount
	} else {
		w.Balance += amount
	}

	if err := setBalance(ctx, tx, w.ID, w.Balance); err != nil {
		return domain.Wallet{}, fmt.Errorf("set balance: %w", err)
	}
	if _, err := insertTransaction(ctx, tx, domain.Transaction{
		WalletID:      w.ID,
		Type:          typ,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  w.Balance,
		Description:   description,
	}); err != nil {
		return domain.Wallet{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Wallet{}, fmt.Errorf("commit: %w", err)
	}
	return w, nil
}

// ExecuteBuy atomically debits the wallet, appends the buy transaction,
// and creates the position. A wallet that cannot afford the amount
// leaves no trace.
func (s *LedgerStore) ExecuteBuy(ctx context.Context, req domain.BuyRequest) (domain.Position, domain.Transaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Position{}, domain.Transaction{}, fmt.Errorf("postgres: buy: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	w, err := lockWallet(ctx, tx, req.Mode)
	if err != nil {
		return domain.Position{}, domain.Transaction{}, fmt.Errorf("postgres: buy: %w", err)
	}
	if !w.CanAfford(req.Amount) {
		return domain.Position{}, domain.Transaction{}, domain.ErrInsufficientFunds
	}

	before := w.Balance
	w.Balance -= req.Amount
	if err := setBalance(ctx, tx, w.ID, w.Balance); err != nil {
		return domain.Position{}, domain.Transaction{}, fmt.Errorf("postgres: buy: set balance: %w", err)
	}

	now := time.Now().UTC()
	pos := domain.Position{
		ID:           uuid.NewString(),
		WalletID:     w.ID,
		Mode:         req.Mode,
		MarketID:     req.MarketID,
		Question:     req.Question,
		Outcome:      req.Outcome,
		EntryPrice:   req.Price,
		CurrentPrice: req.Price,
		Quantity:     req.Quantity,
		OpenedAt:     now,
		UpdatedAt:    now,
	}

	txn, err := insertTransaction(ctx, tx, domain.Transaction{
		WalletID:      w.ID,
		Type:          domain.TransactionTypeBuy,
		Amount:        req.Amount,
		BalanceBefore: before,
		BalanceAfter:  w.Balance,
		ReferenceID:   pos.ID,
		Description:   fmt.Sprintf("Buy %s @ %.4f in %s", req.Outcome, req.Price, req.MarketID),
	})
	if err != nil {
		return domain.Position{}, domain.Transaction{}, fmt.Errorf("postgres: buy: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO positions (id, wallet_id, mode, market_id, question, outcome, entry_price, current_price, quantity, opened_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		pos.ID, pos.WalletID, string(pos.Mode), pos.MarketID, pos.Question, pos.Outcome,
		pos.EntryPrice, pos.CurrentPrice, pos.Quantity, pos.OpenedAt, pos.UpdatedAt,
	); err != nil {
		return domain.Position{}, domain.Transaction{}, fmt.Errorf("postgres: buy: insert position: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Position{}, domain.Transaction{}, fmt.Errorf("postgres: buy: commit: %w", err)
	}
	return pos, txn, nil
}

// ExecuteSell atomically credits the wallet with the proceeds, appends
// the sell transaction, and deletes the position row. The position is
// gone afterwards; the transaction log is the only record of the trade.
func (s *LedgerStore) ExecuteSell(ctx context.Context, req domain.SellRequest) (domain.Transaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("postgres: sell: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	w, err := lockWallet(ctx, tx, req.Mode)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("postgres: sell: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM positions WHERE id = $1 AND mode = $2`,
		req.PositionID, string(req.Mode))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("postgres: sell: delete position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Transaction{}, domain.ErrNotFound
	}

	before := w.Balance
	w.Balance += req.Proceeds
	if err := setBalance(ctx, tx, w.ID, w.Balance); err != nil {
		return domain.Transaction{}, fmt.Errorf("postgres: sell: set balance: %w", err)
	}

	txn, err := insertTransaction(ctx, tx, domain.Transaction{
		WalletID:      w.ID,
		Type:          domain.TransactionTypeSell,
		Amount:        req.Proceeds,
		BalanceBefore: before,
		BalanceAfter:  w.Balance,
		ReferenceID:   req.PositionID,
		Description:   fmt.Sprintf("Sell position %s @ %.4f", req.PositionID, req.Price),
	})
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("postgres: sell: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Transaction{}, fmt.Errorf("postgres: sell: commit: %w", err)
	}
	return txn, nil
}
