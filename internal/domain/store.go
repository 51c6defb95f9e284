package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// BuyRequest describes one paper buy for atomic execution: the debit,
// the transaction row, and the position row commit or roll back
// together.
type BuyRequest struct {
	Mode     Mode
	MarketID string
	Question string
	Outcome  string
	Amount   float64
	Price    float64
	Quantity float64
}

// SellRequest describes one paper sell for atomic execution: the
// credit, the transaction row, and the position delete commit or roll
// back together.
type SellRequest struct {
	Mode       Mode
	PositionID string
	Price      float64
	Proceeds   float64
}

// LedgerStore persists the paper-trading wallet, its open positions,
// and the append-only transaction log. The multi-step mutations are
// atomic: a partial write never becomes visible.
type LedgerStore interface {
	GetOrCreateWallet(ctx context.Context, mode Mode, initialBalance float64, currency string) (Wallet, error)
	GetWallet(ctx context.Context, mode Mode) (Wallet, error)
	Deposit(ctx context.Context, mode Mode, amount float64, description string) (Wallet, error)
	Withdraw(ctx context.Context, mode Mode, amount float64, description string) (Wallet, error)
	ExecuteBuy(ctx context.Context, req BuyRequest) (Position, Transaction, error)
	ExecuteSell(ctx context.Context, req SellRequest) (Transaction, error)
}

// PositionStore reads and refreshes open positions.
type PositionStore interface {
	GetByID(ctx context.Context, id string) (Position, error)
	ListOpen(ctx context.Context, mode Mode) ([]Position, error)
	CountOpen(ctx context.Context, mode Mode) (int, error)
	UpdatePrice(ctx context.Context, id string, price float64) error
}

// TransactionStore reads the append-only transaction log. Deletion
// exists only for archival retention after rows are copied out.
type TransactionStore interface {
	ListByWallet(ctx context.Context, walletID string, opts ListOpts) ([]Transaction, error)
	ListBefore(ctx context.Context, cutoff time.Time, opts ListOpts) ([]Transaction, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// WorkflowStore persists per-workflow, per-mode toggle and run state.
type WorkflowStore interface {
	Get(ctx context.Context, workflowID string, mode Mode) (WorkflowState, error)
	Upsert(ctx context.Context, state WorkflowState) error
	List(ctx context.Context) ([]WorkflowState, error)
}
