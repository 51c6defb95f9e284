package domain

import "time"

// Wallet holds the paper-trading balance for one mode. The balance is
// never negative; every mutation goes through the ledger store as a
// debit or credit.
type Wallet struct {
	ID        string    `json:"id"`
	Mode      Mode      `json:"mode"`
	Balance   float64   `json:"balance"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanAfford reports whether a debit of amount would keep the balance
// non-negative.
func (w Wallet) CanAfford(amount float64) bool {
	return amount <= w.Balance
}

// TransactionType classifies a ledger transaction.
type TransactionType string

const (
	TransactionTypeBuy        TransactionType = "buy"
	TransactionTypeSell       TransactionType = "sell"
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeFee        TransactionType = "fee"
)

// Debits reports whether this transaction type subtracts from the
// balance.
func (t TransactionType) Debits() bool {
	return t == TransactionTypeBuy || t == TransactionTypeWithdrawal || t == TransactionTypeFee
}

// Transaction is one immutable row of the append-only ledger log.
// BalanceAfter always equals BalanceBefore plus or minus Amount
// according to the type's sign convention.
type Transaction struct {
	ID            string          `json:"id"`
	WalletID      string          `json:"wallet_id"`
	Type          TransactionType `json:"type"`
	Amount        float64         `json:"amount"`
	BalanceBefore float64         `json:"balance_before"`
	BalanceAfter  float64         `json:"balance_after"`
	ReferenceID   string          `json:"reference_id,omitempty"`
	Description   string          `json:"description,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
