package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moneymaker/moneymaker/internal/domain"
)

// TransactionStore implements domain.TransactionStore using PostgreSQL.
// Rows are only ever written by the ledger; this store reads them and
// trims archived history.
type TransactionStore struct {
	pool *pgxpool.Pool
}

var _ domain.TransactionStore = (*TransactionStore)(nil)

// NewTransactionStore creates a new TransactionStore backed by the given connection pool.
func NewTransactionStore(pool *pgxpool.Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

const transactionSelectCols = `id, wallet_id, type, amount, balance_before, balance_after,
	reference_id, description, created_at`

func scanTransactionRows(rows pgx.Rows) ([]domain.Transaction, error) {
	var txns []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		var typ string
		if err := rows.Scan(
			&t.ID, &t.WalletID, &typ, &t.Amount, &t.BalanceBefore, &t.BalanceAfter,
			&t.ReferenceID, &t.Description, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		t.Type = domain.TransactionType(typ)
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// ListByWallet returns transactions for the given wallet, newest first,
// with pagination and optional time filtering.
func (s *TransactionStore) ListByWallet(ctx context.Context, walletID string, opts domain.ListOpts) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionSelectCols + ` FROM transactions WHERE wallet_id = $1`
	args := []any{walletID}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list transactions: %w", err)
	}
	defer rows.Close()

	txns, err := scanTransactionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan transactions: %w", err)
	}
	return txns, nil
}

// ListBefore returns transactions created before the cutoff, oldest
// first, for archival.
func (s *TransactionStore) ListBefore(ctx context.Context, cutoff time.Time, opts domain.ListOpts) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionSelectCols + ` FROM transactions
		WHERE created_at < $1 ORDER BY created_at ASC`
	args := []any{cutoff}

	if opts.Limit > 0 {
		query += " LIMIT $2"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET $3"
			args = append(args, opts.Offset)
		}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list transactions before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	defer rows.Close()

	txns, err := scanTransactionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan transactions: %w", err)
	}
	return txns, nil
}

// DeleteBefore removes transactions created before the cutoff and
// returns the number of deleted rows. Call only after the rows have
// been archived.
func (s *TransactionStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM transactions WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete transactions before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}
