package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moneymaker/moneymaker/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *pgxpool.Pool
}

var _ domain.PositionStore = (*PositionStore)(nil)

// NewPositionStore creates a new PositionStore backed by the given connection pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

const positionSelectCols = `id, wallet_id, mode, market_id, question, outcome,
	entry_price, current_price, quantity, opened_at, updated_at`

func scanPositionRow(row pgx.Row) (domain.Position, error) {
	var p domain.Position
	var mode string
	err := row.Scan(
		&p.ID, &p.WalletID, &mode, &p.MarketID, &p.Question, &p.Outcome,
		&p.EntryPrice, &p.CurrentPrice, &p.Quantity, &p.OpenedAt, &p.UpdatedAt,
	)
	if err != nil {
		return domain.Position{}, err
	}
	p.Mode = domain.Mode(mode)
	return p, nil
}

func scanPositionRows(rows pgx.Rows) ([]domain.Position, error) {
	var positions []domain.Position
	for rows.Next() {
		p, err := scanPositionRow(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// GetByID retrieves a single open position by its ID.
func (s *PositionStore) GetByID(ctx context.Context, id string) (domain.Position, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+positionSelectCols+` FROM positions WHERE id = $1`, id)

	p, err := scanPositionRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position %s: %w", id, err)
	}
	return p, nil
}

// ListOpen returns all open positions for the given mode, oldest first.
func (s *PositionStore) ListOpen(ctx context.Context, mode domain.Mode) ([]domain.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+positionSelectCols+` FROM positions
		 WHERE mode = $1
		 ORDER BY opened_at ASC`, string(mode))
	if err != nil {
		return nil, fmt.Errorf("postgres: list open positions: %w", err)
	}
	defer rows.Close()

	positions, err := scanPositionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan open positions: %w", err)
	}
	return positions, nil
}

// CountOpen returns the number of open positions for the given mode.
func (s *PositionStore) CountOpen(ctx context.Context, mode domain.Mode) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM positions WHERE mode = $1`, string(mode)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count open positions: %w", err)
	}
	return n, nil
}

// UpdatePrice refreshes a position's mark price.
func (s *PositionStore) UpdatePrice(ctx context.Context, id string, price float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE positions SET current_price = $2, updated_at = NOW() WHERE id = $1`,
		id, price)
	if err != nil {
		return fmt.Errorf("postgres: update position price %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
