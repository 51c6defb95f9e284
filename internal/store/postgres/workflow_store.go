package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moneymaker/moneymaker/internal/domain"
)

// WorkflowStore implements domain.WorkflowStore using PostgreSQL.
type WorkflowStore struct {
	pool *pgxpool.Pool
}

var _ domain.WorkflowStore = (*WorkflowStore)(nil)

// NewWorkflowStore creates a new WorkflowStore backed by the given connection pool.
func NewWorkflowStore(pool *pgxpool.Pool) *WorkflowStore {
	return &WorkflowStore{pool: pool}
}

const workflowSelectCols = `workflow_id, mode, enabled, run_count, last_run_at, last_error, updated_at`

func scanWorkflowRow(row pgx.Row) (domain.WorkflowState, error) {
	var st domain.WorkflowState
	var mode string
	err := row.Scan(&st.WorkflowID, &mode, &st.Enabled, &st.RunCount,
		&st.LastRunAt, &st.LastError, &st.UpdatedAt)
	if err != nil {
		return domain.WorkflowState{}, err
	}
	st.Mode = domain.Mode(mode)
	return st, nil
}

// Get returns the state row for one workflow and mode.
func (s *WorkflowStore) Get(ctx context.Context, workflowID string, mode domain.Mode) (domain.WorkflowState, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+workflowSelectCols+` FROM workflow_state WHERE workflow_id = $1 AND mode = $2`,
		workflowID, string(mode))

	st, err := scanWorkflowRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.WorkflowState{}, domain.ErrNotFound
		}
		return domain.WorkflowState{}, fmt.Errorf("postgres: get workflow state %s/%s: %w", workflowID, mode, err)
	}
	return st, nil
}

// Upsert writes the full state row, creating it when absent.
func (s *WorkflowStore) Upsert(ctx context.Context, st domain.WorkflowState) error {
	const query = `
		INSERT INTO workflow_state (workflow_id, mode, enabled, run_count, last_run_at, last_error, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (workflow_id, mode) DO UPDATE SET
			enabled     = EXCLUDED.enabled,
			run_count   = EXCLUDED.run_count,
			last_run_at = EXCLUDED.last_run_at,
			last_error  = EXCLUDED.last_error,
			updated_at  = NOW()`

	_, err := s.pool.Exec(ctx, query,
		st.WorkflowID, string(st.Mode), st.Enabled, st.RunCount, st.LastRunAt, st.LastError)
	if err != nil {
		return fmt.Errorf("postgres: upsert workflow state %s/%s: %w", st.WorkflowID, st.Mode, err)
	}
	return nil
}

// List returns every workflow state row.
func (s *WorkflowStore) List(ctx context.Context) ([]domain.WorkflowState, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+workflowSelectCols+` FROM workflow_state ORDER BY workflow_id, mode`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list workflow states: %w", err)
	}
	defer rows.Close()

	var states []domain.WorkflowState
	for rows.Next() {
		st, err := scanWorkflowRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan workflow state: %w", err)
		}
		states = append(states, st)
	}
	return states, rows.Err()
}
