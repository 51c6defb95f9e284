package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/moneymaker/moneymaker/internal/domain"
)

// Registry tracks per-workflow, per-mode toggle and run state. It is a
// passive tracker: nothing here schedules runs, it only records them.
// States are created lazily and never deleted.
type Registry struct {
	store  domain.WorkflowStore
	logger *slog.Logger
	now    func() time.Time
}

// NewRegistry creates a Registry backed by the given store.
func NewRegistry(store domain.WorkflowStore, logger *slog.Logger) *Registry {
	return &Registry{
		store:  store,
		logger: logger.With("component", "workflow_registry"),
		now:    time.Now,
	}
}

// Get returns the state for one workflow and mode. A workflow that has
// never been toggled or run yields domain.ErrNotFound.
func (r *Registry) Get(ctx context.Context, workflowID string, mode domain.Mode) (domain.WorkflowState, error) {
	state, err := r.store.Get(ctx, workflowID, mode)
	if err != nil {
		return domain.WorkflowState{}, fmt.Errorf("workflow_registry: get %s_%s: %w", workflowID, mode, err)
	}
	return state, nil
}

// List returns all recorded workflow states.
func (r *Registry) List(ctx context.Context) ([]domain.WorkflowState, error) {
	states, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("workflow_registry: list: %w", err)
	}
	return states, nil
}

// Toggle sets the enabled flag, creating the state row on first use.
func (r *Registry) Toggle(ctx context.Context, workflowID string, mode domain.Mode, enabled bool) (domain.WorkflowState, error) {
	state, err := r.store.Get(ctx, workflowID, mode)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.WorkflowState{}, fmt.Errorf("workflow_registry: toggle %s_%s: %w", workflowID, mode, err)
		}
		state = domain.WorkflowState{
			WorkflowID: workflowID,
			Mode:       mode,
		}
	}

	state.Enabled = enabled
	state.UpdatedAt = r.now()

	if err := r.store.Upsert(ctx, state); err != nil {
		return domain.WorkflowState{}, fmt.Errorf("workflow_registry: toggle %s_%s: %w", workflowID, mode, err)
	}

	r.logger.InfoContext(ctx, "workflow toggled",
		slog.String("workflow_id", workflowID),
		slog.String("mode", string(mode)),
		slog.Bool("enabled", enabled),
	)
	return state, nil
}

// RecordRunStart bumps the run counter and stamps the run time. Called
// once before a pipeline runs; a missing state row is created enabled,
// since an explicitly triggered workflow is by definition in use.
func (r *Registry) RecordRunStart(ctx context.Context, workflowID string, mode domain.Mode) error {
	state, err := r.getOrInit(ctx, workflowID, mode)
	if err != nil {
		return err
	}

	now := r.now()
	state.RunCount++
	state.LastRunAt = &now
	state.UpdatedAt = now

	if err := r.store.Upsert(ctx, state); err != nil {
		return fmt.Errorf("workflow_registry: record run start %s_%s: %w", workflowID, mode, err)
	}
	return nil
}

// RecordRunEnd stores the run's first error, or clears it on a clean
// run. Called once after a pipeline run finishes, success or not.
func (r *Registry) RecordRunEnd(ctx context.Context, workflowID string, mode domain.Mode, lastError string) error {
	state, err := r.getOrInit(ctx, workflowID, mode)
	if err != nil {
		return err
	}

	state.LastError = lastError
	state.UpdatedAt = r.now()

	if err := r.store.Upsert(ctx, state); err != nil {
		return fmt.Errorf("workflow_registry: record run end %s_%s: %w", workflowID, mode, err)
	}
	return nil
}

func (r *Registry) getOrInit(ctx context.Context, workflowID string, mode domain.Mode) (domain.WorkflowState, error) {
	state, err := r.store.Get(ctx, workflowID, mode)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.WorkflowState{}, fmt.Errorf("workflow_registry: get %s_%s: %w", workflowID, mode, err)
	}
	return domain.WorkflowState{
		WorkflowID: workflowID,
		Mode:       mode,
		Enabled:    true,
	}, nil
}
