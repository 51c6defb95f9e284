package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/moneymaker/moneymaker/internal/domain"
	"github.com/moneymaker/moneymaker/internal/notify"
)

// Event channels published on the signal bus.
const (
	ChannelWorkflow = "events.workflow"
	ChannelOrder    = "events.order"
	ChannelPosition = "events.position"
)

// OrchestratorConfig carries the settings the orchestrator reports in
// system status.
type OrchestratorConfig struct {
	PaperEnabled  bool
	LiveEnabled   bool
	StopLossPct   float64
	TakeProfitPct float64
}

// SystemStatus is the operator-facing snapshot of the whole system.
type SystemStatus struct {
	Status     string                 `json:"status"`
	Timestamp  time.Time              `json:"timestamp"`
	Paper      bool                   `json:"paper_enabled"`
	Live       bool                   `json:"live_enabled"`
	Balances   map[string]float64     `json:"balances"`
	Thresholds map[string]float64     `json:"thresholds"`
	Workflows  []domain.WorkflowState `json:"workflows"`
}

// Orchestrator is the facade the transport layer drives: it runs the
// pipelines, records their runs in the registry, and fans results out
// to the signal bus and notifier. Registry and bus failures are logged
// and swallowed; the run result always reaches the caller.
type Orchestrator struct {
	discovery *DiscoveryWorkflow
	monitor   *MonitorWorkflow
	registry  *Registry
	ledger    TradingLedger
	bus       domain.SignalBus
	notifier  *notify.Notifier
	cfg       OrchestratorConfig
	logger    *slog.Logger
}

// NewOrchestrator creates an Orchestrator. bus and notifier may be nil.
func NewOrchestrator(
	discovery *DiscoveryWorkflow,
	monitor *MonitorWorkflow,
	registry *Registry,
	ledger TradingLedger,
	bus domain.SignalBus,
	notifier *notify.Notifier,
	cfg OrchestratorConfig,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		discovery: discovery,
		monitor:   monitor,
		registry:  registry,
		ledger:    ledger,
		bus:       bus,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger.With("component", "orchestrator"),
	}
}

// RunDiscovery executes one discovery pass and records it.
func (o *Orchestrator) RunDiscovery(ctx context.Context, mode domain.Mode) (domain.RunResult, error) {
	if !mode.Valid() {
		return domain.RunResult{}, domain.ErrInvalidMode
	}

	o.recordStart(ctx, domain.WorkflowDiscovery, mode)
	result := o.discovery.Run(ctx, mode)
	o.recordEnd(ctx, domain.WorkflowDiscovery, mode, result.FirstError())

	o.publish(ctx, ChannelWorkflow, result)
	if result.OrdersPlaced > 0 {
		o.notify(ctx, notify.EventOrderPlaced, "Orders placed",
			fmt.Sprintf("Discovery run (%s) placed %d order(s) across %d suggestion(s)",
				mode, result.OrdersPlaced, result.Suggestions))
	}
	if !result.Success {
		o.notify(ctx, notify.EventWorkflowFailed, "Discovery failed",
			fmt.Sprintf("Discovery run (%s) failed: %s", mode, result.FirstError()))
	}

	return result, nil
}

// RunMonitor executes one monitor pass and records it.
func (o *Orchestrator) RunMonitor(ctx context.Context, mode domain.Mode) (domain.RunResult, error) {
	if !mode.Valid() {
		return domain.RunResult{}, domain.ErrInvalidMode
	}

	o.recordStart(ctx, domain.WorkflowMonitor, mode)
	result := o.monitor.Run(ctx, mode)
	o.recordEnd(ctx, domain.WorkflowMonitor, mode, result.FirstError())

	o.publish(ctx, ChannelWorkflow, result)
	if result.SellsTriggered > 0 {
		o.publish(ctx, ChannelPosition, result)
		o.notify(ctx, notify.EventPositionClosed, "Positions closed",
			fmt.Sprintf("Monitor run (%s) closed %d position(s): %d stop-loss, %d take-profit",
				mode, result.SellsTriggered, result.StopLosses, result.TakeProfits))
	}
	if !result.Success {
		o.notify(ctx, notify.EventWorkflowFailed, "Monitor failed",
			fmt.Sprintf("Monitor run (%s) failed: %s", mode, result.FirstError()))
	}

	return result, nil
}

// ToggleWorkflow flips a workflow's enabled flag.
func (o *Orchestrator) ToggleWorkflow(ctx context.Context, workflowID string, mode domain.Mode, enabled bool) (domain.WorkflowState, error) {
	if !mode.Valid() {
		return domain.WorkflowState{}, domain.ErrInvalidMode
	}
	return o.registry.Toggle(ctx, workflowID, mode, enabled)
}

// WorkflowState returns the recorded state for one workflow and mode.
func (o *Orchestrator) WorkflowState(ctx context.Context, workflowID string, mode domain.Mode) (domain.WorkflowState, error) {
	return o.registry.Get(ctx, workflowID, mode)
}

// WorkflowEnabled reports whether a workflow is enabled for a mode. A
// workflow that was never toggled counts as enabled.
func (o *Orchestrator) WorkflowEnabled(ctx context.Context, workflowID string, mode domain.Mode) bool {
	state, err := o.registry.Get(ctx, workflowID, mode)
	if err != nil {
		return true
	}
	return state.Enabled
}

// Status assembles the operator snapshot. Per-part failures degrade
// the snapshot instead of failing it.
func (o *Orchestrator) Status(ctx context.Context) SystemStatus {
	status := SystemStatus{
		Status:    "operational",
		Timestamp: time.Now().UTC(),
		Paper:     o.cfg.PaperEnabled,
		Live:      o.cfg.LiveEnabled,
		Balances:  map[string]float64{},
		Thresholds: map[string]float64{
			"stop_loss":   o.cfg.StopLossPct,
			"take_profit": o.cfg.TakeProfitPct,
		},
	}

	for _, mode := range []domain.Mode{domain.ModePaper, domain.ModeLive} {
		balance, err := o.ledger.GetBalance(ctx, mode)
		if err != nil {
			balance = 0
		}
		status.Balances[string(mode)] = balance
	}

	states, err := o.registry.List(ctx)
	if err != nil {
		o.logger.WarnContext(ctx, "list workflow states failed", slog.String("error", err.Error()))
	} else {
		status.Workflows = states
	}

	return status
}

func (o *Orchestrator) recordStart(ctx context.Context, workflowID string, mode domain.Mode) {
	if err := o.registry.RecordRunStart(ctx, workflowID, mode); err != nil {
		o.logger.WarnContext(ctx, "record run start failed",
			slog.String("workflow_id", workflowID),
			slog.String("error", err.Error()),
		)
	}
}

func (o *Orchestrator) recordEnd(ctx context.Context, workflowID string, mode domain.Mode, lastError string) {
	if err := o.registry.RecordRunEnd(ctx, workflowID, mode, lastError); err != nil {
		o.logger.WarnContext(ctx, "record run end failed",
			slog.String("workflow_id", workflowID),
			slog.String("error", err.Error()),
		)
	}
}

func (o *Orchestrator) publish(ctx context.Context, channel string, result domain.RunResult) {
	if o.bus == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := o.bus.Publish(ctx, channel, payload); err != nil {
		o.logger.WarnContext(ctx, "event publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}

func (o *Orchestrator) notify(ctx context.Context, event, title, message string) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.Notify(ctx, event, title, message); err != nil {
		o.logger.WarnContext(ctx, "notify failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
