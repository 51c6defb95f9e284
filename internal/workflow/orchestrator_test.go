package workflow

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneymaker/moneymaker/internal/domain"
)

func newTestOrchestrator(ledger *fakeLedger, markets *fakeMarkets, sugg *fakeSuggestions) (*Orchestrator, *Registry) {
	logger := slog.New(slog.DiscardHandler)
	reg, _ := newTestRegistry()
	disc := NewDiscoveryWorkflow(markets, sugg, ledger, testGate(), discoveryConfig(), logger)
	mon := NewMonitorWorkflow(ledger, markets, nil, testExit(), logger)
	cfg := OrchestratorConfig{PaperEnabled: true, StopLossPct: -15, TakeProfitPct: 30}
	return NewOrchestrator(disc, mon, reg, ledger, nil, nil, cfg, logger), reg
}

func TestRunDiscoveryRecordsRun(t *testing.T) {
	ledger := &fakeLedger{canTrade: true, balance: 1000}
	markets := &fakeMarkets{tradeable: []domain.Market{{ID: "m1"}}}
	sugg := &fakeSuggestions{suggestions: []domain.Suggestion{suggestion("m1", 0.9, 0.1)}}
	orch, reg := newTestOrchestrator(ledger, markets, sugg)

	result, err := orch.RunDiscovery(context.Background(), domain.ModePaper)
	require.NoError(t, err)
	assert.True(t, result.Success)

	state, err := reg.Get(context.Background(), domain.WorkflowDiscovery, domain.ModePaper)
	require.NoError(t, err)
	assert.Equal(t, int64(1), state.RunCount)
	assert.Empty(t, state.LastError)
	assert.NotNil(t, state.LastRunAt)
}

func TestRunDiscoveryRecordsFirstError(t *testing.T) {
	ledger := &fakeLedger{canTrade: false, reason: "Trading mode paper is disabled"}
	orch, reg := newTestOrchestrator(ledger, &fakeMarkets{}, &fakeSuggestions{})

	result, err := orch.RunDiscovery(context.Background(), domain.ModePaper)
	require.NoError(t, err)
	assert.False(t, result.Success)

	state, err := reg.Get(context.Background(), domain.WorkflowDiscovery, domain.ModePaper)
	require.NoError(t, err)
	assert.Equal(t, "Trading mode paper is disabled", state.LastError)
}

func TestRunMonitorRecordsRun(t *testing.T) {
	ledger := &fakeLedger{positions: []domain.Position{position("p1", "m1", 0.50, 0.40)}}
	markets := &fakeMarkets{byID: map[string]domain.Market{"m1": marketWithPrice("m1", 0.40)}}
	orch, reg := newTestOrchestrator(ledger, markets, &fakeSuggestions{})

	result, err := orch.RunMonitor(context.Background(), domain.ModePaper)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.SellsTriggered)

	state, err := reg.Get(context.Background(), domain.WorkflowMonitor, domain.ModePaper)
	require.NoError(t, err)
	assert.Equal(t, int64(1), state.RunCount)
}

func TestRunRejectsInvalidMode(t *testing.T) {
	orch, _ := newTestOrchestrator(&fakeLedger{}, &fakeMarkets{}, &fakeSuggestions{})

	_, err := orch.RunDiscovery(context.Background(), domain.Mode("turbo"))
	assert.ErrorIs(t, err, domain.ErrInvalidMode)

	_, err = orch.RunMonitor(context.Background(), domain.Mode(""))
	assert.ErrorIs(t, err, domain.ErrInvalidMode)
}

func TestWorkflowEnabledDefaultsTrue(t *testing.T) {
	orch, reg := newTestOrchestrator(&fakeLedger{}, &fakeMarkets{}, &fakeSuggestions{})
	ctx := context.Background()

	assert.True(t, orch.WorkflowEnabled(ctx, domain.WorkflowDiscovery, domain.ModePaper))

	_, err := reg.Toggle(ctx, domain.WorkflowDiscovery, domain.ModePaper, false)
	require.NoError(t, err)
	assert.False(t, orch.WorkflowEnabled(ctx, domain.WorkflowDiscovery, domain.ModePaper))
}

func TestStatusReportsBalancesAndStates(t *testing.T) {
	ledger := &fakeLedger{balance: 750}
	orch, reg := newTestOrchestrator(ledger, &fakeMarkets{}, &fakeSuggestions{})
	ctx := context.Background()

	_, err := reg.Toggle(ctx, domain.WorkflowDiscovery, domain.ModePaper, true)
	require.NoError(t, err)

	status := orch.Status(ctx)
	assert.Equal(t, "operational", status.Status)
	assert.Equal(t, 750.0, status.Balances["paper"])
	assert.Equal(t, -15.0, status.Thresholds["stop_loss"])
	require.Len(t, status.Workflows, 1)
}
