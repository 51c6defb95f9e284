package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneymaker/moneymaker/internal/domain"
)

func testGateConfig() GateConfig {
	return GateConfig{
		ConfidenceThreshold: 0.7,
		MinBalanceToTrade:   10,
		MaxBetAmount:        50,
		MaxPositionPercent:  0.10,
	}
}

func testSuggestion() domain.Suggestion {
	return domain.Suggestion{
		MarketID:          "mkt-1",
		Outcome:           "Yes",
		CurrentPrice:      0.60,
		Confidence:        0.85,
		SuggestedFraction: 0.10,
		Risk:              domain.RiskMedium,
	}
}

func TestGateApprovesAndSizes(t *testing.T) {
	g := NewGate(testGateConfig())

	// fraction x balance = 100, capped by max bet 50, percent cap 100.
	d := g.ShouldTrade(testSuggestion(), 1000)
	require.True(t, d.Trade)
	assert.Equal(t, "Trade approved", d.Reason)
	assert.InDelta(t, 50.0, d.Size, 1e-9)
}

func TestGatePercentCapWins(t *testing.T) {
	g := NewGate(testGateConfig())

	s := testSuggestion()
	s.SuggestedFraction = 0.5
	d := g.ShouldTrade(s, 100)
	require.True(t, d.Trade)
	assert.InDelta(t, 10.0, d.Size, 1e-9)
}

func TestGateRejectsLowConfidence(t *testing.T) {
	g := NewGate(testGateConfig())

	s := testSuggestion()
	s.Confidence = 0.5
	d := g.ShouldTrade(s, 1000)
	require.False(t, d.Trade)
	assert.Contains(t, d.Reason, "Confidence")
	assert.Zero(t, d.Size)
}

func TestGateRejectsLowBalance(t *testing.T) {
	g := NewGate(testGateConfig())

	d := g.ShouldTrade(testSuggestion(), 5)
	require.False(t, d.Trade)
	assert.Contains(t, d.Reason, "below minimum")
	assert.Zero(t, d.Size)
}

func TestGateRejectsTinySize(t *testing.T) {
	g := NewGate(testGateConfig())

	s := testSuggestion()
	s.SuggestedFraction = 0.01
	d := g.ShouldTrade(s, 50)
	require.False(t, d.Trade)
	assert.Contains(t, d.Reason, "too small")
}

func TestGateConfidenceCheckedBeforeBalance(t *testing.T) {
	g := NewGate(testGateConfig())

	s := testSuggestion()
	s.Confidence = 0.1
	d := g.ShouldTrade(s, 5)
	require.False(t, d.Trade)
	assert.Contains(t, d.Reason, "Confidence")
}
